package models

import (
	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

// MaxRulesPerAgent caps how many rules a single agent may carry.
const MaxRulesPerAgent = 50

// RuleType selects which predicate a rule applies to the payment context.
type RuleType string

const (
	TypeAmount   RuleType = "amount"
	TypeMerchant RuleType = "merchant"
	TypeTime     RuleType = "time"
	TypeVelocity RuleType = "velocity"
	TypeGeo      RuleType = "geo"
)

func (t RuleType) IsValid() bool {
	switch t {
	case TypeAmount, TypeMerchant, TypeTime, TypeVelocity, TypeGeo:
		return true
	}
	return false
}

// Action is the outcome a triggered rule returns. The policy engine treats
// anything other than ActionAllow as a hard rejection.
type Action string

const (
	ActionAllow Action = "allow"
	ActionBlock Action = "block"
	ActionFlag  Action = "flag"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionAllow, ActionBlock, ActionFlag:
		return true
	}
	return false
}

// MerchantMode determines whether the merchant list is an allow or deny list.
type MerchantMode string

const (
	MerchantWhitelist MerchantMode = "whitelist"
	MerchantBlacklist MerchantMode = "blacklist"
)

// AmountParams triggers when the amount falls outside [Min, Max].
type AmountParams struct {
	Min uint64 `json:"min"`
	Max uint64 `json:"max"`
}

// MerchantParams triggers on recipient/category membership. Whitelist mode
// triggers when the merchant is absent from the lists, blacklist mode when
// it is present.
type MerchantParams struct {
	Mode       MerchantMode       `json:"mode"`
	Principals []domain.Principal `json:"principals"`
	Categories []string           `json:"categories"`
}

// TimeParams triggers outside business hours or on weekends.
type TimeParams struct {
	BusinessHoursOnly bool  `json:"business_hours_only"`
	WeekendAllowed    bool  `json:"weekend_allowed"`
	StartHour         uint8 `json:"start_hour"`
	EndHour           uint8 `json:"end_hour"`
}

// VelocityParams triggers when recent transaction count exceeds the cap.
type VelocityParams struct {
	MaxPerHour uint32 `json:"max_per_hour"`
}

// GeoParams triggers when the payment country is not in the allowed set.
type GeoParams struct {
	AllowedCountries []string `json:"allowed_countries"`
}

// Rule is one entry in an agent's rule set. Exactly one of the parameter
// records is set, matching Type.
type Rule struct {
	ID        uint64           `json:"id"`
	AgentID   domain.Principal `json:"agent_id"`
	Type      RuleType         `json:"type"`
	Priority  uint64           `json:"priority"`
	Enabled   bool             `json:"enabled"`
	Action    Action           `json:"action"`
	CreatedAt uint64           `json:"created_at"`

	Amount   *AmountParams   `json:"amount,omitempty"`
	Merchant *MerchantParams `json:"merchant,omitempty"`
	Time     *TimeParams     `json:"time,omitempty"`
	Velocity *VelocityParams `json:"velocity,omitempty"`
	Geo      *GeoParams      `json:"geo,omitempty"`
}

// Validate checks the tagged-union shape and the per-type constraints.
func (r *Rule) Validate() error {
	if r.AgentID.IsZero() {
		return derrors.New(derrors.CodeInvalidParams, "rule agent id is required")
	}
	if !r.Type.IsValid() {
		return derrors.Newf(derrors.CodeInvalidParams, "unknown rule type %q", r.Type)
	}
	if !r.Action.IsValid() {
		return derrors.Newf(derrors.CodeInvalidParams, "unknown rule action %q", r.Action)
	}

	set := 0
	for _, present := range []bool{r.Amount != nil, r.Merchant != nil, r.Time != nil, r.Velocity != nil, r.Geo != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return derrors.New(derrors.CodeInvalidParams, "rule must carry exactly one parameter record")
	}

	switch r.Type {
	case TypeAmount:
		if r.Amount == nil {
			return derrors.New(derrors.CodeInvalidParams, "amount rule requires amount params")
		}
		if r.Amount.Min > r.Amount.Max {
			return derrors.New(derrors.CodeInvalidParams, "amount rule requires min <= max")
		}
	case TypeMerchant:
		if r.Merchant == nil {
			return derrors.New(derrors.CodeInvalidParams, "merchant rule requires merchant params")
		}
		if r.Merchant.Mode != MerchantWhitelist && r.Merchant.Mode != MerchantBlacklist {
			return derrors.Newf(derrors.CodeInvalidParams, "unknown merchant mode %q", r.Merchant.Mode)
		}
	case TypeTime:
		if r.Time == nil {
			return derrors.New(derrors.CodeInvalidParams, "time rule requires time params")
		}
		if r.Time.StartHour > 23 || r.Time.EndHour > 23 {
			return derrors.New(derrors.CodeInvalidParams, "hours must be in [0,23]")
		}
	case TypeVelocity:
		if r.Velocity == nil {
			return derrors.New(derrors.CodeInvalidParams, "velocity rule requires velocity params")
		}
	case TypeGeo:
		if r.Geo == nil {
			return derrors.New(derrors.CodeInvalidParams, "geo rule requires geo params")
		}
	}
	return nil
}

// PaymentContext is what rules are evaluated against. The derivable fields
// come from the policy engine; Category and Country are caller-supplied hints
// and empty when unknown.
type PaymentContext struct {
	Amount        uint64           `json:"amount"`
	Recipient     domain.Principal `json:"recipient"`
	Category      string           `json:"category,omitempty"`
	Hour          uint8            `json:"hour"`
	Weekend       bool             `json:"weekend"`
	TxsInLastHour uint32           `json:"txs_in_last_hour"`
	Country       string           `json:"country,omitempty"`
}
