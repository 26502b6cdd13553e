package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"paygate/internal/authz"
	"paygate/internal/ledger"
	"paygate/internal/rules/models"
	"paygate/internal/rules/store"
	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

const (
	admin = "admin"
	owner = "owner-1"
	agent = "agent-1"
)

// staticLookup resolves every known agent to the fixed owner above.
type staticLookup struct{}

func (staticLookup) Owner(_ context.Context, agentID domain.Principal) (domain.Principal, error) {
	if agentID == agent {
		return owner, nil
	}
	return "", derrors.Newf(derrors.CodeAgentNotFound, "agent %s not registered", agentID)
}

type RuleServiceSuite struct {
	suite.Suite
	svc *Service
	ctx context.Context
}

func TestRuleServiceSuite(t *testing.T) {
	suite.Run(t, new(RuleServiceSuite))
}

func (s *RuleServiceSuite) SetupTest() {
	authority := authz.NewAuthority()
	s.Require().NoError(authority.Initialize(admin))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc, err := New(store.NewInMemoryRuleStore(), staticLookup{}, authority, ledger.NewMemoryLedger(), WithLogger(logger))
	s.Require().NoError(err)
	s.svc = svc
	s.ctx = context.Background()
}

func amountRule(min, max uint64, action models.Action) *models.Rule {
	return &models.Rule{
		AgentID: agent,
		Type:    models.TypeAmount,
		Enabled: true,
		Action:  action,
		Amount:  &models.AmountParams{Min: min, Max: max},
	}
}

func (s *RuleServiceSuite) TestCreateRule() {
	s.Run("owner creates amount rule", func() {
		id, err := s.svc.CreateRule(s.ctx, owner, amountRule(10, 100, models.ActionBlock))
		s.Require().NoError(err)
		s.Equal(uint64(1), id)
	})

	s.Run("agent itself may create its rules", func() {
		_, err := s.svc.CreateRule(s.ctx, agent, amountRule(1, 50, models.ActionFlag))
		s.NoError(err)
	})

	s.Run("stranger rejected", func() {
		_, err := s.svc.CreateRule(s.ctx, "stranger", amountRule(1, 2, models.ActionBlock))
		s.Equal(derrors.CodeUnauthorized, derrors.CodeOf(err))
	})

	s.Run("min above max rejected", func() {
		_, err := s.svc.CreateRule(s.ctx, owner, amountRule(100, 10, models.ActionBlock))
		s.Equal(derrors.CodeInvalidParams, derrors.CodeOf(err))
	})

	s.Run("two parameter records rejected", func() {
		rule := amountRule(1, 2, models.ActionBlock)
		rule.Geo = &models.GeoParams{AllowedCountries: []string{"US"}}
		_, err := s.svc.CreateRule(s.ctx, owner, rule)
		s.Equal(derrors.CodeInvalidParams, derrors.CodeOf(err))
	})
}

func (s *RuleServiceSuite) TestRuleCap() {
	for range models.MaxRulesPerAgent {
		_, err := s.svc.CreateRule(s.ctx, owner, amountRule(0, 1000, models.ActionBlock))
		s.Require().NoError(err)
	}
	_, err := s.svc.CreateRule(s.ctx, owner, amountRule(0, 1000, models.ActionBlock))
	s.Equal(derrors.CodeInvalidParams, derrors.CodeOf(err))
}

func (s *RuleServiceSuite) TestUpdateAndDelete() {
	id, err := s.svc.CreateRule(s.ctx, owner, amountRule(10, 100, models.ActionBlock))
	s.Require().NoError(err)

	s.Run("update keeps identity fields", func() {
		updated := amountRule(20, 200, models.ActionFlag)
		updated.AgentID = "someone-else" // must be ignored
		s.Require().NoError(s.svc.UpdateRule(s.ctx, owner, id, updated))

		got, err := s.svc.GetRule(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(agent, got.AgentID.String())
		s.Equal(uint64(20), got.Amount.Min)
		s.Equal(models.ActionFlag, got.Action)
	})

	s.Run("priority and enabled setters", func() {
		s.Require().NoError(s.svc.SetRulePriority(s.ctx, owner, id, 7))
		s.Require().NoError(s.svc.SetRuleEnabled(s.ctx, owner, id, false))
		got, err := s.svc.GetRule(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(uint64(7), got.Priority)
		s.False(got.Enabled)
	})

	s.Run("delete then get", func() {
		s.Require().NoError(s.svc.DeleteRule(s.ctx, owner, id))
		_, err := s.svc.GetRule(s.ctx, id)
		s.Equal(derrors.CodeRuleNotFound, derrors.CodeOf(err))
	})

	s.Run("delete unknown rule", func() {
		err := s.svc.DeleteRule(s.ctx, owner, 9999)
		s.Equal(derrors.CodeRuleNotFound, derrors.CodeOf(err))
	})
}

func (s *RuleServiceSuite) evaluate(pctx models.PaymentContext) models.Action {
	action, err := s.svc.Evaluate(s.ctx, agent, pctx)
	s.Require().NoError(err)
	return action
}

func (s *RuleServiceSuite) TestEvaluateDefaults() {
	s.Equal(models.ActionAllow, s.evaluate(models.PaymentContext{Amount: 50}), "no rules means allow")
}

func (s *RuleServiceSuite) TestEvaluateAmount() {
	_, err := s.svc.CreateRule(s.ctx, owner, amountRule(10, 100, models.ActionBlock))
	s.Require().NoError(err)

	s.Equal(models.ActionAllow, s.evaluate(models.PaymentContext{Amount: 10}))
	s.Equal(models.ActionAllow, s.evaluate(models.PaymentContext{Amount: 100}))
	s.Equal(models.ActionBlock, s.evaluate(models.PaymentContext{Amount: 9}))
	s.Equal(models.ActionBlock, s.evaluate(models.PaymentContext{Amount: 101}))
}

func (s *RuleServiceSuite) TestEvaluateMerchant() {
	_, err := s.svc.CreateRule(s.ctx, owner, &models.Rule{
		AgentID: agent,
		Type:    models.TypeMerchant,
		Enabled: true,
		Action:  models.ActionBlock,
		Merchant: &models.MerchantParams{
			Mode:       models.MerchantWhitelist,
			Principals: []domain.Principal{"merchant-ok"},
			Categories: []string{"utilities"},
		},
	})
	s.Require().NoError(err)

	s.Equal(models.ActionAllow, s.evaluate(models.PaymentContext{Recipient: "merchant-ok"}))
	s.Equal(models.ActionAllow, s.evaluate(models.PaymentContext{Recipient: "other", Category: "utilities"}))
	s.Equal(models.ActionBlock, s.evaluate(models.PaymentContext{Recipient: "other", Category: "gambling"}))
}

func (s *RuleServiceSuite) TestEvaluateMerchantBlacklist() {
	_, err := s.svc.CreateRule(s.ctx, owner, &models.Rule{
		AgentID: agent,
		Type:    models.TypeMerchant,
		Enabled: true,
		Action:  models.ActionBlock,
		Merchant: &models.MerchantParams{
			Mode:       models.MerchantBlacklist,
			Principals: []domain.Principal{"merchant-bad"},
		},
	})
	s.Require().NoError(err)

	s.Equal(models.ActionBlock, s.evaluate(models.PaymentContext{Recipient: "merchant-bad"}))
	s.Equal(models.ActionAllow, s.evaluate(models.PaymentContext{Recipient: "merchant-ok"}))
}

func (s *RuleServiceSuite) TestEvaluateTime() {
	_, err := s.svc.CreateRule(s.ctx, owner, &models.Rule{
		AgentID: agent,
		Type:    models.TypeTime,
		Enabled: true,
		Action:  models.ActionBlock,
		Time: &models.TimeParams{
			BusinessHoursOnly: true,
			WeekendAllowed:    false,
			StartHour:         9,
			EndHour:           17,
		},
	})
	s.Require().NoError(err)

	s.Equal(models.ActionAllow, s.evaluate(models.PaymentContext{Hour: 12}))
	s.Equal(models.ActionBlock, s.evaluate(models.PaymentContext{Hour: 8}))
	s.Equal(models.ActionBlock, s.evaluate(models.PaymentContext{Hour: 18}))
	s.Equal(models.ActionBlock, s.evaluate(models.PaymentContext{Hour: 12, Weekend: true}))
}

func (s *RuleServiceSuite) TestEvaluateVelocity() {
	_, err := s.svc.CreateRule(s.ctx, owner, &models.Rule{
		AgentID:  agent,
		Type:     models.TypeVelocity,
		Enabled:  true,
		Action:   models.ActionFlag,
		Velocity: &models.VelocityParams{MaxPerHour: 3},
	})
	s.Require().NoError(err)

	s.Equal(models.ActionAllow, s.evaluate(models.PaymentContext{TxsInLastHour: 3}))
	s.Equal(models.ActionFlag, s.evaluate(models.PaymentContext{TxsInLastHour: 4}))
}

func (s *RuleServiceSuite) TestEvaluateGeo() {
	_, err := s.svc.CreateRule(s.ctx, owner, &models.Rule{
		AgentID: agent,
		Type:    models.TypeGeo,
		Enabled: true,
		Action:  models.ActionBlock,
		Geo:     &models.GeoParams{AllowedCountries: []string{"US", "DE"}},
	})
	s.Require().NoError(err)

	s.Equal(models.ActionAllow, s.evaluate(models.PaymentContext{Country: "DE"}))
	s.Equal(models.ActionBlock, s.evaluate(models.PaymentContext{Country: "KP"}))
	s.Equal(models.ActionBlock, s.evaluate(models.PaymentContext{}), "unknown country not in allowed set")
}

func (s *RuleServiceSuite) TestEvaluateOrdering() {
	// Later-created rule with lower priority value evaluates first.
	blockID, err := s.svc.CreateRule(s.ctx, owner, amountRule(0, 10, models.ActionBlock))
	s.Require().NoError(err)
	flagID, err := s.svc.CreateRule(s.ctx, owner, amountRule(0, 10, models.ActionFlag))
	s.Require().NoError(err)

	s.Require().NoError(s.svc.SetRulePriority(s.ctx, owner, blockID, 10))
	s.Require().NoError(s.svc.SetRulePriority(s.ctx, owner, flagID, 1))

	s.Equal(models.ActionFlag, s.evaluate(models.PaymentContext{Amount: 50}), "first match by priority wins")

	s.Run("ties broken by rule id", func() {
		s.Require().NoError(s.svc.SetRulePriority(s.ctx, owner, flagID, 10))
		s.Equal(models.ActionBlock, s.evaluate(models.PaymentContext{Amount: 50}), "lower id wins the tie")
	})

	s.Run("disabled rules are skipped", func() {
		s.Require().NoError(s.svc.SetRuleEnabled(s.ctx, owner, blockID, false))
		s.Equal(models.ActionFlag, s.evaluate(models.PaymentContext{Amount: 50}))
	})
}
