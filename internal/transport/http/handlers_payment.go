package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"

	paymodels "paygate/internal/payment/models"
	"paygate/pkg/domain"
)

type executePaymentRequest struct {
	AgentID   string `json:"agent_id"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Memo      string `json:"memo,omitempty"`
	Category  string `json:"category,omitempty"`
	Country   string `json:"country,omitempty"`
}

func (h *Handler) handleExecutePayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	var req executePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "invalid JSON body")
		return
	}

	receipt, err := h.payments.ExecutePayment(r.Context(), caller, paymodels.ExecuteRequest{
		AgentID:   domain.Principal(req.AgentID),
		Recipient: domain.Principal(req.Recipient),
		Amount:    req.Amount,
		Memo:      req.Memo,
		Category:  req.Category,
		Country:   req.Country,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

type updatePaymentRulesRequest struct {
	MaxAmount  uint64   `json:"max_amount"`
	Recipients []string `json:"recipients"`
}

func (h *Handler) handleUpdatePaymentRules(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	agentID, ok := agentIDParam(w, r)
	if !ok {
		return
	}
	var req updatePaymentRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "invalid JSON body")
		return
	}

	recipients := make([]domain.Principal, 0, len(req.Recipients))
	for _, raw := range req.Recipients {
		recipient, err := domain.ParsePrincipal(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_params", err.Error())
			return
		}
		recipients = append(recipients, recipient)
	}

	if err := h.payments.UpdatePaymentRules(r.Context(), caller, agentID, req.MaxAmount, recipients); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"agent_id": agentID.String()})
}

func (h *Handler) handleGetPaymentRules(w http.ResponseWriter, r *http.Request) {
	agentID, ok := agentIDParam(w, r)
	if !ok {
		return
	}
	ruleSet, err := h.payments.GetPaymentRules(r.Context(), agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ruleSet)
}

type addRecipientRequest struct {
	Recipient string `json:"recipient"`
}

func (h *Handler) handleAddRecipient(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	agentID, ok := agentIDParam(w, r)
	if !ok {
		return
	}
	var req addRecipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "invalid JSON body")
		return
	}
	recipient, err := domain.ParsePrincipal(req.Recipient)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	if err := h.payments.AddAllowedRecipient(r.Context(), caller, agentID, recipient); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"agent_id": agentID.String(), "recipient": recipient.String()})
}

func (h *Handler) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	agentID, ok := agentIDParam(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_params", "limit must be an integer")
			return
		}
		limit = n
	}
	records, err := h.payments.GetPaymentHistory(r.Context(), agentID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": records})
}

func (h *Handler) handleEmergencyHalt(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	if err := h.payments.EmergencyHalt(r.Context(), caller); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"halted": true})
}

func (h *Handler) handleEmergencyResume(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	if err := h.payments.EmergencyResume(r.Context(), caller); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"halted": false})
}
