package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	rulemodels "paygate/internal/rules/models"
	"paygate/pkg/domain"
)

func ruleIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "ruleID"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "rule id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	var rule rulemodels.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "invalid JSON body")
		return
	}
	id, err := h.rules.CreateRule(r.Context(), caller, &rule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"rule_id": id})
}

func (h *Handler) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleIDParam(w, r)
	if !ok {
		return
	}
	rule, err := h.rules.GetRule(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	agentID, err := domain.ParsePrincipal(r.URL.Query().Get("agent_id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "agent_id query parameter is required")
		return
	}
	rules, err := h.rules.ListRules(r.Context(), agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (h *Handler) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	id, ok := ruleIDParam(w, r)
	if !ok {
		return
	}
	var rule rulemodels.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "invalid JSON body")
		return
	}
	if err := h.rules.UpdateRule(r.Context(), caller, id, &rule); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"rule_id": id})
}

func (h *Handler) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	id, ok := ruleIDParam(w, r)
	if !ok {
		return
	}
	if err := h.rules.DeleteRule(r.Context(), caller, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setPriorityRequest struct {
	Priority uint64 `json:"priority"`
}

func (h *Handler) handleSetRulePriority(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	id, ok := ruleIDParam(w, r)
	if !ok {
		return
	}
	var req setPriorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "invalid JSON body")
		return
	}
	if err := h.rules.SetRulePriority(r.Context(), caller, id, req.Priority); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"rule_id": id})
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) handleSetRuleEnabled(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	id, ok := ruleIDParam(w, r)
	if !ok {
		return
	}
	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "invalid JSON body")
		return
	}
	if err := h.rules.SetRuleEnabled(r.Context(), caller, id, req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"rule_id": id})
}

type evaluateRequest struct {
	AgentID string                    `json:"agent_id"`
	Context rulemodels.PaymentContext `json:"context"`
}

// handleEvaluateRules exposes the evaluator as a dry-run: same decision the
// payment pipeline would get, no state touched.
func (h *Handler) handleEvaluateRules(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "invalid JSON body")
		return
	}
	agentID, err := domain.ParsePrincipal(req.AgentID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	action, err := h.rules.Evaluate(r.Context(), agentID, req.Context)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"action": string(action)})
}
