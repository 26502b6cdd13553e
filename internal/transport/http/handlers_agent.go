package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paygate/pkg/domain"
)

type initializeRequest struct {
	Admin string `json:"admin"`
}

// handleInitialize sets the contract administrator, exactly once per
// deployment. The caller nominates the admin principal; a repeat call fails
// with 409 regardless of caller.
func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "invalid JSON body")
		return
	}
	admin, err := domain.ParsePrincipal(req.Admin)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	if err := h.boot.Initialize(admin); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"admin": admin.String()})
}

type registerAgentRequest struct {
	AgentID     string   `json:"agent_id"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	var req registerAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "invalid JSON body")
		return
	}
	agentID, err := domain.ParsePrincipal(req.AgentID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	if err := h.agents.Register(r.Context(), caller, agentID, req.Permissions); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"agent_id": agentID.String()})
}

// agentIDParam pulls and validates the {agentID} route parameter.
func agentIDParam(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	agentID, err := domain.ParsePrincipal(chi.URLParam(r, "agentID"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return "", false
	}
	return agentID, true
}

func (h *Handler) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agentID, ok := agentIDParam(w, r)
	if !ok {
		return
	}
	agent, err := h.agents.GetAgentInfo(r.Context(), agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (h *Handler) handleIsAuthorized(w http.ResponseWriter, r *http.Request) {
	agentID, ok := agentIDParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authorized": h.agents.IsAuthorized(r.Context(), agentID)})
}

func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	h.agentFlagOp(w, r, h.agents.Authorize)
}

func (h *Handler) handleDeauthorize(w http.ResponseWriter, r *http.Request) {
	h.agentFlagOp(w, r, h.agents.Deauthorize)
}

func (h *Handler) handleHaltAgent(w http.ResponseWriter, r *http.Request) {
	h.agentFlagOp(w, r, h.payments.HaltAgent)
}

func (h *Handler) handleResumeAgent(w http.ResponseWriter, r *http.Request) {
	h.agentFlagOp(w, r, h.payments.ResumeAgent)
}

// agentFlagOp is the shared shape of caller+agent flag toggles.
func (h *Handler) agentFlagOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, caller, agentID domain.Principal) error) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	agentID, ok := agentIDParam(w, r)
	if !ok {
		return
	}
	if err := op(r.Context(), caller, agentID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"agent_id": agentID.String()})
}

type setLimitsRequest struct {
	DailyLimit   uint64 `json:"daily_limit"`
	MonthlyLimit uint64 `json:"monthly_limit"`
}

func (h *Handler) handleSetLimits(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	agentID, ok := agentIDParam(w, r)
	if !ok {
		return
	}
	var req setLimitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "invalid JSON body")
		return
	}
	if err := h.agents.SetSpendingLimit(r.Context(), caller, agentID, req.DailyLimit, req.MonthlyLimit); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"agent_id": agentID.String()})
}

type updatePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (h *Handler) handleUpdatePermissions(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no caller principal")
		return
	}
	agentID, ok := agentIDParam(w, r)
	if !ok {
		return
	}
	var req updatePermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_params", "invalid JSON body")
		return
	}
	if err := h.agents.UpdatePermissions(r.Context(), caller, agentID, req.Permissions); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"agent_id": agentID.String()})
}
