// Package httptransport is the thin HTTP layer over the policy core. Handlers
// decode, delegate, and encode; no business logic lives here.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler bundles the services the routes delegate to.
type Handler struct {
	agents   AgentService
	rules    RuleService
	payments PaymentService
	boot     Bootstrapper
	logger   *slog.Logger
}

func NewHandler(agents AgentService, rules RuleService, payments PaymentService, boot Bootstrapper, logger *slog.Logger) *Handler {
	return &Handler{
		agents:   agents,
		rules:    rules,
		payments: payments,
		boot:     boot,
		logger:   logger,
	}
}

// NewRouter wires the admin/API surface. Everything except health and
// metrics requires an authenticated caller principal.
func NewRouter(h *Handler, validator TokenValidator) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(validator, h.logger))

		r.Post("/initialize", h.handleInitialize)

		r.Route("/agents", func(r chi.Router) {
			r.Post("/", h.handleRegisterAgent)
			r.Route("/{agentID}", func(r chi.Router) {
				r.Get("/", h.handleGetAgent)
				r.Get("/authorized", h.handleIsAuthorized)
				r.Post("/authorize", h.handleAuthorize)
				r.Post("/deauthorize", h.handleDeauthorize)
				r.Put("/limits", h.handleSetLimits)
				r.Put("/permissions", h.handleUpdatePermissions)
				r.Put("/payment-rules", h.handleUpdatePaymentRules)
				r.Get("/payment-rules", h.handleGetPaymentRules)
				r.Post("/recipients", h.handleAddRecipient)
				r.Get("/payments", h.handlePaymentHistory)
				r.Post("/halt", h.handleHaltAgent)
				r.Post("/resume", h.handleResumeAgent)
			})
		})

		r.Route("/rules", func(r chi.Router) {
			r.Post("/", h.handleCreateRule)
			r.Get("/", h.handleListRules)
			r.Post("/evaluate", h.handleEvaluateRules)
			r.Route("/{ruleID}", func(r chi.Router) {
				r.Get("/", h.handleGetRule)
				r.Put("/", h.handleUpdateRule)
				r.Delete("/", h.handleDeleteRule)
				r.Put("/priority", h.handleSetRulePriority)
				r.Put("/enabled", h.handleSetRuleEnabled)
			})
		})

		r.Post("/payments", h.handleExecutePayment)
		r.Post("/halt", h.handleEmergencyHalt)
		r.Post("/resume", h.handleEmergencyResume)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
