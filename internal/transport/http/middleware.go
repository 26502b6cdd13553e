package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"paygate/pkg/domain"
)

type contextKey string

const (
	callerKey    contextKey = "caller"
	requestIDKey contextKey = "request_id"
)

// TokenValidator turns a bearer token into a caller principal.
type TokenValidator interface {
	Validate(tokenString string) (domain.Principal, error)
}

// CallerFrom extracts the authenticated caller principal from the context.
func CallerFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(callerKey).(domain.Principal)
	return p, ok
}

// RequestIDFrom returns the correlation id assigned by the middleware chain.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID tags every request with a correlation id for log stitching.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// Authenticate resolves the caller principal from the Authorization header
// and stores it in the request context. Requests without a valid token are
// rejected before reaching any handler.
func Authenticate(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			caller, err := validator.Validate(tokenString)
			if err != nil {
				logger.DebugContext(r.Context(), "token rejected", "error", err)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
				return
			}

			ctx := context.WithValue(r.Context(), callerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
