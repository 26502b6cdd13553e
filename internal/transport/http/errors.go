package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	derrors "paygate/pkg/domain-errors"
)

// errorResponse is the uniform error envelope: machine-readable code first,
// message second. The excluded backend translates these to its own surface.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps domain error codes to HTTP statuses. Policy denials are 422:
// the request was well formed, the policy said no.
func statusFor(code derrors.Code) int {
	switch code {
	case derrors.CodeInvalidParams:
		return http.StatusBadRequest
	case derrors.CodeUnauthorized, derrors.CodeNotInitialized:
		return http.StatusForbidden
	case derrors.CodeAgentNotFound, derrors.CodeRuleNotFound, derrors.CodeRulesNotFound, derrors.CodeNotFound:
		return http.StatusNotFound
	case derrors.CodeAgentExists, derrors.CodeAlreadyInitialized:
		return http.StatusConflict
	case derrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case derrors.CodeHalted,
		derrors.CodeAmountTooHigh,
		derrors.CodeRecipientNotAllowed,
		derrors.CodeDailyLimitExceeded,
		derrors.CodeMonthlyLimitExceeded,
		derrors.CodeRuleBlocked:
		return http.StatusUnprocessableEntity
	case derrors.CodeTransferFailed:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// writeError translates a domain error into the JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	code := derrors.CodeOf(err)
	message := "internal error"
	var de *derrors.Error
	if errors.As(err, &de) {
		message = de.Message
	}
	writeJSONError(w, statusFor(code), string(code), message)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
