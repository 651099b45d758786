package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-hassdriver/internal/agent"
	"github.com/nerrad567/gray-logic-hassdriver/internal/configstore"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Generic error codes. Driver failures use the agent's codes
// (NOT_FOUND, READ_ONLY, ...) so REST errors match MQTT acks.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// statusForCode maps an agent error code to an HTTP status.
var statusForCode = map[string]int{
	agent.CodeNotFound:        http.StatusNotFound,
	agent.CodeReadOnly:        http.StatusConflict,
	agent.CodeValidation:      http.StatusUnprocessableEntity,
	agent.CodeHubError:        http.StatusBadGateway,
	agent.CodeUnexpectedState: http.StatusBadGateway,
	agent.CodeNoRevertValue:   http.StatusConflict,
	agent.CodeNotConfigured:   http.StatusServiceUnavailable,
	agent.CodeInvalidCommand:  http.StatusBadRequest,
	agent.CodeInternal:        http.StatusInternalServerError,
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeAgentError classifies a driver error with agent.ErrorCode.
func writeAgentError(w http.ResponseWriter, err error) {
	code := agent.ErrorCode(err)
	writeError(w, statusForCode[code], code, err.Error())
}

// writeStoreError maps config store errors.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, configstore.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, configstore.ErrInvalidName),
		errors.Is(err, configstore.ErrInvalidContent),
		errors.Is(err, configstore.ErrUnknownContentType):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}
