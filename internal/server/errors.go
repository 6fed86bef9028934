package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/roach88/tilecanvas/internal/canvas"
	"github.com/roach88/tilecanvas/internal/edits"
)

// Error codes returned in JSON error bodies.
const (
	CodeInvalidIndex    = "INVALID_INDEX"
	CodeInvalidPosition = "INVALID_POSITION"
	CodeCooldown        = "COOLDOWN"
	CodeAlreadyStarted  = "ALREADY_STARTED"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeBadRequest      = "BAD_REQUEST"
	CodeInternal        = "INTERNAL"
)

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a rejected request.
type ErrorDetail struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// classify maps a component error to a status code and error code.
func classify(err error) (status int, code string) {
	switch {
	case errors.Is(err, canvas.ErrInvalidIndex):
		return http.StatusBadRequest, CodeInvalidIndex
	case errors.Is(err, canvas.ErrInvalidPosition):
		return http.StatusBadRequest, CodeInvalidPosition
	case errors.Is(err, edits.ErrCooldown):
		return http.StatusTooManyRequests, CodeCooldown
	case errors.Is(err, edits.ErrAlreadyStarted):
		return http.StatusConflict, CodeAlreadyStarted
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// writeError renders err as a JSON error body. Cooldown rejections also set
// Retry-After, rounded up to whole seconds.
func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	detail := ErrorDetail{Code: code, Message: err.Error()}

	if d, ok := edits.RetryAfter(err); ok {
		secs := int(math.Ceil(d.Seconds()))
		if secs < 1 {
			secs = 1
		}
		detail.RetryAfterSeconds = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	if status == http.StatusInternalServerError {
		detail.Message = "internal error"
	}
	writeJSON(w, status, ErrorBody{Error: detail})
}

// writeProblem renders a request-level rejection that has no component error.
func writeProblem(w http.ResponseWriter, status int, code, format string, args ...any) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
