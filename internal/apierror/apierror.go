package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway failure. Every stage maps its errors to exactly
// one Kind, and every Kind maps to exactly one HTTP status.
type Kind int

const (
	KindUnauthenticated Kind = iota
	KindBadRequest
	KindProhibitedContent
	KindRateLimited
	KindUpstreamUnavailable
	KindUpstreamEmptyResponse
	KindInternal
)

func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindBadRequest, KindProhibitedContent:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case KindUpstreamEmptyResponse:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindBadRequest:
		return "bad_request"
	case KindProhibitedContent:
		return "prohibited_content"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindUpstreamEmptyResponse:
		return "upstream_empty_response"
	default:
		return "internal"
	}
}

// Error carries a Kind plus the user-facing message. The message is the only
// thing exposed to callers; internal causes stay in the wrapped error.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the Kind from err, defaulting to KindInternal for anything
// that is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// errorBody is the wire shape for all error responses.
type errorBody struct {
	Error     string `json:"error"`
	ResetTime int64  `json:"resetTime,omitempty"` // epoch millis, rate-limit responses only
}

// Write renders err as the JSON error response. Non-taxonomy errors become a
// generic 500 so internals never leak to the caller.
func Write(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	msg := "Internal server error"
	var ae *Error
	if errors.As(err, &ae) {
		msg = ae.Message
	}

	writeJSON(w, kind.Status(), errorBody{Error: msg})
}

// WriteRateLimited renders a 429 with the reset hint and exhausted quota
// headers.
func WriteRateLimited(w http.ResponseWriter, message string, resetTime int64) {
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime))
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: message, ResetTime: resetTime})
}

func writeJSON(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
