package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/replicate/replicate-go"
	"github.com/sashabaranov/go-openai"
)

// Kind classifies a gateway failure. The API boundary maps each kind to a
// distinct status so callers can tell "ask for a new key" from "retry the
// request" from "fix the upload".
type Kind string

const (
	// KindCredential means the provider key is missing or was rejected.
	KindCredential Kind = "credential"
	// KindUnprocessable means the uploaded content could not be read.
	KindUnprocessable Kind = "unprocessable"
	// KindUpstream means the provider returned an error response.
	KindUpstream Kind = "upstream"
	// KindTransport means the provider was unreachable.
	KindTransport Kind = "transport"
)

// Error is a classified gateway failure carrying a human-readable message.
// Requests are never retried automatically; every failure surfaces as one of
// these.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus returns the status the API boundary should respond with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindCredential:
		return http.StatusUnauthorized
	case KindUnprocessable:
		return http.StatusUnprocessableEntity
	case KindUpstream:
		if e.Status >= 400 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

// ErrMissingCredential is returned before any network call when no provider
// key is available.
var ErrMissingCredential = &Error{
	Kind:    KindCredential,
	Status:  http.StatusUnauthorized,
	Message: "provider API key is required",
}

// NewUnprocessable builds an unprocessable-content error.
func NewUnprocessable(message string) *Error {
	return &Error{
		Kind:    KindUnprocessable,
		Status:  http.StatusUnprocessableEntity,
		Message: message,
	}
}

const genericFailure = "failed to fetch response from provider"

// Classify wraps a provider SDK error into a gateway Error. The provider's
// own message is surfaced when available, otherwise a generic fallback.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var gw *Error
	if errors.As(err, &gw) {
		return gw
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return classifyStatus(antErr.StatusCode, antErr.Error(), err)
	}

	var repErr *replicate.APIError
	if errors.As(err, &repErr) {
		return classifyStatus(repErr.Status, repErr.Detail, err)
	}

	return &Error{
		Kind:    KindTransport,
		Message: genericFailure,
		cause:   err,
	}
}

func classifyStatus(status int, message string, cause error) *Error {
	if message == "" {
		message = genericFailure
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &Error{
			Kind:    KindCredential,
			Status:  status,
			Message: "invalid API key",
			cause:   cause,
		}
	}
	if status == 0 {
		return &Error{
			Kind:    KindTransport,
			Message: genericFailure,
			cause:   cause,
		}
	}
	return &Error{
		Kind:    KindUpstream,
		Status:  status,
		Message: message,
		cause:   cause,
	}
}

// UpstreamError builds an upstream error with an explicit status, used when a
// provider responds 2xx but with an unusable body.
func UpstreamError(status int, format string, args ...any) *Error {
	return &Error{
		Kind:    KindUpstream,
		Status:  status,
		Message: fmt.Sprintf(format, args...),
	}
}
