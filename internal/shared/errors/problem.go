// Package errors renders RFC 7807 problem details for the storefront HTTP API.
package errors

import (
	"fmt"
	"maps"
	"net/http"
	"time"
)

// ProblemDetail is an RFC 7807 problem document.
// See: https://www.rfc-editor.org/rfc/rfc7807
type ProblemDetail struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	Instance   string         `json:"instance,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`

	// RetryAfter is sent as the Retry-After header when positive.
	RetryAfter time.Duration `json:"-"`
}

func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

// WithDetail returns a copy with the given detail message.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithExtension returns a copy with one more extension member. Templates are never mutated.
func (p ProblemDetail) WithExtension(key string, value any) ProblemDetail {
	return p.WithExtensions(map[string]any{key: value})
}

// WithExtensions returns a copy with the given extension members merged in.
func (p ProblemDetail) WithExtensions(members map[string]any) ProblemDetail {
	extensions := make(map[string]any, len(p.Extensions)+len(members))
	maps.Copy(extensions, p.Extensions)
	maps.Copy(extensions, members)
	p.Extensions = extensions
	return p
}

// Retryable marks the problem as transient. Clients should resubmit with the same
// Idempotency-Key after the hinted delay.
func (p ProblemDetail) Retryable(after time.Duration) ProblemDetail {
	p = p.WithExtension("retryable", true)
	p.RetryAfter = after
	return p
}

const (
	TypeValidation    = "/problems/validation-error"
	TypeBadRequest    = "/problems/bad-request"
	TypeNotFound      = "/problems/not-found"
	TypeConflict      = "/problems/conflict"
	TypeOutOfStock    = "/problems/out-of-stock"
	TypeUnprocessable = "/problems/unprocessable-entity"
	TypeUnavailable   = "/problems/service-unavailable"
	TypeInternal      = "/problems/internal-error"
)

var (
	ErrNotFound = ProblemDetail{Type: TypeNotFound, Title: "Resource Not Found", Status: http.StatusNotFound}

	// ErrValidation is a request whose content breaks a business rule or binding constraint.
	ErrValidation = ProblemDetail{Type: TypeValidation, Title: "Validation Error", Status: http.StatusBadRequest}

	// ErrBadRequest is a request that could not be decoded at all.
	ErrBadRequest = ProblemDetail{Type: TypeBadRequest, Title: "Bad Request", Status: http.StatusBadRequest}

	ErrConflict = ProblemDetail{Type: TypeConflict, Title: "Conflict", Status: http.StatusConflict}

	// ErrOutOfStock is a cart line asking for more units than are available.
	ErrOutOfStock = ProblemDetail{Type: TypeOutOfStock, Title: "Out Of Stock", Status: http.StatusConflict}

	ErrUnprocessable = ProblemDetail{Type: TypeUnprocessable, Title: "Unprocessable Entity", Status: http.StatusUnprocessableEntity}

	// ErrServiceUnavailable is a transient failure; see Retryable.
	ErrServiceUnavailable = ProblemDetail{Type: TypeUnavailable, Title: "Service Unavailable", Status: http.StatusServiceUnavailable}

	ErrInternal = ProblemDetail{Type: TypeInternal, Title: "Internal Server Error", Status: http.StatusInternalServerError}
)
