// Package errors renders RFC 7807 problem details for the command and query API.
package errors

import (
	"fmt"
	"net/http"
)

// ProblemDetail is an RFC 7807 problem body.
type ProblemDetail struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	Instance   string         `json:"instance,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
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

// WithExtension returns a copy with an additional extension property.
func (p ProblemDetail) WithExtension(key string, value any) ProblemDetail {
	ext := make(map[string]any, len(p.Extensions)+1)
	for k, v := range p.Extensions {
		ext[k] = v
	}
	ext[key] = value
	p.Extensions = ext
	return p
}

const (
	TypeValidation   = "/problems/validation-error"
	TypeNotFound     = "/problems/not-found"
	TypeInternal     = "/problems/internal-error"
	TypeForbidden    = "/problems/forbidden"
	TypeUnauthorized = "/problems/unauthorized"
	TypeBadRequest   = "/problems/bad-request"
	TypeUnavailable  = "/problems/service-unavailable"
)

var (
	ErrNotFound = ProblemDetail{Type: TypeNotFound, Title: "Resource Not Found", Status: http.StatusNotFound}

	// ErrValidation carries the offending fields under the "fields" extension.
	ErrValidation = ProblemDetail{Type: TypeValidation, Title: "Validation Error", Status: http.StatusBadRequest}

	ErrBadRequest = ProblemDetail{Type: TypeBadRequest, Title: "Bad Request", Status: http.StatusBadRequest}

	ErrInternal = ProblemDetail{Type: TypeInternal, Title: "Internal Server Error", Status: http.StatusInternalServerError}

	ErrUnauthorized = ProblemDetail{Type: TypeUnauthorized, Title: "Unauthorized", Status: http.StatusUnauthorized}

	// ErrForbidden is returned when the caller holds none of a domain's roles.
	ErrForbidden = ProblemDetail{Type: TypeForbidden, Title: "Forbidden", Status: http.StatusForbidden}

	// ErrUnavailable indicates the command pipeline is shutting down or unreachable.
	ErrUnavailable = ProblemDetail{Type: TypeUnavailable, Title: "Service Unavailable", Status: http.StatusServiceUnavailable}
)

// ForStatus picks the template matching an HTTP status, defaulting to 500.
func ForStatus(status int) ProblemDetail {
	switch status {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return ErrInternal
	}
}

// NewNotFoundProblem creates a not found error for a specific resource.
func NewNotFoundProblem(resourceType string, identifier any) ProblemDetail {
	return ErrNotFound.
		WithDetail(fmt.Sprintf("%s with identifier '%v' not found", resourceType, identifier)).
		WithExtension("resourceType", resourceType).
		WithExtension("identifier", identifier)
}
