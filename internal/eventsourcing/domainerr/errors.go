// Package domainerr defines the business rule violation raised by command handlers.
package domainerr

import (
	"errors"
	"fmt"
)

// BusinessRuleError reports a rejected command. Retryable is informational for
// the caller's own retry policy; the command loop never acts on it.
type BusinessRuleError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *BusinessRuleError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds a non-retryable business rule violation.
func New(code, message string) *BusinessRuleError {
	return &BusinessRuleError{Code: code, Message: message}
}

// WithDetail returns a copy with an extra detail entry.
func (e *BusinessRuleError) WithDetail(key string, value any) *BusinessRuleError {
	out := *e
	out.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details[key] = value
	return &out
}

// AsRetryable returns a copy flagged retryable.
func (e *BusinessRuleError) AsRetryable() *BusinessRuleError {
	out := *e
	out.Retryable = true
	return &out
}

// As extracts a business rule violation from an error chain.
func As(err error) (*BusinessRuleError, bool) {
	var bre *BusinessRuleError
	if errors.As(err, &bre) && bre != nil {
		return bre, true
	}
	return nil, false
}

// FromError converts err into a business rule violation, wrapping foreign
// errors under the given code.
func FromError(code string, err error) *BusinessRuleError {
	if err == nil {
		return nil
	}
	if bre, ok := As(err); ok {
		return bre
	}
	return New(code, err.Error())
}
