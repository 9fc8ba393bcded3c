package mock

import (
	"fmt"

	"golang.org/x/net/http/httpguts"
)

// ValidationError represents a validation failure with context.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// Validate checks that the mock can be written on the wire.
// It also reports any error recorded while building.
func (m *Mock) Validate() error {
	if m.err != nil {
		return m.err
	}

	if !httpguts.ValidHeaderFieldName(m.Method) {
		return &ValidationError{Field: "method", Message: fmt.Sprintf("invalid method %q", m.Method)}
	}

	if m.Path == "" {
		return &ValidationError{Field: "path", Message: "path is required"}
	}

	// StatusCode must be a three digit code (100-599)
	if m.Response.Status < 100 || m.Response.Status > 599 {
		return &ValidationError{
			Field:   "response.status",
			Message: fmt.Sprintf("status must be between 100-599, got %d", m.Response.Status),
		}
	}

	for _, h := range m.Response.Headers {
		if err := validateHeader(h.Name, h.Value); err != nil {
			return err
		}
	}

	return nil
}

func validateHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return &ValidationError{
			Field:   "response.headers",
			Message: fmt.Sprintf("invalid header name: %q", name),
		}
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return &ValidationError{
			Field:   "response.headers",
			Message: fmt.Sprintf("invalid value for header %s", name),
		}
	}
	return nil
}
