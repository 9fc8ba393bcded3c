package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/getmockd/mockproxy/pkg/logging"
)

// ValidationError represents a validation failure with context.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

var validLogLevels = map[string]bool{
	"":        true,
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var validLogFormats = map[string]bool{
	"":                         true,
	string(logging.FormatText): true,
	string(logging.FormatJSON): true,
}

// Validate checks the proxy settings and builds every mock entry.
func (f *File) Validate() error {
	if f.Listen != "" {
		if _, _, err := net.SplitHostPort(f.Listen); err != nil {
			return &ValidationError{Field: "listen", Message: err.Error()}
		}
	}

	if f.ReadTimeout < 0 {
		return &ValidationError{Field: "readTimeout", Message: "must not be negative"}
	}
	if f.WriteTimeout < 0 {
		return &ValidationError{Field: "writeTimeout", Message: "must not be negative"}
	}
	if f.HandshakeTimeout < 0 {
		return &ValidationError{Field: "handshakeTimeout", Message: "must not be negative"}
	}

	if !validLogLevels[strings.ToLower(f.Log.Level)] {
		return &ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", f.Log.Level)}
	}
	if !validLogFormats[strings.ToLower(f.Log.Format)] {
		return &ValidationError{Field: "log.format", Message: fmt.Sprintf("unknown format %q", f.Log.Format)}
	}
	if path := f.LogFile(); path != "" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return &ValidationError{Field: "log.file", Message: fmt.Sprintf("is a directory: %s", path)}
		}
	}

	if f.CA.ValidityDays < 0 {
		return &ValidationError{Field: "ca.validityDays", Message: "must not be negative"}
	}
	if dir := f.CADir(); dir != "" {
		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			return &ValidationError{Field: "ca.dir", Message: fmt.Sprintf("not a directory: %s", dir)}
		}
	}

	_, err := f.Mocks()
	return err
}

// validate checks the parts of an entry that the mock builder cannot see.
func (e *MockEntry) validate() error {
	sources := 0
	if e.Body != nil {
		sources++
	}
	if e.BodyFile != "" {
		sources++
	}
	if e.JSON != nil {
		sources++
	}
	if sources > 1 {
		return &ValidationError{Field: "body", Message: "only one of body, bodyFile and json may be set"}
	}
	return nil
}
