package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		// Lowercase
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},

		// Uppercase
		{"DEBUG", LevelDebug},
		{"INFO", LevelInfo},
		{"WARN", LevelWarn},
		{"WARNING", LevelWarn},
		{"ERROR", LevelError},

		// Mixed case
		{"Debug", LevelDebug},
		{"Info", LevelInfo},
		{"Warn", LevelWarn},
		{"Warning", LevelWarn},
		{"Error", LevelError},
		{"dEbUg", LevelDebug},

		// Empty string defaults to Info
		{"", LevelInfo},

		// Unrecognized defaults to Info
		{"trace", LevelInfo},
		{"fatal", LevelInfo},
		{"unknown", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"Json", FormatJSON},
		{"text", FormatText},
		{"TEXT", FormatText},
		{"", FormatText},
		{"yaml", FormatText}, // unrecognized defaults to text
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseFormat(tt.input)
			if result != tt.expected {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewWritesFormat(t *testing.T) {
	var text, js bytes.Buffer

	New(Config{Level: LevelInfo, Format: FormatText, Output: &text}).Info("listening", "addr", "127.0.0.1:1234")
	assert.Contains(t, text.String(), "msg=listening")
	assert.Contains(t, text.String(), "addr=127.0.0.1:1234")

	New(Config{Level: LevelInfo, Format: FormatJSON, Output: &js}).Info("listening", "addr", "127.0.0.1:1234")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &rec))
	assert.Equal(t, "listening", rec["msg"])
	assert.Equal(t, "127.0.0.1:1234", rec["addr"])
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &buf})
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewTeesToFile(t *testing.T) {
	var out, file bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &out, File: &file}).With("conn", "abc")
	logger.Debug("request parsed", "path", "/ping")

	assert.Contains(t, out.String(), "conn=abc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &rec))
	assert.Equal(t, "request parsed", rec["msg"])
	assert.Equal(t, "abc", rec["conn"])
	assert.Equal(t, "/ping", rec["path"])
}

func TestFileKeepsDebugWhenConsoleIsQuiet(t *testing.T) {
	var out, file bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &out, File: &file})
	logger.Debug("handshake complete")

	assert.Empty(t, out.String())
	assert.Contains(t, file.String(), "handshake complete")
}

func TestFileLevelOverride(t *testing.T) {
	var out, file bytes.Buffer
	level := LevelError
	logger := New(Config{Level: LevelDebug, Output: &out, File: &file, FileLevel: &level})
	logger.Info("proxy listening")

	assert.Contains(t, out.String(), "proxy listening")
	assert.Empty(t, file.String())
}

func TestNop(t *testing.T) {
	logger := Nop()
	require.NotNil(t, logger)
	logger.Error("discarded")
}
