package config

import (
	"path/filepath"
	"time"

	"github.com/getmockd/mockproxy/pkg/wire"
)

// File is a mock proxy configuration document.
type File struct {
	// Listen is the preferred listen address (default: 127.0.0.1:1234)
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`
	// ReadTimeout bounds each read from a client (0 = no timeout)
	ReadTimeout time.Duration `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	// WriteTimeout bounds each write to a client (0 = no timeout)
	WriteTimeout time.Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
	// HandshakeTimeout bounds the TLS handshake (0 = no timeout)
	HandshakeTimeout time.Duration `json:"handshakeTimeout,omitempty" yaml:"handshakeTimeout,omitempty"`

	Log LogConfiguration `json:"log,omitempty" yaml:"log,omitempty"`
	CA  CAConfiguration  `json:"ca,omitempty" yaml:"ca,omitempty"`

	// Entries are the mocks in registration order.
	Entries []MockEntry `json:"mocks,omitempty" yaml:"mocks,omitempty"`

	// baseDir is where relative bodyFile paths resolve.
	baseDir string
}

// LogConfiguration defines logging settings.
type LogConfiguration struct {
	// Level is debug, info, warn or error (default: info)
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is text or json (default: text)
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	// File, when set, receives a JSON copy of every record at debug level.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// CAConfiguration defines Certificate Authority settings.
type CAConfiguration struct {
	// Dir holds ca.crt and ca.key. Empty means a fresh CA per run.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// Organization is the root certificate organization name
	Organization string `json:"organization,omitempty" yaml:"organization,omitempty"`
	// ValidityDays is the root certificate validity in days
	ValidityDays int `json:"validityDays,omitempty" yaml:"validityDays,omitempty"`
}

// MockEntry is one mock as written in a configuration file.
// At most one of Body, BodyFile and JSON is set.
type MockEntry struct {
	Method  string        `json:"method" yaml:"method"`
	Path    string        `json:"path" yaml:"path"`
	Status  int           `json:"status,omitempty" yaml:"status,omitempty"`
	Headers []wire.Header `json:"headers,omitempty" yaml:"headers,omitempty"`

	Body     *string `json:"body,omitempty" yaml:"body,omitempty"`
	BodyFile string  `json:"bodyFile,omitempty" yaml:"bodyFile,omitempty"`
	JSON     any     `json:"json,omitempty" yaml:"json,omitempty"`
}

// BaseDir returns the directory relative bodyFile paths resolve against.
func (f *File) BaseDir() string {
	return f.baseDir
}

// CADir returns the CA directory, resolved against BaseDir when relative.
func (f *File) CADir() string {
	return f.resolve(f.CA.Dir)
}

// LogFile returns the log capture file, resolved against the file's directory.
func (f *File) LogFile() string {
	return f.resolve(f.Log.File)
}

func (f *File) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || f.baseDir == "" {
		return path
	}
	return filepath.Join(f.baseDir, path)
}
