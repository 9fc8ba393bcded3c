package config

import (
	"fmt"
	"log/slog"

	"github.com/getmockd/mockproxy/pkg/ca"
	"github.com/getmockd/mockproxy/pkg/logging"
	"github.com/getmockd/mockproxy/pkg/mock"
	"github.com/getmockd/mockproxy/pkg/proxy"
)

// Mocks builds the configured mocks in file order. The first invalid entry
// is reported as ErrInvalidMock with its index.
func (f *File) Mocks() ([]*mock.Mock, error) {
	mocks := make([]*mock.Mock, 0, len(f.Entries))
	for i := range f.Entries {
		e := &f.Entries[i]
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("%w: mocks[%d]: %w", ErrInvalidMock, i, err)
		}

		m := e.build(f.resolve)
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%w: mocks[%d] (%s): %w", ErrInvalidMock, i, m, err)
		}
		mocks = append(mocks, m)
	}
	return mocks, nil
}

func (e *MockEntry) build(resolve func(string) string) *mock.Mock {
	m := mock.New(e.Method, e.Path)
	if e.Status != 0 {
		m.WithStatus(e.Status)
	}
	for _, h := range e.Headers {
		m.WithHeader(h.Name, h.Value)
	}

	switch {
	case e.Body != nil:
		m.WithBody(*e.Body)
	case e.BodyFile != "":
		m.WithBodyFromFile(resolve(e.BodyFile))
	case e.JSON != nil:
		m.WithBodyFromJSON(e.JSON)
	}
	return m
}

// Logging returns the logging configuration described by the file.
func (f *File) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if f.Log.Level != "" {
		cfg.Level = logging.ParseLevel(f.Log.Level)
	}
	if f.Log.Format != "" {
		cfg.Format = logging.ParseFormat(f.Log.Format)
	}
	return cfg
}

// CAOptions returns the root generation options described by the file.
func (f *File) CAOptions() []ca.Option {
	var opts []ca.Option
	if f.CA.Organization != "" {
		opts = append(opts, ca.WithOrganization(f.CA.Organization))
	}
	if f.CA.ValidityDays > 0 {
		opts = append(opts, ca.WithValidityDays(f.CA.ValidityDays))
	}
	return opts
}

// ProxyOptions returns the proxy options described by the file.
func (f *File) ProxyOptions(logger *slog.Logger) []proxy.Option {
	opts := []proxy.Option{proxy.WithLogger(logger)}
	if f.Listen != "" {
		opts = append(opts, proxy.WithListenAddr(f.Listen))
	}
	if f.ReadTimeout > 0 {
		opts = append(opts, proxy.WithReadTimeout(f.ReadTimeout))
	}
	if f.WriteTimeout > 0 {
		opts = append(opts, proxy.WithWriteTimeout(f.WriteTimeout))
	}
	if f.HandshakeTimeout > 0 {
		opts = append(opts, proxy.WithHandshakeTimeout(f.HandshakeTimeout))
	}
	return opts
}
