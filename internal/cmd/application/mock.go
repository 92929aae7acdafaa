// Package application holds test doubles for the command application interface.
package application

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ckdake/fitler"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
//
// Example Usage:
//
//	mock := &application.Mock{
//	    FitlerFunc: func() (fitler.Fitler, error) {
//	        return f, nil
//	    },
//	}
//	cmd := records.NewCommand(mock)
type Mock struct {
	FitlerFunc       func() (fitler.Fitler, error)
	LocationFunc     func() *time.Location
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
	CommitFunc       func() string
	DateFunc         func() string
	BuiltByFunc      func() string
}

// Fitler returns an engine using the mock function or nil.
func (m *Mock) Fitler() (fitler.Fitler, error) {
	if m.FitlerFunc != nil {
		return m.FitlerFunc()
	}
	return nil, nil
}

// Location returns the mock location or UTC.
func (m *Mock) Location() *time.Location {
	if m.LocationFunc != nil {
		return m.LocationFunc()
	}
	return time.UTC
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Version returns the version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns the commit using the mock function or "none".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "none"
}

// Date returns the build date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns the builder using the mock function or "test".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}
