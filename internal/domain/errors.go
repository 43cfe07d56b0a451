package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfig marks configuration problems detected before reporting starts.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrTransport marks any failure talking to the indexing backend.
	ErrTransport = errors.New("transport error")
	// ErrBulkRejected is returned when the backend accepted a bulk request but failed some items.
	ErrBulkRejected = errors.New("bulk items rejected")
	// ErrNotInitialized is returned when a cycle starts before the index template was applied.
	ErrNotInitialized = errors.New("reporter not initialized")
	// ErrStopped is returned by operations that cannot run on a stopped reporter.
	ErrStopped = errors.New("reporter stopped")
	// ErrNotFound is returned when a requested index resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest is returned by the index server for malformed requests.
	ErrBadRequest = errors.New("bad request")
)

// ConfigError lists every configuration problem found during validation.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(e.Problems, "; "))
}

// Is reports ErrInvalidConfig equivalence.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// TransportError describes a failed call to the backend.
type TransportError struct {
	Err        error
	Op         string
	StatusCode int
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", ErrTransport, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", ErrTransport, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports ErrTransport equivalence.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
