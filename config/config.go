// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config provides namespaced application configuration sourced from
// remote stores, cached in memory and transparently refreshed in the background.
package config

import (
	"context"
	"fmt"
)

// Backend represents a remote configuration store which can be read as a
// flat key value snapshot.
//
// Implementations are stateless I/O boundaries: every Fetch call is a fresh
// remote round trip. Caching and retries are the caller's responsibility.
type Backend interface {
	// Fetch retrieves the full snapshot identified by storeID. Failures
	// are reported as a BackendError.
	Fetch(ctx context.Context, storeID string) (map[string]string, error)
}

// BackendFunc is a func variant of the Backend interface.
type BackendFunc func(context.Context, string) (map[string]string, error)

// Fetch implements the Backend interface.
func (f BackendFunc) Fetch(ctx context.Context, storeID string) (map[string]string, error) {
	return f(ctx, storeID)
}

// ErrorKind classifies a backend fetch failure.
type ErrorKind string

const (
	ErrorKindNetwork  ErrorKind = "network"
	ErrorKindAuth     ErrorKind = "auth"
	ErrorKindNotFound ErrorKind = "not_found"
	ErrorKindDecode   ErrorKind = "decode"
)

// BackendError is returned by Backend implementations when a fetch fails.
type BackendError struct {
	Kind    ErrorKind
	StoreID string
	Cause   error
}

// Error implements the error interface.
func (e BackendError) Error() string {
	return fmt.Sprintf("config backend %s error for store %q: %s", e.Kind, e.StoreID, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e BackendError) Unwrap() error {
	return e.Cause
}
