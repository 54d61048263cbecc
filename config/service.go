// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Service is a registry of Namespaces keyed by unique name. Namespaces are
// registered once at process wiring time and live for the process lifetime.
type Service struct {
	mu         sync.RWMutex
	namespaces map[string]*Namespace
}

// NewService returns an empty Service.
func NewService() *Service {
	return &Service{
		namespaces: make(map[string]*Namespace),
	}
}

// Register adds a namespace under the given name, replacing any previous
// registration for that name. The namespace adopts the registration name
// for error reporting unless it was explicitly named at construction.
func (s *Service) Register(name string, ns *Namespace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns.name == "" {
		ns.name = name
	}
	s.namespaces[name] = ns
}

// NamespaceNotFoundError occurs when looking up a namespace name which was
// never registered.
type NamespaceNotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e NamespaceNotFoundError) Error() string {
	return fmt.Sprintf("config namespace %q is not registered", e.Name)
}

// NoNamespacesError occurs when using the single namespace convenience
// accessors on a Service with no namespaces registered.
type NoNamespacesError struct{}

// Error implements the error interface.
func (e NoNamespacesError) Error() string {
	return "no config namespaces are registered"
}

// AmbiguousNamespaceError occurs when using the single namespace convenience
// accessors on a Service with more than one namespace registered.
type AmbiguousNamespaceError struct {
	Names []string
}

// Error implements the error interface.
func (e AmbiguousNamespaceError) Error() string {
	return fmt.Sprintf("multiple config namespaces are registered, a namespace must be specified: %s", strings.Join(e.Names, ", "))
}

// Namespace returns the namespace registered under name.
func (s *Service) Namespace(name string) (*Namespace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.namespaces[name]
	if !ok {
		return nil, NamespaceNotFoundError{Name: name}
	}
	return ns, nil
}

// Get delegates to the single registered namespace.
func (s *Service) Get(ctx context.Context, key string) (string, bool, error) {
	ns, err := s.only()
	if err != nil {
		return "", false, err
	}
	return ns.Get(ctx, key)
}

// Require delegates to the single registered namespace.
func (s *Service) Require(ctx context.Context, key string) (string, error) {
	ns, err := s.only()
	if err != nil {
		return "", err
	}
	return ns.Require(ctx, key)
}

// All delegates to the single registered namespace.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	ns, err := s.only()
	if err != nil {
		return nil, err
	}
	return ns.All(ctx)
}

// Decode delegates to the single registered namespace.
func (s *Service) Decode(ctx context.Context, v any) error {
	ns, err := s.only()
	if err != nil {
		return err
	}
	return ns.Decode(ctx, v)
}

// ParseOne passes the single registered namespace's snapshot through the
// given schema.
func ParseOne[T any](ctx context.Context, s *Service, schema Schema[T]) (T, error) {
	ns, err := s.only()
	if err != nil {
		var zero T
		return zero, err
	}
	return Parse(ctx, ns, schema)
}

// only resolves the single registered namespace. The convenience accessors
// are only valid when exactly one namespace is registered.
func (s *Service) only() (*Namespace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch len(s.namespaces) {
	case 0:
		return nil, NoNamespacesError{}
	case 1:
		for _, ns := range s.namespaces {
			return ns, nil
		}
		panic("unreachable")
	default:
		names := make([]string, 0, len(s.namespaces))
		for name := range s.namespaces {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, AmbiguousNamespaceError{Names: names}
	}
}
