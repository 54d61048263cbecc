// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/celerityframework/runtime/pkg/noop"
	"github.com/celerityframework/runtime/pkg/otelslog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

type namespaceOptions struct {
	logHandler slog.Handler

	name         string
	refreshEvery time.Duration
	refresh      bool
}

// Option configures a Namespace.
type Option func(*namespaceOptions)

// LogHandler configures the underlying slog.Handler.
func LogHandler(h slog.Handler) Option {
	return func(no *namespaceOptions) {
		no.logHandler = h
	}
}

// Name sets the name the namespace reports in errors. It defaults to the
// name the namespace is registered under in a Service.
func Name(name string) Option {
	return func(no *namespaceOptions) {
		no.name = name
	}
}

// RefreshInterval sets how long a fetched snapshot is served before a
// background refresh is scheduled. Zero means the snapshot is considered
// stale immediately. When this option is not set the snapshot is cached
// for the lifetime of the process and never refreshed.
func RefreshInterval(d time.Duration) Option {
	return func(no *namespaceOptions) {
		no.refreshEvery = d
		no.refresh = true
	}
}

// Namespace is a named, independently cached configuration snapshot bound
// to one Backend and store identifier.
//
// The first accessor call fetches the snapshot from the backend and blocks
// until it resolves; concurrent first calls collapse onto a single fetch.
// Once cached, reads are served from memory. A stale snapshot is still
// returned immediately while at most one background refresh brings it up to
// date (stale-while-revalidate). A failed refresh never clears the cache:
// the namespace keeps serving the last known good snapshot until a later
// refresh succeeds.
type Namespace struct {
	log     *slog.Logger
	backend Backend
	storeID string

	name         string
	refreshEvery time.Duration
	refresh      bool

	group singleflight.Group

	mu          sync.Mutex
	cache       map[string]string
	lastFetched time.Time
	refreshing  bool
}

// New returns a Namespace bound to the given backend and store identifier.
func New(backend Backend, storeID string, opts ...Option) *Namespace {
	no := &namespaceOptions{
		logHandler: noop.LogHandler{},
	}
	for _, opt := range opts {
		opt(no)
	}
	return &Namespace{
		log:          otelslog.New(no.logHandler),
		backend:      backend,
		storeID:      storeID,
		name:         no.name,
		refreshEvery: no.refreshEvery,
		refresh:      no.refresh,
	}
}

// KeyNotFoundError occurs when a required key is absent from a namespace's
// snapshot.
type KeyNotFoundError struct {
	Key       string
	Namespace string
}

// Error implements the error interface.
func (e KeyNotFoundError) Error() string {
	return fmt.Sprintf("config key %q not found in namespace %q", e.Key, e.Namespace)
}

// Get returns the cached value for key. The second return value reports
// whether the key is present in the snapshot. A stale snapshot never causes
// a key to be reported absent; staleness only schedules a background refresh.
func (ns *Namespace) Get(ctx context.Context, key string) (string, bool, error) {
	snap, err := ns.snapshot(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := snap[key]
	return v, ok, nil
}

// Require returns the cached value for key and fails with KeyNotFoundError
// when the key is absent.
func (ns *Namespace) Require(ctx context.Context, key string) (string, error) {
	v, ok, err := ns.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", KeyNotFoundError{Key: key, Namespace: ns.displayName()}
	}
	return v, nil
}

// All returns a copy of the full cached snapshot.
func (ns *Namespace) All(ctx context.Context) (map[string]string, error) {
	snap, err := ns.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return map[string]string{}, nil
	}
	return maps.Clone(snap), nil
}

// Schema validates and transforms a raw configuration snapshot into T.
type Schema[T any] interface {
	Parse(map[string]string) (T, error)
}

// SchemaFunc is a func variant of the Schema interface.
type SchemaFunc[T any] func(map[string]string) (T, error)

// Parse implements the Schema interface.
func (f SchemaFunc[T]) Parse(m map[string]string) (T, error) {
	return f(m)
}

// Parse passes the namespace's full snapshot through the given schema.
// Schema failures propagate unchanged to the caller.
func Parse[T any](ctx context.Context, ns *Namespace, schema Schema[T]) (T, error) {
	snap, err := ns.All(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return schema.Parse(snap)
}

func (ns *Namespace) displayName() string {
	if ns.name != "" {
		return ns.name
	}
	return ns.storeID
}

// snapshot returns the current cached snapshot, fetching it first if the
// namespace has never been populated. The returned map is shared and must
// not be mutated; refreshes replace it wholesale.
func (ns *Namespace) snapshot(ctx context.Context) (map[string]string, error) {
	ns.mu.Lock()
	if ns.cache == nil {
		ns.mu.Unlock()
		return ns.initialFetch(ctx)
	}
	snap := ns.cache
	if ns.stale() && !ns.refreshing {
		ns.refreshing = true
		go ns.refreshSnapshot()
	}
	ns.mu.Unlock()
	return snap, nil
}

// stale must be called with ns.mu held.
func (ns *Namespace) stale() bool {
	return ns.refresh && time.Since(ns.lastFetched) >= ns.refreshEvery
}

func (ns *Namespace) initialFetch(ctx context.Context) (map[string]string, error) {
	v, err, _ := ns.group.Do(ns.storeID, func() (any, error) {
		// a collapsed caller may enter after an earlier fetch already
		// populated the cache
		ns.mu.Lock()
		cached := ns.cache
		ns.mu.Unlock()
		if cached != nil {
			return cached, nil
		}

		m, err := ns.fetch(ctx)
		if err != nil {
			return nil, err
		}

		ns.mu.Lock()
		ns.cache = m
		ns.lastFetched = time.Now()
		ns.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

// refreshSnapshot runs as a fire-and-forget goroutine. It always runs to
// completion and its failure is absorbed here: the caller that detected
// staleness already received the old snapshot synchronously.
func (ns *Namespace) refreshSnapshot() {
	m, err := ns.fetch(context.Background())

	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.refreshing = false
	if err != nil {
		ns.log.Error(
			"failed to refresh config namespace, continuing to serve last known snapshot",
			slog.String("namespace", ns.displayName()),
			slog.String("store_id", ns.storeID),
			slog.Any("error", err),
		)
		return
	}
	ns.cache = m
	ns.lastFetched = time.Now()
}

func (ns *Namespace) fetch(ctx context.Context) (map[string]string, error) {
	spanCtx, span := otel.Tracer("config").Start(ctx, "Namespace.fetch", trace.WithAttributes(
		attribute.String("config.namespace", ns.displayName()),
		attribute.String("config.store_id", ns.storeID),
	))
	defer span.End()

	m, err := ns.backend.Fetch(spanCtx, ns.storeID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		// a nil cache means "never fetched", so an empty snapshot must
		// still be a non-nil map
		m = make(map[string]string)
	}
	return m, nil
}
