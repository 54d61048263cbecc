// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package rediscache provides a config.Backend implementation backed by a
// Redis compatible key value cache.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/celerityframework/runtime/config"
	"github.com/celerityframework/runtime/pkg/noop"
	"github.com/celerityframework/runtime/pkg/otelslog"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type redisGetClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type storeOptions struct {
	logHandler slog.Handler
	redis      redisGetClient
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

// LogHandler configures the underlying slog.Handler.
func LogHandler(h slog.Handler) StoreOption {
	return func(so *storeOptions) {
		so.logHandler = h
	}
}

// Client configures the underlying Redis client. Any client exposing Get is
// accepted, e.g. *redis.Client or *redis.ClusterClient.
func Client(c redisGetClient) StoreOption {
	return func(so *storeOptions) {
		so.redis = c
	}
}

// Store fetches configuration snapshots from a single Redis cache entry.
// The store identifier is the cache key; its value is parsed as a flat JSON
// object of key value pairs. Store performs no caching of its own and no
// retries.
type Store struct {
	log   *slog.Logger
	redis redisGetClient
}

// NewStore returns a Store for use as a config.Backend.
func NewStore(opts ...StoreOption) *Store {
	so := &storeOptions{
		logHandler: noop.LogHandler{},
	}
	for _, opt := range opts {
		opt(so)
	}
	return &Store{
		log:   otelslog.New(so.logHandler),
		redis: so.redis,
	}
}

// Fetch implements the config.Backend interface.
func (s *Store) Fetch(ctx context.Context, storeID string) (map[string]string, error) {
	spanCtx, span := otel.Tracer("rediscache").Start(ctx, "Store.Fetch", trace.WithAttributes(
		attribute.String("config.store_id", storeID),
	))
	defer span.End()

	value, err := s.redis.Get(spanCtx, storeID).Result()
	if err != nil {
		kind := config.ErrorKindNetwork
		if errors.Is(err, redis.Nil) {
			kind = config.ErrorKindNotFound
		}
		s.log.ErrorContext(spanCtx, "failed to fetch cache entry", slog.String("key", storeID), slog.Any("error", err))
		return nil, config.BackendError{
			Kind:    kind,
			StoreID: storeID,
			Cause:   err,
		}
	}

	snapshot := make(map[string]string)
	err = json.Unmarshal([]byte(value), &snapshot)
	if err != nil {
		return nil, config.BackendError{
			Kind:    config.ErrorKindDecode,
			StoreID: storeID,
			Cause:   err,
		}
	}
	return snapshot, nil
}
