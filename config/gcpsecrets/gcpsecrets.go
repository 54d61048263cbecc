// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gcpsecrets provides a config.Backend implementation backed by
// Google Cloud Secret Manager.
package gcpsecrets

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/celerityframework/runtime/config"
	"github.com/celerityframework/runtime/pkg/noop"
	"github.com/celerityframework/runtime/pkg/otelslog"

	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type secretAccessClient interface {
	AccessSecretVersion(context.Context, *secretmanagerpb.AccessSecretVersionRequest, ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

type storeOptions struct {
	logHandler slog.Handler
	secrets    secretAccessClient
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

// LogHandler configures the underlying slog.Handler.
func LogHandler(h slog.Handler) StoreOption {
	return func(so *storeOptions) {
		so.logHandler = h
	}
}

// Client configures the underlying Secret Manager client. Any client
// exposing AccessSecretVersion is accepted, e.g. *secretmanager.Client.
func Client(c secretAccessClient) StoreOption {
	return func(so *storeOptions) {
		so.secrets = c
	}
}

// Store fetches configuration snapshots from Google Cloud Secret Manager.
// The store identifier is the secret's resource name
// ("projects/*/secrets/*"); the latest version is accessed unless the
// identifier already names one. The payload is parsed as a flat JSON object
// of key value pairs. Store performs no caching and no retries.
type Store struct {
	log     *slog.Logger
	secrets secretAccessClient
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
		log:     otelslog.New(so.logHandler),
		secrets: so.secrets,
	}
}

// Fetch implements the config.Backend interface.
func (s *Store) Fetch(ctx context.Context, storeID string) (map[string]string, error) {
	spanCtx, span := otel.Tracer("gcpsecrets").Start(ctx, "Store.Fetch", trace.WithAttributes(
		attribute.String("config.store_id", storeID),
	))
	defer span.End()

	name := storeID
	if !strings.Contains(name, "/versions/") {
		name += "/versions/latest"
	}

	resp, err := s.secrets.AccessSecretVersion(spanCtx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		s.log.ErrorContext(spanCtx, "failed to access secret version", slog.String("name", name), slog.Any("error", err))
		return nil, config.BackendError{
			Kind:    errorKind(err),
			StoreID: storeID,
			Cause:   err,
		}
	}

	snapshot := make(map[string]string)
	err = json.Unmarshal(resp.GetPayload().GetData(), &snapshot)
	if err != nil {
		return nil, config.BackendError{
			Kind:    config.ErrorKindDecode,
			StoreID: storeID,
			Cause:   err,
		}
	}
	return snapshot, nil
}

func errorKind(err error) config.ErrorKind {
	switch status.Code(err) {
	case codes.NotFound:
		return config.ErrorKindNotFound
	case codes.PermissionDenied, codes.Unauthenticated:
		return config.ErrorKindAuth
	default:
		return config.ErrorKindNetwork
	}
}
