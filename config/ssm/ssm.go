// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package ssm provides a config.Backend implementation backed by the AWS
// Systems Manager Parameter Store.
package ssm

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/celerityframework/runtime/config"
	"github.com/celerityframework/runtime/pkg/noop"
	"github.com/celerityframework/runtime/pkg/otelslog"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ssmGetParametersByPathClient interface {
	GetParametersByPath(context.Context, *ssm.GetParametersByPathInput, ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

type storeOptions struct {
	logHandler slog.Handler
	ssm        ssmGetParametersByPathClient
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

// LogHandler configures the underlying slog.Handler.
func LogHandler(h slog.Handler) StoreOption {
	return func(so *storeOptions) {
		so.logHandler = h
	}
}

// Client configures the underlying SSM client.
func Client(c *ssm.Client) StoreOption {
	return func(so *storeOptions) {
		so.ssm = c
	}
}

// Store fetches configuration snapshots from the AWS SSM Parameter Store.
// The store identifier is a parameter path prefix; the hierarchical key
// namespace under it is flattened into a flat map with SecureString values
// decrypted transparently. Store performs no caching and no retries.
type Store struct {
	log *slog.Logger
	ssm ssmGetParametersByPathClient
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
		log: otelslog.New(so.logHandler),
		ssm: so.ssm,
	}
}

// Fetch implements the config.Backend interface. It pages through every
// parameter under the path prefix storeID, recursively, and returns them
// keyed by their name relative to the prefix.
func (s *Store) Fetch(ctx context.Context, storeID string) (map[string]string, error) {
	spanCtx, span := otel.Tracer("ssm").Start(ctx, "Store.Fetch", trace.WithAttributes(
		attribute.String("config.store_id", storeID),
	))
	defer span.End()

	recursive := true
	decrypt := true

	snapshot := make(map[string]string)
	var nextToken *string
	for {
		resp, err := s.ssm.GetParametersByPath(spanCtx, &ssm.GetParametersByPathInput{
			Path:           &storeID,
			Recursive:      &recursive,
			WithDecryption: &decrypt,
			NextToken:      nextToken,
		})
		if err != nil {
			s.log.ErrorContext(spanCtx, "failed to fetch parameters by path", slog.String("path", storeID), slog.Any("error", err))
			return nil, config.BackendError{
				Kind:    errorKind(err),
				StoreID: storeID,
				Cause:   err,
			}
		}

		for _, p := range resp.Parameters {
			if p.Name == nil || p.Value == nil {
				continue
			}
			snapshot[relativeKey(storeID, *p.Name)] = *p.Value
		}

		nextToken = resp.NextToken
		if nextToken == nil {
			break
		}
	}
	return snapshot, nil
}

func relativeKey(path, name string) string {
	return strings.TrimPrefix(strings.TrimPrefix(name, path), "/")
}

func errorKind(err error) config.ErrorKind {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return config.ErrorKindNetwork
	}
	switch apiErr.ErrorCode() {
	case "AccessDeniedException", "UnauthorizedOperation":
		return config.ErrorKindAuth
	case "ParameterNotFound":
		return config.ErrorKindNotFound
	default:
		return config.ErrorKindNetwork
	}
}
