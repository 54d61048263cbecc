// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package secretsmanager provides a config.Backend implementation backed by
// AWS Secrets Manager.
package secretsmanager

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/celerityframework/runtime/config"
	"github.com/celerityframework/runtime/pkg/noop"
	"github.com/celerityframework/runtime/pkg/otelslog"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BinaryKey is the snapshot key a binary-only secret payload is exposed
// under, base64 encoded.
const BinaryKey = "_binary"

type secretsGetClient interface {
	GetSecretValue(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type storeOptions struct {
	logHandler slog.Handler
	secrets    secretsGetClient
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

// LogHandler configures the underlying slog.Handler.
func LogHandler(h slog.Handler) StoreOption {
	return func(so *storeOptions) {
		so.logHandler = h
	}
}

// Client configures the underlying Secrets Manager client.
func Client(c *secretsmanager.Client) StoreOption {
	return func(so *storeOptions) {
		so.secrets = c
	}
}

// Store fetches configuration snapshots from AWS Secrets Manager. The store
// identifier is the secret name or ARN. A string payload is parsed as a flat
// JSON object of key value pairs; a binary payload is exposed base64 encoded
// under BinaryKey. Store performs no caching and no retries.
type Store struct {
	log     *slog.Logger
	secrets secretsGetClient
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
	spanCtx, span := otel.Tracer("secretsmanager").Start(ctx, "Store.Fetch", trace.WithAttributes(
		attribute.String("config.store_id", storeID),
	))
	defer span.End()

	resp, err := s.secrets.GetSecretValue(spanCtx, &secretsmanager.GetSecretValueInput{
		SecretId: &storeID,
	})
	if err != nil {
		s.log.ErrorContext(spanCtx, "failed to fetch secret value", slog.String("secret_id", storeID), slog.Any("error", err))
		return nil, config.BackendError{
			Kind:    errorKind(err),
			StoreID: storeID,
			Cause:   err,
		}
	}

	if resp.SecretString != nil {
		snapshot := make(map[string]string)
		err = json.Unmarshal([]byte(*resp.SecretString), &snapshot)
		if err != nil {
			return nil, config.BackendError{
				Kind:    config.ErrorKindDecode,
				StoreID: storeID,
				Cause:   err,
			}
		}
		return snapshot, nil
	}

	return map[string]string{
		BinaryKey: base64.StdEncoding.EncodeToString(resp.SecretBinary),
	}, nil
}

func errorKind(err error) config.ErrorKind {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return config.ErrorKindNotFound
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return config.ErrorKindNetwork
	}
	switch apiErr.ErrorCode() {
	case "AccessDeniedException", "UnrecognizedClientException":
		return config.ErrorKindAuth
	default:
		return config.ErrorKindNetwork
	}
}
