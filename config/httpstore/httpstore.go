// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httpstore provides a config.Backend implementation backed by a
// plain HTTP(S) configuration endpoint.
package httpstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/celerityframework/runtime/config"
	"github.com/celerityframework/runtime/internal/try"
	"github.com/celerityframework/runtime/pkg/noop"
	"github.com/celerityframework/runtime/pkg/otelslog"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type storeOptions struct {
	logHandler slog.Handler

	baseURL string
	timeout time.Duration

	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	circuitLogger    *zap.Logger
	circuitTripCount uint32
	circuitTimeout   time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

// LogHandler configures the underlying slog.Handler.
func LogHandler(h slog.Handler) StoreOption {
	return func(so *storeOptions) {
		so.logHandler = h
	}
}

// BaseURL configures the endpoint every store identifier is resolved
// against.
func BaseURL(u string) StoreOption {
	return func(so *storeOptions) {
		so.baseURL = u
	}
}

// RequestTimeout configures the per request timeout.
func RequestTimeout(d time.Duration) StoreOption {
	return func(so *storeOptions) {
		so.timeout = d
	}
}

// RetryAttempts enables transport level retries for up to n attempts.
// Retries are disabled by default.
func RetryAttempts(n int) StoreOption {
	return func(so *storeOptions) {
		so.retryMax = n
	}
}

// CircuitLogger configures the logger used to report circuit breaker state
// changes.
func CircuitLogger(logger *zap.Logger) StoreOption {
	return func(so *storeOptions) {
		so.circuitLogger = logger
	}
}

// CircuitTripCount determines the number of consecutive failures required
// to trip the circuit.
func CircuitTripCount(n uint32) StoreOption {
	return func(so *storeOptions) {
		so.circuitTripCount = n
	}
}

// CircuitTimeout is the period of the open state, after which the circuit
// becomes half-open.
func CircuitTimeout(d time.Duration) StoreOption {
	return func(so *storeOptions) {
		so.circuitTimeout = d
	}
}

// Store fetches configuration snapshots over HTTP. The store identifier is
// a path resolved against the configured base URL and the response body is
// parsed as a flat JSON object of key value pairs. All requests flow
// through a circuit breaker so a failing endpoint sheds load quickly.
type Store struct {
	log     *slog.Logger
	http    *http.Client
	baseURL string
	cb      *gobreaker.CircuitBreaker
}

// NewStore returns a Store for use as a config.Backend.
func NewStore(opts ...StoreOption) *Store {
	so := &storeOptions{
		logHandler:       noop.LogHandler{},
		timeout:          10 * time.Second,
		retryWaitMin:     100 * time.Millisecond,
		retryWaitMax:     5 * time.Second,
		circuitLogger:    zap.NewNop(),
		circuitTripCount: 5,
		circuitTimeout:   60 * time.Second,
	}
	for _, opt := range opts {
		opt(so)
	}

	rc := retryablehttp.Client{
		HTTPClient:   &http.Client{Timeout: so.timeout},
		Logger:       nil,
		RetryWaitMin: so.retryWaitMin,
		RetryWaitMax: so.retryWaitMax,
		RetryMax:     so.retryMax,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}

	log := so.circuitLogger.Named("httpstore")
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "httpstore",
		Timeout: so.circuitTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= so.circuitTripCount
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			switch to {
			case gobreaker.StateOpen:
				log.Error("circuit has been opened")
			case gobreaker.StateHalfOpen:
				log.Warn("circuit is now half open and letting some requests through")
			case gobreaker.StateClosed:
				log.Info("circuit has been closed")
			}
		},
	})

	return &Store{
		log:     otelslog.New(so.logHandler),
		http:    rc.StandardClient(),
		baseURL: strings.TrimSuffix(so.baseURL, "/"),
		cb:      cb,
	}
}

// UnexpectedStatusCodeError occurs when the configuration endpoint responds
// with a status code other than 200.
type UnexpectedStatusCodeError struct {
	StatusCode int
}

// Error implements the error interface.
func (e UnexpectedStatusCodeError) Error() string {
	return fmt.Sprintf("unexpected response status code: %d", e.StatusCode)
}

// Fetch implements the config.Backend interface.
func (s *Store) Fetch(ctx context.Context, storeID string) (map[string]string, error) {
	spanCtx, span := otel.Tracer("httpstore").Start(ctx, "Store.Fetch", trace.WithAttributes(
		attribute.String("config.store_id", storeID),
	))
	defer span.End()

	v, err := s.cb.Execute(func() (any, error) {
		return s.fetch(spanCtx, storeID)
	})
	if err != nil {
		s.log.ErrorContext(spanCtx, "failed to fetch remote config", slog.String("store_id", storeID), slog.Any("error", err))

		var backendErr config.BackendError
		if errors.As(err, &backendErr) {
			return nil, backendErr
		}
		return nil, config.BackendError{
			Kind:    config.ErrorKindNetwork,
			StoreID: storeID,
			Cause:   err,
		}
	}
	return v.(map[string]string), nil
}

func (s *Store) fetch(ctx context.Context, storeID string) (_ map[string]string, err error) {
	url := s.baseURL + "/" + strings.TrimPrefix(storeID, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, config.BackendError{
			Kind:    config.ErrorKindNetwork,
			StoreID: storeID,
			Cause:   err,
		}
	}
	defer try.Close(&err, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, config.BackendError{
			Kind:    statusErrorKind(resp.StatusCode),
			StoreID: storeID,
			Cause:   UnexpectedStatusCodeError{StatusCode: resp.StatusCode},
		}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, config.BackendError{
			Kind:    config.ErrorKindNetwork,
			StoreID: storeID,
			Cause:   err,
		}
	}

	snapshot := make(map[string]string)
	err = json.Unmarshal(b, &snapshot)
	if err != nil {
		return nil, config.BackendError{
			Kind:    config.ErrorKindDecode,
			StoreID: storeID,
			Cause:   err,
		}
	}
	return snapshot, nil
}

func statusErrorKind(code int) config.ErrorKind {
	switch code {
	case http.StatusNotFound:
		return config.ErrorKindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return config.ErrorKindAuth
	default:
		return config.ErrorKindNetwork
	}
}
