// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/celerityframework/runtime/config"
	"github.com/celerityframework/runtime/config/gcpsecrets"
	"github.com/celerityframework/runtime/config/httpstore"
	"github.com/celerityframework/runtime/config/rediscache"
	"github.com/celerityframework/runtime/config/secretsmanager"
	"github.com/celerityframework/runtime/config/ssm"
	"github.com/celerityframework/runtime/env"
	"github.com/celerityframework/runtime/pkg/noop"
	"github.com/celerityframework/runtime/pkg/otelslog"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssecrets "github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/redis/go-redis/v9"
)

// ServiceToken is the container token the ConfigLayer registers the
// config.Service under.
const ServiceToken = "celerity:config.Service"

// DefaultNamespace is the name the single derived namespace is registered
// under when the environment does not declare explicit namespaces.
const DefaultNamespace = "app"

// Backend kinds selectable through the "<PREFIX>_APP_CONFIG[_<NS>]_BACKEND"
// variable. When unset the kind is defaulted from the resolved provider.
const (
	BackendParameterStore = "parameter-store"
	BackendSecretManager  = "secret-manager"
	BackendKeyValueCache  = "kv-cache"
	BackendHTTP           = "http"
)

// BackendFactory builds a config.Backend for the provider and property bag
// resolved from the environment.
type BackendFactory func(ctx context.Context, provider string, properties map[string]string) (config.Backend, error)

type configLayerOptions struct {
	logHandler slog.Handler
	envPrefix  string
	factory    BackendFactory
}

// ConfigLayerOption configures a ConfigLayer.
type ConfigLayerOption func(*configLayerOptions)

// LogHandler configures the underlying slog.Handler.
func LogHandler(h slog.Handler) ConfigLayerOption {
	return func(co *configLayerOptions) {
		co.logHandler = h
	}
}

// EnvPrefix configures the outer environment variable prefix. It defaults
// to "CELERITY".
func EnvPrefix(prefix string) ConfigLayerOption {
	return func(co *configLayerOptions) {
		co.envPrefix = prefix
	}
}

// Factory overrides how backends are constructed from resolved environment
// configuration.
func Factory(f BackendFactory) ConfigLayerOption {
	return func(co *configLayerOptions) {
		co.factory = f
	}
}

// ConfigLayer wires a config.Service into the request's dependency
// container. The service is built from current environment state on the
// first invocation observed by a layer instance and registered under
// ServiceToken; every later invocation is a passthrough. The layer always
// delegates to next and returns its result unchanged.
type ConfigLayer struct {
	log        *slog.Logger
	logHandler slog.Handler
	accessor   *env.Accessor
	factory    BackendFactory

	once sync.Once
}

// NewConfigLayer returns a ConfigLayer.
func NewConfigLayer(opts ...ConfigLayerOption) *ConfigLayer {
	co := &configLayerOptions{
		logHandler: noop.LogHandler{},
		envPrefix:  "CELERITY",
	}
	for _, opt := range opts {
		opt(co)
	}
	if co.factory == nil {
		co.factory = DefaultBackendFactory
	}
	return &ConfigLayer{
		log:        otelslog.New(co.logHandler),
		logHandler: co.logHandler,
		accessor:   env.New(co.envPrefix),
		factory:    co.factory,
	}
}

// Handle implements the Middleware interface.
func (l *ConfigLayer) Handle(ctx *Context, next Next) (any, error) {
	l.once.Do(func() {
		svc := l.buildService(ctx)
		ctx.Container.Register(ServiceToken, svc)
	})
	return next(ctx)
}

// buildService derives namespaces and backend bindings from environment
// state. Derivation failures never fail the request: a service is always
// registered, possibly with zero namespaces, so lookups surface the issue
// instead of the layer.
func (l *ConfigLayer) buildService(ctx context.Context) *config.Service {
	svc := config.NewService()

	resolved := config.Resolve(l.accessor, "config", "")
	names := splitList(resolved.Properties["NAMESPACES"])
	if len(names) == 0 {
		l.registerNamespace(ctx, svc, DefaultNamespace, resolved)
		return svc
	}

	for _, name := range names {
		l.registerNamespace(ctx, svc, name, config.Resolve(l.accessor, "config", name))
	}
	return svc
}

func (l *ConfigLayer) registerNamespace(ctx context.Context, svc *config.Service, name string, resolved config.ResolvedConfig) {
	storeID := resolved.Properties["STORE_ID"]
	if storeID == "" {
		l.log.WarnContext(ctx, "no config store identifier derived from environment, skipping namespace", slog.String("namespace", name))
		return
	}

	backend, err := l.factory(ctx, resolved.Provider, resolved.Properties)
	if err != nil {
		l.log.ErrorContext(ctx, "failed to build config backend, skipping namespace", slog.String("namespace", name), slog.Any("error", err))
		return
	}

	opts := []config.Option{
		config.LogHandler(l.logHandler),
	}
	if raw, ok := resolved.Properties["REFRESH_INTERVAL_MS"]; ok {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			l.log.ErrorContext(ctx, "invalid config refresh interval, caching namespace forever", slog.String("namespace", name), slog.String("refresh_interval_ms", raw))
		} else {
			opts = append(opts, config.RefreshInterval(time.Duration(ms)*time.Millisecond))
		}
	}

	svc.Register(name, config.New(backend, storeID, opts...))
}

// UnknownBackendError occurs when the environment selects a backend kind
// which has no implementation.
type UnknownBackendError struct {
	Kind string
}

// Error implements the error interface.
func (e UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown config backend kind: %q", e.Kind)
}

// DefaultBackendFactory builds backends against real remote stores: AWS SSM
// Parameter Store, AWS Secrets Manager, Google Cloud Secret Manager, a
// Redis compatible cache or a plain HTTP endpoint.
func DefaultBackendFactory(ctx context.Context, provider string, properties map[string]string) (config.Backend, error) {
	kind := properties["BACKEND"]
	if kind == "" {
		switch provider {
		case "gcp":
			kind = BackendSecretManager
		default:
			kind = BackendParameterStore
		}
	}

	switch kind {
	case BackendParameterStore:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		return ssm.NewStore(ssm.Client(awsssm.NewFromConfig(awsCfg))), nil
	case BackendSecretManager:
		if provider == "gcp" {
			client, err := secretmanager.NewClient(ctx)
			if err != nil {
				return nil, err
			}
			return gcpsecrets.NewStore(gcpsecrets.Client(client)), nil
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		return secretsmanager.NewStore(secretsmanager.Client(awssecrets.NewFromConfig(awsCfg))), nil
	case BackendKeyValueCache:
		client := redis.NewClient(&redis.Options{
			Addr:     properties["CACHE_ADDR"],
			Username: properties["CACHE_USERNAME"],
			Password: properties["CACHE_PASSWORD"],
		})
		return rediscache.NewStore(rediscache.Client(client)), nil
	case BackendHTTP:
		return httpstore.NewStore(httpstore.BaseURL(properties["URL"])), nil
	default:
		return nil, UnknownBackendError{Kind: kind}
	}
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}
