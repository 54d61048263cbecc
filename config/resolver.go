// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"strings"

	"github.com/celerityframework/runtime/env"
)

// ResolvedConfig is the provider and property bag derived for a logical
// resource from environment variables alone.
type ResolvedConfig struct {
	Provider   string
	Properties map[string]string
}

// Resolve derives the configured provider and property bag for a logical
// resource, e.g. a "database" or the "orders" qualified instance of it, from
// application environment variables. It performs zero I/O and is recomputed
// on every call.
//
// The provider is taken verbatim from the "<PREFIX>_PROVIDER" application
// variable when set, even when set to an empty string. Otherwise it falls
// back to the deployment platform when recognized, and to "unknown" when not.
//
// Property keys are the application variable keys with "<PREFIX>_" stripped,
// case preserved. The reserved "PROVIDER" property is always excluded. A
// compound prefix ("DATABASE_ORDERS") never collects variables which only
// match the unqualified prefix ("DATABASE").
func Resolve(accessor *env.Accessor, resourceType, resourceName string) ResolvedConfig {
	prefix := strings.ToUpper(resourceType)
	if resourceName != "" {
		prefix += "_" + strings.ToUpper(resourceName)
	}

	provider, ok := accessor.AppVar(prefix + "_PROVIDER")
	if !ok {
		provider = "unknown"
		if p := accessor.Platform(); p != env.PlatformOther {
			provider = string(p)
		}
	}

	properties := make(map[string]string)
	for k, v := range accessor.AllAppVars() {
		rest, found := strings.CutPrefix(k, prefix+"_")
		if !found || rest == "PROVIDER" {
			continue
		}
		properties[rest] = v
	}

	return ResolvedConfig{
		Provider:   provider,
		Properties: properties,
	}
}
