// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package env provides namespaced access to process environment variables.
package env

import (
	"os"
	"strings"
)

// Platform identifies the deployment platform the process is running on.
type Platform string

const (
	PlatformAWS   Platform = "aws"
	PlatformGCP   Platform = "gcp"
	PlatformAzure Platform = "azure"
	PlatformLocal Platform = "local"

	// PlatformOther is reported for any unset, empty or unrecognized
	// platform identifier.
	PlatformOther Platform = "other"
)

// Accessor reads process environment variables under fixed namespacing
// conventions: application variables ("<PREFIX>_APP_*"), secrets
// ("<PREFIX>_SECRET_*"), platform injected variables ("<PREFIX>_VARIABLE_*")
// and the platform identifier ("<PREFIX>_PLATFORM").
//
// Nothing is cached. Every call reads live environment state.
type Accessor struct {
	prefix string
}

// New returns an Accessor bound to the given outer prefix, e.g. "CELERITY".
func New(prefix string) *Accessor {
	return &Accessor{
		prefix: strings.ToUpper(prefix),
	}
}

// AppVar returns the application variable for name. The second return value
// reports whether the variable is set, distinguishing an empty string value
// from an unset variable.
func (a *Accessor) AppVar(name string) (string, bool) {
	return os.LookupEnv(a.appPrefix() + strings.ToUpper(name))
}

// AllAppVars returns every application variable with the namespace prefix
// stripped from each key. Variables belonging to the secret and platform
// variable namespaces are never included.
func (a *Accessor) AllAppVars() map[string]string {
	vars := make(map[string]string)
	prefix := a.appPrefix()
	for _, pair := range os.Environ() {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || !strings.HasPrefix(k, prefix) {
			continue
		}
		vars[strings.TrimPrefix(k, prefix)] = v
	}
	return vars
}

// Secret returns the secret variable for name.
func (a *Accessor) Secret(name string) (string, bool) {
	return os.LookupEnv(a.prefix + "_SECRET_" + strings.ToUpper(name))
}

// Variable returns the platform injected variable for name.
func (a *Accessor) Variable(name string) (string, bool) {
	return os.LookupEnv(a.prefix + "_VARIABLE_" + strings.ToUpper(name))
}

// Platform reports the deployment platform from the platform identifier
// variable. Matching is case-insensitive.
func (a *Accessor) Platform() Platform {
	v, _ := os.LookupEnv(a.prefix + "_PLATFORM")
	switch p := Platform(strings.ToLower(v)); p {
	case PlatformAWS, PlatformGCP, PlatformAzure, PlatformLocal:
		return p
	default:
		return PlatformOther
	}
}

func (a *Accessor) appPrefix() string {
	return a.prefix + "_APP_"
}
