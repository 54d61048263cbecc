// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package middleware provides the request chain integration points for the
// configuration subsystem. The request handling chain, the dependency
// container and the request/response values are external collaborators:
// this package only defines the narrow interfaces it is handed.
package middleware

import "context"

// Container is the dependency container a middleware can publish values
// into. Consumers resolve the same token to obtain the value.
type Container interface {
	Register(token string, value any)
}

// Context carries the per request collaborators handed to a middleware by
// the request handling chain.
type Context struct {
	context.Context

	Container Container
}

// Next invokes the remainder of the request handling chain.
type Next func(ctx *Context) (any, error)

// Middleware is a single link in the request handling chain.
type Middleware interface {
	Handle(ctx *Context, next Next) (any, error)
}

// MiddlewareFunc is a func variant of the Middleware interface.
type MiddlewareFunc func(ctx *Context, next Next) (any, error)

// Handle implements the Middleware interface.
func (f MiddlewareFunc) Handle(ctx *Context, next Next) (any, error) {
	return f(ctx, next)
}
