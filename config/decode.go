// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeError occurs when a namespace snapshot can not be decoded into the
// target value.
type DecodeError struct {
	Namespace string
	Cause     error
}

// Error implements the error interface.
func (e DecodeError) Error() string {
	return fmt.Sprintf("failed to decode config namespace %q: %s", e.Namespace, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e DecodeError) Unwrap() error {
	return e.Cause
}

// Decode unmarshals the namespace's full snapshot into v. Struct fields are
// matched by the "config" tag. Snapshot values are strings, so decoding is
// weakly typed: numeric, boolean, time.Duration and encoding.TextUnmarshaler
// fields are coerced from their string representations.
func (ns *Namespace) Decode(ctx context.Context, v any) error {
	snap, err := ns.All(ctx)
	if err != nil {
		return err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "config",
		Result:           v,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return DecodeError{Namespace: ns.displayName(), Cause: err}
	}

	err = dec.Decode(snap)
	if err != nil {
		return DecodeError{Namespace: ns.displayName(), Cause: err}
	}
	return nil
}
