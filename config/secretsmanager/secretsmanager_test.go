// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package secretsmanager

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/celerityframework/runtime/config"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
)

func withSecretsClient(c secretsGetClient) StoreOption {
	return func(so *storeOptions) {
		so.secrets = c
	}
}

type secretsGetClientFunc func(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)

func (f secretsGetClientFunc) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return f(ctx, in, opts...)
}

func strPtr(s string) *string {
	return &s
}

func TestStore_Fetch(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the secret does not exist", func(t *testing.T) {
			client := secretsGetClientFunc(func(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
				return nil, &types.ResourceNotFoundException{
					Message: strPtr("Secrets Manager can't find the specified secret."),
				}
			})

			s := NewStore(withSecretsClient(client))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_, err := s.Fetch(ctx, "app/config")

			var backendErr config.BackendError
			if !assert.ErrorAs(t, err, &backendErr) {
				return
			}
			if !assert.Equal(t, config.ErrorKindNotFound, backendErr.Kind) {
				return
			}
		})

		t.Run("if the secret payload is not a flat json object", func(t *testing.T) {
			client := secretsGetClientFunc(func(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
				return &secretsmanager.GetSecretValueOutput{
					SecretString: strPtr("not json"),
				}, nil
			})

			s := NewStore(withSecretsClient(client))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_, err := s.Fetch(ctx, "app/config")

			var backendErr config.BackendError
			if !assert.ErrorAs(t, err, &backendErr) {
				return
			}
			if !assert.Equal(t, config.ErrorKindDecode, backendErr.Kind) {
				return
			}
		})

		t.Run("if the fetch fails in transit", func(t *testing.T) {
			client := secretsGetClientFunc(func(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
				return nil, errors.New("connection refused")
			})

			s := NewStore(withSecretsClient(client))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_, err := s.Fetch(ctx, "app/config")

			var backendErr config.BackendError
			if !assert.ErrorAs(t, err, &backendErr) {
				return
			}
			if !assert.Equal(t, config.ErrorKindNetwork, backendErr.Kind) {
				return
			}
		})
	})

	t.Run("will not return an error", func(t *testing.T) {
		t.Run("if the secret holds a flat json object", func(t *testing.T) {
			client := secretsGetClientFunc(func(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
				if !assert.Equal(t, "app/config", *in.SecretId) {
					return nil, errors.New("unexpected secret id")
				}
				return &secretsmanager.GetSecretValueOutput{
					SecretString: strPtr(`{"DB_HOST": "localhost", "DB_PORT": "5432"}`),
				}, nil
			})

			s := NewStore(withSecretsClient(client))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			snapshot, err := s.Fetch(ctx, "app/config")
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, map[string]string{"DB_HOST": "localhost", "DB_PORT": "5432"}, snapshot) {
				return
			}
		})

		t.Run("if the secret holds a binary payload", func(t *testing.T) {
			payload := []byte{0xde, 0xad, 0xbe, 0xef}
			client := secretsGetClientFunc(func(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
				return &secretsmanager.GetSecretValueOutput{
					SecretBinary: payload,
				}, nil
			})

			s := NewStore(withSecretsClient(client))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			snapshot, err := s.Fetch(ctx, "app/config")
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, map[string]string{BinaryKey: base64.StdEncoding.EncodeToString(payload)}, snapshot) {
				return
			}
		})
	})
}
