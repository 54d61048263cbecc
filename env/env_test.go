// Copyright (c) 2026 Celerity Framework Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessor_AppVar(t *testing.T) {
	t.Run("will report the variable as set", func(t *testing.T) {
		t.Run("if it is set to a non-empty value", func(t *testing.T) {
			t.Setenv("CELERITY_APP_SERVICE_NAME", "orders")

			a := New("CELERITY")
			v, ok := a.AppVar("SERVICE_NAME")
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, "orders", v) {
				return
			}
		})

		t.Run("if it is set to an empty value", func(t *testing.T) {
			t.Setenv("CELERITY_APP_SERVICE_NAME", "")

			a := New("CELERITY")
			v, ok := a.AppVar("SERVICE_NAME")
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, "", v) {
				return
			}
		})

		t.Run("if the name is given in a different case", func(t *testing.T) {
			t.Setenv("CELERITY_APP_SERVICE_NAME", "orders")

			a := New("celerity")
			v, ok := a.AppVar("service_name")
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, "orders", v) {
				return
			}
		})
	})

	t.Run("will report the variable as unset", func(t *testing.T) {
		t.Run("if no variable exists under the application namespace", func(t *testing.T) {
			a := New("CELERITY")
			_, ok := a.AppVar("DEFINITELY_NOT_SET")
			if !assert.False(t, ok) {
				return
			}
		})
	})
}

func TestAccessor_AllAppVars(t *testing.T) {
	t.Run("will strip the application namespace prefix from every key", func(t *testing.T) {
		t.Setenv("CELERITYALL_APP_DATABASE_HOST", "localhost")
		t.Setenv("CELERITYALL_APP_DATABASE_PORT", "5432")

		a := New("CELERITYALL")
		vars := a.AllAppVars()
		if !assert.Equal(t, "localhost", vars["DATABASE_HOST"]) {
			return
		}
		if !assert.Equal(t, "5432", vars["DATABASE_PORT"]) {
			return
		}
	})

	t.Run("will exclude variables from other namespaces", func(t *testing.T) {
		t.Run("even though they share the outer prefix", func(t *testing.T) {
			t.Setenv("CELERITYEX_APP_DATABASE_HOST", "localhost")
			t.Setenv("CELERITYEX_SECRET_API_KEY", "hunter2")
			t.Setenv("CELERITYEX_VARIABLE_REGION", "us-east-1")
			t.Setenv("CELERITYEX_PLATFORM", "aws")

			a := New("CELERITYEX")
			vars := a.AllAppVars()
			if !assert.Len(t, vars, 1) {
				return
			}
			if !assert.Contains(t, vars, "DATABASE_HOST") {
				return
			}
		})
	})
}

func TestAccessor_Secret(t *testing.T) {
	t.Run("will return the secret value", func(t *testing.T) {
		t.Run("if it is set under the secret namespace", func(t *testing.T) {
			t.Setenv("CELERITY_SECRET_API_KEY", "hunter2")

			a := New("CELERITY")
			v, ok := a.Secret("api_key")
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, "hunter2", v) {
				return
			}
		})
	})
}

func TestAccessor_Variable(t *testing.T) {
	t.Run("will return the platform injected value", func(t *testing.T) {
		t.Run("if it is set under the variable namespace", func(t *testing.T) {
			t.Setenv("CELERITY_VARIABLE_REGION", "us-east-1")

			a := New("CELERITY")
			v, ok := a.Variable("REGION")
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, "us-east-1", v) {
				return
			}
		})
	})
}

func TestAccessor_Platform(t *testing.T) {
	t.Run("will return the canonical platform", func(t *testing.T) {
		testCases := []struct {
			Name     string
			Value    string
			Platform Platform
		}{
			{Name: "if it is set to a lower case token", Value: "aws", Platform: PlatformAWS},
			{Name: "if it is set to an upper case token", Value: "GCP", Platform: PlatformGCP},
			{Name: "if it is set to a mixed case token", Value: "Azure", Platform: PlatformAzure},
			{Name: "if it is set to local", Value: "local", Platform: PlatformLocal},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				t.Setenv("CELERITY_PLATFORM", testCase.Value)

				a := New("CELERITY")
				if !assert.Equal(t, testCase.Platform, a.Platform()) {
					return
				}
			})
		}
	})

	t.Run("will return the other platform", func(t *testing.T) {
		t.Run("if the platform identifier is unset", func(t *testing.T) {
			a := New("CELERITYUNSET")
			if !assert.Equal(t, PlatformOther, a.Platform()) {
				return
			}
		})

		t.Run("if the platform identifier is empty", func(t *testing.T) {
			t.Setenv("CELERITY_PLATFORM", "")

			a := New("CELERITY")
			if !assert.Equal(t, PlatformOther, a.Platform()) {
				return
			}
		})

		t.Run("if the platform identifier is unrecognized", func(t *testing.T) {
			t.Setenv("CELERITY_PLATFORM", "heroku")

			a := New("CELERITY")
			if !assert.Equal(t, PlatformOther, a.Platform()) {
				return
			}
		})
	})
}
