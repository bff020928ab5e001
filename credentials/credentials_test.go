// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package credentials

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredential struct {
	token  string
	err    error
	scopes [][]string
	// Token lifetime. Defaults to one hour.
	ttl time.Duration
}

func (c *fakeCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	c.scopes = append(c.scopes, opts.Scopes)
	if c.err != nil {
		return azcore.AccessToken{}, c.err
	}
	ttl := c.ttl
	if ttl == 0 {
		ttl = time.Hour
	}
	return azcore.AccessToken{Token: c.token, ExpiresOn: time.Now().Add(ttl)}, nil
}

func TestStaticAcquire(t *testing.T) {
	t.Run("checks the default scope", func(t *testing.T) {
		cred := &fakeCredential{token: "tok"}
		got, err := Static{Credential: cred}.Acquire(t.Context())
		require.NoError(t, err)
		assert.Same(t, cred, got)
		assert.Equal(t, [][]string{{DefaultScope}}, cred.scopes)
	})

	t.Run("custom scope", func(t *testing.T) {
		cred := &fakeCredential{token: "tok"}
		_, err := Static{Credential: cred, Scope: "api://x/.default"}.Acquire(t.Context())
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"api://x/.default"}}, cred.scopes)
	})

	t.Run("token failure", func(t *testing.T) {
		cause := errors.New("please run 'az login'")
		_, err := Static{Name: "test", Credential: &fakeCredential{err: cause}}.Acquire(t.Context())

		var authErr AuthenticationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "test", authErr.Provider)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("no credential", func(t *testing.T) {
		_, err := Static{}.Acquire(t.Context())
		assert.ErrorAs(t, err, &AuthenticationError{})
	})
}

func TestAzureCLIAcquireWithoutCLI(t *testing.T) {
	// An empty PATH makes the az executable unavailable.
	t.Setenv("PATH", t.TempDir())

	_, err := AzureCLI{}.Acquire(t.Context())
	var authErr AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Azure CLI", authErr.Provider)
}

func TestBearerTokenTransport(t *testing.T) {
	var authorization string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
	}))
	t.Cleanup(ts.Close)

	t.Run("adds the token", func(t *testing.T) {
		cred := &fakeCredential{token: "mcp-token"}
		client := NewBearerTokenClient(cred, "api://docs/.default", ts.Client())

		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, ts.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		assert.Equal(t, "Bearer mcp-token", authorization)
		assert.Empty(t, req.Header.Get("Authorization"))
		assert.Equal(t, [][]string{{"api://docs/.default"}}, cred.scopes)
	})

	get := func(t *testing.T, client *http.Client) {
		t.Helper()
		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, ts.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}

	t.Run("reuses a valid token", func(t *testing.T) {
		cred := &fakeCredential{token: "mcp-token"}
		client := NewBearerTokenClient(cred, "api://docs/.default", ts.Client())

		for range 5 {
			get(t, client)
		}
		assert.Len(t, cred.scopes, 1)
		assert.Equal(t, "Bearer mcp-token", authorization)
	})

	t.Run("renews a token about to expire", func(t *testing.T) {
		cred := &fakeCredential{token: "short-lived", ttl: time.Minute}
		client := NewBearerTokenClient(cred, "api://docs/.default", ts.Client())

		get(t, client)
		get(t, client)
		assert.Len(t, cred.scopes, 2)
	})

	t.Run("token failure", func(t *testing.T) {
		client := NewBearerTokenClient(&fakeCredential{err: errors.New("expired")}, "s", nil)

		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, ts.URL, nil)
		require.NoError(t, err)
		_, err = client.Do(req)
		assert.ErrorAs(t, err, &AuthenticationError{})
	})
}
