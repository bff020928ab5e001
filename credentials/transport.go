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
	"net/http"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// tokenRefreshMargin is how long before expiry a cached token is renewed.
const tokenRefreshMargin = 5 * time.Minute

// BearerTokenTransport is an http.RoundTripper adding an
// "Authorization: Bearer" header with a token for Scopes to every request.
//
// The token is cached and reused until it is about to expire, so that
// credentials backed by a CLI process are not invoked for each request.
type BearerTokenTransport struct {
	Credential azcore.TokenCredential
	Scopes     []string
	// Defaults to http.DefaultTransport.
	Base http.RoundTripper

	mu    sync.Mutex
	token azcore.AccessToken
}

func (t *BearerTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.bearerToken(req)
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, AuthenticationError{Provider: "bearer token", Err: err}
	}

	// RoundTrippers must not modify the original request.
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}

func (t *BearerTokenTransport) bearerToken(req *http.Request) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token.Token != "" && time.Until(t.token.ExpiresOn) > tokenRefreshMargin {
		return t.token.Token, nil
	}
	token, err := t.Credential.GetToken(req.Context(), policy.TokenRequestOptions{Scopes: t.Scopes})
	if err != nil {
		return "", err
	}
	t.token = token
	return token.Token, nil
}

// NewBearerTokenClient returns an HTTP client authenticating every request
// with a token for the given scope.
func NewBearerTokenClient(cred azcore.TokenCredential, scope string, base *http.Client) *http.Client {
	client := &http.Client{}
	if base != nil {
		*client = *base
	}
	client.Transport = &BearerTokenTransport{
		Credential: cred,
		Scopes:     []string{scope},
		Base:       client.Transport,
	}
	return client
}
