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

// Package credentials acquires the Azure identity used to authenticate the
// chat backend and, optionally, the tool connection.
package credentials

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// DefaultScope is the token scope checked on acquisition: the scope of
// Azure OpenAI.
const DefaultScope = "https://cognitiveservices.azure.com/.default"

// AuthenticationError is returned when the identity provider cannot issue
// a token.
type AuthenticationError struct {
	// Name of the identity provider.
	Provider string
	Err      error
}

func (err AuthenticationError) Error() string {
	return fmt.Sprintf("%s authentication error: %v", err.Provider, err.Err)
}

func (err AuthenticationError) Unwrap() error { return err.Err }

// A Source acquires a credential handle.
type Source interface {
	Acquire(context.Context) (azcore.TokenCredential, error)
}

// AzureCLI acquires the identity of the user signed in with `az login`.
type AzureCLI struct {
	// Optional tenant. Defaults to the CLI's active tenant.
	TenantID string
	// Scope checked on acquisition. Defaults to DefaultScope.
	Scope string
}

func (s AzureCLI) Acquire(ctx context.Context) (azcore.TokenCredential, error) {
	cred, err := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{
		TenantID: s.TenantID,
	})
	if err != nil {
		return nil, AuthenticationError{Provider: "Azure CLI", Err: err}
	}
	return checkToken(ctx, "Azure CLI", cred, s.Scope)
}

// Default acquires an identity through the default Azure credential chain.
type Default struct {
	// Optional tenant.
	TenantID string
	// Scope checked on acquisition. Defaults to DefaultScope.
	Scope string
}

func (s Default) Acquire(ctx context.Context) (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID: s.TenantID,
	})
	if err != nil {
		return nil, AuthenticationError{Provider: "default Azure credential", Err: err}
	}
	return checkToken(ctx, "default Azure credential", cred, s.Scope)
}

// Static hands out an existing credential, after checking it.
type Static struct {
	Name       string
	Credential azcore.TokenCredential
	// Scope checked on acquisition. Defaults to DefaultScope.
	Scope string
}

func (s Static) Acquire(ctx context.Context) (azcore.TokenCredential, error) {
	name := cmp.Or(s.Name, "static credential")
	if s.Credential == nil {
		return nil, AuthenticationError{Provider: name, Err: fmt.Errorf("no credential")}
	}
	return checkToken(ctx, name, s.Credential, s.Scope)
}

// checkToken requests a token, so that an unusable identity fails on acquisition
// rather than on the first backend call.
func checkToken(ctx context.Context, provider string, cred azcore.TokenCredential, scope string) (azcore.TokenCredential, error) {
	scope = cmp.Or(scope, DefaultScope)
	token, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{scope}})
	if err != nil {
		return nil, AuthenticationError{Provider: provider, Err: err}
	}
	Logger().Debug("Credential acquired",
		slog.String("provider", provider),
		slog.Time("expiresOn", token.ExpiresOn))
	return cred, nil
}
