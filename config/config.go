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

// Package config resolves the settings of the remote MCP agent from the
// process environment and optional .env files.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cast"
)

const (
	DefaultMCPServerURL      = "https://learn.microsoft.com/api/mcp"
	DefaultMCPServerName     = "Microsoft Learn MCP"
	DefaultAgentName         = "MSLearnAgent"
	DefaultAgentInstructions = "You help with Microsoft documentation questions."
	DefaultQuery             = "What is the Azure Container Apps service"
	DefaultAPIVersion        = "2024-10-21"
	DefaultMaxTurns          = 10
)

// CredentialKind selects the identity provider.
type CredentialKind string

const (
	// CredentialAzureCLI uses the identity of the signed-in Azure CLI user.
	CredentialAzureCLI CredentialKind = "azure_cli"
	// CredentialDefault uses the default Azure credential chain
	// (environment, workload identity, managed identity, Azure CLI, ...).
	CredentialDefault CredentialKind = "default"
)

// Environment variable names.
const (
	EnvAzureOpenAIEndpoint   = "AZURE_OPENAI_ENDPOINT"
	EnvAzureOpenAIDeployment = "AZURE_OPENAI_CHAT_DEPLOYMENT_NAME"
	EnvAzureOpenAIAPIVersion = "AZURE_OPENAI_API_VERSION"
	EnvAzureTenantID         = "AZURE_TENANT_ID"
	EnvCredential            = "AGENT_CREDENTIAL"
	EnvMCPServerURL          = "MCP_SERVER_URL"
	EnvMCPServerName         = "MCP_SERVER_NAME"
	EnvMCPTokenScope         = "MCP_TOKEN_SCOPE"
	EnvAgentName             = "AGENT_NAME"
	EnvAgentInstructions     = "AGENT_INSTRUCTIONS"
	EnvQuery                 = "AGENT_QUERY"
	EnvMaxTurns              = "AGENT_MAX_TURNS"
	EnvSessionDSN            = "AGENT_SESSION_DSN"
	EnvSessionID             = "AGENT_SESSION_ID"
	EnvLogLevel              = "AGENT_LOG_LEVEL"
	EnvTracing               = "AGENT_TRACING"
)

type Config struct {
	AzureOpenAIEndpoint   string
	AzureOpenAIDeployment string
	AzureOpenAIAPIVersion string
	AzureTenantID         string
	Credential            CredentialKind

	MCPServerURL  string
	MCPServerName string
	// When set, the tool connection sends a bearer token for this scope.
	MCPTokenScope string

	AgentName         string
	AgentInstructions string
	Query             string
	MaxTurns          uint64

	// Optional conversation session storage. Empty means no session.
	SessionDSN string
	SessionID  string

	LogLevel slog.Level
	Tracing  bool
}

// MissingVariableError is returned when a required variable is not set.
type MissingVariableError struct {
	Name string
}

func (err MissingVariableError) Error() string {
	return fmt.Sprintf("required variable %s is not set: add it to the environment or to a .env file", err.Name)
}

// InvalidVariableError is returned when a variable cannot be parsed.
type InvalidVariableError struct {
	Name  string
	Value string
	Err   error
}

func (err InvalidVariableError) Error() string {
	return fmt.Sprintf("invalid value %q for variable %s: %v", err.Value, err.Name, err.Err)
}

func (err InvalidVariableError) Unwrap() error { return err.Err }

// Load resolves the configuration from the process environment, then from
// the given .env files in order. Missing files are skipped.
func Load(envFiles ...string) (*Config, error) {
	sources := []VariablesSource{Environ{}}
	for _, path := range envFiles {
		sources = append(sources, DotEnv{Path: path})
	}
	return FromSources(sources...)
}

// FromSources resolves the configuration from the given sources. When a
// variable is set by more than one source, the first one wins. Empty values
// count as unset.
func FromSources(sources ...VariablesSource) (*Config, error) {
	vars, err := mergeSources(sources)
	if err != nil {
		return nil, err
	}
	return parse(vars)
}

func parse(vars map[string]string) (*Config, error) {
	var errs []error
	required := func(name string) string {
		v := vars[name]
		if v == "" {
			errs = append(errs, MissingVariableError{Name: name})
		}
		return v
	}

	cfg := &Config{
		AzureOpenAIEndpoint:   required(EnvAzureOpenAIEndpoint),
		AzureOpenAIDeployment: required(EnvAzureOpenAIDeployment),
		AzureOpenAIAPIVersion: cmp.Or(vars[EnvAzureOpenAIAPIVersion], DefaultAPIVersion),
		AzureTenantID:         vars[EnvAzureTenantID],
		Credential:            CredentialKind(cmp.Or(strings.ToLower(vars[EnvCredential]), string(CredentialAzureCLI))),
		MCPServerURL:          cmp.Or(vars[EnvMCPServerURL], DefaultMCPServerURL),
		MCPServerName:         cmp.Or(vars[EnvMCPServerName], DefaultMCPServerName),
		MCPTokenScope:         vars[EnvMCPTokenScope],
		AgentName:             cmp.Or(vars[EnvAgentName], DefaultAgentName),
		AgentInstructions:     cmp.Or(vars[EnvAgentInstructions], DefaultAgentInstructions),
		Query:                 cmp.Or(vars[EnvQuery], DefaultQuery),
		MaxTurns:              DefaultMaxTurns,
		SessionDSN:            vars[EnvSessionDSN],
		SessionID:             vars[EnvSessionID],
		LogLevel:              slog.LevelInfo,
	}

	switch cfg.Credential {
	case CredentialAzureCLI, CredentialDefault:
	default:
		errs = append(errs, InvalidVariableError{
			Name:  EnvCredential,
			Value: vars[EnvCredential],
			Err:   fmt.Errorf("expected %q or %q", CredentialAzureCLI, CredentialDefault),
		})
	}

	if v := vars[EnvMaxTurns]; v != "" {
		n, err := cast.ToUint64E(v)
		if err == nil && n == 0 {
			err = errors.New("must be positive")
		}
		if err != nil {
			errs = append(errs, InvalidVariableError{Name: EnvMaxTurns, Value: v, Err: err})
		}
		cfg.MaxTurns = n
	}

	if v := vars[EnvLogLevel]; v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, InvalidVariableError{Name: EnvLogLevel, Value: v, Err: err})
		}
	}

	if v := vars[EnvTracing]; v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			errs = append(errs, InvalidVariableError{Name: EnvTracing, Value: v, Err: err})
		}
		cfg.Tracing = b
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}
