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

package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/nlpodyssey/remote-mcp-agent/agents"
	"github.com/nlpodyssey/remote-mcp-agent/config"
	"github.com/nlpodyssey/remote-mcp-agent/credentials"
	"github.com/nlpodyssey/remote-mcp-agent/memory"
	"github.com/nlpodyssey/remote-mcp-agent/modelsettings"
	"github.com/nlpodyssey/remote-mcp-agent/tracing"
)

// WorkflowName names the traces of a run.
const WorkflowName = "Remote MCP documentation agent"

// StreamableHTTPConnector opens a streamable-HTTP MCP connection.
type StreamableHTTPConnector struct {
	URL  string
	Name string
	// When set, requests carry a bearer token for this scope obtained from
	// the run credential.
	TokenScope string
	// Optional base HTTP client.
	HTTPClient     *http.Client
	CacheToolsList bool
}

func (c StreamableHTTPConnector) Open(ctx context.Context, cred azcore.TokenCredential) (agents.MCPServer, error) {
	httpClient := c.HTTPClient
	if c.TokenScope != "" {
		httpClient = credentials.NewBearerTokenClient(cred, c.TokenScope, httpClient)
	}
	server := agents.NewMCPServerStreamableHTTP(agents.MCPServerStreamableHTTPParams{
		URL:            c.URL,
		Name:           c.Name,
		HTTPClient:     httpClient,
		CacheToolsList: c.CacheToolsList,
	})
	if err := server.Connect(ctx); err != nil {
		return nil, err
	}
	return server, nil
}

// ModelFactory builds the chat model of an agent from the run credential.
type ModelFactory func(azcore.TokenCredential) (agents.Model, error)

// AzureOpenAIModel returns a ModelFactory for an Azure OpenAI deployment.
func AzureOpenAIModel(endpoint, apiVersion, deployment string) ModelFactory {
	return func(cred azcore.TokenCredential) (agents.Model, error) {
		return agents.NewAzureOpenAIChatCompletionsModel(agents.AzureOpenAIParams{
			Endpoint:   endpoint,
			APIVersion: apiVersion,
			Deployment: deployment,
			Credential: cred,
		})
	}
}

// ChatAgentFactory builds agents with a fixed name and instructions.
type ChatAgentFactory struct {
	Name          string
	Instructions  string
	Model         ModelFactory
	ModelSettings modelsettings.ModelSettings
	RunConfig     agents.RunConfig

	// Optional session storage opened for each agent, and closed with it.
	SessionDSN string
	SessionID  string
}

func (f ChatAgentFactory) NewAgent(ctx context.Context, cred azcore.TokenCredential) (QueryAgent, error) {
	model, err := f.Model(cred)
	if err != nil {
		return nil, err
	}
	agent := agents.New(f.Name).
		WithInstructions(f.Instructions).
		WithModel(model).
		WithModelSettings(f.ModelSettings)

	runner := agents.Runner{Config: f.RunConfig}
	var session memory.ClosableSession
	if f.SessionDSN != "" {
		session, err = memory.Open(ctx, f.SessionDSN, f.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to open session: %w", err)
		}
		runner.Config.Session = session
		runner.Config.GroupID = session.SessionID(ctx)
	}
	if runner.Config.GroupID == "" {
		runner.Config.GroupID = tracing.GenGroupID()
	}
	return &runnerAgent{agent: agent, runner: runner, session: session}, nil
}

// runnerAgent runs an agent with a specific Runner.
type runnerAgent struct {
	agent   *agents.Agent
	runner  agents.Runner
	session memory.ClosableSession
}

func (a *runnerAgent) Run(ctx context.Context, input string, mcpServers ...agents.MCPServer) (*agents.RunResult, error) {
	return a.runner.Run(ctx, a.agent, input, mcpServers...)
}

func (a *runnerAgent) Close(ctx context.Context) error {
	err := a.agent.Close(ctx)
	if a.session != nil {
		err = errors.Join(err, a.session.Close(ctx))
		a.session = nil
	}
	return err
}

// FromConfig assembles a Runner printing to out from the configuration.
func FromConfig(cfg *config.Config, out io.Writer) (*Runner, error) {
	var source CredentialSource
	switch cfg.Credential {
	case config.CredentialAzureCLI:
		source = credentials.AzureCLI{TenantID: cfg.AzureTenantID}
	case config.CredentialDefault:
		source = credentials.Default{TenantID: cfg.AzureTenantID}
	default:
		return nil, fmt.Errorf("unsupported credential kind %q", cfg.Credential)
	}

	return &Runner{
		Credentials: source,
		Tools: StreamableHTTPConnector{
			URL:        cfg.MCPServerURL,
			Name:       cfg.MCPServerName,
			TokenScope: cfg.MCPTokenScope,
		},
		Agents: ChatAgentFactory{
			Name:         cfg.AgentName,
			Instructions: cfg.AgentInstructions,
			Model:        AzureOpenAIModel(cfg.AzureOpenAIEndpoint, cfg.AzureOpenAIAPIVersion, cfg.AzureOpenAIDeployment),
			RunConfig: agents.RunConfig{
				MaxTurns:        cfg.MaxTurns,
				WorkflowName:    WorkflowName,
				TracingDisabled: !cfg.Tracing,
			},
			SessionDSN: cfg.SessionDSN,
			SessionID:  cfg.SessionID,
		},
		Out: out,
	}, nil
}
