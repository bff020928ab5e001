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

// Package demo runs a single documentation question through an agent backed
// by Azure OpenAI and a remote MCP tool server.
package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/nlpodyssey/remote-mcp-agent/agents"
)

// CredentialSource acquires the credential handle of a run.
type CredentialSource interface {
	Acquire(context.Context) (azcore.TokenCredential, error)
}

// ToolConnector opens a connected tool connection. The caller must call
// Cleanup on the returned server.
type ToolConnector interface {
	Open(context.Context, azcore.TokenCredential) (agents.MCPServer, error)
}

// AgentFactory constructs the agent answering the query.
type AgentFactory interface {
	NewAgent(context.Context, azcore.TokenCredential) (QueryAgent, error)
}

// QueryAgent is an agent answering a query with the tools of the given
// MCP servers.
type QueryAgent interface {
	Run(ctx context.Context, input string, mcpServers ...agents.MCPServer) (*agents.RunResult, error)
	Close(context.Context) error
}

// Runner wires the collaborators of a run together.
type Runner struct {
	Credentials CredentialSource
	Tools       ToolConnector
	Agents      AgentFactory
	// Where the result is printed.
	Out io.Writer
}

// Run acquires a credential, opens the tool connection, builds the agent,
// asks it the query and prints the answer.
//
// The agent and the tool connection are closed on every exit path, the
// agent first. Close errors are joined to the returned error.
func (r *Runner) Run(ctx context.Context, query string) (err error) {
	cred, err := r.Credentials.Acquire(ctx)
	if err != nil {
		return err
	}

	server, err := r.Tools.Open(ctx, cred)
	if err != nil {
		return err
	}
	defer func() {
		if e := server.Cleanup(ctx); e != nil {
			err = errors.Join(err, fmt.Errorf("failed to close tool connection: %w", e))
		}
	}()

	agent, err := r.Agents.NewAgent(ctx, cred)
	if err != nil {
		return err
	}
	defer func() {
		if e := agent.Close(ctx); e != nil {
			err = errors.Join(err, fmt.Errorf("failed to close agent: %w", e))
		}
	}()

	Logger().Info("Running query", slog.String("server", server.Name()), slog.String("query", query))
	result, err := agent.Run(ctx, query, server)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(r.Out, result)
	return err
}
