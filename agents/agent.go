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

package agents

import (
	"context"
	"sync/atomic"

	"github.com/nlpodyssey/remote-mcp-agent/modelsettings"
)

// ClientVersion is the version reported to MCP servers.
const ClientVersion = "0.1.0"

// An Agent is a chat model configured with a name, instructions and the MCP
// servers whose tools it may call.
type Agent struct {
	// The name of the agent.
	Name string

	// The instructions for the agent. Will be used as the "system prompt" when this agent is
	// invoked. Describes what the agent should do, and how it responds.
	Instructions string

	// The model implementation to use when invoking the LLM.
	Model Model

	// Configures model-specific tuning parameters (e.g. temperature, top_p).
	ModelSettings modelsettings.ModelSettings

	// A list of MCP servers that the agent can use. Every time the agent runs, it will
	// include tools from these servers in the list of available tools.
	//
	// NOTE: You are expected to manage the lifecycle of these servers. Specifically, you
	// must call `Connect()` on the server before passing it to the agent, and `Cleanup()`
	// when the server is no longer needed.
	MCPServers []MCPServer

	closed atomic.Bool
}

// New creates a new Agent with the given name.
func New(name string) *Agent {
	return &Agent{Name: name}
}

// WithInstructions sets the agent instructions.
func (a *Agent) WithInstructions(instr string) *Agent {
	a.Instructions = instr
	return a
}

// WithModel sets the model implementation.
func (a *Agent) WithModel(m Model) *Agent {
	a.Model = m
	return a
}

// WithModelSettings sets the model settings.
func (a *Agent) WithModelSettings(settings modelsettings.ModelSettings) *Agent {
	a.ModelSettings = settings
	return a
}

// AddMCPServer appends an MCP server to the agent's MCP server list.
func (a *Agent) AddMCPServer(mcpServer MCPServer) *Agent {
	a.MCPServers = append(a.MCPServers, mcpServer)
	return a
}

// Run runs the agent once on the given input with DefaultRunner. The tools
// of the given MCP servers are available in addition to the agent's own.
func (a *Agent) Run(ctx context.Context, input string, mcpServers ...MCPServer) (*RunResult, error) {
	return DefaultRunner.Run(ctx, a, input, mcpServers...)
}

// Close releases the agent. A closed agent can no longer be run.
// Closing an already closed agent is a no-op.
//
// If the model implements interface{ Close(context.Context) error }, it is
// closed as well.
func (a *Agent) Close(ctx context.Context) error {
	if a.closed.Swap(true) {
		return nil
	}
	if c, ok := a.Model.(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (a *Agent) IsClosed() bool {
	return a.closed.Load()
}
