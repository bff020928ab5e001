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
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/nlpodyssey/remote-mcp-agent/agents"
	"github.com/nlpodyssey/remote-mcp-agent/agentstesting"
	"github.com/nlpodyssey/remote-mcp-agent/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredential struct{}

func (fakeCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

// events records the order in which collaborators are used.
type events []string

func (e *events) add(event string) { *e = append(*e, event) }

type fakeCredentialSource struct {
	events *events
	err    error
}

func (s fakeCredentialSource) Acquire(context.Context) (azcore.TokenCredential, error) {
	s.events.add("acquire")
	if s.err != nil {
		return nil, s.err
	}
	return fakeCredential{}, nil
}

type fakeToolConnection struct {
	*agentstesting.FakeMCPServer
	events *events
}

func (c fakeToolConnection) Cleanup(ctx context.Context) error {
	c.events.add("close tools")
	return c.FakeMCPServer.Cleanup(ctx)
}

type fakeToolConnector struct {
	events *events
	err    error
	opened []azcore.TokenCredential
	server *agentstesting.FakeMCPServer
}

func (c *fakeToolConnector) Open(ctx context.Context, cred azcore.TokenCredential) (agents.MCPServer, error) {
	c.events.add("open tools")
	c.opened = append(c.opened, cred)
	if c.err != nil {
		return nil, c.err
	}
	c.server = agentstesting.NewFakeMCPServer(nil, nil, "Microsoft Learn MCP")
	_ = c.server.Connect(ctx)
	return fakeToolConnection{FakeMCPServer: c.server, events: c.events}, nil
}

type fakeAgent struct {
	events  *events
	output  string
	err     error
	servers []agents.MCPServer
	queries []string
	closed  int
}

func (a *fakeAgent) Run(_ context.Context, input string, mcpServers ...agents.MCPServer) (*agents.RunResult, error) {
	a.events.add("query")
	a.queries = append(a.queries, input)
	a.servers = mcpServers
	if a.err != nil {
		return nil, a.err
	}
	return &agents.RunResult{Input: input, FinalOutput: a.output}, nil
}

func (a *fakeAgent) Close(context.Context) error {
	a.events.add("close agent")
	a.closed++
	return nil
}

type fakeAgentFactory struct {
	events  *events
	agent   *fakeAgent
	err     error
	creds   []azcore.TokenCredential
	created int
}

func (f *fakeAgentFactory) NewAgent(_ context.Context, cred azcore.TokenCredential) (QueryAgent, error) {
	f.events.add("new agent")
	f.creds = append(f.creds, cred)
	if f.err != nil {
		return nil, f.err
	}
	f.created++
	return f.agent, nil
}

type fixture struct {
	events    *events
	source    fakeCredentialSource
	connector *fakeToolConnector
	agent     *fakeAgent
	factory   *fakeAgentFactory
	out       *bytes.Buffer
}

func newFixture() *fixture {
	ev := new(events)
	agent := &fakeAgent{events: ev, output: "Azure Container Apps is a serverless platform."}
	return &fixture{
		events:    ev,
		source:    fakeCredentialSource{events: ev},
		connector: &fakeToolConnector{events: ev},
		agent:     agent,
		factory:   &fakeAgentFactory{events: ev, agent: agent},
		out:       new(bytes.Buffer),
	}
}

func (f *fixture) runner() *Runner {
	return &Runner{
		Credentials: f.source,
		Tools:       f.connector,
		Agents:      f.factory,
		Out:         f.out,
	}
}

func TestRunnerCredentialIsSharedAndEverythingIsClosed(t *testing.T) {
	for name, queryErr := range map[string]error{
		"query succeeds": nil,
		"query fails":    agents.NewBackendError(500, errors.New("boom")),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			f.agent.err = queryErr

			err := f.runner().Run(t.Context(), "What is the Azure Container Apps service")
			if queryErr != nil {
				require.ErrorIs(t, err, queryErr)
			} else {
				require.NoError(t, err)
			}

			require.Len(t, f.connector.opened, 1)
			require.Len(t, f.factory.creds, 1)
			assert.Equal(t, fakeCredential{}, f.connector.opened[0])
			assert.Equal(t, fakeCredential{}, f.factory.creds[0])

			assert.Equal(t, 1, f.agent.closed)
			assert.True(t, f.connector.server.CleanedUp)
		})
	}
}

func TestRunnerCredentialFailure(t *testing.T) {
	f := newFixture()
	authErr := credentials.AuthenticationError{Provider: "Azure CLI", Err: errors.New("please run 'az login'")}
	f.source.err = authErr

	err := f.runner().Run(t.Context(), "q")
	assert.ErrorAs(t, err, &credentials.AuthenticationError{})
	assert.Equal(t, events{"acquire"}, *f.events)
	assert.Empty(t, f.connector.opened)
	assert.Empty(t, f.agent.queries)
	assert.Empty(t, f.out.String())
}

func TestRunnerToolConnectionFailure(t *testing.T) {
	f := newFixture()
	f.connector.err = agents.NewConnectionError("Microsoft Learn MCP", errors.New("no route to host"))

	err := f.runner().Run(t.Context(), "q")
	assert.ErrorAs(t, err, &agents.ConnectionError{})
	assert.Equal(t, events{"acquire", "open tools"}, *f.events)
	assert.Zero(t, f.factory.created)
	assert.Empty(t, f.out.String())
}

func TestRunnerAgentCreationFailureClosesTools(t *testing.T) {
	f := newFixture()
	f.factory.err = agents.UserErrorf("AZURE_OPENAI_ENDPOINT is not set")

	err := f.runner().Run(t.Context(), "q")
	assert.ErrorAs(t, err, &agents.UserError{})
	assert.Equal(t, events{"acquire", "open tools", "new agent", "close tools"}, *f.events)
	assert.Empty(t, f.agent.queries)
	assert.Zero(t, f.agent.closed)
	assert.True(t, f.connector.server.CleanedUp)
	assert.Empty(t, f.out.String())
}

func TestRunnerQueryFailureReleasesResources(t *testing.T) {
	f := newFixture()
	f.agent.err = agents.NewBackendError(429, errors.New("rate limited"))

	err := f.runner().Run(t.Context(), "q")
	assert.ErrorAs(t, err, &agents.BackendError{})
	assert.Equal(t, events{"acquire", "open tools", "new agent", "query", "close agent", "close tools"}, *f.events)
	assert.Empty(t, f.out.String())
}

func TestRunnerPrintsResultOnce(t *testing.T) {
	f := newFixture()

	err := f.runner().Run(t.Context(), "What is the Azure Container Apps service")
	require.NoError(t, err)

	assert.Equal(t, "Azure Container Apps is a serverless platform.\n", f.out.String())
	assert.Equal(t, []string{"What is the Azure Container Apps service"}, f.agent.queries)
	require.Len(t, f.agent.servers, 1)
	assert.Equal(t, "Microsoft Learn MCP", f.agent.servers[0].Name())
}

func TestRunnerReleaseOrder(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.runner().Run(t.Context(), "q"))
	assert.Equal(t, events{"acquire", "open tools", "new agent", "query", "close agent", "close tools"}, *f.events)
}

func TestRunnerCloseErrorsAreJoined(t *testing.T) {
	f := newFixture()
	closeErr := errors.New("close failed")
	f.connector.server = nil

	r := f.runner()
	r.Tools = closeFailingConnector{inner: f.connector, err: closeErr}

	err := r.Run(t.Context(), "q")
	assert.ErrorIs(t, err, closeErr)
	// The result was still printed.
	assert.NotEmpty(t, f.out.String())
}

type closeFailingConnector struct {
	inner *fakeToolConnector
	err   error
}

func (c closeFailingConnector) Open(ctx context.Context, cred azcore.TokenCredential) (agents.MCPServer, error) {
	server, err := c.inner.Open(ctx, cred)
	if err != nil {
		return nil, err
	}
	c.inner.server.CleanupErr = c.err
	return server, nil
}
