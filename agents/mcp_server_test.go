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
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMCPServer(opts *mcp.ServerOptions, toolNames ...string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "v0.0.1"}, opts)
	for _, name := range toolNames {
		addEchoTool(server, name)
	}
	return server
}

func addEchoTool(server *mcp.Server, name string) {
	server.AddTool(
		&mcp.Tool{Name: name, InputSchema: &jsonschema.Schema{Type: "object"}},
		func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			text := fmt.Sprintf("%s: %s", name, string(req.Params.Arguments))
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
		},
	)
}

// newInMemoryMCPServer connects the given server to a client session
// through in-memory transports.
func newInMemoryMCPServer(t *testing.T, server *mcp.Server, params MCPServerWithClientSessionParams) *MCPServerWithClientSession {
	t.Helper()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(context.Background(), serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	params.Transport = clientTransport
	if params.Name == "" {
		params.Name = "in_memory"
	}
	return NewMCPServerWithClientSession(params)
}

func collectMCPToolNames(tools []*mcp.Tool) []string {
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	return names
}

func TestMCPServerWithClientSessionCaching(t *testing.T) {
	for _, cacheToolsList := range []bool{true, false} {
		t.Run(fmt.Sprintf("CacheToolsList %v", cacheToolsList), func(t *testing.T) {
			mcpServer := newTestMCPServer(nil, "echo")
			server := newInMemoryMCPServer(t, mcpServer, MCPServerWithClientSessionParams{
				CacheToolsList: cacheToolsList,
			})

			err := server.Run(t.Context(), func(ctx context.Context, server *MCPServerWithClientSession) error {
				agent := New("test_agent")

				tools, err := server.ListTools(ctx, agent)
				require.NoError(t, err)
				require.Equal(t, []string{"echo"}, collectMCPToolNames(tools))

				addEchoTool(mcpServer, "nop_tool")

				tools, err = server.ListTools(ctx, agent)
				require.NoError(t, err)
				if cacheToolsList {
					require.NotContains(t, collectMCPToolNames(tools), "nop_tool")
				} else {
					require.Contains(t, collectMCPToolNames(tools), "nop_tool")
				}

				server.InvalidateToolsCache()
				tools, err = server.ListTools(ctx, agent)
				require.NoError(t, err)
				require.Contains(t, collectMCPToolNames(tools), "nop_tool")
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestMCPServerWithClientSessionSession(t *testing.T) {
	t.Run("using Run", func(t *testing.T) {
		server := newInMemoryMCPServer(t, newTestMCPServer(nil), MCPServerWithClientSessionParams{})
		require.Nil(t, server.session)
		err := server.Run(t.Context(), func(ctx context.Context, server *MCPServerWithClientSession) error {
			require.NotNil(t, server.session)
			return nil
		})
		require.NoError(t, err)
		require.Nil(t, server.session)
	})

	t.Run("with Connect Cleanup", func(t *testing.T) {
		server := newInMemoryMCPServer(t, newTestMCPServer(nil), MCPServerWithClientSessionParams{})
		ctx := t.Context()

		require.NoError(t, server.Connect(ctx))
		require.NotNil(t, server.session)

		require.NoError(t, server.Cleanup(ctx))
		require.Nil(t, server.session)

		// A second cleanup is a no-op.
		require.NoError(t, server.Cleanup(ctx))
	})
}

func TestMCPServerWithClientSessionPagination(t *testing.T) {
	mcpServer := newTestMCPServer(&mcp.ServerOptions{PageSize: 2}, "a", "b", "c", "d", "e")
	server := newInMemoryMCPServer(t, mcpServer, MCPServerWithClientSessionParams{})

	err := server.Run(t.Context(), func(ctx context.Context, server *MCPServerWithClientSession) error {
		tools, err := server.ListTools(ctx, New("test_agent"))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, collectMCPToolNames(tools))
		return nil
	})
	require.NoError(t, err)
}

func TestMCPServerWithClientSessionToolFilter(t *testing.T) {
	filter, ok := CreateMCPStaticToolFilter(nil, []string{"blocked"})
	require.True(t, ok)

	server := newInMemoryMCPServer(t, newTestMCPServer(nil, "allowed", "blocked"), MCPServerWithClientSessionParams{
		ToolFilter: filter,
	})

	err := server.Run(t.Context(), func(ctx context.Context, server *MCPServerWithClientSession) error {
		tools, err := server.ListTools(ctx, New("test_agent"))
		require.NoError(t, err)
		assert.Equal(t, []string{"allowed"}, collectMCPToolNames(tools))

		_, err = server.ListTools(ctx, nil)
		assert.ErrorAs(t, err, &UserError{})
		return nil
	})
	require.NoError(t, err)
}

func TestMCPServerWithClientSessionCallTool(t *testing.T) {
	server := newInMemoryMCPServer(t, newTestMCPServer(nil, "echo"), MCPServerWithClientSessionParams{})

	err := server.Run(t.Context(), func(ctx context.Context, server *MCPServerWithClientSession) error {
		result, err := server.CallTool(ctx, "echo", map[string]any{"query": "container apps"})
		require.NoError(t, err)
		require.Len(t, result.Content, 1)
		assert.Equal(t, `echo: {"query":"container apps"}`, result.Content[0].(*mcp.TextContent).Text)
		return nil
	})
	require.NoError(t, err)
}

type failingMCPTransport struct {
	err error
}

func (t failingMCPTransport) Connect(context.Context) (mcp.Connection, error) { return nil, t.err }

func TestMCPServerWithClientSessionErrors(t *testing.T) {
	t.Run("transport connection error", func(t *testing.T) {
		testErr := errors.New("connection refused")
		server := NewMCPServerWithClientSession(MCPServerWithClientSessionParams{
			Name:      "test",
			Transport: failingMCPTransport{err: testErr},
		})
		ctx := t.Context()

		err := server.Connect(ctx)
		require.ErrorIs(t, err, testErr)
		var connErr ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, "test", connErr.Server)
		require.Nil(t, server.session)

		err = server.Run(ctx, func(context.Context, *MCPServerWithClientSession) error {
			t.Fatal("run callback should never be called")
			return nil
		})
		require.ErrorIs(t, err, testErr)
		require.Nil(t, server.session)
	})

	t.Run("not calling Connect", func(t *testing.T) {
		server := newInMemoryMCPServer(t, newTestMCPServer(nil, "echo"), MCPServerWithClientSessionParams{})
		ctx := t.Context()

		_, err := server.ListTools(ctx, New("test_agent"))
		assert.ErrorAs(t, err, &UserError{})

		_, err = server.CallTool(ctx, "echo", nil)
		assert.ErrorAs(t, err, &UserError{})
	})
}

func TestMCPServerStreamableHTTP(t *testing.T) {
	mcpServer := newTestMCPServer(nil, "echo")
	var requests atomic.Int32
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpServer }, nil)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	server := NewMCPServerStreamableHTTP(MCPServerStreamableHTTPParams{
		URL:        ts.URL,
		HTTPClient: ts.Client(),
	})
	assert.Equal(t, "streamable_http: "+ts.URL, server.Name())
	assert.Equal(t, ts.URL, server.URL())

	ctx := t.Context()
	require.NoError(t, server.Connect(ctx))
	tools, err := server.ListTools(ctx, New("test_agent"))
	require.NoError(t, err)
	assert.Equal(t, []string{"echo"}, collectMCPToolNames(tools))
	require.NoError(t, server.Cleanup(ctx))
	assert.Positive(t, requests.Load())
}

func TestMCPServerStreamableHTTPConnectionError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(ts.Close)

	server := NewMCPServerStreamableHTTP(MCPServerStreamableHTTPParams{
		URL:  ts.URL,
		Name: "Microsoft Learn MCP",
	})
	err := server.Connect(t.Context())
	var connErr ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "Microsoft Learn MCP", connErr.Server)
}
