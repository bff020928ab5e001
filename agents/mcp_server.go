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
	"log/slog"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServer is a tool connection to a Model Context Protocol server.
type MCPServer interface {
	// Connect opens the connection, which stays usable until Cleanup.
	Connect(context.Context) error

	// Cleanup releases the connection.
	Cleanup(context.Context) error

	Name() string

	// UseStructuredContent reports whether tool results are rendered from
	// their StructuredContent.
	UseStructuredContent() bool

	// ListTools returns the tools the agent may call.
	ListTools(context.Context, *Agent) ([]*mcp.Tool, error)

	CallTool(ctx context.Context, toolName string, arguments map[string]any) (*mcp.CallToolResult, error)
}

// MCPServerWithClientSession talks to an MCP server through a go-sdk
// client session opened over any mcp.Transport.
type MCPServerWithClientSession struct {
	name                 string
	transport            mcp.Transport
	toolFilter           MCPToolFilter
	useStructuredContent bool

	mu      sync.Mutex
	session *mcp.ClientSession
	tools   toolListCache
}

type MCPServerWithClientSessionParams struct {
	Name      string
	Transport mcp.Transport

	// Keep the first tools list fetched and serve ListTools from it until
	// InvalidateToolsCache is called. Only worth it for servers whose tools
	// never change, as it saves a round trip per agent turn.
	CacheToolsList bool

	// Optional filter applied to every tools list.
	ToolFilter MCPToolFilter

	// Render tool results from StructuredContent instead of Content.
	// Off by default: servers usually duplicate the structured content as
	// text.
	UseStructuredContent bool
}

// toolListCache holds the last tools list of a server. It is not safe for
// concurrent use on its own.
type toolListCache struct {
	enabled bool
	valid   bool
	tools   []*mcp.Tool
}

func (c *toolListCache) get() ([]*mcp.Tool, bool) {
	if !c.enabled || !c.valid {
		return nil, false
	}
	return c.tools, true
}

func (c *toolListCache) set(tools []*mcp.Tool) {
	c.tools, c.valid = tools, true
}

func (c *toolListCache) invalidate() {
	c.valid = false
}

func NewMCPServerWithClientSession(params MCPServerWithClientSessionParams) *MCPServerWithClientSession {
	return &MCPServerWithClientSession{
		name:                 params.Name,
		transport:            params.Transport,
		toolFilter:           params.ToolFilter,
		useStructuredContent: params.UseStructuredContent,
		tools:                toolListCache{enabled: params.CacheToolsList},
	}
}

// Connect opens the client session. Failures are returned as ConnectionError.
func (s *MCPServerWithClientSession) Connect(ctx context.Context) error {
	client := mcp.NewClient(&mcp.Implementation{Name: s.name, Version: ClientVersion}, nil)
	session, err := client.Connect(ctx, s.transport, nil)
	if err != nil {
		Logger().Error("MCP server connection failed", slog.String("server", s.name), slog.Any("error", err))
		return NewConnectionError(s.name, err)
	}

	s.mu.Lock()
	previous := s.session
	s.session = session
	s.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	Logger().Debug("MCP server connected", slog.String("server", s.name))
	return nil
}

// Cleanup closes the client session. It is a no-op when not connected.
func (s *MCPServerWithClientSession) Cleanup(context.Context) error {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()

	if session == nil {
		return nil
	}
	if err := session.Close(); err != nil {
		Logger().Error("MCP server cleanup failed", slog.String("server", s.name), slog.Any("error", err))
		return err
	}
	return nil
}

func (s *MCPServerWithClientSession) Name() string {
	return s.name
}

func (s *MCPServerWithClientSession) UseStructuredContent() bool {
	return s.useStructuredContent
}

func (s *MCPServerWithClientSession) clientSession() (*mcp.ClientSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, UserErrorf("MCP server %q is not connected: call Connect first", s.name)
	}
	return s.session, nil
}

// ListTools returns the tools of the server the agent is allowed to use.
// A tool filter needs the agent.
func (s *MCPServerWithClientSession) ListTools(ctx context.Context, agent *Agent) ([]*mcp.Tool, error) {
	session, err := s.clientSession()
	if err != nil {
		return nil, err
	}
	if s.toolFilter != nil && agent == nil {
		return nil, UserErrorf("agent is required for dynamic tool filtering")
	}

	s.mu.Lock()
	tools, ok := s.tools.get()
	s.mu.Unlock()

	if !ok {
		if tools, err = listAllTools(ctx, session); err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.tools.set(tools)
		s.mu.Unlock()
	}

	if s.toolFilter == nil {
		return tools, nil
	}
	filterContext := MCPToolFilterContext{Agent: agent, ServerName: s.name}
	return ApplyMCPToolFilter(ctx, filterContext, s.toolFilter, tools), nil
}

// listAllTools follows the pagination cursor until the whole list is fetched.
func listAllTools(ctx context.Context, session *mcp.ClientSession) ([]*mcp.Tool, error) {
	var (
		tools  []*mcp.Tool
		params = new(mcp.ListToolsParams)
	)
	for {
		result, err := session.ListTools(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to list MCP tools: %w", err)
		}
		tools = append(tools, result.Tools...)
		if result.NextCursor == "" {
			return tools, nil
		}
		params = &mcp.ListToolsParams{Cursor: result.NextCursor}
	}
}

func (s *MCPServerWithClientSession) CallTool(ctx context.Context, toolName string, arguments map[string]any) (*mcp.CallToolResult, error) {
	session, err := s.clientSession()
	if err != nil {
		return nil, err
	}
	return session.CallTool(ctx, &mcp.CallToolParams{Name: toolName, Arguments: arguments})
}

// Run connects, calls fn, and cleans up on every exit path. Cleanup errors
// are joined to the returned one.
func (s *MCPServerWithClientSession) Run(ctx context.Context, fn func(context.Context, *MCPServerWithClientSession) error) (err error) {
	if err = s.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if e := s.Cleanup(ctx); e != nil {
			err = errors.Join(err, fmt.Errorf("failed to close MCP server %q: %w", s.name, e))
		}
	}()
	return fn(ctx, s)
}

// InvalidateToolsCache makes the next ListTools fetch the list again.
func (s *MCPServerWithClientSession) InvalidateToolsCache() {
	s.mu.Lock()
	s.tools.invalidate()
	s.mu.Unlock()
}

type MCPServerStreamableHTTPParams struct {
	// The URL of the MCP endpoint.
	URL string

	// Optional HTTP client used for every request to the endpoint,
	// e.g. to attach authentication headers. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Name defaults to one derived from the URL.
	Name string

	// See MCPServerWithClientSessionParams.
	CacheToolsList       bool
	ToolFilter           MCPToolFilter
	UseStructuredContent bool
}

// MCPServerStreamableHTTP reaches a remote MCP server over the streamable
// HTTP transport (https://modelcontextprotocol.io/specification/2025-06-18/basic/transports#streamable-http).
type MCPServerStreamableHTTP struct {
	*MCPServerWithClientSession
	url string
}

func NewMCPServerStreamableHTTP(params MCPServerStreamableHTTPParams) *MCPServerStreamableHTTP {
	name := params.Name
	if name == "" {
		name = "streamable_http: " + params.URL
	}

	return &MCPServerStreamableHTTP{
		MCPServerWithClientSession: NewMCPServerWithClientSession(MCPServerWithClientSessionParams{
			Name: name,
			Transport: &mcp.StreamableClientTransport{
				Endpoint:   params.URL,
				HTTPClient: params.HTTPClient,
			},
			CacheToolsList:       params.CacheToolsList,
			ToolFilter:           params.ToolFilter,
			UseStructuredContent: params.UseStructuredContent,
		}),
		url: params.URL,
	}
}

// URL returns the endpoint of the server.
func (s *MCPServerStreamableHTTP) URL() string {
	return s.url
}
