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

package agentstesting

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type SearchDocsInput struct {
	Query string `json:"query" jsonschema:"the documentation search query"`
}

// NewDocsMCPServer returns an MCP server exposing a "microsoft_docs_search"
// tool answering with a fixed excerpt mentioning the query.
func NewDocsMCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "fake-docs", Version: "v0.0.1"}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "microsoft_docs_search",
		Description: "Search official Microsoft documentation.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, in SearchDocsInput) (*mcp.CallToolResult, any, error) {
		text := fmt.Sprintf("Excerpt for %q: Azure Container Apps is a serverless platform for containerized applications.", in.Query)
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil, nil
	})
	return server
}

// NewStreamableHTTPServer serves the given MCP server over streamable HTTP
// until the test ends.
func NewStreamableHTTPServer(t *testing.T, server *mcp.Server) *httptest.Server {
	t.Helper()
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}
