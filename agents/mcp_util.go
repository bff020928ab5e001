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
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nlpodyssey/remote-mcp-agent/tracing"
	"github.com/xeipuuv/gojsonschema"
)

// MCPToolFilterContext is passed to a tool filter for every listed tool.
type MCPToolFilterContext struct {
	Agent      *Agent
	ServerName string
}

// MCPToolFilter decides which tools of an MCP server an agent can see.
type MCPToolFilter interface {
	FilterMCPTool(context.Context, MCPToolFilterContext, *mcp.Tool) (bool, error)
}

type MCPToolFilterFunc func(context.Context, MCPToolFilterContext, *mcp.Tool) (bool, error)

func (f MCPToolFilterFunc) FilterMCPTool(ctx context.Context, filterCtx MCPToolFilterContext, t *mcp.Tool) (bool, error) {
	return f(ctx, filterCtx, t)
}

// MCPToolFilterStatic keeps the tools named in AllowedToolNames (all of
// them when nil) minus the ones named in BlockedToolNames.
type MCPToolFilterStatic struct {
	AllowedToolNames []string
	BlockedToolNames []string
}

func (f MCPToolFilterStatic) FilterMCPTool(_ context.Context, _ MCPToolFilterContext, t *mcp.Tool) (bool, error) {
	if f.AllowedToolNames != nil && !slices.Contains(f.AllowedToolNames, t.Name) {
		return false, nil
	}
	return !slices.Contains(f.BlockedToolNames, t.Name), nil
}

// CreateMCPStaticToolFilter returns a static filter, or false when both
// lists are empty and no filtering is needed.
func CreateMCPStaticToolFilter(allowedToolNames, blockedToolNames []string) (MCPToolFilterStatic, bool) {
	if len(allowedToolNames) == 0 && len(blockedToolNames) == 0 {
		return MCPToolFilterStatic{}, false
	}
	return MCPToolFilterStatic{AllowedToolNames: allowedToolNames, BlockedToolNames: blockedToolNames}, true
}

// ApplyMCPToolFilter returns the tools the filter keeps. A tool whose
// filter call fails is left out.
func ApplyMCPToolFilter(ctx context.Context, filterContext MCPToolFilterContext, toolFilter MCPToolFilter, tools []*mcp.Tool) []*mcp.Tool {
	if toolFilter == nil {
		return tools
	}
	return slices.DeleteFunc(slices.Clone(tools), func(tool *mcp.Tool) bool {
		keep, err := toolFilter.FilterMCPTool(ctx, filterContext, tool)
		if err != nil {
			Logger().Error("MCP tool filter failed",
				slog.String("tool", tool.Name),
				slog.String("server", filterContext.ServerName),
				slog.Any("error", err))
		}
		return err != nil || !keep
	})
}

type mcpUtil struct{}

// MCPUtil provides a set of utilities for interop between MCP and function tools.
func MCPUtil() mcpUtil { return mcpUtil{} }

// GetAllFunctionTools collects the function tools of every server. Tool
// names must be unique across servers.
func (u mcpUtil) GetAllFunctionTools(ctx context.Context, servers []MCPServer, agent *Agent) ([]FunctionTool, error) {
	var tools []FunctionTool
	// Tool name to index of the server exposing it. Servers may share a name.
	owners := make(map[string]int)
	for i, server := range servers {
		serverTools, err := u.GetFunctionTools(ctx, server, agent)
		if err != nil {
			return nil, err
		}
		for _, tool := range serverTools {
			if owner, ok := owners[tool.Name]; ok && owner != i {
				return nil, UserErrorf("duplicate tool name found across MCP servers: %q (%s, %s)",
					tool.Name, servers[owner].Name(), server.Name())
			}
			owners[tool.Name] = i
		}
		tools = append(tools, serverTools...)
	}
	return tools, nil
}

// GetFunctionTools lists the tools of a server, inside an MCP tools span,
// and converts them to function tools.
func (u mcpUtil) GetFunctionTools(ctx context.Context, server MCPServer, agent *Agent) ([]FunctionTool, error) {
	var mcpTools []*mcp.Tool
	err := tracing.MCPToolsSpan(ctx, server.Name(), func(ctx context.Context, span *tracing.Span) error {
		var err error
		mcpTools, err = server.ListTools(ctx, agent)
		if err != nil {
			return err
		}

		names := make([]string, len(mcpTools))
		for i, tool := range mcpTools {
			names[i] = tool.Name
		}
		span.SetData("result", names)
		return nil
	})
	if err != nil {
		return nil, err
	}

	functionTools := make([]FunctionTool, len(mcpTools))
	for i, tool := range mcpTools {
		functionTools[i], err = u.ToFunctionTool(tool, server)
		if err != nil {
			return nil, err
		}
	}
	return functionTools, nil
}

// ToFunctionTool converts an MCP tool to a function tool.
func (u mcpUtil) ToFunctionTool(tool *mcp.Tool, server MCPServer) (FunctionTool, error) {
	schema, err := jsonMap(tool.InputSchema)
	if err != nil {
		return FunctionTool{}, fmt.Errorf("invalid input schema for MCP tool %s: %w", tool.Name, err)
	}
	if schema == nil {
		schema = map[string]any{"type": "object"}
	}

	// Function parameters need "properties" even when the tool takes none.
	if _, ok := schema["properties"]; !ok {
		schema["properties"] = map[string]any{}
	}

	argsSchema := compileArgumentsSchema(tool.Name, schema)

	return FunctionTool{
		Name:             tool.Name,
		Description:      tool.Description,
		ParamsJSONSchema: schema,
		OnInvokeTool: func(ctx context.Context, arguments string) (string, error) {
			return u.InvokeMCPTool(ctx, server, tool, argsSchema, arguments)
		},
	}, nil
}

// compileArgumentsSchema returns nil when the schema cannot be compiled,
// in which case arguments are forwarded unvalidated.
func compileArgumentsSchema(toolName string, schema map[string]any) *gojsonschema.Schema {
	s := maps.Clone(schema)
	// gojsonschema only knows draft 4 to 7 meta-schemas.
	delete(s, "$schema")

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(s))
	if err != nil {
		Logger().Debug("MCP tool input schema not compiled, skipping validation",
			slog.String("tool", toolName),
			slog.Any("error", err))
		return nil
	}
	return compiled
}

// logToolData logs a tool event at debug level, with the payload unless
// DontLogToolData is set.
func logToolData(msg, toolName, key, payload string) {
	attrs := []any{slog.String("tool", toolName)}
	if !DontLogToolData {
		attrs = append(attrs, slog.String(key, payload))
	}
	Logger().Debug(msg, attrs...)
}

// InvokeMCPTool validates the JSON arguments, calls the tool and renders
// the result as text.
func (mcpUtil) InvokeMCPTool(
	ctx context.Context,
	server MCPServer,
	tool *mcp.Tool,
	argsSchema *gojsonschema.Schema,
	jsonInput string,
) (string, error) {
	if strings.TrimSpace(jsonInput) == "" {
		jsonInput = "{}"
	}

	var arguments map[string]any
	if err := json.Unmarshal([]byte(jsonInput), &arguments); err != nil {
		logToolData("Tool arguments are not valid JSON", tool.Name, "arguments", jsonInput)
		return "", ModelBehaviorErrorf("arguments of tool %s are not valid JSON (%s): %w", tool.Name, jsonInput, err)
	}

	if argsSchema != nil {
		if err := ValidateJSON(ctx, argsSchema, jsonInput); err != nil {
			return "", fmt.Errorf("invalid arguments for tool %s: %w", tool.Name, err)
		}
	}

	logToolData("Calling MCP tool", tool.Name, "arguments", jsonInput)

	result, err := server.CallTool(ctx, tool.Name, arguments)
	if err != nil {
		Logger().Error("MCP tool call failed", slog.String("tool", tool.Name), slog.Any("error", err))
		return "", fmt.Errorf("MCP tool %s failed: %w", tool.Name, err)
	}
	if result.IsError {
		Logger().Warn("MCP tool reported an error", slog.String("tool", tool.Name))
	}

	toolOutput, err := renderToolResult(server, result)
	if err != nil {
		return "", fmt.Errorf("failed to render result of MCP tool %s: %w", tool.Name, err)
	}

	logToolData("MCP tool returned", tool.Name, "output", toolOutput)

	if span := tracing.GetCurrentSpan(ctx); span != nil && span.Kind == tracing.SpanKindFunction {
		span.SetData("output", toolOutput)
		span.SetData("mcp_data", map[string]any{"server": server.Name()})
	}

	return toolOutput, nil
}

// renderToolResult converts an MCP tool result into a single string.
//
// Text contents are joined by newlines, any other content list is
// JSON-encoded, and an empty result becomes "[]".
func renderToolResult(server MCPServer, result *mcp.CallToolResult) (string, error) {
	if server.UseStructuredContent() && result.StructuredContent != nil {
		b, err := json.Marshal(result.StructuredContent)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	if len(result.Content) == 0 {
		return "[]", nil
	}

	texts := make([]string, 0, len(result.Content))
	for _, c := range result.Content {
		tc, ok := c.(*mcp.TextContent)
		if !ok {
			texts = nil
			break
		}
		texts = append(texts, tc.Text)
	}
	if texts != nil {
		return strings.Join(texts, "\n"), nil
	}

	var v any = result.Content
	if len(result.Content) == 1 {
		v = result.Content[0]
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
