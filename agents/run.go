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
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nlpodyssey/remote-mcp-agent/memory"
	"github.com/nlpodyssey/remote-mcp-agent/modelsettings"
	"github.com/nlpodyssey/remote-mcp-agent/tracing"
	"github.com/nlpodyssey/remote-mcp-agent/types/chat"
	"github.com/nlpodyssey/remote-mcp-agent/usage"
)

const DefaultMaxTurns = 10

const DefaultWorkflowName = "Agent workflow"

var DefaultRunner = Runner{}

// Runner executes agents. The zero value is ready to use.
type Runner struct {
	Config RunConfig
}

type RunConfig struct {
	// The maximum number of turns to run the agent for.
	// A turn is defined as one model invocation.
	// Default (when left zero): DefaultMaxTurns.
	MaxTurns uint64

	// Optional global model settings. Any non-zero values will
	// override the agent-specific model settings.
	ModelSettings modelsettings.ModelSettings

	// Optional session for the run. When set, the session history is
	// prepended to the input and the new items of a successful run are
	// appended to the session.
	Session memory.Session

	// Maximum number of session items to retrieve. If <= 0, the whole
	// history is used.
	LimitMemory int

	// Turns tool failures into the output sent back to the model.
	// Default: DefaultToolErrorFunction.
	ToolErrorFunction ToolErrorFunction

	// Whether tracing is disabled for the agent run.
	TracingDisabled bool

	// The name of the run, used for tracing.
	// Default: DefaultWorkflowName.
	WorkflowName string

	// Optional custom trace ID to use for tracing.
	TraceID string

	// Optional grouping identifier to use for tracing, to link multiple
	// traces from the same conversation or process.
	GroupID string

	// An optional dictionary of additional metadata to include with the trace.
	TraceMetadata map[string]any
}

// Run a workflow starting at the given agent, with the given input.
//
// The agent runs in a loop until a final output is generated:
//  1. The agent is invoked with the given input.
//  2. If the model returns a message without tool calls, the loop ends.
//  3. Otherwise, the requested tools are run, and their outputs are fed
//     back to the model.
//
// A MaxTurnsExceededError is returned if the agent exceeds MaxTurns.
func (r Runner) Run(ctx context.Context, agent *Agent, input string, mcpServers ...MCPServer) (*RunResult, error) {
	switch {
	case agent == nil:
		return nil, NewUserError("agent must not be nil")
	case agent.IsClosed():
		return nil, UserErrorf("agent %q is closed", agent.Name)
	case agent.Model == nil:
		return nil, UserErrorf("agent %q has no model", agent.Name)
	}

	history, err := r.historyFromSession(ctx)
	if err != nil {
		return nil, err
	}

	var result *RunResult
	traceParams := tracing.TraceParams{
		WorkflowName: cmp.Or(r.Config.WorkflowName, DefaultWorkflowName),
		TraceID:      r.Config.TraceID,
		GroupID:      r.Config.GroupID,
		Metadata:     r.Config.TraceMetadata,
		Disabled:     r.Config.TracingDisabled,
	}
	err = tracing.RunTrace(ctx, traceParams, func(ctx context.Context, trace *tracing.Trace) error {
		var err error
		result, err = r.run(ctx, agent, input, history, slices.Concat(agent.MCPServers, mcpServers))
		if result != nil {
			result.TraceID = trace.ID
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if err = r.saveResultToSession(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r Runner) run(
	ctx context.Context,
	agent *Agent,
	input string,
	history []chat.Message,
	mcpServers []MCPServer,
) (*RunResult, error) {
	maxTurns := cmp.Or(r.Config.MaxTurns, DefaultMaxTurns)

	u, ok := usage.FromContext(ctx)
	if !ok || u == nil {
		u = usage.NewUsage()
		ctx = usage.NewContext(ctx, u)
	}

	result := &RunResult{
		Input:    input,
		NewItems: []chat.Message{chat.UserMessage(input)},
		Usage:    u,
	}

	err := tracing.AgentSpan(ctx, agent.Name, nil, func(ctx context.Context, span *tracing.Span) error {
		tools, err := MCPUtil().GetAllFunctionTools(ctx, mcpServers, agent)
		if err != nil {
			return err
		}
		toolNames := make([]string, len(tools))
		for i, t := range tools {
			toolNames[i] = t.Name
		}
		span.SetData("tools", toolNames)

		settings := agent.ModelSettings.Resolve(r.Config.ModelSettings)

		for turn := uint64(1); ; turn++ {
			if turn > maxTurns {
				return MaxTurnsExceededErrorf("max turns (%d) exceeded", maxTurns)
			}
			Logger().Debug("Running agent", slog.String("agent", agent.Name), slog.Uint64("turn", turn))

			response, err := r.getNewResponse(ctx, agent, ModelRequest{
				SystemInstructions: agent.Instructions,
				Input:              slices.Concat(history, result.NewItems),
				Tools:              tools,
				ModelSettings:      settings,
			})
			if err != nil {
				return err
			}
			result.LastResponseID = response.ResponseID
			result.NewItems = append(result.NewItems, response.Message)

			if !response.Message.HasToolCalls() {
				result.FinalOutput = response.Message.Content
				return nil
			}

			for _, call := range response.Message.ToolCalls {
				output, err := r.runTool(ctx, tools, call)
				if err != nil {
					return err
				}
				result.NewItems = append(result.NewItems, chat.ToolOutputMessage(call.ID, call.Name, output))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r Runner) getNewResponse(ctx context.Context, agent *Agent, request ModelRequest) (*ModelResponse, error) {
	modelName := "model"
	if s, ok := agent.Model.(fmt.Stringer); ok {
		modelName = s.String()
	}

	var response *ModelResponse
	err := tracing.GenerationSpan(ctx, modelName, func(ctx context.Context, span *tracing.Span) error {
		var err error
		response, err = agent.Model.GetResponse(ctx, request)
		if err != nil {
			return err
		}
		if response.Usage != nil {
			span.SetData("usage", map[string]any{
				"input_tokens":  response.Usage.InputTokens,
				"output_tokens": response.Usage.OutputTokens,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if u, ok := usage.FromContext(ctx); ok {
		u.Add(response.Usage)
	}
	return response, nil
}

// runTool executes a single tool call. Tool failures are not returned: they
// become the tool output through the ToolErrorFunction.
func (r Runner) runTool(ctx context.Context, tools []FunctionTool, call chat.ToolCall) (string, error) {
	i := slices.IndexFunc(tools, func(t FunctionTool) bool { return t.Name == call.Name })
	if i < 0 {
		return "", ModelBehaviorErrorf("tool %s not found", call.Name)
	}
	tool := tools[i]

	var output string
	err := tracing.FunctionSpan(ctx, tool.Name, call.Arguments, func(ctx context.Context, span *tracing.Span) error {
		out, err := tool.OnInvokeTool(ctx, call.Arguments)
		if err != nil {
			Logger().Error("Tool call failed",
				slog.String("tool", tool.Name),
				slog.Any("error", err))
			errorFunction := r.Config.ToolErrorFunction
			if errorFunction == nil {
				errorFunction = DefaultToolErrorFunction
			}
			out = errorFunction(ctx, err)
			span.SetError(tracing.SpanError{
				Message: "Error running tool",
				Data:    map[string]any{"tool_name": tool.Name, "error": err.Error()},
			})
		}
		output = out
		span.SetData("output", output)
		return nil
	})
	return output, err
}

func (r Runner) historyFromSession(ctx context.Context) ([]chat.Message, error) {
	session := r.Config.Session
	if session == nil {
		return nil, nil
	}
	history, err := session.GetItems(ctx, r.Config.LimitMemory)
	if err != nil {
		return nil, fmt.Errorf("failed to get session items: %w", err)
	}
	return history, nil
}

func (r Runner) saveResultToSession(ctx context.Context, result *RunResult) error {
	session := r.Config.Session
	if session == nil {
		return nil
	}
	if err := session.AddItems(ctx, result.NewItems); err != nil {
		return fmt.Errorf("failed to add session items: %w", err)
	}
	return nil
}
