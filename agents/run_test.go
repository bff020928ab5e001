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

package agents_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nlpodyssey/remote-mcp-agent/agents"
	"github.com/nlpodyssey/remote-mcp-agent/agentstesting"
	"github.com/nlpodyssey/remote-mcp-agent/memory"
	"github.com/nlpodyssey/remote-mcp-agent/tracing"
	"github.com/nlpodyssey/remote-mcp-agent/tracing/tracingtesting"
	"github.com/nlpodyssey/remote-mcp-agent/types/chat"
	"github.com/nlpodyssey/remote-mcp-agent/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDocsServer() *agentstesting.FakeMCPServer {
	server := agentstesting.NewFakeMCPServer(nil, nil, "Microsoft Learn MCP")
	server.AddTool("microsoft_docs_search", agentstesting.StringArgSchema("query"))
	return server
}

func TestRunner_SimpleFinalOutput(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.GetTextMessage("first"))
	agent := agents.New("test").WithInstructions("Be helpful.").WithModel(model)

	result, err := agents.Runner{}.Run(t.Context(), agent, "hello")
	require.NoError(t, err)
	assert.Equal(t, "first", result.FinalOutput)
	assert.Equal(t, "first", result.String())
	assert.Equal(t, "hello", result.Input)
	assert.Equal(t, []chat.Message{chat.UserMessage("hello"), chat.AssistantMessage("first")}, result.NewItems)
	assert.Equal(t, "resp_fake", result.LastResponseID)

	assert.Equal(t, "Be helpful.", model.LastTurnArgs.SystemInstructions)
	assert.Equal(t, []chat.Message{chat.UserMessage("hello")}, model.LastTurnArgs.Input)
	assert.Empty(t, model.LastTurnArgs.Tools)
}

func TestRunner_ToolCallRoundTrip(t *testing.T) {
	server := newDocsServer()
	model := agentstesting.NewFakeModel(
		agentstesting.GetFunctionToolCall("microsoft_docs_search", `{"query":"container apps"}`),
		agentstesting.GetTextMessage("Azure Container Apps is a serverless platform."),
	)
	agent := agents.New("MSLearnAgent").WithModel(model)

	result, err := agent.Run(t.Context(), "What is the Azure Container Apps service", server)
	require.NoError(t, err)

	assert.Equal(t, "Azure Container Apps is a serverless platform.", result.String())
	assert.Equal(t, []string{"microsoft_docs_search"}, server.ToolCalls)
	assert.Equal(t, 1, result.ToolCallCount())

	require.Len(t, model.Requests, 2)
	require.Len(t, model.Requests[0].Tools, 1)
	assert.Equal(t, "microsoft_docs_search", model.Requests[0].Tools[0].Name)

	secondInput := model.Requests[1].Input
	require.Len(t, secondInput, 3)
	toolOutput := secondInput[2]
	assert.True(t, toolOutput.IsToolOutput())
	assert.Equal(t, "call_microsoft_docs_search", toolOutput.ToolCallID)
	assert.Equal(t, `result_microsoft_docs_search_{"query":"container apps"}`, toolOutput.Content)
}

func TestRunner_AgentMCPServers(t *testing.T) {
	server := newDocsServer()
	model := agentstesting.NewFakeModel(agentstesting.GetTextMessage("done"))
	agent := agents.New("test").WithModel(model).AddMCPServer(server)

	_, err := agent.Run(t.Context(), "hi")
	require.NoError(t, err)
	require.Len(t, model.LastTurnArgs.Tools, 1)
}

func TestRunner_ToolErrorsAreReportedToTheModel(t *testing.T) {
	t.Run("invalid arguments", func(t *testing.T) {
		server := newDocsServer()
		model := agentstesting.NewFakeModel(
			agentstesting.GetFunctionToolCall("microsoft_docs_search", `{"query":1}`),
			agentstesting.GetTextMessage("sorry"),
		)
		agent := agents.New("test").WithModel(model)

		result, err := agent.Run(t.Context(), "hi", server)
		require.NoError(t, err)
		assert.Equal(t, "sorry", result.FinalOutput)
		assert.Empty(t, server.ToolCalls)

		output := result.NewItems[2]
		require.True(t, output.IsToolOutput())
		assert.True(t, strings.HasPrefix(output.Content, "An error occurred while running the tool. Please try again. Error: "))
	})

	t.Run("custom error function", func(t *testing.T) {
		server := newDocsServer()
		server.CallToolErr = errors.New("remote failure")
		model := agentstesting.NewFakeModel(
			agentstesting.GetFunctionToolCall("microsoft_docs_search", `{"query":"x"}`),
			agentstesting.GetTextMessage("sorry"),
		)
		agent := agents.New("test").WithModel(model)

		runner := agents.Runner{Config: agents.RunConfig{
			ToolErrorFunction: func(_ context.Context, err error) string { return "failed" },
		}}
		result, err := runner.Run(t.Context(), agent, "hi", server)
		require.NoError(t, err)
		assert.Equal(t, "failed", result.NewItems[2].Content)
	})
}

func TestRunner_Errors(t *testing.T) {
	t.Run("nil agent", func(t *testing.T) {
		_, err := agents.Runner{}.Run(t.Context(), nil, "hi")
		assert.ErrorAs(t, err, &agents.UserError{})
	})

	t.Run("no model", func(t *testing.T) {
		_, err := agents.New("test").Run(t.Context(), "hi")
		assert.ErrorAs(t, err, &agents.UserError{})
	})

	t.Run("closed agent", func(t *testing.T) {
		model := agentstesting.NewFakeModel(agentstesting.GetTextMessage("x"))
		agent := agents.New("test").WithModel(model)
		require.NoError(t, agent.Close(t.Context()))

		_, err := agent.Run(t.Context(), "hi")
		assert.ErrorAs(t, err, &agents.UserError{})
		assert.Empty(t, model.Requests)
	})

	t.Run("unknown tool", func(t *testing.T) {
		model := agentstesting.NewFakeModel(agentstesting.GetFunctionToolCall("missing", "{}"))
		agent := agents.New("test").WithModel(model)

		_, err := agent.Run(t.Context(), "hi", newDocsServer())
		assert.ErrorAs(t, err, &agents.ModelBehaviorError{})
	})

	t.Run("model error", func(t *testing.T) {
		backendErr := agents.NewBackendError(500, errors.New("boom"))
		model := agentstesting.NewFakeModel(agentstesting.GetErrorOutput(backendErr))
		agent := agents.New("test").WithModel(model)

		_, err := agent.Run(t.Context(), "hi")
		var got agents.BackendError
		require.ErrorAs(t, err, &got)
		assert.Equal(t, 500, got.StatusCode)
	})

	t.Run("max turns", func(t *testing.T) {
		call := agentstesting.GetFunctionToolCall("microsoft_docs_search", `{"query":"x"}`)
		model := agentstesting.NewFakeModel(call, call, call)
		agent := agents.New("test").WithModel(model)

		runner := agents.Runner{Config: agents.RunConfig{MaxTurns: 2}}
		_, err := runner.Run(t.Context(), agent, "hi", newDocsServer())
		assert.ErrorAs(t, err, &agents.MaxTurnsExceededError{})
		assert.Len(t, model.Requests, 2)
	})
}

func TestRunner_Usage(t *testing.T) {
	model := agentstesting.NewFakeModel(
		agentstesting.GetFunctionToolCall("microsoft_docs_search", `{"query":"x"}`),
		agentstesting.GetTextMessage("done"),
	)
	model.SetHardcodedUsage(usage.Usage{Requests: 1, InputTokens: 10, OutputTokens: 3, TotalTokens: 13})
	agent := agents.New("test").WithModel(model)

	result, err := agent.Run(t.Context(), "hi", newDocsServer())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Usage.Requests)
	assert.Equal(t, uint64(20), result.Usage.InputTokens)
	assert.Equal(t, uint64(26), result.Usage.TotalTokens)
}

func TestRunner_Session(t *testing.T) {
	ctx := t.Context()
	session, err := memory.NewSQLiteSession(ctx, memory.SQLiteSessionParams{
		SessionID:        "conversation",
		DBDataSourceName: filepath.Join(t.TempDir(), "session.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close(context.Background()) })

	model := agentstesting.NewFakeModel(
		agentstesting.GetTextMessage("first answer"),
		agentstesting.GetTextMessage("second answer"),
	)
	agent := agents.New("test").WithModel(model)
	runner := agents.Runner{Config: agents.RunConfig{Session: session}}

	_, err = runner.Run(ctx, agent, "first question")
	require.NoError(t, err)
	_, err = runner.Run(ctx, agent, "second question")
	require.NoError(t, err)

	assert.Equal(t, []chat.Message{
		chat.UserMessage("first question"),
		chat.AssistantMessage("first answer"),
		chat.UserMessage("second question"),
	}, model.LastTurnArgs.Input)

	items, err := session.GetItems(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, items, 4)
}

func TestRunner_FailedRunIsNotSavedToSession(t *testing.T) {
	ctx := t.Context()
	session, err := memory.NewSQLiteSession(ctx, memory.SQLiteSessionParams{
		SessionID:        "conversation",
		DBDataSourceName: filepath.Join(t.TempDir(), "session.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close(context.Background()) })

	model := agentstesting.NewFakeModel(agentstesting.GetErrorOutput(errors.New("boom")))
	agent := agents.New("test").WithModel(model)

	_, err = agents.Runner{Config: agents.RunConfig{Session: session}}.Run(ctx, agent, "hi")
	require.Error(t, err)

	items, err := session.GetItems(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRunner_Tracing(t *testing.T) {
	processor := tracingtesting.Setup(t)

	model := agentstesting.NewFakeModel(
		agentstesting.GetFunctionToolCall("microsoft_docs_search", `{"query":"x"}`),
		agentstesting.GetTextMessage("done"),
	)
	agent := agents.New("MSLearnAgent").WithModel(model)

	runner := agents.Runner{Config: agents.RunConfig{WorkflowName: "remote MCP demo"}}
	result, err := runner.Run(t.Context(), agent, "hi", newDocsServer())
	require.NoError(t, err)

	traces := processor.Traces()
	require.Len(t, traces, 1)
	assert.Equal(t, "remote MCP demo", traces[0].WorkflowName)
	assert.Equal(t, traces[0].ID, result.TraceID)

	agentSpans := processor.SpansOfKind(tracing.SpanKindAgent)
	require.Len(t, agentSpans, 1)
	assert.Equal(t, "MSLearnAgent", agentSpans[0].Name)
	assert.Equal(t, []string{"microsoft_docs_search"}, agentSpans[0].Data()["tools"])

	assert.Len(t, processor.SpansOfKind(tracing.SpanKindMCPTools), 1)
	assert.Len(t, processor.SpansOfKind(tracing.SpanKindGeneration), 2)

	functionSpans := processor.SpansOfKind(tracing.SpanKindFunction)
	require.Len(t, functionSpans, 1)
	assert.Equal(t, agentSpans[0].ID, functionSpans[0].ParentID)
	assert.Equal(t, map[string]any{"server": "Microsoft Learn MCP"}, functionSpans[0].Data()["mcp_data"])
}

func TestRunner_TracingDisabled(t *testing.T) {
	processor := tracingtesting.Setup(t)

	model := agentstesting.NewFakeModel(agentstesting.GetTextMessage("done"))
	agent := agents.New("test").WithModel(model)

	runner := agents.Runner{Config: agents.RunConfig{TracingDisabled: true}}
	_, err := runner.Run(t.Context(), agent, "hi")
	require.NoError(t, err)
	assert.Empty(t, processor.Traces())
	assert.Empty(t, processor.Spans())
}
