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

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/nlpodyssey/remote-mcp-agent/agents"
	"github.com/nlpodyssey/remote-mcp-agent/types/chat"
)

func GetTextMessage(content string) FakeModelTurnOutput {
	return FakeModelTurnOutput{Value: chat.AssistantMessage(content)}
}

func GetFunctionToolCall(name, arguments string) FakeModelTurnOutput {
	return GetFunctionToolCalls(chat.ToolCall{ID: "call_" + name, Name: name, Arguments: arguments})
}

func GetFunctionToolCalls(calls ...chat.ToolCall) FakeModelTurnOutput {
	return FakeModelTurnOutput{Value: chat.AssistantMessage("", calls...)}
}

func GetErrorOutput(err error) FakeModelTurnOutput {
	return FakeModelTurnOutput{Error: err}
}

func GetFunctionTool(name, returnValue string) agents.FunctionTool {
	return agents.FunctionTool{
		Name: name,
		ParamsJSONSchema: map[string]any{
			"title":                name + "_args",
			"type":                 "object",
			"required":             []string{},
			"additionalProperties": false,
			"properties":           map[string]any{},
		},
		OnInvokeTool: func(context.Context, string) (string, error) {
			return returnValue, nil
		},
	}
}

// StringArgSchema returns an object schema with a single required string
// property.
func StringArgSchema(property string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			property: {Type: "string"},
		},
		Required: []string{property},
	}
}
