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
	"github.com/nlpodyssey/remote-mcp-agent/types/chat"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
)

type chatCmplConverter struct{}

// ChatCmplConverter converts between transcript messages and the
// chat completions API types.
func ChatCmplConverter() chatCmplConverter { return chatCmplConverter{} }

func (chatCmplConverter) MessagesToOpenai(systemInstructions string, messages []chat.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemInstructions != "" {
		result = append(result, openai.SystemMessage(systemInstructions))
	}

	for _, m := range messages {
		switch m.Role {
		case chat.RoleSystem:
			result = append(result, openai.SystemMessage(m.Content))
		case chat.RoleUser:
			result = append(result, openai.UserMessage(m.Content))
		case chat.RoleTool:
			result = append(result, openai.ToolMessage(m.Content, m.ToolCallID))
		case chat.RoleAssistant:
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = param.NewOpt(m.Content)
			}
			for _, tc := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		default:
			return nil, UserErrorf("unexpected message role %q", m.Role)
		}
	}
	return result, nil
}

func (chatCmplConverter) ToolToOpenai(tool FunctionTool) openai.ChatCompletionToolParam {
	def := openai.FunctionDefinitionParam{
		Name:       tool.Name,
		Parameters: openai.FunctionParameters(tool.ParamsJSONSchema),
	}
	if tool.Description != "" {
		def.Description = param.NewOpt(tool.Description)
	}
	if tool.StrictJSONSchema {
		def.Strict = param.NewOpt(true)
	}
	return openai.ChatCompletionToolParam{Function: def}
}

func (chatCmplConverter) MessageFromOpenai(m openai.ChatCompletionMessage) chat.Message {
	content := m.Content
	if content == "" && m.Refusal != "" {
		content = m.Refusal
	}
	msg := chat.AssistantMessage(content)
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, chat.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return msg
}
