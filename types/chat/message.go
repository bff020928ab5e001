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

// Package chat defines the transcript entries exchanged between an agent,
// its chat-completion backend and its session storage.
package chat

// Role of a message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single transcript entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`

	// Name of the tool that produced the output, for RoleTool messages.
	Name string `json:"name,omitempty"`

	// ID of the tool call this message answers, for RoleTool messages.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Tool calls requested by the model, for RoleAssistant messages.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string, toolCalls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: toolCalls}
}

func ToolOutputMessage(toolCallID, toolName, output string) Message {
	return Message{
		Role:       RoleTool,
		Content:    output,
		Name:       toolName,
		ToolCallID: toolCallID,
	}
}

// IsToolOutput reports whether the message is the output of a tool call.
func (m Message) IsToolOutput() bool {
	return m.Role == RoleTool
}

// HasToolCalls reports whether the model requested at least one tool call.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}
