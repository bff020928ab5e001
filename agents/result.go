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
	"github.com/nlpodyssey/remote-mcp-agent/usage"
)

type RunResult struct {
	// The original input.
	Input string

	// The messages generated during the run: the user input, every
	// assistant turn, and every tool output, in order.
	NewItems []chat.Message

	// The text of the last assistant turn.
	FinalOutput string

	// The token usage summed across every model request of the run.
	Usage *usage.Usage

	// The ID of the trace recording the run.
	TraceID string

	// The response ID of the last model response, if the provider returned one.
	LastResponseID string
}

// String returns the final output.
func (r *RunResult) String() string {
	return r.FinalOutput
}

// ToolCallCount returns the number of tool calls executed during the run.
func (r *RunResult) ToolCallCount() int {
	n := 0
	for _, item := range r.NewItems {
		if item.IsToolOutput() {
			n++
		}
	}
	return n
}
