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

	"github.com/nlpodyssey/remote-mcp-agent/modelsettings"
	"github.com/nlpodyssey/remote-mcp-agent/types/chat"
	"github.com/nlpodyssey/remote-mcp-agent/usage"
)

// Model is the interface for calling a chat-completion backend.
type Model interface {
	// GetResponse gets the next assistant turn from the model.
	GetResponse(context.Context, ModelRequest) (*ModelResponse, error)
}

type ModelRequest struct {
	// The system instructions to use.
	SystemInstructions string

	// The conversation so far, oldest first.
	Input []chat.Message

	// The tools available to the model.
	Tools []FunctionTool

	// The model settings to use.
	ModelSettings modelsettings.ModelSettings
}

type ModelResponse struct {
	// The assistant message produced by the model.
	Message chat.Message

	// The usage information for the response.
	Usage *usage.Usage

	// An ID for the response which can be used to refer to the response
	// in subsequent calls to the model. Not supported by all model providers.
	ResponseID string
}
