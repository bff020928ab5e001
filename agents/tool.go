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
	"fmt"
)

// FunctionTool is a tool that wraps a function.
type FunctionTool struct {
	// The name of the tool, as shown to the LLM.
	Name string

	// A description of the tool, as shown to the LLM.
	Description string

	// The JSON schema for the tool's parameters.
	ParamsJSONSchema map[string]any

	// A function that invokes the tool with the arguments from the LLM,
	// as a JSON string, and returns the output sent back to the LLM.
	//
	// A returned error is not fatal for the run: its message is sent back
	// to the LLM through ToolErrorFunction.
	OnInvokeTool func(ctx context.Context, arguments string) (string, error)

	// Whether the JSON schema is in strict mode.
	StrictJSONSchema bool
}

// ToolErrorFunction turns a tool failure into the output reported to the LLM.
type ToolErrorFunction func(ctx context.Context, err error) string

// DefaultToolErrorFunction is the default ToolErrorFunction.
func DefaultToolErrorFunction(_ context.Context, err error) string {
	return fmt.Sprintf("An error occurred while running the tool. Please try again. Error: %s", err.Error())
}
