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

package modelsettings

import (
	"maps"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

// ModelSettings are the optional tuning parameters of a chat completion
// request. Unset fields are left to the deployment's defaults.
type ModelSettings struct {
	Temperature param.Opt[float64] `json:"temperature"`
	TopP        param.Opt[float64] `json:"top_p"`

	// Upper bound on generated tokens, sent as max_completion_tokens.
	MaxTokens param.Opt[int64] `json:"max_tokens"`

	ToolChoice ToolChoice `json:"tool_choice"`

	// Only sent when the request carries tools.
	ParallelToolCalls param.Opt[bool] `json:"parallel_tool_calls"`

	// Extra HTTP headers added to the request.
	ExtraHeaders map[string]string `json:"extra_headers"`
}

// ToolChoice is either a ToolChoiceString or a ToolChoiceFunction.
type ToolChoice interface {
	isToolChoice()
}

type ToolChoiceString string

func (ToolChoiceString) isToolChoice()     {}
func (tc ToolChoiceString) String() string { return string(tc) }

const (
	ToolChoiceAuto     ToolChoiceString = "auto"
	ToolChoiceRequired ToolChoiceString = "required"
	ToolChoiceNone     ToolChoiceString = "none"
)

// ToolChoiceFunction forces the model to call the named function.
type ToolChoiceFunction struct {
	Name string `json:"name"`
}

func (ToolChoiceFunction) isToolChoice() {}

// Resolve returns ms with every field set in override replaced.
func (ms ModelSettings) Resolve(override ModelSettings) ModelSettings {
	out := ms
	overrideOpt(&out.Temperature, override.Temperature)
	overrideOpt(&out.TopP, override.TopP)
	overrideOpt(&out.MaxTokens, override.MaxTokens)
	overrideOpt(&out.ParallelToolCalls, override.ParallelToolCalls)
	if override.ToolChoice != nil {
		out.ToolChoice = override.ToolChoice
	}
	if len(override.ExtraHeaders) > 0 {
		out.ExtraHeaders = maps.Clone(override.ExtraHeaders)
	}
	return out
}

// ApplyToChatCompletion copies the settings onto a chat completion request
// and returns the request options they require.
func (ms ModelSettings) ApplyToChatCompletion(params *openai.ChatCompletionNewParams) []option.RequestOption {
	if ms.Temperature.Valid() {
		params.Temperature = ms.Temperature
	}
	if ms.TopP.Valid() {
		params.TopP = ms.TopP
	}
	if ms.MaxTokens.Valid() {
		params.MaxCompletionTokens = ms.MaxTokens
	}
	if ms.ParallelToolCalls.Valid() && len(params.Tools) > 0 {
		params.ParallelToolCalls = ms.ParallelToolCalls
	}

	switch tc := ms.ToolChoice.(type) {
	case ToolChoiceString:
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: param.NewOpt(tc.String()),
		}
	case ToolChoiceFunction:
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{Name: tc.Name},
			},
		}
	}

	opts := make([]option.RequestOption, 0, len(ms.ExtraHeaders))
	for name, value := range ms.ExtraHeaders {
		opts = append(opts, option.WithHeader(name, value))
	}
	return opts
}

func overrideOpt[T comparable](dst *param.Opt[T], v param.Opt[T]) {
	if v.Valid() {
		*dst = v
	}
}
