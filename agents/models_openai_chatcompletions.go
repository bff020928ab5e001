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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/nlpodyssey/remote-mcp-agent/credentials"
	"github.com/nlpodyssey/remote-mcp-agent/tracing"
	"github.com/nlpodyssey/remote-mcp-agent/usage"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// DefaultAzureOpenAIAPIVersion is the Azure OpenAI data-plane API version
// used when none is configured.
const DefaultAzureOpenAIAPIVersion = "2024-10-21"

// AzureCognitiveServicesScope is the token scope of Azure OpenAI, the same
// scope credentials are checked against on acquisition.
const AzureCognitiveServicesScope = credentials.DefaultScope

type OpenAIChatCompletionsModel struct {
	Model  openai.ChatModel
	client openai.Client
}

func NewOpenAIChatCompletionsModel(model openai.ChatModel, client openai.Client) OpenAIChatCompletionsModel {
	return OpenAIChatCompletionsModel{
		Model:  model,
		client: client,
	}
}

type AzureOpenAIParams struct {
	// The Azure OpenAI resource endpoint, e.g. https://my-resource.openai.azure.com.
	Endpoint string

	// The data-plane API version. Defaults to DefaultAzureOpenAIAPIVersion.
	APIVersion string

	// The name of the chat model deployment.
	Deployment string

	// The credential used to obtain bearer tokens for AzureCognitiveServicesScope.
	Credential azcore.TokenCredential

	// Optional HTTP client.
	HTTPClient *http.Client

	// Additional request options, appended last.
	RequestOptions []option.RequestOption
}

// NewAzureOpenAIChatCompletionsModel creates a chat completions model for an
// Azure OpenAI deployment, authenticated with the given credential.
func NewAzureOpenAIChatCompletionsModel(params AzureOpenAIParams) (OpenAIChatCompletionsModel, error) {
	switch {
	case params.Endpoint == "":
		return OpenAIChatCompletionsModel{}, NewUserError("Azure OpenAI endpoint is required")
	case params.Deployment == "":
		return OpenAIChatCompletionsModel{}, NewUserError("Azure OpenAI chat deployment name is required")
	case params.Credential == nil:
		return OpenAIChatCompletionsModel{}, NewUserError("a credential is required to authenticate with Azure OpenAI")
	}

	opts := []option.RequestOption{
		azure.WithEndpoint(params.Endpoint, cmp.Or(params.APIVersion, DefaultAzureOpenAIAPIVersion)),
		azure.WithTokenCredential(params.Credential),
		// Failures surface to the caller, never retried.
		option.WithMaxRetries(0),
	}
	if params.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(params.HTTPClient))
	}
	opts = append(opts, params.RequestOptions...)

	return NewOpenAIChatCompletionsModel(openai.ChatModel(params.Deployment), openai.NewClient(opts...)), nil
}

func (m OpenAIChatCompletionsModel) GetResponse(ctx context.Context, params ModelRequest) (*ModelResponse, error) {
	body, opts, err := m.prepareRequest(params)
	if err != nil {
		return nil, err
	}

	if DontLogModelData {
		Logger().Debug("Calling LLM")
	} else {
		Logger().Debug("Calling LLM",
			slog.String("model", string(m.Model)),
			slog.Int("messages", len(body.Messages)),
			slog.Int("tools", len(body.Tools)))
	}

	if span := tracing.GetCurrentSpan(ctx); span != nil {
		span.SetData("model", string(m.Model))
	}

	response, err := m.client.Chat.Completions.New(ctx, *body, opts...)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, NewBackendError(apiErr.StatusCode, err)
		}
		return nil, NewBackendError(0, err)
	}
	if len(response.Choices) == 0 {
		return nil, BackendErrorf("chat completion response has no choices")
	}

	message := response.Choices[0].Message
	if DontLogModelData {
		Logger().Debug("LLM responded")
	} else {
		Logger().Debug("LLM responded",
			slog.String("content", message.Content),
			slog.Int("toolCalls", len(message.ToolCalls)))
	}

	u := usage.NewUsage()
	if !reflect.ValueOf(response.Usage).IsZero() {
		*u = usage.Usage{
			Requests:          1,
			InputTokens:       uint64(response.Usage.PromptTokens),
			CachedInputTokens: uint64(response.Usage.PromptTokensDetails.CachedTokens),
			OutputTokens:      uint64(response.Usage.CompletionTokens),
			ReasoningTokens:   uint64(response.Usage.CompletionTokensDetails.ReasoningTokens),
			TotalTokens:       uint64(response.Usage.TotalTokens),
		}
	}

	return &ModelResponse{
		Message:    ChatCmplConverter().MessageFromOpenai(message),
		Usage:      u,
		ResponseID: response.ID,
	}, nil
}

func (m OpenAIChatCompletionsModel) prepareRequest(params ModelRequest) (*openai.ChatCompletionNewParams, []option.RequestOption, error) {
	messages, err := ChatCmplConverter().MessagesToOpenai(params.SystemInstructions, params.Input)
	if err != nil {
		return nil, nil, err
	}
	if len(messages) == 0 {
		return nil, nil, NewUserError("no messages to send to the model")
	}

	body := &openai.ChatCompletionNewParams{
		Model:    m.Model,
		Messages: messages,
	}
	for _, tool := range params.Tools {
		body.Tools = append(body.Tools, ChatCmplConverter().ToolToOpenai(tool))
	}

	opts := params.ModelSettings.ApplyToChatCompletion(body)
	return body, opts, nil
}

func (m OpenAIChatCompletionsModel) String() string {
	return fmt.Sprintf("OpenAIChatCompletionsModel(%s)", m.Model)
}
