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
	"errors"
	"sync"

	"github.com/nlpodyssey/remote-mcp-agent/agents"
	"github.com/nlpodyssey/remote-mcp-agent/types/chat"
	"github.com/nlpodyssey/remote-mcp-agent/usage"
)

// FakeModel is an agents.Model replaying queued turn outputs.
type FakeModel struct {
	TurnOutputs    []FakeModelTurnOutput
	LastTurnArgs   agents.ModelRequest
	Requests       []agents.ModelRequest
	HardcodedUsage *usage.Usage
	CloseErr       error

	mu     sync.Mutex
	closed int
}

type FakeModelTurnOutput struct {
	Value chat.Message
	Error error
}

var errNoTurnOutput = errors.New("fake model has no output for this turn")

func NewFakeModel(outputs ...FakeModelTurnOutput) *FakeModel {
	return &FakeModel{TurnOutputs: outputs}
}

func (m *FakeModel) SetHardcodedUsage(u usage.Usage) {
	m.HardcodedUsage = &u
}

func (m *FakeModel) SetNextOutput(output FakeModelTurnOutput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TurnOutputs = append(m.TurnOutputs, output)
}

func (m *FakeModel) AddMultipleTurnOutputs(outputs []FakeModelTurnOutput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TurnOutputs = append(m.TurnOutputs, outputs...)
}

func (m *FakeModel) GetResponse(_ context.Context, params agents.ModelRequest) (*agents.ModelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastTurnArgs = params
	m.Requests = append(m.Requests, params)

	if len(m.TurnOutputs) == 0 {
		return nil, errNoTurnOutput
	}
	output := m.TurnOutputs[0]
	m.TurnOutputs = m.TurnOutputs[1:]

	if output.Error != nil {
		return nil, output.Error
	}

	u := usage.NewUsage()
	if m.HardcodedUsage != nil {
		*u = *m.HardcodedUsage
	}
	return &agents.ModelResponse{
		Message:    output.Value,
		Usage:      u,
		ResponseID: "resp_fake",
	}, nil
}

// Close counts how many times the model was closed.
func (m *FakeModel) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return m.CloseErr
}

func (m *FakeModel) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *FakeModel) String() string { return "fake_model" }
