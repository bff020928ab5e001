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

package tracing

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"sync"
	"time"
)

type SpanKind string

const (
	SpanKindAgent      SpanKind = "agent"
	SpanKindGeneration SpanKind = "generation"
	SpanKindFunction   SpanKind = "function"
	SpanKindMCPTools   SpanKind = "mcp_tools"
)

// SpanError describes a failure recorded on a span.
type SpanError struct {
	Message string
	Data    map[string]any
}

func (err SpanError) Error() string { return cmp.Or(err.Message, "span error") }

type TraceParams struct {
	// The name of the logical app or workflow.
	WorkflowName string

	// The ID of the trace. Optional. If not provided, GenTraceID is used.
	TraceID string

	// Optional grouping identifier to link multiple traces from the same
	// conversation or process. For instance, you might use a session ID.
	GroupID string

	// Optional dictionary of additional metadata to attach to the trace.
	Metadata map[string]any

	// If true, the trace is not forwarded to the processors.
	Disabled bool
}

// A Trace is the root of the spans recorded for a single workflow run.
type Trace struct {
	ID           string
	WorkflowName string
	GroupID      string
	Metadata     map[string]any
	StartedAt    time.Time
	EndedAt      time.Time
	disabled     bool
}

// RunTrace starts a trace, runs fn with the trace set as current, then
// finishes the trace.
func RunTrace(ctx context.Context, params TraceParams, fn func(context.Context, *Trace) error) error {
	if GetCurrentTrace(ctx) != nil {
		Logger().Warn("Trace already exists. Creating a new trace, but this is probably a mistake.")
	}
	t := &Trace{
		ID:           cmp.Or(params.TraceID, GenTraceID()),
		WorkflowName: params.WorkflowName,
		GroupID:      params.GroupID,
		Metadata:     params.Metadata,
		StartedAt:    time.Now(),
		disabled:     params.Disabled || IsTracingDisabled(),
	}
	if !t.disabled {
		for _, p := range registeredProcessors() {
			p.OnTraceStart(ctx, t)
		}
	}

	err := fn(contextWithTrace(ctx, t), t)

	t.EndedAt = time.Now()
	if !t.disabled {
		for _, p := range registeredProcessors() {
			p.OnTraceEnd(ctx, t)
		}
	}
	return err
}

// A Span is a timed operation within a trace.
type Span struct {
	ID        string
	TraceID   string
	ParentID  string
	Kind      SpanKind
	Name      string
	StartedAt time.Time
	EndedAt   time.Time

	mu       sync.Mutex
	data     map[string]any
	err      *SpanError
	disabled bool
}

// SetData records a key/value attribute on the span.
func (s *Span) SetData(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]any)
	}
	s.data[key] = value
}

// Data returns a copy of the span attributes.
func (s *Span) Data() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.data)
}

func (s *Span) SetError(err SpanError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = &err
}

func (s *Span) Error() *SpanError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// RunSpan starts a span as a child of the current span (or trace), runs fn
// with the span set as current, then finishes the span. An error returned
// by fn is recorded on the span, unless a SpanError was already set.
func RunSpan(ctx context.Context, kind SpanKind, name string, fn func(context.Context, *Span) error) error {
	s := &Span{
		ID:        GenSpanID(),
		Kind:      kind,
		Name:      name,
		StartedAt: time.Now(),
	}
	switch parent := GetCurrentSpan(ctx); {
	case parent != nil:
		s.TraceID = parent.TraceID
		s.ParentID = parent.ID
		s.disabled = parent.disabled
	default:
		t := GetCurrentTrace(ctx)
		if t == nil {
			// Spans outside a trace are not recorded.
			s.disabled = true
		} else {
			s.TraceID = t.ID
			s.disabled = t.disabled
		}
	}

	if !s.disabled {
		for _, p := range registeredProcessors() {
			p.OnSpanStart(ctx, s)
		}
	}

	err := fn(contextWithSpan(ctx, s), s)
	if err != nil && s.Error() == nil {
		var spanErr SpanError
		if !errors.As(err, &spanErr) {
			spanErr = SpanError{Message: err.Error()}
		}
		s.SetError(spanErr)
	}

	s.EndedAt = time.Now()
	if !s.disabled {
		for _, p := range registeredProcessors() {
			p.OnSpanEnd(ctx, s)
		}
	}
	return err
}

// AgentSpan records the run of an agent.
func AgentSpan(ctx context.Context, agentName string, tools []string, fn func(context.Context, *Span) error) error {
	return RunSpan(ctx, SpanKindAgent, agentName, func(ctx context.Context, s *Span) error {
		s.SetData("tools", tools)
		return fn(ctx, s)
	})
}

// GenerationSpan records a single model request.
func GenerationSpan(ctx context.Context, model string, fn func(context.Context, *Span) error) error {
	return RunSpan(ctx, SpanKindGeneration, model, fn)
}

// FunctionSpan records a single tool invocation.
func FunctionSpan(ctx context.Context, toolName, input string, fn func(context.Context, *Span) error) error {
	return RunSpan(ctx, SpanKindFunction, toolName, func(ctx context.Context, s *Span) error {
		s.SetData("input", input)
		return fn(ctx, s)
	})
}

// MCPToolsSpan records the listing of the tools of an MCP server.
func MCPToolsSpan(ctx context.Context, server string, fn func(context.Context, *Span) error) error {
	return RunSpan(ctx, SpanKindMCPTools, server, func(ctx context.Context, s *Span) error {
		s.SetData("server", server)
		return fn(ctx, s)
	})
}
