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

// Package tracingtesting provides a processor that collects traces and spans
// in memory, for use in tests.
package tracingtesting

import (
	"context"
	"sync"
	"testing"

	"github.com/nlpodyssey/remote-mcp-agent/tracing"
)

// SpanProcessorForTests collects finished traces and spans.
type SpanProcessorForTests struct {
	mu     sync.Mutex
	traces []*tracing.Trace
	spans  []*tracing.Span
}

func (p *SpanProcessorForTests) OnTraceStart(context.Context, *tracing.Trace) {}

func (p *SpanProcessorForTests) OnTraceEnd(_ context.Context, t *tracing.Trace) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.traces = append(p.traces, t)
}

func (p *SpanProcessorForTests) OnSpanStart(context.Context, *tracing.Span) {}

func (p *SpanProcessorForTests) OnSpanEnd(_ context.Context, s *tracing.Span) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spans = append(p.spans, s)
}

func (p *SpanProcessorForTests) Traces() []*tracing.Trace {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*tracing.Trace(nil), p.traces...)
}

// Spans returns the finished spans, in order of completion.
func (p *SpanProcessorForTests) Spans() []*tracing.Span {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*tracing.Span(nil), p.spans...)
}

// SpansOfKind returns the finished spans of the given kind.
func (p *SpanProcessorForTests) SpansOfKind(kind tracing.SpanKind) []*tracing.Span {
	var out []*tracing.Span
	for _, s := range p.Spans() {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Setup installs a fresh SpanProcessorForTests as the only processor,
// restoring an empty processor list when the test ends.
func Setup(t *testing.T) *SpanProcessorForTests {
	t.Helper()
	p := new(SpanProcessorForTests)
	tracing.SetTraceProcessors([]tracing.Processor{p})
	tracing.SetTracingDisabled(false)
	t.Cleanup(func() { tracing.SetTraceProcessors(nil) })
	return p
}
