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
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// Processor receives traces and spans as they start and finish.
type Processor interface {
	OnTraceStart(context.Context, *Trace)
	OnTraceEnd(context.Context, *Trace)
	OnSpanStart(context.Context, *Span)
	OnSpanEnd(context.Context, *Span)
}

var tracingLogger atomic.Pointer[slog.Logger]

func init() {
	tracingLogger.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Logger is the logger used by the tracing package.
func Logger() *slog.Logger { return tracingLogger.Load() }

// SetLogger sets the logger used by the tracing package.
// A nil value is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		tracingLogger.Store(l)
	}
}

// LogProcessor writes finished traces and spans to a slog logger at debug level.
type LogProcessor struct {
	// Optional logger. Defaults to Logger().
	Logger *slog.Logger
}

func (p LogProcessor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return Logger()
}

func (p LogProcessor) OnTraceStart(ctx context.Context, t *Trace) {
	p.logger().DebugContext(ctx, "Trace started",
		slog.String("traceID", t.ID),
		slog.String("workflow", t.WorkflowName))
}

func (p LogProcessor) OnTraceEnd(ctx context.Context, t *Trace) {
	p.logger().DebugContext(ctx, "Trace finished",
		slog.String("traceID", t.ID),
		slog.String("workflow", t.WorkflowName),
		slog.Duration("duration", t.EndedAt.Sub(t.StartedAt)))
}

func (LogProcessor) OnSpanStart(context.Context, *Span) {}

func (p LogProcessor) OnSpanEnd(ctx context.Context, s *Span) {
	attrs := []any{
		slog.String("traceID", s.TraceID),
		slog.String("spanID", s.ID),
		slog.String("kind", string(s.Kind)),
		slog.String("name", s.Name),
		slog.Duration("duration", s.EndedAt.Sub(s.StartedAt)),
	}
	if err := s.Error(); err != nil {
		attrs = append(attrs, slog.String("error", err.Message))
	}
	p.logger().DebugContext(ctx, "Span finished", attrs...)
}
