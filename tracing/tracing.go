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

// Package tracing records traces and spans of agent runs and forwards them
// to the registered processors.
package tracing

import (
	"encoding/hex"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	processorsMu sync.RWMutex
	processors   []Processor
	disabled     atomic.Bool
)

// AddTraceProcessor adds a new trace processor.
// This processor will receive all traces/spans.
func AddTraceProcessor(p Processor) {
	processorsMu.Lock()
	defer processorsMu.Unlock()
	processors = append(processors, p)
}

// SetTraceProcessors sets the list of trace processors.
// This will replace the current list of processors.
func SetTraceProcessors(ps []Processor) {
	processorsMu.Lock()
	defer processorsMu.Unlock()
	processors = append([]Processor(nil), ps...)
}

// SetTracingDisabled sets whether tracing is globally disabled.
func SetTracingDisabled(v bool) {
	disabled.Store(v)
}

func IsTracingDisabled() bool {
	return disabled.Load()
}

func registeredProcessors() []Processor {
	processorsMu.RLock()
	defer processorsMu.RUnlock()
	return processors
}

// GenTraceID generates a new trace ID.
func GenTraceID() string {
	u := uuid.New()
	return "trace_" + hex.EncodeToString(u[:])
}

// GenSpanID generates a new span ID.
func GenSpanID() string {
	u := uuid.New()
	return "span_" + hex.EncodeToString(u[:])[:24]
}

// GenGroupID generates a new group ID.
func GenGroupID() string {
	u := uuid.New()
	return "group_" + hex.EncodeToString(u[:])[:24]
}
