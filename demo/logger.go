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

package demo

import (
	"log/slog"
	"os"
	"sync/atomic"
)

var demoLogger atomic.Pointer[slog.Logger]

func init() {
	demoLogger.Store(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// Logger is the global logger used by the demo package.
func Logger() *slog.Logger {
	return demoLogger.Load()
}

// SetLogger sets the global logger used by the demo package.
// A nil value is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		demoLogger.Store(l)
	}
}
