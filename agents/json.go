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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nlpodyssey/remote-mcp-agent/tracing"
	"github.com/xeipuuv/gojsonschema"
)

// ValidateJSON validates jsonValue against the schema, returning a
// ModelBehaviorError that lists every violation.
func ValidateJSON(ctx context.Context, schema *gojsonschema.Schema, jsonValue string) (err error) {
	defer func() {
		if err != nil {
			if span := tracing.GetCurrentSpan(ctx); span != nil {
				span.SetError(tracing.SpanError{Message: "Invalid JSON provided"})
			}
		}
	}()

	loader := gojsonschema.NewStringLoader(jsonValue)
	result, err := schema.Validate(loader)
	if err != nil {
		return ModelBehaviorErrorf("failed to load and validate JSON: %w", err)
	}

	if result.Valid() {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("JSON validation failed with the following errors:\n")
	for _, e := range result.Errors() {
		_, _ = fmt.Fprintf(&sb, "- %s\n", e)
	}
	return NewModelBehaviorError(sb.String())
}

// jsonMap converts any JSON-serializable value into a generic map.
func jsonMap(v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err = json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
