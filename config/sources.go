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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// VariablesSource is a provider of configuration variables.
type VariablesSource interface {
	// Load returns all variables available from this source.
	Load() (map[string]string, error)
}

// Environ loads variables from the process environment.
type Environ struct{}

func (Environ) Load() (map[string]string, error) {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars, nil
}

// DotEnv loads variables from a .env file. A missing file yields no variables.
type DotEnv struct {
	Path string
}

func (d DotEnv) Load() (map[string]string, error) {
	vars, err := godotenv.Read(d.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", d.Path, err)
	}
	return vars, nil
}

// Variables is a fixed set of variables.
type Variables map[string]string

func (v Variables) Load() (map[string]string, error) {
	return v, nil
}

func mergeSources(sources []VariablesSource) (map[string]string, error) {
	merged := make(map[string]string)
	for _, source := range sources {
		vars, err := source.Load()
		if err != nil {
			return nil, err
		}
		for k, v := range vars {
			if _, ok := merged[k]; !ok && v != "" {
				merged[k] = v
			}
		}
	}
	return merged, nil
}
