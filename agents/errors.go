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
	"errors"
	"fmt"
)

// MaxTurnsExceededError is returned when the maximum number of turns is exceeded.
type MaxTurnsExceededError struct {
	Err error
}

func (err MaxTurnsExceededError) Error() string { return err.Err.Error() }
func (err MaxTurnsExceededError) Unwrap() error { return err.Err }

func NewMaxTurnsExceededError(message string) MaxTurnsExceededError {
	return MaxTurnsExceededError{Err: errors.New(message)}
}

func MaxTurnsExceededErrorf(format string, a ...any) MaxTurnsExceededError {
	return MaxTurnsExceededError{Err: fmt.Errorf(format, a...)}
}

// ModelBehaviorError is returned when the model does something unexpected,
// e.g. calling a tool that doesn't exist, or providing malformed JSON.
type ModelBehaviorError struct {
	Err error
}

func (err ModelBehaviorError) Error() string { return err.Err.Error() }
func (err ModelBehaviorError) Unwrap() error { return err.Err }

func NewModelBehaviorError(message string) ModelBehaviorError {
	return ModelBehaviorError{Err: errors.New(message)}
}

func ModelBehaviorErrorf(format string, a ...any) ModelBehaviorError {
	return ModelBehaviorError{Err: fmt.Errorf(format, a...)}
}

// UserError is returned when the package is used incorrectly.
type UserError struct {
	Err error
}

func (err UserError) Error() string { return err.Err.Error() }
func (err UserError) Unwrap() error { return err.Err }

func NewUserError(message string) UserError {
	return UserError{Err: errors.New(message)}
}

func UserErrorf(format string, a ...any) UserError {
	return UserError{Err: fmt.Errorf(format, a...)}
}

// ConnectionError is returned when a tool connection cannot be opened,
// e.g. because the network or the remote endpoint failed.
type ConnectionError struct {
	// Name of the MCP server.
	Server string
	Err    error
}

func (err ConnectionError) Error() string {
	return fmt.Sprintf("MCP server %q connection error: %v", err.Server, err.Err)
}

func (err ConnectionError) Unwrap() error { return err.Err }

func NewConnectionError(server string, err error) ConnectionError {
	return ConnectionError{Server: server, Err: err}
}

// BackendError is returned when the chat-completion backend fails.
type BackendError struct {
	// HTTP status code of the failed request. Zero if no response was received.
	StatusCode int
	Err        error
}

func (err BackendError) Error() string {
	if err.StatusCode > 0 {
		return fmt.Sprintf("chat completion backend error (status %d): %v", err.StatusCode, err.Err)
	}
	return fmt.Sprintf("chat completion backend error: %v", err.Err)
}

func (err BackendError) Unwrap() error { return err.Err }

func NewBackendError(statusCode int, err error) BackendError {
	return BackendError{StatusCode: statusCode, Err: err}
}

func BackendErrorf(format string, a ...any) BackendError {
	return BackendError{Err: fmt.Errorf(format, a...)}
}
