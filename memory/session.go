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

package memory

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/nlpodyssey/remote-mcp-agent/types/chat"
)

// A Session stores conversation history for a specific session, allowing
// agents to maintain context without requiring explicit manual memory management.
type Session interface {
	SessionID(context.Context) string

	// GetItems retrieves the conversation history for this session.
	//
	// `limit` is the maximum number of items to retrieve. If <= 0, retrieves all items.
	// When specified, returns the latest N items in chronological order.
	GetItems(ctx context.Context, limit int) ([]chat.Message, error)

	// AddItems adds new items to the conversation history.
	AddItems(ctx context.Context, items []chat.Message) error

	// PopItem removes and returns the most recent item from the session.
	// It returns nil if the session is empty.
	PopItem(context.Context) (*chat.Message, error)

	// ClearSession clears all items for this session.
	ClearSession(context.Context) error
}

// ClosableSession is a Session backed by a resource that must be released.
type ClosableSession interface {
	Session
	Close(context.Context) error
}

func marshalMessageData(item chat.Message) (string, error) {
	b, err := json.Marshal(item)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalMessageData(messageData string) (chat.Message, error) {
	var item chat.Message
	err := json.Unmarshal([]byte(messageData), &item)
	return item, err
}

// dropLeadingToolOutputs removes tool outputs at the start of a window of
// items: a tool call and its output must appear in pairs, and the call was
// cut off by the limit.
func dropLeadingToolOutputs(items []chat.Message) []chat.Message {
	i := 0
	for i < len(items) && items[i].IsToolOutput() {
		i++
	}
	return slices.Delete(items, 0, i)
}
