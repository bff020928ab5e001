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
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nlpodyssey/remote-mcp-agent/types/chat"
)

// DefaultSQLiteDSN is an in-memory database shared by every session of the
// process, lost when the process ends.
const DefaultSQLiteDSN = "file::memory:?cache=shared"

// SQLiteSession stores the transcript of a session in a SQLite database.
//
// A file path as data source name makes the history persistent.
type SQLiteSession struct {
	sessionID string
	db        *sql.DB
	queries   sessionQueries
	mu        sync.Mutex
}

type SQLiteSessionParams struct {
	// Unique identifier for the conversation session
	SessionID string

	// Optional database data source name. Defaults to DefaultSQLiteDSN.
	DBDataSourceName string

	// Optional name of the table to store session metadata.
	// Defaults to "agent_sessions".
	SessionTable string

	// Optional name of the table to store message data.
	// Defaults to "agent_messages".
	MessagesTable string
}

// NewSQLiteSession opens the database and creates the schema if needed.
func NewSQLiteSession(ctx context.Context, params SQLiteSessionParams) (_ *SQLiteSession, err error) {
	db, err := sql.Open("sqlite3", cmp.Or(params.DBDataSourceName, DefaultSQLiteDSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, db.Close())
		}
	}()

	// SQLite serializes writers anyway. A single connection also keeps a
	// shared in-memory database alive for the lifetime of the session.
	db.SetMaxOpenConns(1)

	s := &SQLiteSession{
		sessionID: params.SessionID,
		db:        db,
		queries: newSessionQueries(
			dialectSQLite,
			cmp.Or(params.SessionTable, "agent_sessions"),
			cmp.Or(params.MessagesTable, "agent_messages"),
		),
	}

	if _, err = db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if err = s.initDB(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSession) initDB(ctx context.Context) error {
	for _, q := range s.queries.schema() {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create session schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteSession) SessionID(context.Context) string {
	return s.sessionID
}

func (s *SQLiteSession) GetItems(ctx context.Context, limit int) (_ []chat.Message, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, s.queries.selectLatest, s.sessionID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, s.queries.selectAll, s.sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session items: %w", err)
	}
	defer func() { err = errors.Join(err, rows.Close()) }()

	var items []chat.Message
	for rows.Next() {
		var role, data string
		if err = rows.Scan(&role, &data); err != nil {
			return nil, fmt.Errorf("failed to scan session item: %w", err)
		}
		item, err := unmarshalMessageData(data)
		if err != nil || item.Role != chat.Role(role) {
			// Corrupted rows are skipped.
			continue
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session items: %w", err)
	}

	if limit > 0 {
		slices.Reverse(items)
		items = dropLeadingToolOutputs(items)
	}
	return items, nil
}

func (s *SQLiteSession) AddItems(ctx context.Context, items []chat.Message) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) (err error) {
		if _, err = tx.ExecContext(ctx, s.queries.ensureSession, s.sessionID); err != nil {
			return fmt.Errorf("failed to create session row: %w", err)
		}

		insert, err := tx.PrepareContext(ctx, s.queries.insertMessage)
		if err != nil {
			return fmt.Errorf("failed to prepare message insert: %w", err)
		}
		defer func() { err = errors.Join(err, insert.Close()) }()

		for _, item := range items {
			data, err := marshalMessageData(item)
			if err != nil {
				return fmt.Errorf("failed to encode session item: %w", err)
			}
			if _, err = insert.ExecContext(ctx, s.sessionID, string(item.Role), data); err != nil {
				return fmt.Errorf("failed to insert session item: %w", err)
			}
		}

		if _, err = tx.ExecContext(ctx, s.queries.touchSession, s.sessionID); err != nil {
			return fmt.Errorf("failed to update session timestamp: %w", err)
		}
		return nil
	})
}

func (s *SQLiteSession) PopItem(ctx context.Context) (*chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data string
	err := s.db.QueryRowContext(ctx, s.queries.popLatest, s.sessionID).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to pop session item: %w", err)
	}

	item, err := unmarshalMessageData(data)
	if err != nil {
		// The corrupted row is gone anyway.
		return nil, nil
	}
	return &item, nil
}

func (s *SQLiteSession) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.queries.deleteMessages, s.sessionID); err != nil {
			return fmt.Errorf("failed to delete session items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.queries.deleteSession, s.sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}

// withTx runs fn in a transaction, committed when fn succeeds.
func (s *SQLiteSession) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err = fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

func (s *SQLiteSession) Close(context.Context) error {
	return s.db.Close()
}
