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
	"fmt"
	"strings"
)

type sqlDialect int

const (
	dialectSQLite sqlDialect = iota
	dialectPostgres
)

// sessionQueries holds the statements of a session store, rendered once for
// a dialect and a pair of table names.
type sessionQueries struct {
	createSessions string
	createMessages string
	createIndex    string
	selectAll      string
	selectLatest   string
	ensureSession  string
	insertMessage  string
	touchSession   string
	popLatest      string
	deleteMessages string
	deleteSession  string
}

func newSessionQueries(dialect sqlDialect, sessionTable, messagesTable string) sessionQueries {
	var (
		p1, p2, p3 = "?", "?", "?"
		idColumn   = "INTEGER PRIMARY KEY AUTOINCREMENT"
		now        = "CURRENT_TIMESTAMP"
		ensure     = `INSERT OR IGNORE INTO %s (session_id) VALUES (%s)`
	)
	if dialect == dialectPostgres {
		p1, p2, p3 = "$1", "$2", "$3"
		idColumn = "BIGSERIAL PRIMARY KEY"
		now = "NOW()"
		ensure = `INSERT INTO %s (session_id) VALUES (%s) ON CONFLICT (session_id) DO NOTHING`
	}

	sessions, messages := quoteIdent(sessionTable), quoteIdent(messagesTable)
	return sessionQueries{
		createSessions: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			session_id TEXT PRIMARY KEY,
			created_at TIMESTAMP DEFAULT %[2]s,
			updated_at TIMESTAMP DEFAULT %[2]s
		)`, sessions, now),
		createMessages: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id %s,
			session_id TEXT NOT NULL REFERENCES %s (session_id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			message_data TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT %s
		)`, messages, idColumn, sessions, now),
		createIndex: fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (session_id, id)`,
			quoteIdent("idx_"+messagesTable+"_session_id"), messages),

		selectAll: fmt.Sprintf(`SELECT role, message_data FROM %s WHERE session_id = %s ORDER BY id`, messages, p1),
		// Newest first; the caller restores chronological order.
		selectLatest: fmt.Sprintf(`SELECT role, message_data FROM %s WHERE session_id = %s ORDER BY id DESC LIMIT %s`, messages, p1, p2),

		ensureSession: fmt.Sprintf(ensure, sessions, p1),
		insertMessage: fmt.Sprintf(`INSERT INTO %s (session_id, role, message_data) VALUES (%s, %s, %s)`, messages, p1, p2, p3),
		touchSession:  fmt.Sprintf(`UPDATE %s SET updated_at = %s WHERE session_id = %s`, sessions, now, p1),

		popLatest: fmt.Sprintf(`DELETE FROM %[1]s
			WHERE id = (SELECT MAX(id) FROM %[1]s WHERE session_id = %[2]s)
			RETURNING message_data`, messages, p1),

		deleteMessages: fmt.Sprintf(`DELETE FROM %s WHERE session_id = %s`, messages, p1),
		deleteSession:  fmt.Sprintf(`DELETE FROM %s WHERE session_id = %s`, sessions, p1),
	}
}

// quoteIdent quotes a table or index name. Both SQLite and PostgreSQL
// accept double-quoted identifiers.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (q sessionQueries) schema() []string {
	return []string{q.createSessions, q.createMessages, q.createIndex}
}
