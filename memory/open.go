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
	"strings"

	"github.com/google/uuid"
)

// Open returns a session backed by the store the data source name points to.
// "postgres://" and "postgresql://" DSNs select PostgreSQL, anything else is
// handed to SQLite. An empty sessionID is replaced by a random one.
func Open(ctx context.Context, dsn, sessionID string) (ClosableSession, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPgSession(ctx, PgSessionParams{
			SessionID:        sessionID,
			ConnectionString: dsn,
		})
	}
	return NewSQLiteSession(ctx, SQLiteSessionParams{
		SessionID:        sessionID,
		DBDataSourceName: dsn,
	})
}
