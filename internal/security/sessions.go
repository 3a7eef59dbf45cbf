package security

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
)

const sessionKeyFlash = "flash"

// SessionManager wraps scs.SessionManager with flash message helpers.
type SessionManager struct {
	*scs.SessionManager
}

// NewSQLiteSessionStore creates the sessions table if needed and returns a
// store backed by it.
func NewSQLiteSessionStore(sqlDB *sql.DB) (scs.Store, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}
	return sqlite3store.New(sqlDB), nil
}

// NewMemorySessionStore returns an in-process store, used when the main
// database is not SQLite.
func NewMemorySessionStore() scs.Store {
	return memstore.New()
}

// NewSessionManager creates a configured session manager.
func NewSessionManager(store scs.Store, lifetime time.Duration, secureCookies bool) *SessionManager {
	sm := scs.New()
	sm.Store = store
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}
}

// PutFlash stores a message shown once on the next rendered page.
func (sm *SessionManager) PutFlash(ctx context.Context, message string) {
	sm.Put(ctx, sessionKeyFlash, message)
}

// PopFlash returns and clears the pending flash message.
func (sm *SessionManager) PopFlash(ctx context.Context) string {
	return sm.PopString(ctx, sessionKeyFlash)
}
