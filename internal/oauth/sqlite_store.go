package oauth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a FlowStore backed by SQLite, for deployments where pending
// authorizations must survive a restart or be shared across processes on one
// host. Consume uses DELETE ... RETURNING so the check-and-delete is a single
// atomic statement.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

const flowStateSchema = `
CREATE TABLE IF NOT EXISTS oauth_flow_state (
	state         TEXT PRIMARY KEY,
	provider      TEXT NOT NULL,
	code_verifier TEXT NOT NULL DEFAULT '',
	return_uri    TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL,
	expires_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_oauth_flow_state_expires ON oauth_flow_state(expires_at);
`

// NewSQLiteStore opens (or creates) the flow-state database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open flow state db: %w", err)
	}
	if _, err := db.Exec(flowStateSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create flow state schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Save stores a pending authorization with its TTL deadline.
func (s *SQLiteStore) Save(ctx context.Context, state *FlowState) error {
	created := state.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	expires := created.Add(StateTTL)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_flow_state (state, provider, code_verifier, return_uri, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		state.State, state.Provider, state.CodeVerifier, state.ReturnURI,
		created.Unix(), expires.Unix())
	return err
}

// Consume atomically deletes and returns a non-expired entry.
func (s *SQLiteStore) Consume(ctx context.Context, state string) (*FlowState, error) {
	var fs FlowState
	var createdAt int64

	err := s.db.QueryRowContext(ctx, `
		DELETE FROM oauth_flow_state
		WHERE state = ? AND expires_at > ?
		RETURNING state, provider, code_verifier, return_uri, created_at`,
		state, s.now().Unix()).
		Scan(&fs.State, &fs.Provider, &fs.CodeVerifier, &fs.ReturnURI, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, err
	}

	fs.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &fs, nil
}

// CleanupExpired removes all expired entries.
func (s *SQLiteStore) CleanupExpired(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM oauth_flow_state WHERE expires_at <= ?", s.now().Unix())
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
