package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Turn is a single persisted message in a chat session.
type Turn struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStore persists chat turns in SQLite, keyed by session. Each
// session is capped at maxHistory turns; older turns are trimmed on
// append.
type HistoryStore struct {
	db         *sql.DB
	maxHistory int
}

// NewHistoryStore opens (creating if needed) the history database.
func NewHistoryStore(dbPath string, maxHistory int) (*HistoryStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if maxHistory <= 0 {
		maxHistory = 50
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &HistoryStore{db: db, maxHistory: maxHistory}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *HistoryStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			mood TEXT,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// Append records a turn and trims the session to maxHistory turns.
func (s *HistoryStore) Append(ctx context.Context, sessionID, role, content, mood string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, mood, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, role, content, mood, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE session_id = ? AND id NOT IN (
			SELECT id FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?
		)`,
		sessionID, sessionID, s.maxHistory)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}

// History returns up to limit turns for the session, oldest first.
// A non-positive limit returns the full retained history.
func (s *HistoryStore) History(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 || limit > s.maxHistory {
		limit = s.maxHistory
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, mood, created_at FROM (
			SELECT id, session_id, role, content, mood, created_at
			FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var mood sql.NullString
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content, &mood, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		t.Mood = mood.String
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return turns, nil
}

// Clear deletes all turns for the session and returns how many were
// removed.
func (s *HistoryStore) Clear(ctx context.Context, sessionID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared history: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}
