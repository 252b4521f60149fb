// Package sqlite implements a durable, single-node ConversationStore on
// SQLite. Conversations survive process restarts; appends for one key are
// atomic transactions, so concurrent turns cannot interleave within a
// single message write.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tobhei/docuchat/core"
)

// Store is a SQLite-backed core.ConversationStore.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path. WAL mode keeps
// concurrent readers from blocking the single writer.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewWithDB wraps an existing connection (used by tests and callers that
// share one database file across stores).
func NewWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS conversations (
			user_id    TEXT NOT NULL,
			session_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, session_id)
		);

		CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			session_id TEXT NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_key ON messages(user_id, session_id);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load implements core.ConversationStore. Rowid ordering reflects insert
// order even when timestamps collide.
func (s *Store) Load(ctx context.Context, userID, sessionID string) ([]core.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, created_at FROM messages
		WHERE user_id = ? AND session_id = ?
		ORDER BY rowid
	`, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	msgs := []core.Message{}
	for rows.Next() {
		var m core.Message
		var role, ts string
		if err := rows.Scan(&m.ID, &role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = core.Role(role)
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// Append implements core.ConversationStore. The conversation upsert and
// the message insert commit in one transaction; created_at is set only on
// the first write for the key.
func (s *Store) Append(ctx context.Context, userID, sessionID string, role core.Role, content string) (core.Message, error) {
	ts := time.Now().UTC()
	now := ts.Format(time.RFC3339Nano)

	msg := core.Message{
		ID:      uuid.New().String(),
		Role:    role,
		Content: content,
	}
	// Round-trip through the stored format so the returned timestamp is
	// byte-identical to what a later Load parses.
	msg.Timestamp, _ = time.Parse(time.RFC3339Nano, now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Message{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (user_id, session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, session_id) DO UPDATE SET updated_at = excluded.updated_at
	`, userID, sessionID, now, now); err != nil {
		return core.Message{}, fmt.Errorf("upsert conversation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, user_id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, userID, sessionID, string(role), content, now); err != nil {
		return core.Message{}, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Message{}, fmt.Errorf("commit append: %w", err)
	}
	return msg, nil
}

// Clear implements core.ConversationStore. The conversation row survives
// so the session identity is preserved.
func (s *Store) Clear(ctx context.Context, userID, sessionID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM messages WHERE user_id = ? AND session_id = ?
	`, userID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("clear messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleared messages: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE user_id = ? AND session_id = ?
	`, now, userID, sessionID); err != nil {
		return int(n), fmt.Errorf("touch conversation: %w", err)
	}
	return int(n), nil
}

// History implements core.ConversationStore.
func (s *Store) History(ctx context.Context, userID, sessionID string) (string, error) {
	msgs, err := s.Load(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}
	return core.FormatHistory(msgs), nil
}

// Conversation returns the stored metadata for a key, or nil when the
// conversation has never been written.
func (s *Store) Conversation(ctx context.Context, userID, sessionID string) (*core.Conversation, error) {
	var created, updated string
	err := s.db.QueryRowContext(ctx, `
		SELECT created_at, updated_at FROM conversations
		WHERE user_id = ? AND session_id = ?
	`, userID, sessionID).Scan(&created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	conv := &core.Conversation{UserID: userID, SessionID: sessionID}
	conv.Created, _ = time.Parse(time.RFC3339Nano, created)
	conv.Updated, _ = time.Parse(time.RFC3339Nano, updated)
	return conv, nil
}
