package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/convergo/drafting-platform/internal/apperr"
	"github.com/convergo/drafting-platform/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dsn and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			site TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_conversation ON sessions(conversation_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			session_id TEXT,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id),
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func unavailable(op string, err error) error {
	return apperr.Wrap(apperr.KindPersistenceUnavailable, "storage unavailable", fmt.Errorf("%s: %w", op, err))
}

// UpsertConversation returns the conversation for site, creating it if
// absent. The insert and read-back pair is atomic with respect to
// concurrent upserts of the same site.
func (s *SQLiteStore) UpsertConversation(ctx context.Context, site string) (*model.Conversation, error) {
	id := uuid.Must(uuid.NewV7()).String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, site, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(site) DO NOTHING`,
		id, site, time.Now().UTC())
	if err != nil {
		return nil, unavailable("upsert conversation", err)
	}

	conv := &model.Conversation{}
	err = s.db.QueryRowContext(ctx,
		`SELECT id, site, created_at FROM conversations WHERE site = ?`, site).
		Scan(&conv.ID, &conv.Site, &conv.CreatedAt)
	if err != nil {
		return nil, unavailable("read conversation", err)
	}
	return conv, nil
}

// GetConversationBySite returns the conversation for site.
func (s *SQLiteStore) GetConversationBySite(ctx context.Context, site string) (*model.Conversation, error) {
	conv := &model.Conversation{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, site, created_at FROM conversations WHERE site = ?`, site).
		Scan(&conv.ID, &conv.Site, &conv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindConversationNotFound, "conversation not found")
	}
	if err != nil {
		return nil, unavailable("get conversation", err)
	}
	return conv, nil
}

// CreateSession creates a new active session under a conversation.
func (s *SQLiteStore) CreateSession(ctx context.Context, conversationID string) (*model.Session, error) {
	sess := &model.Session{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		StartedAt:      time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, conversation_id, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.ConversationID, sess.StartedAt)
	if err != nil {
		return nil, unavailable("create session", err)
	}
	return sess, nil
}

// GetSession returns a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	sess := &model.Session{}
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, started_at, ended_at FROM sessions WHERE id = ?`, sessionID).
		Scan(&sess.ID, &sess.ConversationID, &sess.StartedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindSessionNotFound, "session not found")
	}
	if err != nil {
		return nil, unavailable("get session", err)
	}
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}
	return sess, nil
}

// EndSession sets ended_at if it is still null, then returns the session.
// The guarded UPDATE makes termination set-once: a second call leaves the
// original timestamp untouched.
func (s *SQLiteStore) EndSession(ctx context.Context, sessionID string) (*model.Session, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		time.Now().UTC(), sessionID)
	if err != nil {
		return nil, unavailable("end session", err)
	}
	return s.GetSession(ctx, sessionID)
}

// CreateMessage appends an immutable message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *model.Message) error {
	var sessionID any
	if msg.SessionID != "" {
		sessionID = msg.SessionID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, session_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, sessionID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return unavailable("create message", err)
	}
	return nil
}

// ListConversationMessages returns messages for a conversation in
// chronological order, rowid breaking created_at ties.
func (s *SQLiteStore) ListConversationMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	query := `SELECT id, conversation_id, COALESCE(session_id, ''), role, content, created_at
		 FROM messages WHERE conversation_id = ?
		 ORDER BY created_at ASC, rowid ASC`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list messages", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListSessionMessages returns a session's messages in chronological order.
func (s *SQLiteStore) ListSessionMessages(ctx context.Context, conversationID, sessionID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, COALESCE(session_id, ''), role, content, created_at
		 FROM messages WHERE conversation_id = ? AND session_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		conversationID, sessionID)
	if err != nil {
		return nil, unavailable("list session messages", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// CountSessionMessages returns the number of messages in a session.
func (s *SQLiteStore) CountSessionMessages(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, unavailable("count session messages", err)
	}
	return count, nil
}

// Ping verifies the store is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, unavailable("scan message", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate messages", err)
	}
	return messages, nil
}
