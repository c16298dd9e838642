package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/nafiskhan/profilechat/internal/metrics"
)

// DefaultTitle is the display label for sessions created without one.
const DefaultTitle = "New Chat"

// Message is a single role/content entry in model-facing order.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Exchange is one transcript entry. A stored turn expands into two
// exchanges, user then assistant, sharing the turn's timestamp.
type Exchange struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionSummary describes a session in a user's recent-sessions listing.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// Store is the session persistence engine.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Config holds store configuration.
type Config struct {
	DBPath string
	Logger zerolog.Logger
}

// New opens the database, enables WAL mode, and initializes the schema.
func New(cfg Config) (*Store, error) {
	metrics.EnsureRegistered()

	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps readers from blocking the single writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:     db,
		logger: cfg.Logger,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info().Str("path", cfg.DBPath).Msg("Session store initialized")
	return s, nil
}

// initSchema creates database tables
func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT 'New Chat',
			created_at TIMESTAMP NOT NULL,
			last_activity TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

		CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			user_message TEXT NOT NULL,
			bot_response TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateSession inserts a new session owned by userID and returns its id.
// Both created_at and last_activity start at the same instant.
func (s *Store) CreateSession(ctx context.Context, userID, title string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	if title == "" {
		title = DefaultTitle
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, title, created_at, last_activity) VALUES (?, ?, ?, ?, ?)",
		id, userID, title, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	metrics.RecordSessionCreated()
	s.logger.Debug().
		Str("session_id", id).
		Str("user_id", userID).
		Msg("Session created")

	return id, nil
}

// SessionExists reports whether a session id is present in the store.
// Callers use it to decide whether a client-supplied id is still valid
// after a retention sweep may have removed it.
func (s *Store) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM sessions WHERE id = ?", sessionID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return true, nil
}

// ResolveSession returns sessionID if it still exists, otherwise creates
// a fresh session for userID and returns the new id.
func (s *Store) ResolveSession(ctx context.Context, sessionID, userID, title string) (string, error) {
	if sessionID != "" {
		exists, err := s.SessionExists(ctx, sessionID)
		if err != nil {
			return "", err
		}
		if exists {
			return sessionID, nil
		}
		s.logger.Debug().
			Str("session_id", sessionID).
			Msg("Stale session id, creating a new session")
	}
	return s.CreateSession(ctx, userID, title)
}

// AppendTurn writes one exchange and touches the owning session's
// last_activity with the same timestamp, in a single transaction.
// Returns ErrNotFound if the session does not exist; no dangling turn
// is ever written.
func (s *Store) AppendTurn(ctx context.Context, sessionID, userMessage, botResponse string) error {
	start := time.Now()
	defer func() {
		metrics.RecordTurnSave(time.Since(start))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	res, err := tx.ExecContext(ctx,
		"UPDATE sessions SET last_activity = ? WHERE id = ?",
		now, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("append turn to %s: %w", sessionID, ErrNotFound)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO turns (session_id, user_message, bot_response, timestamp) VALUES (?, ?, ?, ?)",
		sessionID, userMessage, botResponse, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}

	s.logger.Debug().
		Str("session_id", sessionID).
		Msg("Turn appended")

	return nil
}

// FullHistory returns every turn of a session in insertion order, each
// expanded into a user entry followed by its paired assistant entry.
// Unbounded; meant for transcript display, not for model context.
func (s *Store) FullHistory(ctx context.Context, sessionID string) ([]Exchange, error) {
	start := time.Now()
	defer func() {
		metrics.RecordHistoryLoad(time.Since(start))
	}()

	if err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_message, bot_response, timestamp
		 FROM turns
		 WHERE session_id = ?
		 ORDER BY timestamp ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	history := []Exchange{}
	for rows.Next() {
		var userMsg, botResp string
		var ts time.Time
		if err := rows.Scan(&userMsg, &botResp, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		history = append(history,
			Exchange{Role: "user", Content: userMsg, Timestamp: ts},
			Exchange{Role: "assistant", Content: botResp, Timestamp: ts},
		)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return history, nil
}

// ContextWindow returns the most recent turns of a session as role/content
// entries in chronological order, capped at maxMessages entries. Each turn
// contributes two entries, so the window holds the last maxMessages/2
// turns. An existing session with no turns yields an empty slice.
func (s *Store) ContextWindow(ctx context.Context, sessionID string, maxMessages int) ([]Message, error) {
	start := time.Now()
	defer func() {
		metrics.RecordContextLoad(time.Since(start))
	}()

	if err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	maxTurns := maxMessages / 2
	if maxTurns <= 0 {
		return []Message{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_message, bot_response
		 FROM turns
		 WHERE session_id = ?
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ?`,
		sessionID, maxTurns,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query context window: %w", err)
	}
	defer rows.Close()

	type turn struct {
		userMsg string
		botResp string
	}
	var turns []turn
	for rows.Next() {
		var t turn
		if err := rows.Scan(&t.userMsg, &t.botResp); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read context window: %w", err)
	}

	// Rows come newest first; walk backwards for chronological order.
	window := make([]Message, 0, len(turns)*2)
	for i := len(turns) - 1; i >= 0; i-- {
		window = append(window,
			Message{Role: "user", Content: turns[i].userMsg},
			Message{Role: "assistant", Content: turns[i].botResp},
		)
	}

	return window, nil
}

// ListRecentSessions returns up to limit sessions owned by userID,
// most recently active first. Sessions without turns are included with
// MessageCount zero.
func (s *Store) ListRecentSessions(ctx context.Context, userID string, limit int) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.title, s.created_at, s.last_activity, COUNT(t.id)
		 FROM sessions s
		 LEFT JOIN turns t ON s.id = t.session_id
		 WHERE s.user_id = ?
		 GROUP BY s.id
		 ORDER BY s.last_activity DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionSummary{}
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.CreatedAt, &sum.LastActivity, &sum.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}

	return sessions, nil
}

// PurgeStale deletes sessions whose last_activity is older than
// retentionDays, turns first then sessions, in one transaction so a
// failure never leaves a session without its turns half-removed.
// Returns the number of sessions deleted; a sweep with nothing stale
// is a no-op.
func (s *Store) PurgeStale(ctx context.Context, retentionDays int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM turns
		 WHERE session_id IN (
			SELECT id FROM sessions WHERE last_activity < ?
		 )`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale turns: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM sessions WHERE last_activity < ?", cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale sessions: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit purge: %w", err)
	}

	if deleted > 0 {
		metrics.RecordSessionsPurged(int(deleted))
		s.logger.Info().
			Int64("deleted", deleted).
			Int("retention_days", retentionDays).
			Msg("Purged stale sessions")
	}

	return int(deleted), nil
}

// requireSession distinguishes a missing session from an empty history.
func (s *Store) requireSession(ctx context.Context, sessionID string) error {
	exists, err := s.SessionExists(ctx, sessionID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.logger.Info().Msg("Closing session store")
	return s.db.Close()
}
