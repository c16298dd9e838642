package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	s, err := New(Config{
		DBPath: dbPath,
		Logger: logger,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// backdate shifts a session's last_activity for retention tests.
func backdate(t *testing.T, s *Store, sessionID string, age time.Duration) {
	t.Helper()
	past := time.Now().UTC().Add(-age)
	_, err := s.db.Exec("UPDATE sessions SET last_activity = ? WHERE id = ?", past, sessionID)
	require.NoError(t, err)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{DBPath: ""})
	assert.Error(t, err)
}

func TestCreateSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "user-1", "First chat")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	exists, err := s.SessionExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	// ids are never reused
	id2, err := s.CreateSession(ctx, "user-1", "Second chat")
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestCreateSession_RequiresUser(t *testing.T) {
	s := createTestStore(t)

	_, err := s.CreateSession(context.Background(), "", "title")
	assert.Error(t, err)
}

func TestSessionExists_Missing(t *testing.T) {
	s := createTestStore(t)

	exists, err := s.SessionExists(context.Background(), "never-created")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestResolveSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Empty id creates a session
	id, err := s.ResolveSession(ctx, "", "user-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	// Valid id is returned as-is
	same, err := s.ResolveSession(ctx, id, "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, id, same)

	// Stale id is replaced
	fresh, err := s.ResolveSession(ctx, "purged-long-ago", "user-1", "")
	require.NoError(t, err)
	assert.NotEqual(t, "purged-long-ago", fresh)

	exists, err := s.SessionExists(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAppendTurn_MissingSession(t *testing.T) {
	s := createTestStore(t)

	err := s.AppendTurn(context.Background(), "no-such-session", "hi", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	// No dangling turn was written
	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM turns").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestAppendTurn_TouchesLastActivity(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "user-1", "")
	require.NoError(t, err)

	backdate(t, s, id, 48*time.Hour)

	require.NoError(t, s.AppendTurn(ctx, id, "hi", "hello"))

	var lastActivity time.Time
	var turnTS time.Time
	require.NoError(t, s.db.QueryRow("SELECT last_activity FROM sessions WHERE id = ?", id).Scan(&lastActivity))
	require.NoError(t, s.db.QueryRow("SELECT timestamp FROM turns WHERE session_id = ?", id).Scan(&turnTS))

	// Session touch and turn insert share the same instant
	assert.True(t, lastActivity.Equal(turnTS))
	assert.WithinDuration(t, time.Now().UTC(), lastActivity, time.Minute)
}

func TestFullHistory_Order(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "user-1", "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendTurn(ctx, id, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)))
	}

	history, err := s.FullHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 6)

	for i := 0; i < 3; i++ {
		userEntry := history[i*2]
		botEntry := history[i*2+1]

		assert.Equal(t, "user", userEntry.Role)
		assert.Equal(t, fmt.Sprintf("q%d", i), userEntry.Content)
		assert.Equal(t, "assistant", botEntry.Role)
		assert.Equal(t, fmt.Sprintf("a%d", i), botEntry.Content)
		// Paired entries carry the turn's timestamp
		assert.True(t, userEntry.Timestamp.Equal(botEntry.Timestamp))
	}
}

func TestFullHistory_MissingSession(t *testing.T) {
	s := createTestStore(t)

	_, err := s.FullHistory(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFullHistory_EmptySession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "user-1", "")
	require.NoError(t, err)

	history, err := s.FullHistory(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestContextWindow(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "user-1", "")
	require.NoError(t, err)

	// Empty session yields an empty window, not an error
	window, err := s.ContextWindow(ctx, id, 8)
	require.NoError(t, err)
	assert.Empty(t, window)

	require.NoError(t, s.AppendTurn(ctx, id, "hi", "hello"))

	window, err = s.ContextWindow(ctx, id, 8)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, Message{Role: "user", Content: "hi"}, window[0])
	assert.Equal(t, Message{Role: "assistant", Content: "hello"}, window[1])

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendTurn(ctx, id, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)))
	}

	// max_messages=4 keeps only the last 2 turns, chronological order
	window, err = s.ContextWindow(ctx, id, 4)
	require.NoError(t, err)
	require.Len(t, window, 4)
	assert.Equal(t, Message{Role: "user", Content: "q3"}, window[0])
	assert.Equal(t, Message{Role: "assistant", Content: "a3"}, window[1])
	assert.Equal(t, Message{Role: "user", Content: "q4"}, window[2])
	assert.Equal(t, Message{Role: "assistant", Content: "a4"}, window[3])

	// Never more than max_messages entries
	window, err = s.ContextWindow(ctx, id, 8)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(window), 8)
}

func TestContextWindow_OddLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "user-1", "")
	require.NoError(t, err)
	require.NoError(t, s.AppendTurn(ctx, id, "q0", "a0"))
	require.NoError(t, s.AppendTurn(ctx, id, "q1", "a1"))

	// floor(3/2)=1 turn, 2 entries
	window, err := s.ContextWindow(ctx, id, 3)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "q1", window[0].Content)

	// floor(1/2)=0 turns
	window, err = s.ContextWindow(ctx, id, 1)
	require.NoError(t, err)
	assert.Empty(t, window)
}

func TestContextWindow_MissingSession(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ContextWindow(context.Background(), "nope", 8)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRecentSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 7; i++ {
		id, err := s.CreateSession(ctx, "user-1", fmt.Sprintf("chat %d", i))
		require.NoError(t, err)
		ids = append(ids, id)
		// Spread last_activity so ordering is unambiguous
		backdate(t, s, id, time.Duration(7-i)*time.Hour)
	}

	// Another user's sessions must not leak in
	_, err := s.CreateSession(ctx, "user-2", "other")
	require.NoError(t, err)

	sessions, err := s.ListRecentSessions(ctx, "user-1", 5)
	require.NoError(t, err)
	require.Len(t, sessions, 5)

	// Ordered by last_activity descending
	for i := 1; i < len(sessions); i++ {
		assert.False(t, sessions[i].LastActivity.After(sessions[i-1].LastActivity))
	}
	assert.Equal(t, ids[6], sessions[0].ID)

	// Zero-turn sessions appear with count 0
	assert.Equal(t, 0, sessions[0].MessageCount)

	require.NoError(t, s.AppendTurn(ctx, ids[6], "hi", "hello"))
	sessions, err = s.ListRecentSessions(ctx, "user-1", 5)
	require.NoError(t, err)
	assert.Equal(t, ids[6], sessions[0].ID)
	assert.Equal(t, 1, sessions[0].MessageCount)
}

func TestListRecentSessions_NoSessions(t *testing.T) {
	s := createTestStore(t)

	sessions, err := s.ListRecentSessions(context.Background(), "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestPurgeStale(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	stale, err := s.CreateSession(ctx, "user-1", "old")
	require.NoError(t, err)
	require.NoError(t, s.AppendTurn(ctx, stale, "hi", "hello"))
	backdate(t, s, stale, 31*24*time.Hour)

	fresh, err := s.CreateSession(ctx, "user-1", "recent")
	require.NoError(t, err)
	require.NoError(t, s.AppendTurn(ctx, fresh, "hey", "hi there"))
	backdate(t, s, fresh, 29*24*time.Hour)

	deleted, err := s.PurgeStale(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	exists, err := s.SessionExists(ctx, stale)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.SessionExists(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, exists)

	// The stale session's turns went with it
	var orphans int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM turns WHERE session_id = ?", stale).Scan(&orphans))
	assert.Equal(t, 0, orphans)

	// Idempotent: a second sweep is a no-op
	deleted, err = s.PurgeStale(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestPurgeStale_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	deleted, err := s.PurgeStale(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

// Scenario from the API contract: one turn, then five more, with a
// narrowing window.
func TestConversationScenario(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "u1", "")
	require.NoError(t, err)

	require.NoError(t, s.AppendTurn(ctx, id, "hi", "hello"))

	window, err := s.ContextWindow(ctx, id, 8)
	require.NoError(t, err)
	require.Equal(t, []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}, window)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendTurn(ctx, id, fmt.Sprintf("more-%d", i), fmt.Sprintf("reply-%d", i)))
	}

	window, err = s.ContextWindow(ctx, id, 4)
	require.NoError(t, err)
	require.Equal(t, []Message{
		{Role: "user", Content: "more-3"},
		{Role: "assistant", Content: "reply-3"},
		{Role: "user", Content: "more-4"},
		{Role: "assistant", Content: "reply-4"},
	}, window)
}
