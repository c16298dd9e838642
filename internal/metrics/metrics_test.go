package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerServesMetrics(t *testing.T) {
	EnsureRegistered()

	RecordSessionCreated()
	RecordSessionsPurged(3)
	RecordTurnSave(5 * time.Millisecond)
	RecordContextLoad(2 * time.Millisecond)
	RecordHistoryLoad(2 * time.Millisecond)
	RecordChatTurn("ok")
	RecordChatTurn("upstream_error")
	RecordCompletion("openai", 100*time.Millisecond, nil)
	RecordCompletion("openai", 100*time.Millisecond, errors.New("boom"))

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "sessions_created_total")
	assert.Contains(t, body, "sessions_purged_total")
	assert.Contains(t, body, "turn_save_duration_seconds")
	assert.Contains(t, body, `chat_turns_total{status="ok"}`)
	assert.Contains(t, body, `completion_errors_total{provider="openai"}`)
}
