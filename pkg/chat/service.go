// Package chat orchestrates one conversation turn: resolve the session,
// rebuild bounded context, call the completion provider, and persist the
// exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/nafiskhan/profilechat/internal/metrics"
	"github.com/nafiskhan/profilechat/pkg/agent"
	"github.com/nafiskhan/profilechat/pkg/profile"
	"github.com/nafiskhan/profilechat/pkg/store"
)

const maxTitleLen = 50

// Options holds completion parameters for the service.
type Options struct {
	Model           string
	Temperature     float64
	MaxTokens       int
	ContextMessages int
}

// TurnRequest is one incoming chat message. SessionID and UserID are
// optional; missing or stale identifiers are replaced.
type TurnRequest struct {
	SessionID string
	UserID    string
	Message   string
}

// TurnResponse is the completed exchange.
type TurnResponse struct {
	SessionID string
	UserID    string
	Reply     string
}

// Service handles chat turns.
type Service struct {
	store    *store.Store
	provider agent.Provider
	profile  *profile.Manager
	opts     Options
	logger   zerolog.Logger
}

// NewService creates a chat service.
func NewService(st *store.Store, provider agent.Provider, prof *profile.Manager, opts Options, logger zerolog.Logger) *Service {
	if opts.ContextMessages <= 0 {
		opts.ContextMessages = 10
	}
	return &Service{
		store:    st,
		provider: provider,
		profile:  prof,
		opts:     opts,
		logger:   logger,
	}
}

// HandleTurn runs one full exchange. The turn is persisted only after a
// successful completion, so a provider failure never leaves a partial
// exchange behind.
func (s *Service) HandleTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("message cannot be empty")
	}

	userID := req.UserID
	if userID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate user id: %w", err)
		}
		userID = id
	}

	sessionID, err := s.store.ResolveSession(ctx, req.SessionID, userID, deriveTitle(req.Message))
	if err != nil {
		metrics.RecordChatTurn("storage_error")
		return nil, err
	}

	window, err := s.store.ContextWindow(ctx, sessionID, s.opts.ContextMessages)
	if err != nil {
		metrics.RecordChatTurn("storage_error")
		return nil, err
	}

	messages := make([]agent.Message, 0, len(window)+1)
	for _, m := range window {
		messages = append(messages, agent.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, agent.Message{Role: "user", Content: req.Message})

	start := time.Now()
	completion, err := s.provider.Complete(ctx, agent.Request{
		Model:        s.opts.Model,
		SystemPrompt: s.profile.SystemPrompt(),
		Messages:     messages,
		Temperature:  s.opts.Temperature,
		MaxTokens:    s.opts.MaxTokens,
	})
	if err != nil {
		metrics.RecordChatTurn("upstream_error")
		return nil, err
	}

	if err := s.store.AppendTurn(ctx, sessionID, req.Message, completion.Content); err != nil {
		metrics.RecordChatTurn("storage_error")
		return nil, err
	}

	metrics.RecordChatTurn("ok")
	s.logger.Debug().
		Str("session_id", sessionID).
		Int("context_messages", len(window)).
		Dur("duration", time.Since(start)).
		Msg("Chat turn completed")

	return &TurnResponse{
		SessionID: sessionID,
		UserID:    userID,
		Reply:     completion.Content,
	}, nil
}

// deriveTitle builds a session title from the opening message.
func deriveTitle(message string) string {
	title := strings.Join(strings.Fields(message), " ")
	if title == "" {
		return store.DefaultTitle
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}
	return title
}
