// Package profile manages the profile document the assistant answers
// questions about. The document is an opaque text blob injected into the
// system prompt; it can be replaced over the API or by editing the file
// on disk.
package profile

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const systemPromptTemplate = `You are a friendly, approachable assistant speaking on behalf of the person described below. You are chatting with someone who wants to know about them. Answer as if you are personally answering questions about yourself, and never mention that you are an AI.

Profile Information:
{profile_content}

Guidelines:
1. Answer questions about the professional background, skills, and experience described above
2. For completely unrelated topics, politely redirect the conversation back to the profile
3. Be conversational and friendly
4. If you don't have specific information, say so honestly
5. Keep responses short; use bullet points for lists and only go long when asked for detail`

// Manager holds the profile document and builds the system prompt.
type Manager struct {
	path    string
	logger  zerolog.Logger
	mu      sync.RWMutex
	content string
}

// NewManager loads the profile document from path.
func NewManager(path string, logger zerolog.Logger) (*Manager, error) {
	if path == "" {
		return nil, fmt.Errorf("profile path is required")
	}

	m := &Manager{
		path:   path,
		logger: logger,
	}

	if err := m.Reload(); err != nil {
		return nil, err
	}

	return m, nil
}

// Reload re-reads the document from disk.
func (m *Manager) Reload() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to read profile document: %w", err)
	}

	m.mu.Lock()
	m.content = string(data)
	m.mu.Unlock()

	m.logger.Info().
		Str("path", m.path).
		Int("bytes", len(data)).
		Msg("Profile document loaded")

	return nil
}

// Content returns the current document text.
func (m *Manager) Content() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.content
}

// SystemPrompt returns the completion system prompt with the document
// injected.
func (m *Manager) SystemPrompt() string {
	return strings.ReplaceAll(systemPromptTemplate, "{profile_content}", m.Content())
}

// Update replaces the document on disk and in memory.
func (m *Manager) Update(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("profile content cannot be empty")
	}

	if err := os.WriteFile(m.path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write profile document: %w", err)
	}

	m.mu.Lock()
	m.content = content
	m.mu.Unlock()

	m.logger.Info().
		Str("path", m.path).
		Int("bytes", len(content)).
		Msg("Profile document updated")

	return nil
}

// Path returns the document location on disk.
func (m *Manager) Path() string {
	return m.path
}
