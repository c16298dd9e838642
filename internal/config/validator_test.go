package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"anthropic provider", func(c *Config) { c.Completion.Provider = "anthropic" }, true},
		{"with schedule", func(c *Config) { c.Retention.Schedule = "30 2 * * *" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, false},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, false},
		{"unknown provider", func(c *Config) { c.Completion.Provider = "groq" }, false},
		{"empty model", func(c *Config) { c.Completion.Model = "" }, false},
		{"zero max tokens", func(c *Config) { c.Completion.MaxTokens = 0 }, false},
		{"negative context", func(c *Config) { c.Completion.ContextMessages = -1 }, false},
		{"temperature out of range", func(c *Config) { c.Completion.Temperature = 3 }, false},
		{"empty profile path", func(c *Config) { c.Profile.Path = "" }, false},
		{"zero retention", func(c *Config) { c.Retention.Days = 0 }, false},
		{"bad schedule", func(c *Config) { c.Retention.Schedule = "whenever" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
