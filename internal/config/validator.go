package config

import (
	"encoding/json"
	"fmt"

	"github.com/robfig/cron/v3"
)

var supportedProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
}

// Validate checks the configuration for inconsistencies that would only
// surface at runtime otherwise.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if !supportedProviders[c.Completion.Provider] {
		return fmt.Errorf("unsupported completion provider: %s", c.Completion.Provider)
	}
	if c.Completion.Model == "" {
		return fmt.Errorf("completion model is required")
	}
	if c.Completion.MaxTokens <= 0 {
		return fmt.Errorf("completion max_tokens must be positive")
	}
	if c.Completion.ContextMessages < 0 {
		return fmt.Errorf("completion context_messages cannot be negative")
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("completion temperature must be between 0 and 2")
	}

	if c.Profile.Path == "" {
		return fmt.Errorf("profile path is required")
	}

	if c.Retention.Days <= 0 {
		return fmt.Errorf("retention days must be positive")
	}
	if c.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(c.Retention.Schedule); err != nil {
			return fmt.Errorf("invalid retention schedule: %w", err)
		}
	}

	return nil
}

// marshalConfig renders the configuration as indented JSON.
func marshalConfig(cfg *Config) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return append(data, '\n'), nil
}
