package config

// Config represents the main profilechat configuration
type Config struct {
	// HTTP server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Session store
	Database DatabaseConfig `json:"database" mapstructure:"database"`

	// Completion provider
	Completion CompletionConfig `json:"completion" mapstructure:"completion"`

	// Profile document
	Profile ProfileConfig `json:"profile" mapstructure:"profile"`

	// Retention sweep
	Retention RetentionConfig `json:"retention" mapstructure:"retention"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host      string `json:"host" mapstructure:"host"`
	Port      int    `json:"port" mapstructure:"port"`
	StaticDir string `json:"static_dir" mapstructure:"static_dir"`
}

// DatabaseConfig holds session store configuration
type DatabaseConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// CompletionConfig holds completion provider configuration
type CompletionConfig struct {
	Provider        string  `json:"provider" mapstructure:"provider"` // openai, anthropic
	Model           string  `json:"model" mapstructure:"model"`
	APIKey          string  `json:"api_key" mapstructure:"api_key"`
	Temperature     float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens       int     `json:"max_tokens" mapstructure:"max_tokens"`
	ContextMessages int     `json:"context_messages" mapstructure:"context_messages"`
}

// ProfileConfig holds profile document configuration
type ProfileConfig struct {
	Path  string `json:"path" mapstructure:"path"`
	Watch bool   `json:"watch" mapstructure:"watch"`
}

// RetentionConfig holds retention sweep configuration. Schedule is a
// standard cron expression; when empty the sweep only runs on explicit
// request.
type RetentionConfig struct {
	Days     int    `json:"days" mapstructure:"days"`
	Schedule string `json:"schedule" mapstructure:"schedule"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Completion: CompletionConfig{
			Provider:        "openai",
			Model:           "gpt-4o-mini",
			Temperature:     0.7,
			MaxTokens:       1000,
			ContextMessages: 10,
		},
		Profile: ProfileConfig{
			Path:  "profile.md",
			Watch: true,
		},
		Retention: RetentionConfig{
			Days: 30,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
	}
}
