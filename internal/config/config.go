// Package config loads and validates the toolgate yaml configuration.
package config

import "fmt"

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server,omitempty"`
	Tools   ToolsConfig   `yaml:"tools,omitempty"`
	Session SessionConfig `yaml:"session,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// ServerConfig controls the tool server HTTP endpoint.
type ServerConfig struct {
	Port int    `yaml:"port,omitempty"`
	Bind string `yaml:"bind,omitempty"` // "loopback" | "lan"

	// MaxConcurrentCalls caps in-flight tool dispatches. Zero means unbounded.
	MaxConcurrentCalls int `yaml:"maxConcurrentCalls,omitempty"`
}

// Addr computes the listen address.
func (c ServerConfig) Addr() string {
	switch c.Bind {
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", c.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", c.Port)
	}
}

// ToolsConfig configures the built-in tools.
type ToolsConfig struct {
	// Root confines the filesystem tools. Defaults to the working directory.
	Root string `yaml:"root,omitempty"`

	// MaxFileBytes is the read_file size ceiling.
	MaxFileBytes int64 `yaml:"maxFileBytes,omitempty"`

	Runner RunnerConfig `yaml:"runner,omitempty"`
	OpenAI OpenAIConfig `yaml:"openai,omitempty"`
}

// RunnerConfig configures the task-runner subprocess tool.
type RunnerConfig struct {
	Command        string `yaml:"command,omitempty"`
	Dir            string `yaml:"dir,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// OpenAIConfig configures the outbound OpenAI tools.
type OpenAIConfig struct {
	APIKey     string `yaml:"apiKey,omitempty"`
	ChatModel  string `yaml:"chatModel,omitempty"`
	ImageModel string `yaml:"imageModel,omitempty"`
}

// SessionConfig configures the conversation session defaults.
type SessionConfig struct {
	Model          string   `yaml:"model,omitempty"`
	SystemPrompt   string   `yaml:"systemPrompt,omitempty"`
	MaxTokens      int      `yaml:"maxTokens,omitempty"`
	Temperature    *float64 `yaml:"temperature,omitempty"`
	ThinkingBudget int      `yaml:"thinkingBudget,omitempty"`
	MaxToolRounds  int      `yaml:"maxToolRounds,omitempty"`
	MaxAttachments int      `yaml:"maxAttachments,omitempty"`
	Debug          bool     `yaml:"debug,omitempty"`

	// APIKey is the Anthropic credential; ${ENV_VAR} references are expanded.
	APIKey string `yaml:"apiKey,omitempty"`

	// HistoryDB is the sqlite path for history persistence. Empty disables it.
	HistoryDB string `yaml:"historyDb,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

// Validate checks config consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Bind {
	case "", "loopback", "lan":
	default:
		return fmt.Errorf("server.bind %q: must be loopback or lan", c.Server.Bind)
	}
	if c.Tools.MaxFileBytes < 0 {
		return fmt.Errorf("tools.maxFileBytes must not be negative")
	}
	if c.Session.ThinkingBudget < 0 {
		return fmt.Errorf("session.thinkingBudget must not be negative")
	}
	if c.Session.ThinkingBudget > 0 && c.Session.MaxTokens > 0 &&
		c.Session.ThinkingBudget >= c.Session.MaxTokens {
		return fmt.Errorf("session.thinkingBudget must be below session.maxTokens")
	}
	return nil
}
