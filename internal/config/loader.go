package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file omits values.
const (
	DefaultPort           = 8808
	DefaultMaxFileBytes   = 1 << 20
	DefaultRunnerTimeout  = 30
	DefaultMaxToolRounds  = 10
	DefaultMaxAttachments = 4
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so API keys can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Tools.OpenAI.APIKey = expandEnvVars(cfg.Tools.OpenAI.APIKey)
	cfg.Session.APIKey = expandEnvVars(cfg.Session.APIKey)
}

// applyDefaults fills in unset values.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Tools.Root == "" {
		cfg.Tools.Root = "."
	}
	if cfg.Tools.MaxFileBytes == 0 {
		cfg.Tools.MaxFileBytes = DefaultMaxFileBytes
	}
	if cfg.Tools.Runner.TimeoutSeconds == 0 {
		cfg.Tools.Runner.TimeoutSeconds = DefaultRunnerTimeout
	}
	if cfg.Tools.OpenAI.APIKey == "" {
		cfg.Tools.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Session.APIKey == "" {
		cfg.Session.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.Session.MaxToolRounds == 0 {
		cfg.Session.MaxToolRounds = DefaultMaxToolRounds
	}
	if cfg.Session.MaxAttachments == 0 {
		cfg.Session.MaxAttachments = DefaultMaxAttachments
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Load reads the config file at path. A missing file yields the defaults; a
// malformed or invalid file is an error.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	expandSensitiveFields(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
