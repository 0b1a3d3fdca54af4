package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/billybjork/pixel-toaster/internal/appdirs"
	"github.com/pelletier/go-toml/v2"
)

// ProviderConfig describes one reasoning-service backend. Type "openai"
// talks to a chat-completions HTTP endpoint; type "command" shells out
// to a local agent CLI such as claude or codex.
type ProviderConfig struct {
	Type           string   `toml:"type,omitempty" json:"type,omitempty"`
	Enabled        *bool    `toml:"enabled,omitempty" json:"enabled,omitempty"`
	Model          string   `toml:"model" json:"model"`
	BaseURL        string   `toml:"base_url,omitempty" json:"base_url,omitempty"`
	APIKey         string   `toml:"api_key,omitempty" json:"api_key,omitempty"`
	APIKeyEnv      string   `toml:"api_key_env,omitempty" json:"api_key_env,omitempty"`
	Temperature    float64  `toml:"temperature,omitempty" json:"temperature,omitempty"`
	TimeoutSeconds int      `toml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
	Command        string   `toml:"command,omitempty" json:"command,omitempty"`
	ModelFlag      string   `toml:"model_flag,omitempty" json:"model_flag,omitempty"`
	Args           []string `toml:"args,omitempty" json:"args,omitempty"`
}

type SessionConfig struct {
	MaxAttempts     int    `toml:"max_attempts" json:"max_attempts"`
	Mode            string `toml:"mode" json:"mode"`
	MaxPromptFiles  int    `toml:"max_prompt_files" json:"max_prompt_files"`
	MaxErrorContext int    `toml:"max_error_context" json:"max_error_context"`
}

// BatchConfig is the tunable batch-intent classifier: which words in a
// prompt signal a multi-file request, and how many same-kind files must
// be present before loop generation is requested.
type BatchConfig struct {
	Cues     []string `toml:"cues" json:"cues"`
	MinFiles int      `toml:"min_files" json:"min_files"`
}

type LoggingConfig struct {
	Level  string `toml:"level" json:"level"`
	ToFile bool   `toml:"to_file" json:"to_file"`
}

type UIConfig struct {
	Backend string `toml:"backend" json:"backend"`
}

type Config struct {
	Version   int                       `toml:"version" json:"version"`
	Provider  string                    `toml:"provider" json:"provider"`
	Providers map[string]ProviderConfig `toml:"providers" json:"providers"`
	Session   SessionConfig             `toml:"session" json:"session"`
	Batch     BatchConfig               `toml:"batch" json:"batch"`
	Logging   LoggingConfig             `toml:"logging" json:"logging"`
	UI        UIConfig                  `toml:"ui" json:"ui"`
}

func Default() Config {
	return Config{
		Version:   1,
		Provider:  "openai",
		Providers: defaultProviderCatalog(),
		Session: SessionConfig{
			MaxAttempts:     3,
			Mode:            "confirm",
			MaxPromptFiles:  15,
			MaxErrorContext: 2000,
		},
		Batch: BatchConfig{
			Cues:     defaultBatchCues(),
			MinFiles: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			ToFile: true,
		},
		UI: UIConfig{
			Backend: "huh",
		},
	}
}

func defaultBatchCues() []string {
	return []string{"all", "every", "each", "batch", "everything"}
}

func defaultProviderCatalog() map[string]ProviderConfig {
	openaiEnabled := true
	claudeEnabled := true

	return map[string]ProviderConfig{
		"openai": {
			Type:           "openai",
			Enabled:        &openaiEnabled,
			Model:          "gpt-4o-mini",
			BaseURL:        "https://api.openai.com/v1/chat/completions",
			APIKeyEnv:      "OPENAI_API_KEY",
			Temperature:    0.1,
			TimeoutSeconds: 120,
		},
		"claude": {
			Type:      "command",
			Enabled:   &claudeEnabled,
			Command:   "claude",
			Model:     "sonnet",
			ModelFlag: "--model",
			Args: []string{
				"-p",
				"--model",
				"{model}",
				"{prompt}",
			},
		},
	}
}

func LoadOrCreate() (Config, string, error) {
	path, err := appdirs.ConfigFilePath()
	if err != nil {
		return Config{}, "", err
	}

	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if _, err := appdirs.EnsureConfigDir(); err != nil {
			return Config{}, "", err
		}
		if err := Save(path, cfg); err != nil {
			return Config{}, "", err
		}
		return cfg, path, nil
	}
	if err != nil {
		return Config{}, "", fmt.Errorf("could not stat config path: %w", err)
	}

	loaded, err := Load(path)
	if err != nil {
		return Config{}, "", err
	}
	return loaded, path, nil
}

func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config file: %w", err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("could not parse config file: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func Save(path string, cfg Config) error {
	cfg.normalize()
	payload, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("could not serialize config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("could not create config dir: %w", err)
	}

	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, ".toast-config-*.toml")
	if err != nil {
		return fmt.Errorf("could not create temp config file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := func() {
		_ = os.Remove(tempPath)
	}

	if _, err := tempFile.Write(payload); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("could not write temp config file: %w", err)
	}
	if err := tempFile.Chmod(0o600); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("could not secure temp config file permissions: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return fmt.Errorf("could not close temp config file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		cleanup()
		return fmt.Errorf("could not atomically replace config file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("could not secure config file permissions: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	defaults := Default()
	if c.Version == 0 {
		c.Version = defaults.Version
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = defaults.Provider
	}

	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	for name, providerDefaults := range defaults.Providers {
		target, ok := c.Providers[name]
		if !ok {
			c.Providers[name] = providerDefaults
			continue
		}
		mergeProviderDefaults(&target, providerDefaults)
		c.Providers[name] = target
	}

	if c.Session.MaxAttempts <= 0 {
		c.Session.MaxAttempts = defaults.Session.MaxAttempts
	}
	if c.Session.MaxAttempts > 10 {
		c.Session.MaxAttempts = 10
	}
	c.Session.Mode = normalizeMode(c.Session.Mode, defaults.Session.Mode)
	if c.Session.MaxPromptFiles <= 0 {
		c.Session.MaxPromptFiles = defaults.Session.MaxPromptFiles
	}
	if c.Session.MaxErrorContext <= 0 {
		c.Session.MaxErrorContext = defaults.Session.MaxErrorContext
	}

	c.Batch.Cues = normalizeCues(c.Batch.Cues)
	if len(c.Batch.Cues) == 0 {
		c.Batch.Cues = defaults.Batch.Cues
	}
	if c.Batch.MinFiles < 2 {
		c.Batch.MinFiles = defaults.Batch.MinFiles
	}

	c.Logging.Level = normalizeLogLevel(c.Logging.Level, defaults.Logging.Level)
	c.UI.Backend = normalizeUIBackend(c.UI.Backend, defaults.UI.Backend)
}

func mergeProviderDefaults(target *ProviderConfig, defaults ProviderConfig) {
	if strings.TrimSpace(target.Type) == "" {
		target.Type = defaults.Type
	}
	if target.Enabled == nil {
		target.Enabled = defaults.Enabled
	}
	if strings.TrimSpace(target.Model) == "" {
		target.Model = defaults.Model
	}
	if strings.TrimSpace(target.BaseURL) == "" {
		target.BaseURL = defaults.BaseURL
	}
	if strings.TrimSpace(target.APIKeyEnv) == "" {
		target.APIKeyEnv = defaults.APIKeyEnv
	}
	if target.Temperature == 0 {
		target.Temperature = defaults.Temperature
	}
	if target.TimeoutSeconds <= 0 {
		target.TimeoutSeconds = defaults.TimeoutSeconds
	}
	if strings.TrimSpace(target.Command) == "" {
		target.Command = defaults.Command
	}
	if strings.TrimSpace(target.ModelFlag) == "" {
		target.ModelFlag = defaults.ModelFlag
	}
	if len(target.Args) == 0 && len(defaults.Args) > 0 {
		target.Args = append([]string(nil), defaults.Args...)
	}
}

// ResolveAPIKey prefers the inline key, then the configured environment
// variable, so the secret never has to live on disk.
func (p ProviderConfig) ResolveAPIKey() string {
	if key := strings.TrimSpace(p.APIKey); key != "" {
		return key
	}
	if p.APIKeyEnv != "" {
		return strings.TrimSpace(os.Getenv(p.APIKeyEnv))
	}
	return ""
}

func (c *Config) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	switch key {
	case "provider":
		c.Provider = strings.ToLower(value)
	case "session.max_attempts":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("session.max_attempts must be a positive integer, got %q", value)
		}
		c.Session.MaxAttempts = parsed
	case "session.mode":
		c.Session.Mode = value
	case "session.max_prompt_files":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("session.max_prompt_files must be a positive integer, got %q", value)
		}
		c.Session.MaxPromptFiles = parsed
	case "batch.cues":
		c.Batch.Cues = splitCommaList(value)
	case "batch.min_files":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 2 {
			return fmt.Errorf("batch.min_files must be an integer >= 2, got %q", value)
		}
		c.Batch.MinFiles = parsed
	case "logging.level":
		c.Logging.Level = value
	case "logging.to_file":
		parsed, err := parseBool(value)
		if err != nil {
			return err
		}
		c.Logging.ToFile = parsed
	case "ui.backend":
		c.UI.Backend = value
	default:
		if strings.HasPrefix(key, "providers.") {
			return c.setProviderKey(strings.TrimPrefix(key, "providers."), value)
		}
		return fmt.Errorf("unknown config key: %s", key)
	}
	c.normalize()
	return nil
}

func (c *Config) setProviderKey(key, value string) error {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return fmt.Errorf("provider keys use providers.<name>.<field>, got providers.%s", key)
	}
	name, field := parts[0], parts[1]
	provider := c.ensureProvider(name)

	switch field {
	case "model":
		provider.Model = value
	case "api_key":
		provider.APIKey = value
	case "api_key_env":
		provider.APIKeyEnv = value
	case "base_url":
		provider.BaseURL = value
	case "command":
		provider.Command = value
	case "enabled":
		parsed, err := parseBool(value)
		if err != nil {
			return err
		}
		provider.Enabled = boolPtr(parsed)
	case "temperature":
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil || parsed < 0 || parsed > 2 {
			return fmt.Errorf("temperature must be between 0 and 2, got %q", value)
		}
		provider.Temperature = parsed
	case "timeout_seconds":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("timeout_seconds must be a positive integer, got %q", value)
		}
		provider.TimeoutSeconds = parsed
	default:
		return fmt.Errorf("unknown provider field: %s", field)
	}

	c.Providers[name] = provider
	c.normalize()
	return nil
}

func (c *Config) ensureProvider(name string) ProviderConfig {
	name = strings.ToLower(strings.TrimSpace(name))
	if provider, ok := c.Providers[name]; ok {
		return provider
	}
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	provider := ProviderConfig{Type: "command", Command: name, Model: name}
	c.Providers[name] = provider
	return provider
}

func (c Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeMode(value, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "confirm":
		return "confirm"
	case "auto":
		return "auto"
	default:
		return fallback
	}
}

func normalizeLogLevel(value, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug", "info", "warn", "error":
		return strings.ToLower(strings.TrimSpace(value))
	default:
		return fallback
	}
}

func normalizeUIBackend(value, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "bubbletea", "huh", "tview", "plain":
		return strings.ToLower(strings.TrimSpace(value))
	case "auto", "":
		return fallback
	default:
		return fallback
	}
}

func normalizeCues(values []string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, value := range values {
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func splitCommaList(value string) []string {
	parts := strings.Split(value, ",")
	return normalizeCues(parts)
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected a boolean, got %q", value)
	}
}

func boolPtr(v bool) *bool {
	return &v
}
