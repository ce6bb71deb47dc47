// Package config holds the explicit configuration object built once at
// startup and passed to every component that needs it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petasbytes/theraia/internal/obfuscate"
)

// Providers accepted in Config.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Env      string `yaml:"env"` // "development" or "production"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Record obfuscation
	Cipher    string `yaml:"cipher"`
	CipherKey string `yaml:"cipher_key"`

	// Collaborator
	Provider            string        `yaml:"provider"`
	Model               string        `yaml:"model"`
	OpenAIAPIKey        string        `yaml:"openai_api_key"`
	OpenAIBaseURL       string        `yaml:"openai_base_url"`
	OpenAIModel         string        `yaml:"openai_model"`
	HistoryBudget       int           `yaml:"history_budget"`
	CollaboratorTimeout time.Duration `yaml:"collaborator_timeout"`

	// Sessions
	SessionTTL time.Duration `yaml:"session_ttl"`

	// Terminal driver
	RecordsDir string `yaml:"records_dir"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Env:                 "development",
		Host:                "127.0.0.1",
		Port:                8080,
		LogLevel:            "info",
		Cipher:              obfuscate.VariantRotation,
		Provider:            ProviderAnthropic,
		OpenAIBaseURL:       "https://api.openai.com/v1",
		OpenAIModel:         "gpt-4o-mini",
		HistoryBudget:       6000,
		CollaboratorTimeout: 60 * time.Second,
		SessionTTL:          2 * time.Hour,
		RecordsDir:          ".",
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// THERAIA_CONFIG (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("THERAIA_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	c.Env = getEnv("THERAIA_ENV", c.Env)
	c.Host = getEnv("THERAIA_HOST", c.Host)
	c.LogLevel = getEnv("THERAIA_LOG_LEVEL", c.LogLevel)
	c.Cipher = getEnv("THERAIA_CIPHER", c.Cipher)
	c.CipherKey = getEnv("THERAIA_CIPHER_KEY", c.CipherKey)
	c.Provider = getEnv("THERAIA_PROVIDER", c.Provider)
	c.Model = getEnv("THERAIA_MODEL", c.Model)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAIModel = getEnv("OPENAI_MODEL", c.OpenAIModel)
	c.RecordsDir = getEnv("THERAIA_RECORDS_DIR", c.RecordsDir)

	var err error
	if c.Port, err = getEnvInt("THERAIA_PORT", c.Port); err != nil {
		return err
	}
	if c.HistoryBudget, err = getEnvInt("THERAIA_HISTORY_BUDGET", c.HistoryBudget); err != nil {
		return err
	}
	if c.CollaboratorTimeout, err = getEnvDuration("THERAIA_COLLABORATOR_TIMEOUT", c.CollaboratorTimeout); err != nil {
		return err
	}
	if c.SessionTTL, err = getEnvDuration("THERAIA_SESSION_TTL", c.SessionTTL); err != nil {
		return err
	}
	return nil
}

// IsDevelopment reports whether the configuration targets a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// UsesDevKey reports whether the aes variant would run on the compiled-in key.
func (c *Config) UsesDevKey() bool {
	return c.Cipher == obfuscate.VariantAES && (c.CipherKey == "" || c.CipherKey == obfuscate.DevKey)
}

// ErrDevKeyInProduction is returned by Validate when production would use the fallback key.
var ErrDevKeyInProduction = errors.New("config: THERAIA_CIPHER_KEY must be set in production")

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	switch c.Cipher {
	case obfuscate.VariantRotation, obfuscate.VariantAES:
	default:
		return fmt.Errorf("config: unknown cipher %q", c.Cipher)
	}
	if c.Cipher == obfuscate.VariantAES {
		switch len(c.key()) {
		case 16, 24, 32:
		default:
			return fmt.Errorf("config: cipher key must be 16, 24 or 32 bytes, got %d", len(c.key()))
		}
		if !c.IsDevelopment() && c.UsesDevKey() {
			return ErrDevKeyInProduction
		}
	}
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: session ttl must be positive")
	}
	return nil
}

func (c *Config) key() []byte {
	if c.CipherKey == "" {
		return []byte(obfuscate.DevKey)
	}
	return []byte(c.CipherKey)
}

// Codec returns the configured obfuscation codec.
func (c *Config) Codec() (obfuscate.Codec, error) {
	return obfuscate.New(c.Cipher, c.key())
}

// Addr is the listen address for the HTTP driver.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, value, err)
	}
	return i, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
