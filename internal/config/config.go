package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for the RLVR service.
type Config struct {
	LLM    LLMConfig    `json:"llm"`
	Server ServerConfig `json:"server"`
	Gym    GymConfig    `json:"gym"`
}

// LLMConfig holds the OpenAI-compatible completion API configuration.
type LLMConfig struct {
	URL         string  `json:"url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	// ForceUnitTemperature is set for models that reject a temperature
	// parameter (gpt-5 family); requests then omit the field.
	ForceUnitTemperature bool `json:"force_unit_temperature"`
}

// ServerConfig holds API server configuration.
type ServerConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	LangDir     string   `json:"lang_dir"`     // Root of the language pack tree
	Epsilon     float64  `json:"epsilon"`      // Bandit exploration rate
	CORSOrigins []string `json:"cors_origins"` // Allowed CORS origins
}

// GymConfig holds training-run configuration.
type GymConfig struct {
	OutputDir string `json:"output_dir"` // Audit logs and run results
	KSamples  int    `json:"k_samples"`
	Generator string `json:"generator"` // "mock" or "llm"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			URL:         "https://api.openai.com/v1",
			APIKey:      "",
			Model:       "gpt-5",
			MaxTokens:   2000,
			Temperature: 0.9,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			LangDir:     "lang",
			Epsilon:     0.2,
			CORSOrigins: []string{"*"},
		},
		Gym: GymConfig{
			OutputDir: "runs",
			KSamples:  4,
			Generator: "mock",
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

// envBool loads a boolean environment variable into the target pointer if set and valid
func envBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// envStringSlice loads a comma-separated environment variable into a string slice
func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load loads configuration from environment variables and config file.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	// Load LLM configuration from environment
	envString("RLVR_LLM_URL", &cfg.LLM.URL)
	envString("RLVR_LLM_API_KEY", &cfg.LLM.APIKey)
	envString("RLVR_LLM_MODEL", &cfg.LLM.Model)
	envInt("RLVR_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	envFloat("RLVR_LLM_TEMPERATURE", &cfg.LLM.Temperature)
	envBool("RLVR_LLM_FORCE_UNIT_TEMPERATURE", &cfg.LLM.ForceUnitTemperature)
	// OPENAI_API_KEY works as a fallback for compatibility with existing setups.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	// Load Server configuration from environment
	envString("RLVR_SERVER_HOST", &cfg.Server.Host)
	envInt("RLVR_SERVER_PORT", &cfg.Server.Port)
	envString("RLVR_LANG_DIR", &cfg.Server.LangDir)
	envFloat("RLVR_EPSILON", &cfg.Server.Epsilon)
	envStringSlice("RLVR_CORS_ORIGINS", &cfg.Server.CORSOrigins)

	// Load Gym configuration from environment
	envString("RLVR_OUTPUT_DIR", &cfg.Gym.OutputDir)
	envInt("RLVR_K_SAMPLES", &cfg.Gym.KSamples)
	envString("RLVR_GENERATOR", &cfg.Gym.Generator)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsLLMConfigured returns true if the completion API is usable.
func (c *Config) IsLLMConfigured() bool {
	return c.LLM.URL != "" && c.LLM.APIKey != ""
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}
	if c.Server.Epsilon < 0 || c.Server.Epsilon > 1 {
		errs = append(errs, "epsilon must be between 0 and 1")
	}
	if c.Server.LangDir == "" {
		errs = append(errs, "language pack directory is required")
	}

	// LLM validation
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "LLM temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, "LLM max_tokens must be positive")
	}
	if c.LLM.URL != "" && !isValidURL(c.LLM.URL) {
		errs = append(errs, "LLM URL must be a valid URL")
	}

	// Gym validation
	if c.Gym.KSamples < 1 {
		errs = append(errs, "gym k_samples must be at least 1")
	}
	if c.Gym.Generator != "mock" && c.Gym.Generator != "llm" {
		errs = append(errs, "gym generator must be 'mock' or 'llm'")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("RLVR_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	configPath := filepath.Join(homeDir, ".config", "rlvr", "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	altPath := filepath.Join(homeDir, ".rlvr", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
