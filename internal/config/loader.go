package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file and environment
func (l *Loader) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")

	// Environment overrides, e.g. SEACHAT_REDIS_ADDR, SEACHAT_ENGINE_API_KEY
	v.SetEnvPrefix("SEACHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()

	if l.configPath != "" {
		if _, err := os.Stat(l.configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", l.configPath)
		}
		v.SetConfigFile(l.configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// API key can come from the conventional provider variables too
	if cfg.Engine.APIKey == "" {
		switch cfg.Engine.Provider {
		case "anthropic":
			cfg.Engine.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			cfg.Engine.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
