package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for invalid or inconsistent values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}

	switch c.Engine.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported engine provider: %s", c.Engine.Provider)
	}
	if c.Engine.Model == "" {
		return fmt.Errorf("engine model cannot be empty")
	}

	if c.Session.StaticDir == "" {
		return fmt.Errorf("session static_dir cannot be empty")
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session idle_timeout must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session sweep_interval must be positive")
	}

	if c.Upload.MaxFileBytes <= 0 {
		return fmt.Errorf("upload max_file_bytes must be positive")
	}
	if c.Upload.MaxFilesPerSession <= 0 {
		return fmt.Errorf("upload max_files_per_session must be positive")
	}
	for _, ext := range c.Upload.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("allowed extension must start with a dot: %q", ext)
		}
	}

	if c.RateLimit.ChatPerMinute <= 0 || c.RateLimit.UploadPerMinute <= 0 {
		return fmt.Errorf("rate limit budgets must be positive")
	}

	if c.Scanner.Enabled && c.Scanner.Addr == "" {
		return fmt.Errorf("scanner addr cannot be empty when scanner is enabled")
	}

	return nil
}
