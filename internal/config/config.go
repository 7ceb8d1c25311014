package config

import (
	"time"
)

// Config represents the main seachat configuration
type Config struct {
	// Server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Redis (durable session store)
	Redis RedisConfig `json:"redis" mapstructure:"redis"`

	// Engine (per-session execution context)
	Engine EngineConfig `json:"engine" mapstructure:"engine"`

	// Session lifecycle
	Session SessionConfig `json:"session" mapstructure:"session"`

	// Upload admission control
	Upload UploadConfig `json:"upload" mapstructure:"upload"`

	// Rate limiting
	RateLimit RateLimitConfig `json:"rate_limit" mapstructure:"rate_limit"`

	// Scanner (malware verdict provider)
	Scanner ScannerConfig `json:"scanner" mapstructure:"scanner"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`

	// ExternalHost is the externally reachable base URL injected into
	// per-turn instructions so the engine can build links to session files.
	ExternalHost string `json:"external_host" mapstructure:"external_host"`

	// AllowedOrigins is the CORS origin allow-list.
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`

	// MaxBodyBytes rejects oversized POST bodies at the transport edge.
	MaxBodyBytes int64 `json:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// RedisConfig holds durable store connection settings
type RedisConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
}

// EngineConfig is the fixed construction profile for execution contexts
type EngineConfig struct {
	Provider      string  `json:"provider" mapstructure:"provider"` // openai, anthropic
	APIKey        string  `json:"api_key" mapstructure:"api_key"`
	Model         string  `json:"model" mapstructure:"model"`
	Temperature   float64 `json:"temperature" mapstructure:"temperature"`
	ContextWindow int     `json:"context_window" mapstructure:"context_window"`
	MaxTokens     int     `json:"max_tokens" mapstructure:"max_tokens"`
	MaxBudget     float64 `json:"max_budget" mapstructure:"max_budget"`
	AutoRun       bool    `json:"auto_run" mapstructure:"auto_run"`
}

// SessionConfig holds session lifecycle settings
type SessionConfig struct {
	// StaticDir is the root under which per-session directories live.
	StaticDir string `json:"static_dir" mapstructure:"static_dir"`

	// IdleTimeout is the maximum gap since last activity before a session
	// is eligible for reclamation.
	IdleTimeout time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"`

	// SweepInterval is how often the idle reaper scans live sessions.
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval"`

	// OrphanSweepSchedule is a cron spec for the on-disk orphan sweep.
	OrphanSweepSchedule string `json:"orphan_sweep_schedule" mapstructure:"orphan_sweep_schedule"`
}

// UploadConfig holds upload admission settings
type UploadConfig struct {
	MaxFileBytes       int64    `json:"max_file_bytes" mapstructure:"max_file_bytes"`
	MaxFilesPerSession int      `json:"max_files_per_session" mapstructure:"max_files_per_session"`
	AllowedExtensions  []string `json:"allowed_extensions" mapstructure:"allowed_extensions"`
}

// RateLimitConfig holds per-route-class request budgets (per minute, per IP)
type RateLimitConfig struct {
	ChatPerMinute   int `json:"chat_per_minute" mapstructure:"chat_per_minute"`
	UploadPerMinute int `json:"upload_per_minute" mapstructure:"upload_per_minute"`
}

// ScannerConfig holds malware scanner settings
type ScannerConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ExternalHost: "http://localhost",
			AllowedOrigins: []string{
				"http://localhost:8000",
				"http://127.0.0.1:8000",
				"http://localhost:8001",
				"http://127.0.0.1:8001",
				"http://localhost",
			},
			MaxBodyBytes: 10 << 20,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
		Engine: EngineConfig{
			Provider:      "openai",
			Model:         "gpt-4o-2024-11-20",
			Temperature:   0.2,
			ContextWindow: 128000,
			MaxTokens:     16383,
			MaxBudget:     0.03,
			AutoRun:       true,
		},
		Session: SessionConfig{
			StaticDir:           "static",
			IdleTimeout:         time.Hour,
			SweepInterval:       30 * time.Minute,
			OrphanSweepSchedule: "@every 24h",
		},
		Upload: UploadConfig{
			MaxFileBytes:       10 << 20,
			MaxFilesPerSession: 10,
			AllowedExtensions:  []string{".csv", ".txt", ".json", ".nc", ".xlsx", ".tif"},
		},
		RateLimit: RateLimitConfig{
			ChatPerMinute:   10,
			UploadPerMinute: 5,
		},
		Scanner: ScannerConfig{
			Enabled: true,
			Addr:    "localhost:3310",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}
