package config

import (
	"time"

	"github.com/raaihank/anonimizador/internal/blob"
	"github.com/raaihank/anonimizador/internal/etl"
)

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Workflow  WorkflowConfig  `yaml:"workflow" mapstructure:"workflow"`
	Blob      blob.Config     `yaml:"blob" mapstructure:"blob"`
	Security  SecurityConfig  `yaml:"security" mapstructure:"security"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
	ETL       etl.Config      `yaml:"etl" mapstructure:"etl"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	// MaxTextLength bounds the characters accepted per submission
	MaxTextLength int `yaml:"max_text_length" mapstructure:"max_text_length" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path" validate:"required_if=Enabled true"`
	} `yaml:"file" mapstructure:"file"`
}

// WorkflowConfig contains the user-facing workflow settings
type WorkflowConfig struct {
	Language string `yaml:"language" mapstructure:"language" validate:"oneof=es en"`
	Filename string `yaml:"filename" mapstructure:"filename" validate:"required,excludesall=/\\"`
	// OutputDir is where the CLI saves documents
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// SecurityConfig contains HTTP abuse protection settings
type SecurityConfig struct {
	RateLimit struct {
		Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
		RequestsPerMin int  `yaml:"requests_per_min" mapstructure:"requests_per_min" validate:"gte=0"`
		Burst          int  `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
	} `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled        bool     `yaml:"enabled" mapstructure:"enabled"`
	Path           string   `yaml:"path" mapstructure:"path"`
	MaxConnections int      `yaml:"max_connections" mapstructure:"max_connections"`
	Username       string   `yaml:"username" mapstructure:"username"`
	Password       string   `yaml:"password" mapstructure:"password"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Events         struct {
		BroadcastStatus      bool `yaml:"broadcast_status" mapstructure:"broadcast_status"`
		BroadcastRedactions  bool `yaml:"broadcast_redactions" mapstructure:"broadcast_redactions"`
		BroadcastConnections bool `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
	} `yaml:"events" mapstructure:"events"`
}

// MetricsConfig contains Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:          8080,
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  30 * time.Second,
			IdleTimeout:   60 * time.Second,
			MaxTextLength: 1 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Workflow: WorkflowConfig{
			Language:  "es",
			Filename:  "datos.json",
			OutputDir: ".",
		},
		Blob: blob.Config{
			Backend:    blob.BackendMemory,
			TTL:        5 * time.Minute,
			MaxEntries: 1000,
			Redis: blob.RedisConfig{
				URL:            "redis://localhost:6379/0",
				MaxConnections: 10,
				MinIdleConns:   2,
				KeyPrefix:      "anonimizador:blob:",
			},
			Postgres: blob.PostgresConfig{
				DatabaseURL:     "postgres://localhost:5432/anonimizador?sslmode=disable",
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
				PurgeInterval:   time.Minute,
			},
		},
		WebSocket: WebSocketConfig{
			Enabled:        true,
			Path:           "/ws",
			MaxConnections: 100,
			AllowedOrigins: []string{"*"},
		},
		ETL: etl.Config{
			BatchSize:      1000,
			ProgressReport: 10000,
			OutputFormat:   etl.FormatJSONL,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}

	cfg.Logging.File.Path = "logs/anonimizador.log"

	cfg.Security.RateLimit.Enabled = true
	cfg.Security.RateLimit.RequestsPerMin = 120
	cfg.Security.RateLimit.Burst = 20

	cfg.WebSocket.Events.BroadcastStatus = true
	cfg.WebSocket.Events.BroadcastRedactions = true
	cfg.WebSocket.Events.BroadcastConnections = true

	return cfg
}
