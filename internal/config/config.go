package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/raaihank/anonimizador/internal/blob"
)

// EnvPrefix prefixes every environment override, e.g. ANONIMIZADOR_SERVER_PORT
const EnvPrefix = "ANONIMIZADOR"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Load loads configuration from .env, the config file and environment variables
func Load(configPath string) (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	v := newViper(configPath)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/anonimizador/")
	v.AddConfigPath("$HOME/.anonimizador/")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	return v
}

// bindDefaults registers every key so AutomaticEnv can override keys absent from
// the config file
func bindDefaults(v *viper.Viper) {
	d := GetDefaults()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.max_text_length", d.Server.MaxTextLength)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file.enabled", d.Logging.File.Enabled)
	v.SetDefault("logging.file.path", d.Logging.File.Path)

	v.SetDefault("workflow.language", d.Workflow.Language)
	v.SetDefault("workflow.filename", d.Workflow.Filename)
	v.SetDefault("workflow.output_dir", d.Workflow.OutputDir)

	v.SetDefault("blob.backend", d.Blob.Backend)
	v.SetDefault("blob.ttl", d.Blob.TTL)
	v.SetDefault("blob.max_entries", d.Blob.MaxEntries)
	v.SetDefault("blob.redis.url", d.Blob.Redis.URL)
	v.SetDefault("blob.redis.max_connections", d.Blob.Redis.MaxConnections)
	v.SetDefault("blob.redis.min_idle_conns", d.Blob.Redis.MinIdleConns)
	v.SetDefault("blob.redis.key_prefix", d.Blob.Redis.KeyPrefix)
	v.SetDefault("blob.postgres.database_url", d.Blob.Postgres.DatabaseURL)
	v.SetDefault("blob.postgres.max_open_conns", d.Blob.Postgres.MaxOpenConns)
	v.SetDefault("blob.postgres.max_idle_conns", d.Blob.Postgres.MaxIdleConns)
	v.SetDefault("blob.postgres.conn_max_lifetime", d.Blob.Postgres.ConnMaxLifetime)
	v.SetDefault("blob.postgres.purge_interval", d.Blob.Postgres.PurgeInterval)

	v.SetDefault("security.rate_limit.enabled", d.Security.RateLimit.Enabled)
	v.SetDefault("security.rate_limit.requests_per_min", d.Security.RateLimit.RequestsPerMin)
	v.SetDefault("security.rate_limit.burst", d.Security.RateLimit.Burst)

	v.SetDefault("websocket.enabled", d.WebSocket.Enabled)
	v.SetDefault("websocket.path", d.WebSocket.Path)
	v.SetDefault("websocket.max_connections", d.WebSocket.MaxConnections)
	v.SetDefault("websocket.username", d.WebSocket.Username)
	v.SetDefault("websocket.password", d.WebSocket.Password)
	v.SetDefault("websocket.allowed_origins", d.WebSocket.AllowedOrigins)
	v.SetDefault("websocket.events.broadcast_status", d.WebSocket.Events.BroadcastStatus)
	v.SetDefault("websocket.events.broadcast_redactions", d.WebSocket.Events.BroadcastRedactions)
	v.SetDefault("websocket.events.broadcast_connections", d.WebSocket.Events.BroadcastConnections)

	v.SetDefault("etl.batch_size", d.ETL.BatchSize)
	v.SetDefault("etl.progress_report", d.ETL.ProgressReport)
	v.SetDefault("etl.output_format", d.ETL.OutputFormat)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := GetDefaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field rules
func Validate(cfg *Config) error {
	if err := getValidator().Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	switch cfg.Blob.Backend {
	case blob.BackendRedis:
		if cfg.Blob.Redis.URL == "" {
			return fmt.Errorf("blob.redis.url is required for the redis backend")
		}
	case blob.BackendPostgres:
		if cfg.Blob.Postgres.DatabaseURL == "" {
			return fmt.Errorf("blob.postgres.database_url is required for the postgres backend")
		}
	}

	if cfg.WebSocket.Enabled && !strings.HasPrefix(cfg.WebSocket.Path, "/") {
		return fmt.Errorf("invalid websocket path: %q (must start with /)", cfg.WebSocket.Path)
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("invalid metrics path: %q (must start with /)", cfg.Metrics.Path)
	}

	return nil
}

// formatValidationError flattens validator errors into one readable error
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", field, e.Tag(), e.Param(), e.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", field, e.Tag(), e.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Watcher reloads the config file when it changes
type Watcher struct {
	v *viper.Viper
}

// Watch starts watching the configuration file and calls callback with every
// valid new configuration. Invalid edits are reported through onError and
// otherwise ignored.
func Watch(configPath string, callback func(*Config), onError func(error)) (*Watcher, error) {
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		newConfig, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload of %s rejected: %w", e.Name, err))
			}
			return
		}
		callback(newConfig)
	})
	v.WatchConfig()

	return &Watcher{v: v}, nil
}

// ConfigFile returns the path of the watched file
func (w *Watcher) ConfigFile() string {
	return w.v.ConfigFileUsed()
}
