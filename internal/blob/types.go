package blob

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown, expired, revoked or already taken tokens
var ErrNotFound = errors.New("blob not found")

// Blob is an in-flight download: a payload with the name it should be saved under
type Blob struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Store holds blobs behind one-shot tokens until they are taken, revoked or expire
type Store interface {
	// Put stores b and returns the token that retrieves it
	Put(ctx context.Context, b Blob, ttl time.Duration) (string, error)
	// Take returns the blob and deletes it
	Take(ctx context.Context, token string) (Blob, error)
	// Revoke deletes the blob without returning it
	Revoke(ctx context.Context, token string) error
	// Close releases backend resources
	Close() error
}

// Backend names
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config contains blob store configuration
type Config struct {
	Backend    string         `yaml:"backend" mapstructure:"backend" validate:"oneof=memory redis postgres"`
	TTL        time.Duration  `yaml:"ttl" mapstructure:"ttl" validate:"gt=0"`
	MaxEntries int            `yaml:"max_entries" mapstructure:"max_entries" validate:"gte=0"`
	Redis      RedisConfig    `yaml:"redis" mapstructure:"redis"`
	Postgres   PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// RedisConfig contains Redis backend configuration
type RedisConfig struct {
	URL            string `yaml:"url" mapstructure:"url"`
	MaxConnections int    `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int    `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	KeyPrefix      string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// PostgresConfig contains Postgres backend configuration
type PostgresConfig struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	PurgeInterval   time.Duration `yaml:"purge_interval" mapstructure:"purge_interval"`
}

func newToken() string {
	return uuid.NewString()
}

// validToken rejects anything that is not a token we could have issued
func validToken(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil
}
