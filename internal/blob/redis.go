package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisStore keeps blobs in Redis with a per-key expiry
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

// OpenRedis connects to Redis and verifies the connection
func OpenRedis(cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if cfg.MaxConnections > 0 {
		opts.PoolSize = cfg.MaxConnections
	}
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis blob store initialized",
		zap.String("redis_url", maskRedisURL(cfg.URL)),
		zap.Int("max_connections", opts.PoolSize))

	return NewRedisStore(client, cfg.KeyPrefix, logger), nil
}

// NewRedisStore wraps an existing client
func NewRedisStore(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = "anonimizador:blob:"
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}

// Put stores b with a Redis expiry of ttl
func (s *RedisStore) Put(ctx context.Context, b Blob, ttl time.Duration) (string, error) {
	data, err := encodeRecord(b)
	if err != nil {
		return "", err
	}

	token := newToken()
	if err := s.client.Set(ctx, s.key(token), data, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}

	s.logger.Debug("Blob stored", zap.String("token", token), zap.Int("size", len(b.Data)))
	return token, nil
}

// Take fetches and deletes the blob atomically with GETDEL
func (s *RedisStore) Take(ctx context.Context, token string) (Blob, error) {
	if !validToken(token) {
		return Blob{}, ErrNotFound
	}

	data, err := s.client.GetDel(ctx, s.key(token)).Bytes()
	if err == redis.Nil {
		return Blob{}, ErrNotFound
	}
	if err != nil {
		return Blob{}, fmt.Errorf("failed to take blob: %w", err)
	}

	return decodeRecord(data)
}

// Revoke deletes the blob
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if !validToken(token) {
		return ErrNotFound
	}

	n, err := s.client.Del(ctx, s.key(token)).Result()
	if err != nil {
		return fmt.Errorf("failed to revoke blob: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeRecord(b Blob) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode blob: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (Blob, error) {
	var b Blob
	if err := json.Unmarshal(data, &b); err != nil {
		return Blob{}, fmt.Errorf("failed to decode blob: %w", err)
	}
	return b, nil
}

// maskRedisURL hides the password in a Redis URL
func maskRedisURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at == -1 {
		return url
	}
	scheme := strings.Index(url, "://")
	if scheme == -1 || scheme+3 > at {
		return "***" + url[at:]
	}
	return url[:scheme+3] + "***" + url[at:]
}
