package blob

import (
	"fmt"

	"go.uber.org/zap"
)

// Open creates the store selected by cfg.Backend
func Open(cfg Config, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryStore(cfg.MaxEntries, cfg.TTL, logger), nil
	case BackendRedis:
		return OpenRedis(cfg.Redis, logger)
	case BackendPostgres:
		return OpenPostgres(cfg.Postgres, logger)
	default:
		return nil, fmt.Errorf("unknown blob backend: %s", cfg.Backend)
	}
}
