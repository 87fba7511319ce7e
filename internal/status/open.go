package status

import (
	"context"
	"fmt"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects a Store backend.
type Config struct {
	Backend    string
	SQLitePath string
	Redis      RedisConfig
}

// Open returns the configured Store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case "", BackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite status store requires a path")
		}
		return OpenSQLite(cfg.SQLitePath)
	case BackendRedis:
		return NewRedis(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown status backend %q", cfg.Backend)
	}
}
