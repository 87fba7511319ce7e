package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis stores each run as a JSON string and indexes runs by creation time
// in a sorted set.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "papercast:"
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) key(id string) string { return r.prefix + "run:" + id }
func (r *Redis) index() string        { return r.prefix + "runs" }

func (r *Redis) Get(ctx context.Context, id string) (*RunStatus, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rs RunStatus
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &rs, nil
}

func (r *Redis) Put(ctx context.Context, rs *RunStatus) error {
	data, err := json.Marshal(rs)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(rs.ID), data, 0)
	pipe.ZAdd(ctx, r.index(), redis.Z{Score: float64(rs.CreatedAt.UnixMilli()), Member: rs.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context, limit int) ([]*RunStatus, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}
	ids, err := r.client.ZRevRange(ctx, r.index(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	out := make([]*RunStatus, 0, len(ids))
	for _, id := range ids {
		rs, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
