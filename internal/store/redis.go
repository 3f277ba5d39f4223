package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisKey  = "rewardfeed"
	redisMaxAttempts = 5
)

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// Key is the hash every row is stored in.
	Key string `json:"key"`
}

// Redis stores one hash field per written path.
type Redis struct {
	client *redis.Client
	key    string
}

func OpenRedis(ctx context.Context, config RedisConfig) (*Redis, error) {
	if config.Key == "" {
		config.Key = DefaultRedisKey
	}
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err := client.Ping(pingCtx).Err()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", config.Addr, err)
	}

	return &Redis{client: client, key: config.Key}, nil
}

func (r *Redis) Update(ctx context.Context, updates map[string]any) error {
	writes, err := prepareWrites(updates)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}

	apply := func(tx *redis.Tx) error {
		existing, err := tx.HKeys(ctx, r.key).Result()
		if err != nil {
			return err
		}

		var stale []string
		for _, path := range existing {
			for _, w := range writes {
				if path == w.path || isAncestor(w.path, path) {
					stale = append(stale, path)
					break
				}
			}
		}

		fields := make([]any, 0, 2*len(writes))
		for _, w := range writes {
			fields = append(fields, w.path, string(w.value))
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(stale) > 0 {
				pipe.HDel(ctx, r.key, stale...)
			}
			pipe.HSet(ctx, r.key, fields...)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < redisMaxAttempts; attempt++ {
		err = r.client.Watch(ctx, apply, r.key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("update %s: gave up after %d attempts: %w", r.key, redisMaxAttempts, err)
}

func (r *Redis) Get(ctx context.Context, path string) (json.RawMessage, bool, error) {
	target, err := CleanPath(path)
	if err != nil {
		return nil, false, err
	}

	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, false, err
	}

	var rows []row
	for p, value := range fields {
		if related(p, target) {
			rows = append(rows, row{path: p, value: []byte(value)})
		}
	}
	return assemble(target, rows)
}

func (r *Redis) Close() error {
	return r.client.Close()
}
