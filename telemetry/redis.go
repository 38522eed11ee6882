// telemetry/redis.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/vtolsim/vtolsim/log"
	"github.com/vtolsim/vtolsim/sim"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Keys and channels are named "<Prefix>:<run id>:...".
	Prefix string
	// The latest state key expires this long after the last frame, so a
	// finished run does not linger.
	TTL time.Duration
}

// RedisPublisher publishes each frame's state message on a pub/sub
// channel and keeps the most recent one under a key, for dashboards that
// poll instead of subscribing.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	key     string
	ttl     time.Duration
	lg      *log.Logger
}

func RedisKeys(prefix string, run uuid.UUID) (channel, key string) {
	base := prefix + ":" + run.String()
	return base + ":frames", base + ":state"
}

// NewRedisPublisher connects to redis and checks that it answers.
func NewRedisPublisher(ctx context.Context, cfg RedisConfig, run uuid.UUID, lg *log.Logger) (*RedisPublisher, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "vtolsim"
	}
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pctx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}

	channel, key := RedisKeys(cfg.Prefix, run)
	lg.Info("publishing frames to redis", slog.String("addr", cfg.Addr), slog.String("channel", channel),
		slog.String("key", key))

	return &RedisPublisher{client: c, channel: channel, key: key, ttl: cfg.TTL, lg: lg}, nil
}

func (r *RedisPublisher) Name() string { return "redis" }

func (r *RedisPublisher) Publish(ctx context.Context, f sim.Frame) error {
	b, err := json.Marshal(MakeStateMessage(f))
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Publish(ctx, r.channel, b)
	pipe.Set(ctx, r.key, b, r.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisPublisher) Close() error {
	return r.client.Close()
}
