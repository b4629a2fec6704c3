package redisx

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Kailou1991/ahis-001-sub001/internal/platform/envutil"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

const defaultChannel = "ahis:sync"

type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	LockTTL  time.Duration
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		Addr:     strings.TrimSpace(envutil.String("REDIS_ADDR", "", log)),
		Password: envutil.String("REDIS_PASSWORD", "", log),
		DB:       envutil.Int("REDIS_DB", 0, log),
		Channel:  envutil.String("REDIS_CHANNEL", defaultChannel, log),
		LockTTL:  envutil.Duration("SYNC_LOCK_TTL", 30*time.Minute, log),
	}
}

// Enabled reports whether a Redis address is configured.
func (c Config) Enabled() bool { return c.Addr != "" }

// Connect opens a client and pings it.
func Connect(ctx context.Context, cfg Config) (*goredis.Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
