package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

// RunEvent announces the end of one FormSource run.
type RunEvent struct {
	RunID       string    `json:"run_id"`
	SourceUID   string    `json:"source_uid"`
	Status      string    `json:"status"`
	Processed   int       `json:"processed"`
	Created     int       `json:"created"`
	Updated     int       `json:"updated"`
	Unchanged   int       `json:"unchanged"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Quarantined int       `json:"quarantined"`
	Message     string    `json:"message,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev RunEvent) error
}

type redisPublisher struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
}

func NewPublisher(rdb goredis.UniversalClient, channel string, baseLog *logger.Logger) Publisher {
	if channel == "" {
		channel = defaultChannel
	}
	return &redisPublisher{
		log:     baseLog.With("service", "RedisRunEvents"),
		rdb:     rdb,
		channel: channel,
	}
}

func (p *redisPublisher) Publish(ctx context.Context, ev RunEvent) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("redis publisher not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, raw).Err()
}

// Subscribe forwards run events published on channel to onEvent until ctx is
// done.
func Subscribe(ctx context.Context, rdb goredis.UniversalClient, channel string, log *logger.Logger, onEvent func(RunEvent)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	if channel == "" {
		channel = defaultChannel
	}
	sub := rdb.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev RunEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					log.Warn("bad run event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}

// MemoryPublisher keeps events in memory. Used when Redis is not configured.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []RunEvent
}

func (m *MemoryPublisher) Publish(_ context.Context, ev RunEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *MemoryPublisher) Events() []RunEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RunEvent(nil), m.events...)
}
