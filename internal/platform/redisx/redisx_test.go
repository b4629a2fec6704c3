package redisx

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

func TestLocalLockerSerializesKey(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "a"); err == nil {
		t.Fatalf("second lock on held key must wait")
	}
	other, err := l.Lock(context.Background(), "b")
	if err != nil {
		t.Fatalf("other key must not block: %v", err)
	}
	other()

	unlock()
	unlock()
	again, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()
}

func TestMemoryPublisher(t *testing.T) {
	var p MemoryPublisher
	_ = p.Publish(context.Background(), RunEvent{SourceUID: "x", Status: "SUCCESS"})
	if evs := p.Events(); len(evs) != 1 || evs[0].SourceUID != "x" {
		t.Fatalf("events: %+v", evs)
	}
}

func TestRedisLockAndPublish(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	cfg := Config{Addr: addr, Channel: "ahis:test:" + time.Now().Format("150405.000")}
	rdb, err := Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer rdb.Close()

	l := NewRedisLocker(rdb, time.Minute, logger.Nop())
	key := "test-" + time.Now().Format("150405.000000")
	unlock, err := l.Lock(ctx, key)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 600*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(waitCtx, key); err == nil {
		t.Fatalf("held redis lock must block")
	}
	unlock()
	again, err := l.Lock(ctx, key)
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again()

	got := make(chan RunEvent, 1)
	subCtx, stop := context.WithCancel(ctx)
	defer stop()
	if err := Subscribe(subCtx, rdb, cfg.Channel, logger.Nop(), func(ev RunEvent) { got <- ev }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := NewPublisher(rdb, cfg.Channel, logger.Nop()).Publish(ctx, RunEvent{SourceUID: "u1", Status: "SUCCESS"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case ev := <-got:
		if ev.SourceUID != "u1" {
			t.Fatalf("event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
	}
}
