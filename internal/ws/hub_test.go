package ws

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/models"
)

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if cond() {
			return
		}

		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-ticker.C:
		}
	}
}

func TestBroadcastReachesOnlyOwnTenant(t *testing.T) {
	hub := NewHub(quietLog(), 8, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	c1 := NewClient(hub, nil, "tenant-a", nil, "")
	c2 := NewClient(hub, nil, "tenant-b", nil, "")
	hub.Register(c1)
	hub.Register(c2)

	waitFor(t, func() bool { return hub.ClientCount() == 2 }, "both clients registered")

	hub.BroadcastRecord("tenant-a", models.LogRecord{
		EventTime: time.Now().UTC(),
		Level:     models.LevelError,
		Message:   "db timeout",
		Source:    "api",
	})

	select {
	case msg := <-c1.send:
		if want := `"type":"new_log"`; !contains(msg, want) {
			t.Errorf("frame missing %s: %s", want, msg)
		}
		if !contains(msg, `"message":"db timeout"`) {
			t.Errorf("frame missing message: %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tenant-a subscriber got no frame")
	}

	select {
	case msg := <-c2.send:
		t.Errorf("tenant-b subscriber got a frame: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowConsumerEvicted(t *testing.T) {
	hub := NewHub(quietLog(), 1, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	c := NewClient(hub, nil, "tenant-a", nil, "")
	hub.Register(c)
	waitFor(t, func() bool { return hub.ClientCount() == 1 }, "client registered")

	// Nobody reads c.send: first frame fills the buffer, the rest drop.
	for rep := 0; rep < 5; rep++ {
		hub.BroadcastRecord("tenant-a", models.LogRecord{Message: "x", Level: models.LevelInfo})
	}

	waitFor(t, func() bool { return hub.ClientCount() == 0 }, "slow subscriber evicted")

	if c.Dropped() < 2 {
		t.Errorf("dropped count = %d, want >= 2", c.Dropped())
	}

	if reason := c.evictReason.Load(); reason == nil || *reason != "slow_consumer" {
		t.Errorf("evict reason = %v, want slow_consumer", reason)
	}

	// Queue is closed after eviction; drain the buffered frame then observe close.
	waitFor(t, func() bool {
		select {
		case _, ok := <-c.send:
			return !ok
		default:
			return false
		}
	}, "send channel closed")
}

func TestBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(quietLog(), 1, 1)

	// Run loop not started: the broadcast channel itself fills up.
	done := make(chan struct{})

	go func() {
		defer close(done)

		for rep := 0; rep < broadcastBuffer+10; rep++ {
			hub.BroadcastToTenant("tenant-a", []byte(`{}`))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("BroadcastToTenant blocked")
	}
}

func TestShutdownDrains(t *testing.T) {
	hub := NewHub(quietLog(), 8, 4)

	go hub.Run(context.Background())

	c := NewClient(hub, nil, "tenant-a", nil, "")
	hub.Register(c)
	waitFor(t, func() bool { return hub.ClientCount() == 1 }, "client registered")

	// Keep the queue empty so drain completes immediately.
	go func() {
		for range c.send { //nolint:revive // drain until closed
		}
	}()

	finished := make(chan struct{})

	go func() {
		hub.Shutdown()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not complete")
	}

	if hub.ClientCount() != 0 {
		t.Errorf("clients after shutdown = %d", hub.ClientCount())
	}
}

func contains(b []byte, sub string) bool {
	return strings.Contains(string(b), sub)
}
