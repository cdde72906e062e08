package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"device-presence/internal/presence"

	"github.com/stretchr/testify/assert"
)

type sweepCall struct {
	now       time.Time
	threshold time.Duration
}

type recordingEngine struct {
	mu    sync.Mutex
	calls []sweepCall
}

func (r *recordingEngine) Sweep(now time.Time, threshold time.Duration) []presence.Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sweepCall{now: now, threshold: threshold})
	return []presence.Transition{{DeviceKey: "AA:BB", Status: presence.Offline, ChangedAt: now}}
}

func (r *recordingEngine) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func Test_SweepOnce(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 46, 0, time.UTC)
	engine := &recordingEngine{}
	s := New(Config{
		Engine:    engine,
		Interval:  10 * time.Second,
		Threshold: 30 * time.Second,
		Now:       func() time.Time { return now },
	})

	out := s.SweepOnce(context.Background())
	assert.Len(t, out, 1)
	assert.Equal(t, []sweepCall{{now: now, threshold: 30 * time.Second}}, engine.calls)
}

func Test_RunTicksUntilCancelled(t *testing.T) {
	engine := &recordingEngine{}
	s := New(Config{
		Engine:    engine,
		Interval:  5 * time.Millisecond,
		Threshold: 30 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return engine.count() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
