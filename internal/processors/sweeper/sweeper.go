package sweeper

import (
	"context"
	"log/slog"
	"time"

	"device-presence/internal/presence"
	"device-presence/internal/worker"
)

type staleSweeper interface {
	Sweep(now time.Time, threshold time.Duration) []presence.Transition
}

type Config struct {
	Engine    staleSweeper
	Interval  time.Duration
	Threshold time.Duration
	Now       func() time.Time
}

type Sweeper struct {
	worker    *worker.Worker
	engine    staleSweeper
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	ticks     <-chan time.Time
}

func New(cfg Config) *Sweeper {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	sweeper := &Sweeper{
		engine:    cfg.Engine,
		interval:  cfg.Interval,
		threshold: cfg.Threshold,
		now:       now,
	}
	sweeper.worker = worker.New(worker.Config{
		Name:      "sweeper-worker",
		Processor: sweeper,
	})
	return sweeper
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.ticks = ticker.C
	s.worker.Run(ctx)
}

func (s *Sweeper) ProcessMessage(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ticks:
		s.SweepOnce(ctx)
		return nil
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) []presence.Transition {
	transitions := s.engine.Sweep(s.now(), s.threshold)
	if len(transitions) > 0 {
		slog.InfoContext(ctx, "Sweep marked devices offline", "count", len(transitions))
	}
	return transitions
}
