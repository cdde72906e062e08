package durable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"device-presence/internal/db"
	"device-presence/internal/presence"
	"device-presence/internal/queue"
	"device-presence/internal/worker"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrDequeue          = errors.New("error dequeueing transition")
)

//go:generate mockery --name repository --inpackage --with-expecter --filename mock_repository_test.go
type repository interface {
	RecordTransition(ctx context.Context, t db.Transition) error
}

type Config struct {
	Repository     repository
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// OnRecorded runs after a transition is durably written.
	OnRecorded func(t presence.Transition)
}

type Stats struct {
	Pending int
	Written int64
	Failed  int64
	Dropped int64
}

// Writer implements presence.Recorder. RecordTransition only enqueues; the
// worker loop writes each transition with bounded exponential backoff and
// drops it once the retries are spent.
type Writer struct {
	worker         *worker.Worker
	repo           repository
	pending        *queue.Bounded[presence.Transition]
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	onRecorded     func(t presence.Transition)

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

func New(cfg Config) *Writer {
	w := &Writer{
		repo:           cfg.Repository,
		pending:        queue.NewUnbounded[presence.Transition](),
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		onRecorded:     cfg.OnRecorded,
	}
	if w.initialBackoff <= 0 {
		w.initialBackoff = 200 * time.Millisecond
	}
	if w.maxBackoff < w.initialBackoff {
		w.maxBackoff = w.initialBackoff
	}
	w.worker = worker.New(worker.Config{
		Name:      "durable-sync-worker",
		Processor: w,
	})
	return w
}

func (w *Writer) Run(ctx context.Context) {
	w.worker.Run(ctx)
}

func (w *Writer) RecordTransition(t presence.Transition) {
	if err := w.pending.Push(t); err != nil {
		w.dropped.Add(1)
		slog.Warn("Transition not recorded", "device_key", t.DeviceKey, "status", t.Status, "error", err)
	}
}

// Close stops accepting transitions. Run returns after the pending ones have
// been written or dropped.
func (w *Writer) Close(ctx context.Context) {
	slog.InfoContext(ctx, "Closing durable sync...", "pending", w.pending.Len())
	w.pending.Close()
}

func (w *Writer) Stats() Stats {
	return Stats{
		Pending: w.pending.Len(),
		Written: w.written.Load(),
		Failed:  w.failed.Load(),
		Dropped: w.dropped.Load(),
	}
}

func (w *Writer) ProcessMessage(ctx context.Context) error {
	const fn = "Durable:ProcessMessage"
	t, err := w.pending.Pop(ctx)
	if err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return fmt.Errorf("%s:%w", fn, worker.ErrStopped)
		}
		return fmt.Errorf("%s:%w:%w", fn, ErrDequeue, err)
	}

	if err := w.write(ctx, t); err != nil {
		w.dropped.Add(1)
		return fmt.Errorf("%s:%w:device_key=%s:%w", fn, ErrRetriesExhausted, t.DeviceKey, err)
	}
	w.written.Add(1)
	slog.InfoContext(ctx, "Transition recorded", "device_key", t.DeviceKey, "status", t.Status)

	if w.onRecorded != nil {
		w.onRecorded(t)
	}
	return nil
}

func (w *Writer) write(ctx context.Context, t presence.Transition) error {
	row := db.Transition{
		DeviceKey: t.DeviceKey,
		Status:    string(t.Status),
		ChangedAt: t.ChangedAt,
	}

	attempt := 0
	op := func() error {
		attempt++
		err := w.repo.RecordTransition(ctx, row)
		if err != nil {
			w.failed.Add(1)
			slog.WarnContext(ctx, "Durable write failed",
				"device_key", t.DeviceKey,
				"status", t.Status,
				"attempt", attempt,
				"error", err,
			)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.initialBackoff
	b.MaxInterval = w.maxBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	retries := uint64(0)
	if w.maxRetries > 0 {
		retries = uint64(w.maxRetries)
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx))
}
