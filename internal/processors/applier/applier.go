package applier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"device-presence/internal/presence"
	"device-presence/internal/queue"
	"device-presence/internal/worker"
)

var ErrDequeue = errors.New("error dequeueing event")

type heartbeatApplier interface {
	ApplyHeartbeat(key string, at time.Time) presence.Outcome
}

type Config struct {
	Queue  *queue.Bounded[presence.Heartbeat]
	Engine heartbeatApplier
}

// Applier feeds queued heartbeats to the engine in delivery order. It keeps
// running after the queue is closed until the queue is empty.
type Applier struct {
	worker *worker.Worker
	queue  *queue.Bounded[presence.Heartbeat]
	engine heartbeatApplier
}

func New(cfg Config) *Applier {
	applier := &Applier{
		queue:  cfg.Queue,
		engine: cfg.Engine,
	}
	applier.worker = worker.New(worker.Config{
		Name:      "applier-worker",
		Processor: applier,
	})
	return applier
}

func (a *Applier) Run(ctx context.Context) {
	a.worker.Run(ctx)
}

func (a *Applier) ProcessMessage(ctx context.Context) error {
	const fn = "Applier:ProcessMessage"
	hb, err := a.queue.Pop(ctx)
	if err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return fmt.Errorf("%s:%w", fn, worker.ErrStopped)
		}
		return fmt.Errorf("%s:%w:%w", fn, ErrDequeue, err)
	}

	outcome := a.engine.ApplyHeartbeat(hb.DeviceKey, hb.At)
	slog.DebugContext(ctx, "Heartbeat applied", "device_key", hb.DeviceKey, "at", hb.At, "outcome", outcome)
	return nil
}
