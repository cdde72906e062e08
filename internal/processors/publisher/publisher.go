package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"device-presence/internal/bus"
	"device-presence/internal/presence"
	"device-presence/internal/queue"
	"device-presence/internal/worker"

	"github.com/google/uuid"
)

var (
	ErrDequeue = errors.New("error dequeueing notification")
	ErrPublish = errors.New("error publishing notification")
)

type Config struct {
	Sink  bus.Sink
	Queue *queue.Bounded[bus.StatusEvent]
}

// Publisher implements presence.Notifier. Notify only enqueues; the worker
// loop publishes to the sink.
type Publisher struct {
	worker *worker.Worker
	sink   bus.Sink
	queue  *queue.Bounded[bus.StatusEvent]
}

func New(cfg Config) *Publisher {
	publisher := &Publisher{
		sink:  cfg.Sink,
		queue: cfg.Queue,
	}
	publisher.worker = worker.New(worker.Config{
		Name:      "publisher-worker",
		Processor: publisher,
	})
	return publisher
}

func (p *Publisher) Run(ctx context.Context) {
	p.worker.Run(ctx)
}

func (p *Publisher) Notify(t presence.Transition) {
	err := p.queue.Push(bus.StatusEvent{
		EventID:   uuid.NewString(),
		DeviceKey: t.DeviceKey,
		Status:    t.Status,
		ChangedAt: t.ChangedAt,
	})
	if err != nil {
		slog.Warn("Status notification dropped", "device_key", t.DeviceKey, "status", t.Status, "error", err)
	}
}

// Close stops accepting notifications; Run returns once the queue is drained.
func (p *Publisher) Close(ctx context.Context) {
	slog.InfoContext(ctx, "Closing publisher resources...")
	p.queue.Close()
}

func (p *Publisher) Dropped() int64 {
	return p.queue.Dropped()
}

func (p *Publisher) ProcessMessage(ctx context.Context) error {
	const fn = "Publisher:ProcessMessage"
	event, err := p.queue.Pop(ctx)
	if err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return fmt.Errorf("%s:%w", fn, worker.ErrStopped)
		}
		return fmt.Errorf("%s:%w:%w", fn, ErrDequeue, err)
	}
	if err := p.sink.Publish(ctx, event); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrPublish, err)
	}
	slog.InfoContext(ctx, "Published status change", "device_key", event.DeviceKey, "status", event.Status)
	return nil
}
