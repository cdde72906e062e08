package ingress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"device-presence/internal/bus"
	"device-presence/internal/presence"
	"device-presence/internal/queue"
	"device-presence/internal/worker"
)

var (
	ErrReadMessage  = errors.New("error reading message")
	ErrInvalidEvent = errors.New("invalid event")
	ErrEnqueue      = errors.New("error enqueueing event")
)

type Config struct {
	Source       bus.Source
	Queue        *queue.Bounded[presence.Heartbeat]
	MaxKeyLength int
	Now          func() time.Time
}

type Stats struct {
	Received int64
	Invalid  int64
	Dropped  int64
}

// Ingress moves heartbeat deliveries from the bus into the bounded queue. It
// never waits on the engine.
type Ingress struct {
	worker       *worker.Worker
	source       bus.Source
	queue        *queue.Bounded[presence.Heartbeat]
	maxKeyLength int
	now          func() time.Time

	received atomic.Int64
	invalid  atomic.Int64
}

func New(cfg Config) *Ingress {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ingress := &Ingress{
		source:       cfg.Source,
		queue:        cfg.Queue,
		maxKeyLength: cfg.MaxKeyLength,
		now:          now,
	}

	ingress.worker = worker.New(worker.Config{
		Name:      "ingress-worker",
		Processor: ingress,
	})
	return ingress
}

func (i *Ingress) Run(ctx context.Context) {
	i.worker.Run(ctx)
}

// Close stops the source and the queue. Events already queued stay available
// to the applier.
func (i *Ingress) Close(ctx context.Context) {
	slog.InfoContext(ctx, "Closing ingress resources...")
	if err := i.source.Close(); err != nil {
		slog.WarnContext(ctx, "Error closing source", "error", err)
	}
	i.queue.Close()
}

func (i *Ingress) Stats() Stats {
	return Stats{
		Received: i.received.Load(),
		Invalid:  i.invalid.Load(),
		Dropped:  i.queue.Dropped(),
	}
}

func (i *Ingress) ProcessMessage(ctx context.Context) error {
	const fn = "Ingress:ProcessMessage"
	m, err := i.source.Receive(ctx)
	if err != nil {
		if errors.Is(err, bus.ErrSourceClosed) {
			return fmt.Errorf("%s:%w:%w", fn, worker.ErrStopped, err)
		}
		return fmt.Errorf("%s:%w:%w", fn, ErrReadMessage, err)
	}
	i.received.Add(1)

	key := strings.TrimSpace(string(m.Payload))
	if err := i.validateKey(key); err != nil {
		i.invalid.Add(1)
		return fmt.Errorf("%s:%w", fn, err)
	}

	at := m.Time
	if at.IsZero() {
		at = i.now()
	}

	if err := i.queue.Push(presence.Heartbeat{DeviceKey: key, At: at}); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrEnqueue, err)
	}
	slog.DebugContext(ctx, "Heartbeat queued", "device_key", key, "at", at)
	return nil
}

func (i *Ingress) validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty device key", ErrInvalidEvent)
	}
	if i.maxKeyLength > 0 && len(key) > i.maxKeyLength {
		return fmt.Errorf("%w: device key longer than %d bytes", ErrInvalidEvent, i.maxKeyLength)
	}
	for _, r := range key {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("%w: device key contains non-printable characters", ErrInvalidEvent)
		}
	}
	return nil
}
