package worker

import (
	"context"
	"errors"
	"log/slog"
)

// ErrStopped is returned by a Processor when its input is exhausted and the
// worker should exit even though its context is still live.
var ErrStopped = errors.New("worker stopped")

type Config struct {
	Name      string
	Processor Processor
}

type Processor interface {
	ProcessMessage(ctx context.Context) error
}

type Worker struct {
	name      string
	processor Processor
}

func New(cfg Config) *Worker {
	return &Worker{
		name:      cfg.Name,
		processor: cfg.Processor,
	}
}

func (w *Worker) Run(ctx context.Context) {
	slog.InfoContext(ctx, "Worker started...", "worker", w.name)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Worker stopped...", "worker", w.name)
			return
		default:
			err := w.processor.ProcessMessage(ctx)
			if errors.Is(err, ErrStopped) {
				slog.InfoContext(ctx, "Worker drained...", "worker", w.name)
				return
			}
			if err != nil && ctx.Err() == nil {
				slog.WarnContext(ctx, "Error processing message", "worker", w.name, "error", err)
			}
		}
	}
}
