package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type scriptedProcessor struct {
	results []error
	calls   int
}

func (p *scriptedProcessor) ProcessMessage(ctx context.Context) error {
	p.calls++
	if p.calls > len(p.results) {
		return ErrStopped
	}
	return p.results[p.calls-1]
}

func Test_RunStopsOnErrStopped(t *testing.T) {
	p := &scriptedProcessor{results: []error{nil, errors.New("transient"), nil}}
	w := New(Config{Name: "test-worker", Processor: p})

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 4, p.calls)
}

type blockingProcessor struct{}

func (blockingProcessor) ProcessMessage(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func Test_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := New(Config{Name: "test-worker", Processor: blockingProcessor{}})

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
