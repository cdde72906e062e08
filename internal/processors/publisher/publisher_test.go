package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"device-presence/internal/bus"
	"device-presence/internal/presence"
	"device-presence/internal/queue"
	"device-presence/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	events []bus.StatusEvent
	err    error
}

func (f *fakeSink) Publish(ctx context.Context, event bus.StatusEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func Test_ProcessMessage(t *testing.T) {
	changedAt := time.Unix(46, 0)
	cases := []struct {
		name        string
		sinkErr     error
		expectedErr error
		expectedLen int
	}{
		{name: "published", expectedLen: 1},
		{name: "sink failed", sinkErr: errors.New("failed"), expectedErr: ErrPublish},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{err: tt.sinkErr}
			p := New(Config{Sink: sink, Queue: queue.NewBounded[bus.StatusEvent](4, queue.DropOldest)})

			p.Notify(presence.Transition{DeviceKey: "AA:BB", Status: presence.Offline, ChangedAt: changedAt})
			err := p.ProcessMessage(context.Background())
			assert.ErrorIs(t, err, tt.expectedErr)
			require.Len(t, sink.events, tt.expectedLen)

			if tt.expectedLen > 0 {
				event := sink.events[0]
				assert.Equal(t, "AA:BB", event.DeviceKey)
				assert.Equal(t, presence.Offline, event.Status)
				assert.Equal(t, changedAt, event.ChangedAt)
				_, err := uuid.Parse(event.EventID)
				assert.NoError(t, err)
			}
		})
	}
}

func Test_NotifyOverflow(t *testing.T) {
	p := New(Config{Sink: &fakeSink{}, Queue: queue.NewBounded[bus.StatusEvent](1, queue.DropOldest)})
	p.Notify(presence.Transition{DeviceKey: "a", Status: presence.Online})
	p.Notify(presence.Transition{DeviceKey: "b", Status: presence.Online})
	assert.Equal(t, int64(1), p.Dropped())
}

func Test_CloseDrains(t *testing.T) {
	sink := &fakeSink{}
	p := New(Config{Sink: sink, Queue: queue.NewBounded[bus.StatusEvent](4, queue.DropOldest)})
	p.Notify(presence.Transition{DeviceKey: "a", Status: presence.Online})
	p.Notify(presence.Transition{DeviceKey: "b", Status: presence.Offline})
	p.Close(context.Background())

	p.Run(context.Background())
	assert.Len(t, sink.events, 2)
	assert.ErrorIs(t, p.ProcessMessage(context.Background()), worker.ErrStopped)
}
