package applier

import (
	"context"
	"sync"
	"testing"
	"time"

	"device-presence/internal/presence"
	"device-presence/internal/queue"
	"device-presence/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEngine struct {
	mu      sync.Mutex
	applied []presence.Heartbeat
}

func (r *recordingEngine) ApplyHeartbeat(key string, at time.Time) presence.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, presence.Heartbeat{DeviceKey: key, At: at})
	return presence.Refreshed
}

func Test_ProcessMessage(t *testing.T) {
	q := queue.NewBounded[presence.Heartbeat](4, queue.DropOldest)
	engine := &recordingEngine{}
	applier := New(Config{Queue: q, Engine: engine})

	hb := presence.Heartbeat{DeviceKey: "AA:BB", At: time.Unix(10, 0)}
	require.NoError(t, q.Push(hb))
	require.NoError(t, applier.ProcessMessage(context.Background()))
	assert.Equal(t, []presence.Heartbeat{hb}, engine.applied)

	q.Close()
	assert.ErrorIs(t, applier.ProcessMessage(context.Background()), worker.ErrStopped)
}

func Test_RunDrainsInOrderAfterClose(t *testing.T) {
	q := queue.NewBounded[presence.Heartbeat](8, queue.DropOldest)
	engine := &recordingEngine{}
	applier := New(Config{Queue: q, Engine: engine})

	var want []presence.Heartbeat
	for i := 0; i < 5; i++ {
		hb := presence.Heartbeat{DeviceKey: "AA:BB", At: time.Unix(int64(i), 0)}
		want = append(want, hb)
		require.NoError(t, q.Push(hb))
	}
	q.Close()

	done := make(chan struct{})
	go func() {
		applier.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("applier did not drain")
	}
	assert.Equal(t, want, engine.applied)
}
