package presence

import (
	"log/slog"
	"sync"
	"time"
)

// Recorder accepts transitions for durable persistence. Implementations must
// not block.
type Recorder interface {
	RecordTransition(t Transition)
}

// Notifier pushes status changes outward. Implementations must not block.
type Notifier interface {
	Notify(t Transition)
}

type Config struct {
	Store    *Store
	Recorder Recorder
	Notifier Notifier
}

// Engine is the only writer of the Store. Heartbeats, sweeps, seeding and
// confirmations are serialized by a single engine-wide lock, so a sweep never
// acts on an entry that a concurrent heartbeat has already refreshed.
type Engine struct {
	mu       sync.Mutex
	store    *Store
	recorder Recorder
	notifier Notifier

	// tracked holds keys the sweep still has to look at: every Online entry
	// plus Offline entries whose transition has not been confirmed durable.
	tracked map[string]struct{}
}

func New(cfg Config) *Engine {
	store := cfg.Store
	if store == nil {
		store = NewStore()
	}
	return &Engine{
		store:    store,
		recorder: cfg.Recorder,
		notifier: cfg.Notifier,
		tracked:  make(map[string]struct{}),
	}
}

func (e *Engine) ApplyHeartbeat(key string, at time.Time) Outcome {
	if key == "" {
		return Ignored
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, exists := e.store.Get(key)
	switch {
	case !exists:
		p = DevicePresence{
			DeviceKey:       key,
			Status:          Online,
			LastSeenAt:      at,
			StatusChangedAt: at,
		}
		e.store.Upsert(key, p)
		e.tracked[key] = struct{}{}
		e.emit(Transition{DeviceKey: key, Status: Online, ChangedAt: at})
		return Created

	case !at.After(p.LastSeenAt):
		return Ignored

	case p.Status == Offline:
		// A lagged or skewed heartbeat can carry a time before the Offline
		// transition it follows; the resume is still stamped after it.
		changedAt := laterThan(at, p.StatusChangedAt)
		p.Status = Online
		p.LastSeenAt = at
		p.StatusChangedAt = changedAt
		e.store.Upsert(key, p)
		e.tracked[key] = struct{}{}
		e.emit(Transition{DeviceKey: key, Status: Online, ChangedAt: changedAt})
		return Resumed

	default:
		p.LastSeenAt = at
		e.store.Upsert(key, p)
		return Refreshed
	}
}

// Sweep marks every tracked Online entry whose last heartbeat is older than
// threshold as Offline. Entries already Offline are left untouched, so
// repeated sweeps without new heartbeats emit nothing.
func (e *Engine) Sweep(now time.Time, threshold time.Duration) []Transition {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Transition
	for key := range e.tracked {
		p, exists := e.store.Get(key)
		if !exists {
			delete(e.tracked, key)
			continue
		}
		if p.Status != Online || now.Sub(p.LastSeenAt) <= threshold {
			continue
		}
		changedAt := laterThan(now, p.StatusChangedAt)
		p.Status = Offline
		p.StatusChangedAt = changedAt
		e.store.Upsert(key, p)

		t := Transition{DeviceKey: key, Status: Offline, ChangedAt: changedAt}
		e.emit(t)
		out = append(out, t)
	}
	return out
}

// Confirm is called once a transition has been durably recorded. A confirmed
// Offline transition that is still current stops the key from being swept.
func (e *Engine) Confirm(t Transition) {
	if t.Status != Offline {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, exists := e.store.Get(t.DeviceKey)
	if !exists || p.Status != Offline || !p.StatusChangedAt.Equal(t.ChangedAt) {
		return
	}
	delete(e.tracked, t.DeviceKey)
}

// Seed loads persisted state without emitting writes or notifications. Keys
// already known to the engine keep their live state. Seeded Online entries are
// tracked so the next sweep re-evaluates their staleness.
func (e *Engine) Seed(records []DevicePresence) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	seeded := 0
	for _, r := range records {
		if r.DeviceKey == "" || !r.Status.Valid() {
			slog.Warn("Skipping invalid persisted presence", "device_key", r.DeviceKey, "status", r.Status)
			continue
		}
		if _, exists := e.store.Get(r.DeviceKey); exists {
			continue
		}
		e.store.Upsert(r.DeviceKey, r)
		if r.Status == Online {
			e.tracked[r.DeviceKey] = struct{}{}
		}
		seeded++
	}
	return seeded
}

func (e *Engine) Get(key string) (DevicePresence, bool) {
	return e.store.Get(key)
}

func (e *Engine) Snapshot() []DevicePresence {
	return e.store.Snapshot()
}

func (e *Engine) Tracked() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tracked)
}

// transitionStep is the smallest gap the wire format (unix millis) keeps.
const transitionStep = time.Millisecond

// laterThan returns t, or prev+transitionStep when t is not after prev, so
// that a key's transitions are strictly ordered by changed_at.
func laterThan(t, prev time.Time) time.Time {
	if t.After(prev) {
		return t
	}
	return prev.Add(transitionStep)
}

// emit must be called with mu held.
func (e *Engine) emit(t Transition) {
	slog.Info("Device status changed", "device_key", t.DeviceKey, "status", t.Status, "changed_at", t.ChangedAt)
	if e.recorder != nil {
		e.recorder.RecordTransition(t)
	}
	if e.notifier != nil {
		e.notifier.Notify(t)
	}
}
