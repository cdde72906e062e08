package presence

import "time"

type Status string

const (
	Online  Status = "on"
	Offline Status = "off"
)

func (s Status) Valid() bool {
	return s == Online || s == Offline
}

type DevicePresence struct {
	DeviceKey       string
	Status          Status
	LastSeenAt      time.Time
	StatusChangedAt time.Time
}

// Heartbeat is a single liveness signal as delivered by the bus.
type Heartbeat struct {
	DeviceKey string
	At        time.Time
}

type Transition struct {
	DeviceKey string
	Status    Status
	ChangedAt time.Time
}

// Outcome describes what ApplyHeartbeat did with an event.
type Outcome int

const (
	Ignored Outcome = iota
	Created
	Resumed
	Refreshed
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Resumed:
		return "resumed"
	case Refreshed:
		return "refreshed"
	default:
		return "ignored"
	}
}
