// Package bus adapts the supported message brokers to the two things the
// presence service needs from them: a stream of heartbeat deliveries and a
// place to publish status changes.
package bus

import (
	"context"
	"errors"
	"time"

	k "device-presence/internal/kafka"
	"device-presence/internal/presence"
)

var (
	ErrSourceClosed = errors.New("source closed")
	ErrReceive      = errors.New("error receiving message")
	ErrPublish      = errors.New("error publishing message")
	ErrMarshal      = errors.New("error marshalling message")
	ErrConnect      = errors.New("error connecting to broker")
)

// Message is one raw heartbeat delivery. Time is zero when the broker does
// not carry a timestamp.
type Message struct {
	Payload []byte
	Time    time.Time
}

type Source interface {
	Receive(ctx context.Context) (Message, error)
	Close() error
}

type StatusEvent struct {
	EventID   string
	DeviceKey string
	Status    presence.Status
	ChangedAt time.Time
}

type Sink interface {
	Publish(ctx context.Context, event StatusEvent) error
	Close() error
}

func (e StatusEvent) wire() k.StatusChanged {
	return k.StatusChanged{
		EventID:   e.EventID,
		DeviceKey: e.DeviceKey,
		Status:    string(e.Status),
		ChangedAt: e.ChangedAt.UnixMilli(),
	}
}
