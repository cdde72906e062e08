package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

//go:generate mockery --name Reader --inpackage --with-expecter --unroll-variadic=false
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

//go:generate mockery --name Writer --inpackage --with-expecter --unroll-variadic=false
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
