package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	k "device-presence/internal/kafka"

	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers string
	GroupID string
	Topic   string
}

func brokerList(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type KafkaSource struct {
	reader k.Reader
}

func NewKafkaSource(cfg KafkaConfig) *KafkaSource {
	return &KafkaSource{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokerList(cfg.Brokers),
			GroupID: cfg.GroupID,
			Topic:   cfg.Topic,
		}),
	}
}

// Auto-commit active
func (s *KafkaSource) Receive(ctx context.Context) (Message, error) {
	const fn = "KafkaSource:Receive"
	m, err := s.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, fmt.Errorf("%s:%w", fn, ErrSourceClosed)
		}
		return Message{}, fmt.Errorf("%s:%w:%w", fn, ErrReceive, err)
	}
	return Message{Payload: m.Value, Time: m.Time}, nil
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

type KafkaSink struct {
	writer k.Writer
}

func NewKafkaSink(cfg KafkaConfig) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokerList(cfg.Brokers)...),
			Topic:    cfg.Topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (s *KafkaSink) Publish(ctx context.Context, event StatusEvent) error {
	const fn = "KafkaSink:Publish"
	record := k.StructuredConnectRecord{
		Schema:  k.StructuredSchema,
		Payload: event.wire(),
	}
	out, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrMarshal, err)
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.DeviceKey), Value: out})
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrPublish, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// WaitForBroker dials the first reachable broker until it answers or maxWait
// elapses.
func WaitForBroker(ctx context.Context, brokers string, maxWait time.Duration, interval time.Duration) error {
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		for _, broker := range brokerList(brokers) {
			dialCtx, cancel := context.WithTimeout(ctx, interval)
			conn, err := kafka.DialContext(dialCtx, "tcp", broker)
			cancel()
			if err == nil {
				conn.Close()
				slog.InfoContext(ctx, "Broker is ready", "broker", broker)
				return nil
			}
			slog.InfoContext(ctx, "Broker not ready", "broker", broker, "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("%w: broker not reachable after %s", ErrConnect, maxWait)
}
