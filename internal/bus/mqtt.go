package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttTimeout = 10 * time.Second

type MQTTConfig struct {
	URL      string
	ClientID string
	Username string
	Password string
	QoS      byte
}

func ConnectMQTT(ctx context.Context, cfg MQTTConfig) (mqtt.Client, error) {
	const fn = "Bus:ConnectMQTT"
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			slog.Warn("MQTT connection lost", "error", err)
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			slog.Info("MQTT connected", "url", cfg.URL)
		})

	client := mqtt.NewClient(opts)
	if err := waitToken(client.Connect()); err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrConnect, err)
	}
	return client, nil
}

func waitToken(token mqtt.Token) error {
	if !token.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("timed out after %s", mqttTimeout)
	}
	return token.Error()
}

// MQTTSource turns the client's callback delivery into a pull stream. The
// callback never blocks the client: messages arriving while the buffer is full
// are dropped and counted.
type MQTTSource struct {
	client    mqtt.Client
	topic     string
	messages  chan Message
	done      chan struct{}
	closeOnce sync.Once
	now       func() time.Time
	dropped   atomic.Int64
}

func newMQTTSource(client mqtt.Client, topic string, buffer int) *MQTTSource {
	return &MQTTSource{
		client:   client,
		topic:    topic,
		messages: make(chan Message, buffer),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

func NewMQTTSource(client mqtt.Client, topic string, qos byte, buffer int) (*MQTTSource, error) {
	const fn = "MQTTSource:New"
	s := newMQTTSource(client, topic, buffer)
	if err := waitToken(client.Subscribe(topic, qos, s.handle)); err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrConnect, err)
	}
	slog.Info("Subscribed to MQTT topic", "topic", topic)
	return s, nil
}

func (s *MQTTSource) handle(_ mqtt.Client, m mqtt.Message) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.messages <- Message{Payload: m.Payload(), Time: s.now()}:
	default:
		n := s.dropped.Add(1)
		slog.Warn("MQTT buffer full, message dropped", "topic", m.Topic(), "dropped", n)
	}
}

// Dropped is the number of messages discarded because the buffer was full.
func (s *MQTTSource) Dropped() int64 {
	return s.dropped.Load()
}

func (s *MQTTSource) Receive(ctx context.Context) (Message, error) {
	const fn = "MQTTSource:Receive"
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-s.done:
		return Message{}, fmt.Errorf("%s:%w", fn, ErrSourceClosed)
	case m := <-s.messages:
		return m, nil
	}
}

func (s *MQTTSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.client != nil {
			err = waitToken(s.client.Unsubscribe(s.topic))
		}
	})
	return err
}

type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type MQTTSink struct {
	client mqttPublisher
	topic  string
	qos    byte
}

func NewMQTTSink(client mqtt.Client, topic string, qos byte) *MQTTSink {
	return &MQTTSink{client: client, topic: topic, qos: qos}
}

func (s *MQTTSink) Publish(ctx context.Context, event StatusEvent) error {
	const fn = "MQTTSink:Publish"
	data, err := json.Marshal(event.wire())
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrMarshal, err)
	}
	if err := waitToken(s.client.Publish(s.topic, s.qos, false, data)); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrPublish, err)
	}
	return nil
}

// Close is a no-op; the client is disconnected by its owner.
func (s *MQTTSink) Close() error {
	return nil
}
