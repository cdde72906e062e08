package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

type NATSConfig struct {
	URL      string
	Username string
	Password string
	Name     string
}

// ConnectNATS retries the initial connection; once connected the client
// reconnects on its own.
func ConnectNATS(ctx context.Context, cfg NATSConfig, attempts int) (*nats.Conn, error) {
	const fn = "Bus:ConnectNATS"
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var nc *nats.Conn
		nc, err = nats.Connect(cfg.URL, opts...)
		if err == nil {
			slog.InfoContext(ctx, "Connected to NATS", "url", nc.ConnectedUrl())
			return nc, nil
		}
		slog.InfoContext(ctx, "Waiting for NATS", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("%s:%w:%w", fn, ErrConnect, err)
}

type natsSubscription interface {
	NextMsgWithContext(ctx context.Context) (*nats.Msg, error)
	Unsubscribe() error
}

type NATSSource struct {
	sub natsSubscription
}

func NewNATSSource(nc *nats.Conn, subject string) (*NATSSource, error) {
	const fn = "NATSSource:New"
	sub, err := nc.SubscribeSync(subject)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrConnect, err)
	}
	return &NATSSource{sub: sub}, nil
}

func (s *NATSSource) Receive(ctx context.Context) (Message, error) {
	const fn = "NATSSource:Receive"
	msg, err := s.sub.NextMsgWithContext(ctx)
	if err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
			return Message{}, fmt.Errorf("%s:%w", fn, ErrSourceClosed)
		}
		return Message{}, fmt.Errorf("%s:%w:%w", fn, ErrReceive, err)
	}
	return Message{Payload: msg.Data}, nil
}

func (s *NATSSource) Close() error {
	return s.sub.Unsubscribe()
}

type natsPublisher interface {
	Publish(subject string, data []byte) error
}

type NATSSink struct {
	conn    natsPublisher
	subject string
}

func NewNATSSink(nc *nats.Conn, subject string) *NATSSink {
	return &NATSSink{conn: nc, subject: subject}
}

func (s *NATSSink) Publish(ctx context.Context, event StatusEvent) error {
	const fn = "NATSSink:Publish"
	data, err := json.Marshal(event.wire())
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrMarshal, err)
	}
	if err := s.conn.Publish(s.subject+"."+subjectToken(event.DeviceKey), data); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrPublish, err)
	}
	return nil
}

// subjectToken percent-encodes the bytes NATS treats as subject separators or
// wildcards, plus '%' itself, so every key maps to exactly one subject token.
func subjectToken(key string) string {
	if !strings.ContainsFunc(key, unsafeSubjectRune) {
		return key
	}
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c < 0x80 && unsafeSubjectRune(rune(c)) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func unsafeSubjectRune(r rune) bool {
	switch r {
	case '.', '*', '>', '%':
		return true
	}
	return r <= ' ' || r == 0x7f
}

// Close is a no-op; the connection is drained by its owner.
func (s *NATSSink) Close() error {
	return nil
}
