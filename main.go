package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"device-presence/internal/api"
	"device-presence/internal/bus"
	"device-presence/internal/config"
	"device-presence/internal/db"
	"device-presence/internal/durable"
	"device-presence/internal/logging"
	"device-presence/internal/presence"
	"device-presence/internal/processors/applier"
	"device-presence/internal/processors/ingress"
	"device-presence/internal/processors/publisher"
	"device-presence/internal/processors/sweeper"
	"device-presence/internal/queue"

	"github.com/nats-io/nats.go"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		return err
	}

	// rootCtx stops intake; workCtx bounds the drain after it.
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	slog.InfoContext(rootCtx, "Starting service...", "bus_driver", cfg.Bus.Driver)

	store, err := db.Init(rootCtx, db.Config{
		ConnString:     cfg.DB.ConnString,
		MigrationsPath: cfg.DB.MigrationsPath,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	source, sink, closeBus, err := openBus(rootCtx, cfg)
	if err != nil {
		return err
	}
	defer closeBus()

	dropPolicy, err := queue.ParseDropPolicy(cfg.Ingress.DropPolicy)
	if err != nil {
		return err
	}

	var engine *presence.Engine
	writer := durable.New(durable.Config{
		Repository:     store,
		MaxRetries:     cfg.Sync.MaxRetries,
		InitialBackoff: cfg.Sync.InitialBackoff(),
		MaxBackoff:     cfg.Sync.MaxBackoff(),
		OnRecorded: func(t presence.Transition) {
			engine.Confirm(t)
		},
	})
	notifier := publisher.New(publisher.Config{
		Sink:  sink,
		Queue: queue.NewBounded[bus.StatusEvent](cfg.Notify.QueueCapacity, queue.DropOldest),
	})
	states := presence.NewStore()
	engine = presence.New(presence.Config{
		Store:    states,
		Recorder: writer,
		Notifier: notifier,
	})

	persisted, err := store.LoadAll(rootCtx)
	if err != nil {
		return err
	}
	seeded := engine.Seed(toPresence(persisted))
	slog.InfoContext(rootCtx, "Presence store seeded", "devices", seeded)
	states.Dump()

	heartbeats := queue.NewBounded[presence.Heartbeat](cfg.Ingress.QueueCapacity, dropPolicy)
	wIngress := ingress.New(ingress.Config{
		Source:       source,
		Queue:        heartbeats,
		MaxKeyLength: cfg.Presence.MaxDeviceKeyLength,
	})
	wApplier := applier.New(applier.Config{
		Queue:  heartbeats,
		Engine: engine,
	})
	wSweeper := sweeper.New(sweeper.Config{
		Engine:    engine,
		Interval:  cfg.Presence.SweepInterval(),
		Threshold: cfg.Presence.StalenessThreshold(),
	})

	server := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: api.New(api.Config{
			DB:       store,
			Presence: engine,
			Stats: func() api.StatsResponse {
				in := wIngress.Stats()
				st := writer.Stats()
				if d, ok := source.(interface{ Dropped() int64 }); ok {
					in.Dropped += d.Dropped()
				}
				return api.StatsResponse{
					IngressReceived: in.Received,
					IngressInvalid:  in.Invalid,
					IngressDropped:  in.Dropped,
					NotifyDropped:   notifier.Dropped(),
					SyncPending:     st.Pending,
					SyncWritten:     st.Written,
					SyncFailed:      st.Failed,
					SyncDropped:     st.Dropped,
					Devices:         states.Len(),
				}
			},
		}).Routes(),
	}

	intake := sync.WaitGroup{}
	drain := sync.WaitGroup{}
	sinks := sync.WaitGroup{}

	intake.Go(func() {
		wIngress.Run(rootCtx)
	})
	intake.Go(func() {
		wSweeper.Run(rootCtx)
	})
	drain.Go(func() {
		wApplier.Run(workCtx)
	})
	sinks.Go(func() {
		writer.Run(workCtx)
	})
	sinks.Go(func() {
		notifier.Run(workCtx)
	})

	go func() {
		slog.InfoContext(rootCtx, "HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(rootCtx, "HTTP server error", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	slog.InfoContext(workCtx, "Shutting down...")

	grace := time.NewTimer(cfg.Sync.ShutdownGrace())
	defer grace.Stop()
	go func() {
		<-grace.C
		slog.WarnContext(workCtx, "Shutdown grace period elapsed", "pending", writer.Stats().Pending)
		cancelWork()
	}()

	intake.Wait()
	wIngress.Close(workCtx)
	drain.Wait()

	writer.Close(workCtx)
	notifier.Close(workCtx)
	sinks.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.WarnContext(shutdownCtx, "HTTP server shutdown error", "error", err)
	}

	final := writer.Stats()
	slog.Info("Service stopped",
		"written", final.Written,
		"failed", final.Failed,
		"dropped", final.Dropped,
		"pending", final.Pending,
	)
	return nil
}

// openBus connects the configured driver and returns the heartbeat source,
// the status sink and a func releasing the connection.
func openBus(ctx context.Context, cfg config.Config) (bus.Source, bus.Sink, func(), error) {
	const fn = "Main:openBus"
	switch cfg.Bus.Driver {
	case config.DriverKafka:
		if err := bus.WaitForBroker(ctx, cfg.Bus.Kafka.Brokers, 60*time.Second, 2*time.Second); err != nil {
			return nil, nil, nil, fmt.Errorf("%s:%w", fn, err)
		}
		source := bus.NewKafkaSource(bus.KafkaConfig{
			Brokers: cfg.Bus.Kafka.Brokers,
			GroupID: cfg.Bus.Kafka.GroupID,
			Topic:   cfg.Bus.HeartbeatTopic,
		})
		sink := bus.NewKafkaSink(bus.KafkaConfig{
			Brokers: cfg.Bus.Kafka.Brokers,
			Topic:   cfg.Bus.StatusTopic,
		})
		return source, sink, func() {
			if err := sink.Close(); err != nil {
				slog.Warn("Error closing kafka sink", "error", err)
			}
		}, nil

	case config.DriverNATS:
		nc, err := bus.ConnectNATS(ctx, bus.NATSConfig{
			URL:      cfg.Bus.NATS.URL,
			Username: cfg.Bus.NATS.Username,
			Password: cfg.Bus.NATS.Password,
			Name:     "device-presence",
		}, 10)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s:%w", fn, err)
		}
		source, err := bus.NewNATSSource(nc, cfg.Bus.HeartbeatTopic)
		if err != nil {
			nc.Close()
			return nil, nil, nil, fmt.Errorf("%s:%w", fn, err)
		}
		return source, bus.NewNATSSink(nc, cfg.Bus.StatusTopic), func() {
			drainNATS(nc)
		}, nil

	case config.DriverMQTT:
		qos := byte(cfg.Bus.MQTT.QoS)
		client, err := bus.ConnectMQTT(ctx, bus.MQTTConfig{
			URL:      cfg.Bus.MQTT.URL,
			ClientID: cfg.Bus.MQTT.ClientID,
			Username: cfg.Bus.MQTT.Username,
			Password: cfg.Bus.MQTT.Password,
			QoS:      qos,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s:%w", fn, err)
		}
		source, err := bus.NewMQTTSource(client, cfg.Bus.HeartbeatTopic, qos, cfg.Ingress.QueueCapacity)
		if err != nil {
			client.Disconnect(250)
			return nil, nil, nil, fmt.Errorf("%s:%w", fn, err)
		}
		return source, bus.NewMQTTSink(client, cfg.Bus.StatusTopic, qos), func() {
			client.Disconnect(250)
		}, nil
	}
	return nil, nil, nil, fmt.Errorf("%s: unknown bus driver %q", fn, cfg.Bus.Driver)
}

func drainNATS(nc *nats.Conn) {
	if err := nc.Drain(); err != nil {
		slog.Warn("Error draining NATS connection", "error", err)
		nc.Close()
	}
}

func toPresence(records []db.DeviceStatus) []presence.DevicePresence {
	out := make([]presence.DevicePresence, 0, len(records))
	for _, r := range records {
		out = append(out, presence.DevicePresence{
			DeviceKey:       r.DeviceKey,
			Status:          presence.Status(r.Status),
			LastSeenAt:      r.LastUpdate,
			StatusChangedAt: r.LastUpdate,
		})
	}
	return out
}
