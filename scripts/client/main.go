package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
)

var (
	brokers  string
	topic    string
	baseURL  string
	devices  []string
	interval time.Duration
	duration time.Duration
	silence  string
	silentAt time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "client",
		Short: "Heartbeat simulator and status reader for the presence service",
	}

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Publish periodic heartbeats for a set of devices",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().StringVar(&brokers, "brokers", "localhost:9092", "Comma separated Kafka brokers")
	simulateCmd.Flags().StringVar(&topic, "topic", "device_ping", "Heartbeat topic")
	simulateCmd.Flags().StringSliceVar(&devices, "devices", []string{"AA:BB", "CC:DD"}, "Device keys to simulate")
	simulateCmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Heartbeat interval per device")
	simulateCmd.Flags().DurationVar(&duration, "duration", time.Minute, "How long to run")
	simulateCmd.Flags().StringVar(&silence, "silence", "", "Device key that stops sending heartbeats")
	simulateCmd.Flags().DurationVar(&silentAt, "silent-after", 20*time.Second, "When the silenced device stops")

	statusCmd := &cobra.Command{
		Use:   "status [device_key]",
		Short: "Print the status view, or one device",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStatus,
	}
	statusCmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Presence API base URL")

	rootCmd.AddCommand(simulateCmd, statusCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
	}
	defer writer.Close()

	started := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var messages []kafka.Message
		for _, key := range devices {
			if key == silence && time.Since(started) >= silentAt {
				continue
			}
			messages = append(messages, kafka.Message{Value: []byte(key), Time: time.Now()})
		}
		if len(messages) > 0 {
			if err := writer.WriteMessages(ctx, messages...); err != nil && ctx.Err() == nil {
				fmt.Printf("failed to write heartbeats: %v\n", err)
			} else if err == nil {
				fmt.Printf("%s published %d heartbeats\n", time.Now().Format(time.TimeOnly), len(messages))
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	url := baseURL + "/devices"
	if len(args) == 1 {
		url += "/" + args[0]
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s: %s", url, resp.Status, strings.TrimSpace(string(body)))
	}

	var pretty any
	if err := json.Unmarshal(body, &pretty); err != nil {
		return err
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
	return nil
}
