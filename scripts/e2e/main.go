package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/segmentio/kafka-go"
)

// Steps:
// 1. Publish heartbeats for AA:BB to device_ping for a few seconds
// 2. Check /devices/AA:BB reports on
// 3. Stop sending and wait past the staleness threshold plus one sweep
// 4. Check /devices/AA:BB reports off
// 5. Check the timeline contains the on and off transitions in order

const (
	baseURL   = "http://localhost:8080"
	deviceKey = "AA:BB"
	threshold = 30 * time.Second
	sweep     = 10 * time.Second
)

type deviceStatus struct {
	DeviceKey string `json:"device_key"`
	Status    string `json:"status"`
}

type timeline struct {
	Events []struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	} `json:"events"`
}

func main() {
	ctx := context.Background()
	started := time.Now().Add(-time.Minute)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP("localhost:9092"),
		Topic:                  "device_ping",
		AllowAutoTopicCreation: true,
	}
	defer writer.Close()

	for range 3 {
		if err := writer.WriteMessages(ctx, kafka.Message{Value: []byte(deviceKey), Time: time.Now()}); err != nil {
			fail("failed to publish heartbeat: %v", err)
		}
		time.Sleep(2 * time.Second)
	}

	expectStatus("on")

	fmt.Printf("Waiting %s for %s to go stale\n", threshold+2*sweep, deviceKey)
	time.Sleep(threshold + 2*sweep)

	expectStatus("off")

	end := time.Now().Add(time.Minute)
	u := fmt.Sprintf("%s/devices/%s/timeline?start=%s&end=%s", baseURL, deviceKey,
		url.QueryEscape(started.UTC().Format(time.RFC3339)), url.QueryEscape(end.UTC().Format(time.RFC3339)))
	var tl timeline
	getJSON(u, &tl)
	if len(tl.Events) < 2 {
		fail("expected at least 2 transitions, got %d", len(tl.Events))
	}
	last := tl.Events[len(tl.Events)-2:]
	if last[0].Status != "on" || last[1].Status != "off" {
		fail("expected on then off, got %s then %s", last[0].Status, last[1].Status)
	}

	fmt.Println("E2E test completed")
}

func expectStatus(want string) {
	var got deviceStatus
	getJSON(baseURL+"/devices/"+deviceKey, &got)
	if got.Status != want {
		fail("expected %s to be %s, got %s", deviceKey, want, got.Status)
	}
	fmt.Printf("%s is %s\n", deviceKey, want)
}

func getJSON(u string, v any) {
	resp, err := http.Get(u)
	if err != nil {
		fail("GET %s: %v", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fail("GET %s: HTTP %d", u, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		fail("decode %s: %v", u, err)
	}
}

func fail(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}
