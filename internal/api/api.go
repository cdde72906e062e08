package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"device-presence/internal/db"
	"device-presence/internal/presence"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const zeroDuration = "0h 0m 0s"

//go:generate mockery --name repository --inpackage --with-expecter --filename mock_repository_test.go
type repository interface {
	LoadTransitionsBetween(ctx context.Context, deviceKey string, start, end time.Time) ([]db.Transition, error)
}

type presenceReader interface {
	Get(key string) (presence.DevicePresence, bool)
	Snapshot() []presence.DevicePresence
}

type API struct {
	DB       repository
	Presence presenceReader
	Stats    func() StatsResponse
	Now      func() time.Time
}

type Config struct {
	DB       repository
	Presence presenceReader
	Stats    func() StatsResponse
	Now      func() time.Time
}

func New(cfg Config) *API {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &API{
		DB:       cfg.DB,
		Presence: cfg.Presence,
		Stats:    cfg.Stats,
		Now:      now,
	}
}

func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/devices", a.ListDevices)
	r.Get("/devices/{device_key}", a.GetDevice)
	r.Get("/devices/{device_key}/timeline", a.GetDeviceTimeline)
	r.Get("/stats", a.GetStats)
	return r
}

func (a *API) ListDevices(w http.ResponseWriter, r *http.Request) {
	now := a.Now()
	snapshot := a.Presence.Snapshot()

	resp := ListDevicesResponse{Devices: make([]DeviceStatus, 0, len(snapshot))}
	for _, p := range snapshot {
		resp.Devices = append(resp.Devices, project(p, now))
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (a *API) GetDevice(w http.ResponseWriter, r *http.Request) {
	deviceKey := chi.URLParam(r, "device_key")
	p, exists := a.Presence.Get(deviceKey)
	if !exists {
		http.Error(w, "device not found", http.StatusNotFound)
		return
	}
	writeJSON(w, r, http.StatusOK, project(p, a.Now()))
}

func (a *API) GetDeviceTimeline(w http.ResponseWriter, r *http.Request) {
	deviceKey := chi.URLParam(r, "device_key")
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	startTime, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		http.Error(w, "invalid start timestamp", http.StatusBadRequest)
		return
	}
	endTime, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		http.Error(w, "invalid end timestamp", http.StatusBadRequest)
		return
	}

	transitions, err := a.DB.LoadTransitionsBetween(r.Context(), deviceKey, startTime, endTime)
	if err != nil {
		slog.ErrorContext(r.Context(), "Error loading timeline", "device_key", deviceKey, "error", err)
		http.Error(w, "error loading timeline", http.StatusInternalServerError)
		return
	}

	resp := GetDeviceTimelineResponse{Events: make([]DeviceTransition, 0, len(transitions))}
	for _, t := range transitions {
		resp.Events = append(resp.Events, DeviceTransition{
			DeviceKey: t.DeviceKey,
			Status:    t.Status,
			Timestamp: t.ChangedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (a *API) GetStats(w http.ResponseWriter, r *http.Request) {
	var resp StatsResponse
	if a.Stats != nil {
		resp = a.Stats()
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func project(p presence.DevicePresence, now time.Time) DeviceStatus {
	inState := formatDuration(now.Sub(p.StatusChangedAt))
	status := DeviceStatus{
		DeviceKey:        p.DeviceKey,
		Status:           string(p.Status),
		LastActive:       p.LastSeenAt.UTC().Format(time.RFC3339),
		ActiveDuration:   zeroDuration,
		InactiveDuration: zeroDuration,
	}
	if p.Status == presence.Online {
		status.ActiveDuration = inState
	} else {
		status.InactiveDuration = inState
	}
	return status
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int64(d / time.Second)
	return fmt.Sprintf("%dh %dm %ds", seconds/3600, (seconds%3600)/60, seconds%60)
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Error encoding response", "error", err)
	}
}
