package api

// DeviceStatus is one row of the status view.
type DeviceStatus struct {
	DeviceKey        string `json:"device_key"`
	Status           string `json:"status"`
	LastActive       string `json:"last_active"`
	ActiveDuration   string `json:"active_duration"`
	InactiveDuration string `json:"inactive_duration"`
}

type ListDevicesResponse struct {
	Devices []DeviceStatus `json:"devices"`
}

type DeviceTransition struct {
	DeviceKey string `json:"device_key"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type GetDeviceTimelineResponse struct {
	Events []DeviceTransition `json:"events"`
}

type StatsResponse struct {
	IngressReceived int64 `json:"ingress_received"`
	IngressInvalid  int64 `json:"ingress_invalid"`
	IngressDropped  int64 `json:"ingress_dropped"`
	NotifyDropped   int64 `json:"notify_dropped"`
	SyncPending     int   `json:"sync_pending"`
	SyncWritten     int64 `json:"sync_written"`
	SyncFailed      int64 `json:"sync_failed"`
	SyncDropped     int64 `json:"sync_dropped"`
	Devices         int   `json:"devices"`
}
