package db

import "time"

// DeviceStatus is one row of the devices table: the last persisted status.
type DeviceStatus struct {
	DeviceKey  string    `db:"device_key" json:"device_key"`
	Status     string    `db:"status" json:"status"`
	LastUpdate time.Time `db:"last_update" json:"last_update"`
}

// Transition is one row of the device_transitions history table.
type Transition struct {
	DeviceKey string    `db:"device_key" json:"device_key"`
	Status    string    `db:"status" json:"status"`
	ChangedAt time.Time `db:"changed_at" json:"changed_at"`
}
