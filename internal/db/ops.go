package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/georgysavva/scany/pgxscan"
)

var (
	ErrInsertFailed           = errors.New("insert operation failed")
	ErrTransactionStartFailed = errors.New("transaction start failed")
	ErrCommitFailed           = errors.New("transaction commit failed")
	ErrSelectFailed           = errors.New("select operation failed")
)

// RecordTransition upserts the device row and appends the transition to the
// history table in one transaction. Replaying the same transition is a no-op,
// and a transition older than the stored last_update never overwrites it.
func (db *DB) RecordTransition(ctx context.Context, t Transition) (err error) {
	const fn = "DB:RecordTransition"
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s:%w:%w:%w", fn, ErrStoreUnavailable, ErrTransactionStartFailed, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `
		INSERT INTO devices (
			device_key,
			status,
			last_update
		) VALUES ($1, $2, $3)
		ON CONFLICT (device_key) DO UPDATE
		SET status = EXCLUDED.status,
			last_update = EXCLUDED.last_update
		WHERE devices.last_update <= EXCLUDED.last_update
	`, t.DeviceKey, t.Status, t.ChangedAt)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}
	if tag.RowsAffected() == 0 {
		slog.WarnContext(ctx, "Device row is newer than transition, status not updated",
			"device_key", t.DeviceKey,
			"status", t.Status,
			"changed_at", t.ChangedAt,
		)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO device_transitions (
			device_key,
			status,
			changed_at
		) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, t.DeviceKey, t.Status, t.ChangedAt)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrCommitFailed, err)
	}
	return nil
}

func (db *DB) LoadAll(ctx context.Context) ([]DeviceStatus, error) {
	const fn = "DB:LoadAll"
	var devices []DeviceStatus
	err := pgxscan.Select(ctx, db.pool, &devices, `
			SELECT
				device_key,
				status,
				last_update
			FROM devices
			ORDER BY device_key ASC
		`)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	return devices, nil
}

func (db *DB) LoadTransitionsBetween(ctx context.Context, deviceKey string, start, end time.Time) ([]Transition, error) {
	const fn = "DB:LoadTransitionsBetween"
	var transitions []Transition
	err := pgxscan.Select(ctx, db.pool, &transitions, `
			SELECT
				device_key,
				status,
				changed_at
			FROM device_transitions
			WHERE device_key = $1
			AND changed_at >= $2
			AND changed_at <= $3
			ORDER BY changed_at ASC
		`, deviceKey, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	if transitions == nil {
		transitions = []Transition{}
	}
	return transitions, nil
}
