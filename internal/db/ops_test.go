package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var DBPool *DB

// Setup the testcontainer DB before running any dbOps tests
func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		panic(err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}
	migrationsPath := "./migrations"

	DBPool, err = Init(ctx, Config{
		ConnString:     connStr,
		MigrationsPath: migrationsPath,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()

	DBPool.Close()
	pgContainer.Terminate(ctx)
	os.Exit(code)
}

func Test_RecordTransition(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	online := Transition{DeviceKey: "AA:BB", Status: "on", ChangedAt: t0}
	offline := Transition{DeviceKey: "AA:BB", Status: "off", ChangedAt: t0.Add(46 * time.Second)}

	require.NoError(t, DBPool.RecordTransition(ctx, online))
	require.NoError(t, DBPool.RecordTransition(ctx, offline))
	// Replays and late retries leave the newest state in place.
	require.NoError(t, DBPool.RecordTransition(ctx, offline))
	require.NoError(t, DBPool.RecordTransition(ctx, online))

	devices, err := DBPool.LoadAll(ctx)
	require.NoError(t, err)
	var got *DeviceStatus
	for i := range devices {
		if devices[i].DeviceKey == "AA:BB" {
			got = &devices[i]
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, "off", got.Status)
	assert.True(t, got.LastUpdate.Equal(offline.ChangedAt))

	history, err := DBPool.LoadTransitionsBetween(ctx, "AA:BB", t0, t0.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "on", history[0].Status)
	assert.Equal(t, "off", history[1].Status)
}

func Test_RecordTransitionRejectsUnknownStatus(t *testing.T) {
	err := DBPool.RecordTransition(context.Background(), Transition{
		DeviceKey: "EE:FF",
		Status:    "maybe",
		ChangedAt: time.Now(),
	})
	assert.ErrorIs(t, err, ErrInsertFailed)
}

func Test_LoadTransitionsBetweenEmpty(t *testing.T) {
	history, err := DBPool.LoadTransitionsBetween(context.Background(), "missing", time.Unix(0, 0), time.Now())
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.NotNil(t, history)
}

func Test_LoadAllOrderedByKey(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, DBPool.RecordTransition(ctx, Transition{DeviceKey: "ZZ:01", Status: "on", ChangedAt: t0}))
	require.NoError(t, DBPool.RecordTransition(ctx, Transition{DeviceKey: "CC:DD", Status: "off", ChangedAt: t0}))

	devices, err := DBPool.LoadAll(ctx)
	require.NoError(t, err)

	keys := make([]string, 0, len(devices))
	byKey := make(map[string]DeviceStatus)
	for _, d := range devices {
		keys = append(keys, d.DeviceKey)
		byKey[d.DeviceKey] = d
	}
	assert.IsNonDecreasing(t, keys)
	assert.Equal(t, "off", byKey["CC:DD"].Status)
	assert.True(t, byKey["CC:DD"].LastUpdate.Equal(t0))
	assert.Equal(t, "on", byKey["ZZ:01"].Status)
}

func Test_RecordTransitionResumeAfterOffline(t *testing.T) {
	t0 := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	offAt := t0.Add(100 * time.Second)

	cases := []struct {
		name           string
		deviceKey      string
		resumeAt       time.Time
		expectedStatus string
		expectedUpdate time.Time
	}{
		{
			name:           "resume stamped after offline",
			deviceKey:      "RS:01",
			resumeAt:       offAt.Add(time.Millisecond),
			expectedStatus: "on",
			expectedUpdate: offAt.Add(time.Millisecond),
		},
		{
			name:           "resume stamped before offline keeps offline",
			deviceKey:      "RS:02",
			resumeAt:       t0.Add(90 * time.Second),
			expectedStatus: "off",
			expectedUpdate: offAt,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, DBPool.RecordTransition(ctx, Transition{DeviceKey: tt.deviceKey, Status: "on", ChangedAt: t0.Add(60 * time.Second)}))
			require.NoError(t, DBPool.RecordTransition(ctx, Transition{DeviceKey: tt.deviceKey, Status: "off", ChangedAt: offAt}))
			require.NoError(t, DBPool.RecordTransition(ctx, Transition{DeviceKey: tt.deviceKey, Status: "on", ChangedAt: tt.resumeAt}))

			devices, err := DBPool.LoadAll(ctx)
			require.NoError(t, err)
			var got *DeviceStatus
			for i := range devices {
				if devices[i].DeviceKey == tt.deviceKey {
					got = &devices[i]
				}
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.expectedStatus, got.Status)
			assert.True(t, got.LastUpdate.Equal(tt.expectedUpdate))

			history, err := DBPool.LoadTransitionsBetween(ctx, tt.deviceKey, t0, t0.Add(time.Hour))
			require.NoError(t, err)
			assert.Len(t, history, 3)
		})
	}
}
