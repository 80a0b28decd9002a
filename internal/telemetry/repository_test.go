package telemetry_test

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/logger"
	"codeberg.org/mutker/wattlog/internal/sensor"
	"codeberg.org/mutker/wattlog/internal/telemetry"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*telemetry.SQLiteStore, string) {
	t.Helper()

	cfg := telemetry.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "data", "energy.db")

	store, err := telemetry.NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, cfg.DBPath
}

func okReading(device int, power float64) *telemetry.Reading {
	return &telemetry.Reading{
		Timestamp: "2024-05-01 12:00:00",
		DeviceID:  device,
		Power:     power,
		Energy:    power * sensor.EnergyFactor,
		Status:    sensor.StatusOK,
	}
}

func faultReading(device int, status sensor.Status) *telemetry.Reading {
	return &telemetry.Reading{
		Timestamp: "2024-05-01 12:00:00",
		DeviceID:  device,
		Power:     sensor.Sentinel,
		Energy:    sensor.Sentinel,
		Status:    status,
	}
}

func TestInsertAssignsIncreasingIDs(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	readings := []*telemetry.Reading{
		okReading(0, 120),
		faultReading(1, sensor.StatusDisconnected),
		faultReading(2, sensor.StatusOverConsumption),
		okReading(0, 300),
	}

	var last int64
	for _, r := range readings {
		id, err := store.Insert(ctx, r)
		require.NoError(t, err)
		assert.Greater(t, id, last)
		assert.Equal(t, id, r.ID)
		last = id
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(readings), n)
}

func TestRecentBatchNewestFirst(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		_, err := store.Insert(ctx, okReading(i%3, float64(100+i)))
		require.NoError(t, err)
	}

	batch, err := store.RecentBatch(ctx, 5)
	require.NoError(t, err)
	require.Len(t, batch, 5)

	for i := 1; i < len(batch); i++ {
		assert.Greater(t, batch[i-1].ID, batch[i].ID)
	}
	assert.Equal(t, 107.0, batch[0].Power)
	assert.Equal(t, sensor.StatusOK, batch[0].Status)
	assert.Equal(t, "2024-05-01 12:00:00", batch[0].Timestamp)

	all, err := store.RecentBatch(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, all, 8)

	none, err := store.RecentBatch(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = store.RecentBatch(ctx, -1)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

func TestPruneKeepsHighestIDs(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 20; i++ {
		id, err := store.Insert(ctx, okReading(i%3, float64(100+i)))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	deleted, err := store.Prune(ctx, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(5), deleted)

	left, err := store.RecentBatch(ctx, 100)
	require.NoError(t, err)
	require.Len(t, left, 15)

	want := ids[5:]
	for i, r := range left {
		assert.Equal(t, want[len(want)-1-i], r.ID)
	}
}

func TestPruneBelowWindowIsNoop(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := store.Insert(ctx, okReading(0, 150))
		require.NoError(t, err)
	}

	deleted, err := store.Prune(ctx, 15)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = store.Prune(ctx, -1)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

func TestIDsNeverReusedAfterPrune(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	var last int64
	for round := 0; round < 3; round++ {
		for i := 0; i < 5; i++ {
			id, err := store.Insert(ctx, okReading(i, 200))
			require.NoError(t, err)
			assert.Greater(t, id, last)
			last = id
		}
		_, err := store.Prune(ctx, 2)
		require.NoError(t, err)
	}

	_, err := store.Prune(ctx, 0)
	require.NoError(t, err)

	id, err := store.Insert(ctx, okReading(0, 200))
	require.NoError(t, err)
	assert.Greater(t, id, last)
}

func TestLatestPerDevice(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, okReading(2, 110))
	require.NoError(t, err)
	_, err = store.Insert(ctx, okReading(0, 120))
	require.NoError(t, err)
	_, err = store.Insert(ctx, okReading(1, 130))
	require.NoError(t, err)
	_, err = store.Insert(ctx, faultReading(2, sensor.StatusOverConsumption))
	require.NoError(t, err)
	lastZero, err := store.Insert(ctx, okReading(0, 140))
	require.NoError(t, err)

	latest, err := store.LatestPerDevice(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 3)

	assert.Equal(t, 0, latest[0].DeviceID)
	assert.Equal(t, lastZero, latest[0].ID)
	assert.Equal(t, 140.0, latest[0].Power)
	assert.Equal(t, 1, latest[1].DeviceID)
	assert.Equal(t, 2, latest[2].DeviceID)
	assert.Equal(t, sensor.StatusOverConsumption, latest[2].Status)
	assert.Equal(t, sensor.Sentinel, latest[2].Energy)
}

func TestInsertRejectsInvalidReading(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	cases := map[string]*telemetry.Reading{
		"nil":       nil,
		"timestamp": {DeviceID: 0, Power: 100, Energy: 0.1, Status: sensor.StatusOK},
		"status":    {Timestamp: "2024-05-01 12:00:00", Power: 100, Energy: 0.1, Status: sensor.Status(9)},
		"mismatch":  {Timestamp: "2024-05-01 12:00:00", Power: sensor.Sentinel, Energy: 0.1, Status: sensor.StatusOK},
		"fault":     {Timestamp: "2024-05-01 12:00:00", Power: 100, Energy: 0.1, Status: sensor.StatusDisconnected},
	}

	for name, r := range cases {
		_, err := store.Insert(ctx, r)
		assert.True(t, errors.HasCode(err, telemetry.ErrInvalidReading), name)
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReopenKeepsData(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "energy.db")

	store, err := telemetry.NewRepository(cfg, nil)
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), okReading(1, 250))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	cfg.ReadOnly = true
	ro, err := telemetry.NewRepository(cfg, nil)
	require.NoError(t, err)
	defer ro.Close()

	latest, err := ro.LatestPerDevice(context.Background())
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 250.0, latest[0].Power)
}

func TestReadOnlyRequiresExistingStore(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "missing.db")
	cfg.ReadOnly = true

	_, err := telemetry.NewRepository(cfg, nil)
	assert.True(t, errors.HasCode(err, telemetry.ErrStorageInit))
}

func TestReadOnlyRequiresTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE other (x INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	cfg := telemetry.Config{DBPath: path, ReadOnly: true}
	_, err = telemetry.NewRepository(cfg, nil)
	assert.True(t, errors.HasCode(err, telemetry.ErrSchemaMissing))
}

func TestLegacyTableGainsStatusColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE energy_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		appliance_id INTEGER,
		power_consumption REAL,
		cumulative_energy REAL)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO energy_data (timestamp, appliance_id, power_consumption, cumulative_energy)
		VALUES ('2024-01-01 00:00:00', 3, 150, 0.15)`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	store, err := telemetry.NewRepository(telemetry.Config{DBPath: path}, nil)
	require.NoError(t, err)
	defer store.Close()

	latest, err := store.LatestPerDevice(context.Background())
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, sensor.StatusOK, latest[0].Status)
	assert.Equal(t, 3, latest[0].DeviceID)

	_, err = store.Insert(context.Background(), faultReading(3, sensor.StatusDisconnected))
	require.NoError(t, err)
}

func TestInvalidConfig(t *testing.T) {
	_, err := telemetry.NewRepository(telemetry.Config{}, nil)
	assert.True(t, errors.HasCode(err, telemetry.ErrInvalidConfig))
	assert.True(t, errors.HasCode(err, telemetry.ErrInvalidDBPath))
}

func TestReadingHelpers(t *testing.T) {
	r := okReading(1, 200)
	assert.True(t, r.Measured())
	assert.NoError(t, r.Validate())
	assert.Equal(t, "#0 2024-05-01 12:00:00 device=1 power=200.00W energy=0.200kWh status=OK", r.String())

	sample := sensor.Sample{DeviceID: 2, Timestamp: "t", Watts: sensor.Sentinel, EnergyKWh: sensor.Sentinel, Status: sensor.StatusDisconnected}
	fromSample := telemetry.NewReading(sample)
	assert.False(t, fromSample.Measured())
	assert.Equal(t, 2, fromSample.DeviceID)
	assert.Equal(t, sensor.StatusDisconnected, fromSample.Status)
}

func mockStore(t *testing.T) (*telemetry.SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return telemetry.NewRepositoryFromDB(db, logger.Nop()), mock
}

func TestInsertWriteFailed(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectExec(`INSERT INTO energy_data`).
		WithArgs("2024-05-01 12:00:00", 1, 200.0, sqlmock.AnyArg(), "OK").
		WillReturnError(stderrors.New("disk I/O error"))

	_, err := store.Insert(context.Background(), okReading(1, 200))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, telemetry.ErrWriteFailed))
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUsesAssignedID(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectExec(`INSERT INTO energy_data`).
		WillReturnResult(sqlmock.NewResult(42, 1))

	r := faultReading(0, sensor.StatusDisconnected)
	id, err := store.Insert(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, int64(42), r.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPruneFailed(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectExec(`DELETE FROM energy_data`).
		WithArgs(15).
		WillReturnError(stderrors.New("database is locked"))

	_, err := store.Prune(context.Background(), 15)
	assert.True(t, errors.HasCode(err, telemetry.ErrPruneFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentBatchReadFailed(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectQuery(`SELECT id, timestamp`).
		WithArgs(5).
		WillReturnError(fmt.Errorf("no such table: energy_data"))

	_, err := store.RecentBatch(context.Background(), 5)
	assert.True(t, errors.HasCode(err, telemetry.ErrReadFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentBatchScansRows(t *testing.T) {
	store, mock := mockStore(t)

	rows := sqlmock.NewRows([]string{"id", "timestamp", "appliance_id", "power_consumption", "cumulative_energy", "status"}).
		AddRow(9, "2024-05-01 12:00:05", 2, -1.0, -1.0, "Device Not connected").
		AddRow(8, "2024-05-01 12:00:05", 1, 200.0, 0.2, "OK")
	mock.ExpectQuery(`SELECT id, timestamp`).WithArgs(2).WillReturnRows(rows)

	batch, err := store.RecentBatch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, int64(9), batch[0].ID)
	assert.Equal(t, sensor.StatusDisconnected, batch[0].Status)
	assert.Equal(t, 200.0, batch[1].Power)
	assert.NoError(t, mock.ExpectationsWereMet())
}
