package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/waysensor/internal/errors"
	"codeberg.org/mutker/waysensor/internal/gpumetrics"
	"codeberg.org/mutker/waysensor/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func testConfig(t *testing.T) Config {
	t.Helper()

	return Config{
		DBPath:       filepath.Join(t.TempDir(), "waysensor", defaultDBName),
		Enabled:      true,
		BatchSize:    3,
		BatchTimeout: time.Minute,
	}
}

func countReadings(t *testing.T, path string) int {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM readings").Scan(&n))

	return n
}

func snapshot(at time.Time) *Snapshot {
	return &Snapshot{
		Timestamp:   at,
		Card:        "card1",
		Version:     "v1.3",
		Temperature: 60,
		Power:       120,
		Activity:    45,
		Frequency:   1800,
		FanSpeed:    40,
		Throttle:    1 << 33,
	}
}

func TestDisabledServiceIsNoop(t *testing.T) {
	rec, err := NewService(Config{}, logger.Default())
	require.NoError(t, err)

	assert.NoError(t, rec.Record(context.Background(), snapshot(time.Now())))
	assert.NoError(t, rec.Close())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	err := Config{Enabled: true}.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInvalidDBPath))

	err = Config{BatchSize: -1}.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInvalidConfig))
}

func TestDefaultDBPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	assert.Equal(t, "/tmp/state/waysensor/amd-gpu.db", DefaultDBPath())
}

func TestRepositoryFlushesFullBatch(t *testing.T) {
	cfg := testConfig(t)
	clock := &fakeClock{t: time.Unix(1700000000, 0)}

	repo, err := newRepository(cfg, logger.Default(), clock.now)
	require.NoError(t, err)

	require.NoError(t, repo.Record(snapshot(clock.t)))
	require.NoError(t, repo.Record(snapshot(clock.t.Add(time.Second))))
	assert.Zero(t, countReadings(t, cfg.DBPath))

	require.NoError(t, repo.Record(snapshot(clock.t.Add(2*time.Second))))
	assert.Equal(t, 3, countReadings(t, cfg.DBPath))

	require.NoError(t, repo.Close())
}

func TestRepositoryFlushesAfterTimeout(t *testing.T) {
	cfg := testConfig(t)
	clock := &fakeClock{t: time.Unix(1700000000, 0)}

	repo, err := newRepository(cfg, logger.Default(), clock.now)
	require.NoError(t, err)

	require.NoError(t, repo.Record(snapshot(clock.t)))
	assert.Zero(t, countReadings(t, cfg.DBPath))

	clock.t = clock.t.Add(cfg.BatchTimeout)
	require.NoError(t, repo.Record(snapshot(clock.t)))
	assert.Equal(t, 2, countReadings(t, cfg.DBPath))

	require.NoError(t, repo.Close())
}

func TestCloseFlushesRemaining(t *testing.T) {
	cfg := testConfig(t)

	rec, err := NewService(cfg, logger.Default())
	require.NoError(t, err)

	require.NoError(t, rec.Record(context.Background(), snapshot(time.Now())))
	require.NoError(t, rec.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	var card, version, throttle string
	var temp int64
	require.NoError(t, db.QueryRow("SELECT card, version, temperature, throttle FROM readings").
		Scan(&card, &version, &temp, &throttle))

	assert.Equal(t, "card1", card)
	assert.Equal(t, "v1.3", version)
	assert.Equal(t, int64(60), temp)
	assert.Equal(t, "0x0000000200000000", throttle)
}

func TestThrottleKeepsHighBits(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 1

	repo, err := newRepository(cfg, logger.Default(), time.Now)
	require.NoError(t, err)

	s := snapshot(time.Now())
	s.Throttle = 1<<63 | 1
	require.NoError(t, repo.Record(s))
	require.NoError(t, repo.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	var throttle string
	require.NoError(t, db.QueryRow("SELECT throttle FROM readings").Scan(&throttle))
	assert.Equal(t, "0x8000000000000001", throttle)
}

func TestRecordRejectsNilAndCancelled(t *testing.T) {
	rec, err := NewService(testConfig(t), logger.Default())
	require.NoError(t, err)
	defer rec.Close()

	err = rec.Record(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInvalidReading))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = rec.Record(ctx, snapshot(time.Now()))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSchemaMismatchBacksUpAndRecreates(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755))

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`
        CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
        INSERT INTO schema_versions VALUES (99, datetime('now'));
        CREATE TABLE readings (timestamp INTEGER PRIMARY KEY);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err := newRepository(cfg, logger.Default(), time.Now)
	require.NoError(t, err)

	version, err := GetSchemaVersion(repo.db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
	require.NoError(t, repo.Close())

	backups, err := filepath.Glob(filepath.Join(backupDir(cfg.DBPath), "amd-gpu_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestNewSnapshot(t *testing.T) {
	m := gpumetrics.V1{
		Header:             gpumetrics.Header{StructureSize: 96, FormatRevision: 1},
		TemperatureEdge:    61,
		AverageSocketPower: 90,
		AverageGfxActivity: 12,
		CurrentClocks:      gpumetrics.ClocksV1{Gfx: 500},
		CurrentFanSpeed:    30,
		ThrottleStatus:     1,
	}
	at := time.Unix(1700000000, 0)

	s := NewSnapshot("card0", m, at)

	assert.Equal(t, &Snapshot{
		Timestamp:   at,
		Card:        "card0",
		Version:     "v1.0",
		Temperature: 61,
		Power:       90,
		Activity:    12,
		Frequency:   500,
		FanSpeed:    30,
		Throttle:    1,
	}, s)
}
