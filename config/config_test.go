package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":10086", cfg.Server.Reliable)
	assert.Equal(t, []uint64{1}, cfg.Server.Rooms)
	assert.Equal(t, 20, cfg.Sim.TickRate)
	assert.Equal(t, 3*time.Second, cfg.Sim.IdlePoll)
	require.Len(t, cfg.Runways, 1)

	p := cfg.Params()
	assert.Equal(t, 50*time.Millisecond, p.TickInterval)
	assert.Equal(t, uint8(8), p.MaxRollback)
	assert.Equal(t, uint8(2), p.PublishDelay)
	assert.Equal(t, 10000.0, p.WorldBound)
}

func Test_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.json")
	body := `{
		"server": {"reliable": ":20086", "rooms": [3, 4]},
		"sim": {"tickRate": 30, "maxRollback": 12, "maxTransmissionDelay": "0s"},
		"physics": {"worldBound": 500, "bulletTTL": "2s"},
		"runways": [{"x": 10, "y": -10, "halfWidth": 5, "halfLength": 80, "rotation": 1.5}],
		"directory": {"baseURL": "http://127.0.0.1:5000"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":20086", cfg.Server.Reliable)
	assert.Equal(t, ":10087", cfg.Server.Unreliable)
	assert.Equal(t, []uint64{3, 4}, cfg.Server.Rooms)
	assert.Equal(t, "http://127.0.0.1:5000", cfg.Directory.BaseURL)

	p := cfg.Params()
	assert.Equal(t, time.Second/30, p.TickInterval)
	assert.Equal(t, uint8(12), p.MaxRollback)
	assert.Equal(t, uint8(0), p.PublishDelay)
	assert.Equal(t, 500.0, p.WorldBound)
	assert.Equal(t, 2*time.Second, p.BulletTTL)
	assert.Equal(t, 2000.0, p.MaxAltitude)

	require.Len(t, cfg.Runways, 1)
	assert.Equal(t, 80.0, cfg.Runways[0].HalfLength)
}

func Test_LoadEnv(t *testing.T) {
	t.Setenv("ROLLBACK_SIM_TICKRATE", "60")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Sim.TickRate)
}

func Test_Validate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sim:\n  maxRollback: 200\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
