package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, 48.0, cfg.PxPerHour)
	assert.Equal(t, 2.0, cfg.GapPx)
	assert.Equal(t, 365, cfg.ShareRangeDays)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_NormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "base_url: https://sched.example.com\nweek_start: friday\ngap_px: 100\npx_per_hour: 60\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://sched.example.com", cfg.BaseURL)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, 60.0, cfg.PxPerHour)
	assert.Equal(t, 2.0, cfg.GapPx)
	assert.Equal(t, "*/15 * * * *", cfg.RefreshCron)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Timezone = "Asia/Seoul"
	cfg.WeekStart = "monday"
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.Equal(t, time.Monday, got.FirstWeekday())

	loc, err := got.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", loc.String())
}

func TestLocation_Unknown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	loc, err := cfg.Location()
	assert.Error(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestShareRange(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	start, end := cfg.ShareRange(now)
	assert.Equal(t, time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, 10, 19, 12, 0, 0, 0, time.UTC), end)
}
