package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"umkm-map/internal/grouping"
)

func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9595, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "umkm-session", cfg.Server.CookieName)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, uint64(42), cfg.Clustering.Seed)
	assert.Equal(t, 300, cfg.Clustering.MaxIterations)
	assert.Equal(t, 10, cfg.Clustering.Runs)
	assert.InDelta(t, 1e-4, cfg.Clustering.Tolerance, 1e-12)
	assert.Equal(t, 2, cfg.Clustering.MinK)
	assert.Equal(t, 8, cfg.Clustering.MaxK)
	assert.Equal(t, 3, cfg.Clustering.DefaultK)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, 30, cfg.Upload.PerMinute)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL())
	assert.Equal(t, grouping.DefaultOptions(), cfg.Clustering.Options())
}

func TestLoadFromYAML(t *testing.T) {
	dir := inTempDir(t)

	yaml := `
server:
  port: 8088
log:
  level: debug
  format: console
clustering:
  max_k: 5
  default_k: 4
session:
  ttl_minutes: 15
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Clustering.MaxK)
	assert.Equal(t, 4, cfg.Clustering.DefaultK)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL())
	assert.Equal(t, 2, cfg.Clustering.MinK)
}

func TestLoadFromEnv(t *testing.T) {
	inTempDir(t)
	t.Setenv("UMKMMAP_SERVER_PORT", "7000")
	t.Setenv("UMKMMAP_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_SeedZero(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("clustering:\n  seed: 0\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cfg.Clustering.Seed)
	assert.Equal(t, uint64(0), grouping.New(cfg.Clustering.Options()).Options().Seed)
}

func TestLoad_InvalidClustering(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("clustering:\n  min_k: 1\n"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{
		Clustering: ClusteringConfig{MinK: 2, MaxK: 8, DefaultK: 3},
		Upload:     UploadConfig{MaxBytes: 1},
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.Clustering.MaxK = 1
	assert.Error(t, bad.Validate())

	bad = base
	bad.Clustering.DefaultK = 9
	assert.Error(t, bad.Validate())

	bad = base
	bad.Upload.MaxBytes = 0
	assert.Error(t, bad.Validate())
}

func TestInitLogger(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "error", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.WarnLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
