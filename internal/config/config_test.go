package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  name: deertracker
  user: dt
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, 0.5, cfg.Vision.DetectionThreshold)
	assert.Equal(t, 1, cfg.Vision.WorkerCount)
	assert.Equal(t, 85, cfg.Vision.CropQuality)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
vision:
  model_path: /opt/models/md_v5.onnx
  detection_threshold: 0.8
  worker_count: 4
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/models/md_v5.onnx", cfg.Vision.ModelPath)
	assert.Equal(t, 0.8, cfg.Vision.DetectionThreshold)
	assert.Equal(t, 4, cfg.Vision.WorkerCount)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DT_DB_HOST", "db.internal")
	t.Setenv("DT_DB_PASSWORD", "hunter2")
	t.Setenv("DT_WORKER_COUNT", "6")

	path := writeConfig(t, `
database:
  host: localhost
  password: changeme
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "hunter2", cfg.Database.Password)
	assert.Equal(t, 6, cfg.Vision.WorkerCount)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "dt", User: "u", Password: "p"}
	assert.Equal(t, "postgres://u:p@db:5432/dt?sslmode=disable", d.DSN())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
