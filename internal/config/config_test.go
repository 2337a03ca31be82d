package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  name: toonface
  user: app
  password: secret
transform:
  cartoonify_url: http://ai:8000/cartoonify
  segment_head_url: http://ai:8000/segment-head
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080/uploads", cfg.Server.BaseURL)
	assert.Equal(t, int64(10*1024*1024), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, 180*time.Second, cfg.Transform.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_BaseURLFollowsPort(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9090/uploads", cfg.Server.BaseURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TF_SERVER_PORT", "3000")
	t.Setenv("TF_DB_HOST", "db.internal")
	t.Setenv("TF_DB_PASSWORD", "fromenv")
	t.Setenv("TF_MINIO_BUCKET", "toonface-prod")
	t.Setenv("TF_CARTOONIFY_URL", "http://ai.prod:8000/cartoonify")
	t.Setenv("TF_TRANSFORM_TIMEOUT", "90s")

	path := writeConfig(t, `
server:
  port: 8080
database:
  host: localhost
  password: fromfile
minio:
  bucket: toonface-dev
transform:
  cartoonify_url: http://localhost:8000/cartoonify
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "fromenv", cfg.Database.Password)
	assert.Equal(t, "toonface-prod", cfg.MinIO.Bucket)
	assert.Equal(t, "http://ai.prod:8000/cartoonify", cfg.Transform.CartoonifyURL)
	assert.Equal(t, 90*time.Second, cfg.Transform.Timeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, Name: "toonface", User: "app", Password: "pw"}
	assert.Equal(t, "postgres://app:pw@db:5433/toonface?sslmode=disable", d.DSN())
}
