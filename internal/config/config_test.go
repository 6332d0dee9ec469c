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
	path := filepath.Join(t.TempDir(), "web-offline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
origin: https://academy.example
data_dir: /var/lib/web-offline
cache:
  version: v2.0.0
  manifest: ["/", "/index.html"]
forms:
  timeout: 5s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://academy.example", cfg.Origin)
	assert.Equal(t, []string{"/", "/index.html"}, cfg.Cache.Manifest)
	assert.Equal(t, "excellence-academy-static-v2.0.0", cfg.Cache.StaticPartition())
	assert.Equal(t, "excellence-academy-dynamic-v2.0.0", cfg.Cache.DynamicPartition())
	assert.Equal(t, 5*time.Second, cfg.Forms.Timeout)
	assert.Equal(t, "/var/lib/web-offline/cache.sock", cfg.Cache.Socket)
	assert.Equal(t, "/var/lib/web-offline/queue.bbolt", cfg.QueueDB())
	// untouched defaults survive
	assert.Equal(t, []string{"wa.me", "api.whatsapp.com"}, cfg.Routing.BypassHosts)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "origin: https://academy.example\n")
	t.Setenv("WEB_OFFLINE_ORIGIN", "http://localhost:3000")
	t.Setenv("WEB_OFFLINE_CACHE_VERSION", "v9")
	t.Setenv("WEB_OFFLINE_ROUTING_BYPASS_HOSTS", "wa.me,t.me")
	t.Setenv("WEB_OFFLINE_PROBE_DISABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.Origin)
	assert.Equal(t, "v9", cfg.Cache.Version)
	assert.Equal(t, []string{"wa.me", "t.me"}, cfg.Routing.BypassHosts)
	assert.True(t, cfg.Probe.Disabled)
	assert.Equal(t, "127.0.0.1:8081", cfg.AdminListen)
}

func TestLoad_AdminListenerIsSeparate(t *testing.T) {
	path := writeConfig(t, "origin: https://academy.example\nlisten: 0.0.0.0:80\nadmin_listen: 0.0.0.0:80\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "admin_listen")

	path = writeConfig(t, "origin: https://academy.example\nadmin_listen: \"\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.AdminListen)
}

func TestLoad_RequiresOrigin(t *testing.T) {
	_, err := Load("")
	assert.ErrorContains(t, err, "origin is required")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Origin = "academy.example"
	assert.Error(t, cfg.Validate())

	cfg.Origin = "https://academy.example"
	assert.NoError(t, cfg.Validate())

	cfg.Cache.Manifest = nil
	assert.ErrorContains(t, cfg.Validate(), "manifest")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}
