package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clinicore.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Equal(t, "Clinicore", cfg.System.Appid)
	assert.Equal(t, 1898, cfg.Web.Port)
	assert.Equal(t, 15*time.Second, cfg.Peer.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Peer.ReconcileInterval)
}

func TestLoadConfig_PeerDurationStrings(t *testing.T) {
	path := writeConfig(t, `
system:
  workdir: /tmp/clinicore
peer:
  base_url: http://peer.local:8085
  api_key: secret
  timeout: 30s
  reconcile_interval: 5s
`)
	cfg := LoadConfig(path)
	assert.Equal(t, "http://peer.local:8085", cfg.Peer.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Peer.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Peer.ReconcileInterval)
}

func TestLoadConfig_MissingDurationsFallBack(t *testing.T) {
	path := writeConfig(t, `
peer:
  base_url: http://peer.local:8085
`)
	cfg := LoadConfig(path)
	assert.Equal(t, 15*time.Second, cfg.Peer.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Peer.ReconcileInterval)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CLINICORE_WEB_PORT", "2899")
	t.Setenv("CLINICORE_PEER_BASEURL", "http://override:9000")
	t.Setenv("CLINICORE_PEER_RECONCILE_INTERVAL", "1s")

	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Equal(t, 2899, cfg.Web.Port)
	assert.Equal(t, "http://override:9000", cfg.Peer.BaseURL)
	assert.Equal(t, time.Second, cfg.Peer.ReconcileInterval)
}

func TestMergeMap(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	err := cfg.MergeMap(map[string]interface{}{
		"web": map[string]interface{}{
			"port": "3000",
		},
		"peer": map[string]interface{}{
			"Timeout": "45s",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Web.Port)
	assert.Equal(t, 45*time.Second, cfg.Peer.Timeout)
}
