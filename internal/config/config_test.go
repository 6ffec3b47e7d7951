package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultSubjectsURL, cfg.Subjects.URL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
subjects:
  url: "http://localhost:1234/subjects"
  timeout: "3s"
quiz:
  lockout: "250ms"
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "http://localhost:1234/subjects", cfg.Subjects.URL)
	assert.Equal(t, 250*time.Millisecond, TTLDuration(cfg.Quiz.Lockout, time.Second))
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
subjects:
  url: "not a url"
log:
  level: loud
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestTTLDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, TTLDuration("2s", time.Minute))
}
