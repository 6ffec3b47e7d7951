package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizzapp-service/internal/app"
	"quizzapp-service/internal/infra/memory"
	"quizzapp-service/internal/infra/sqlite"
)

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"start", "migrate", "sync", "play", "bot"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestLoadRuntimeDefaults(t *testing.T) {
	rt, err := loadRuntime(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), wiringOptions{})
	require.NoError(t, err)
	defer rt.close()

	assert.Nil(t, rt.pool)
	assert.Nil(t, rt.redis)
	assert.Equal(t, app.DefaultLockout, rt.service.Lockout())

	recorder, err := rt.scoreRecorder(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &memory.ScoreStore{}, recorder)
}

func TestLoadRuntimeSQLiteAndLockoutOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "quiz:\n  lockout: 2s\nsqlite:\n  path: " + filepath.Join(dir, "scores.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	rt, err := loadRuntime(context.Background(), path, wiringOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, rt.service.Lockout())
	recorder, err := rt.scoreRecorder(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &sqlite.ScoreStore{}, recorder)
	rt.close()

	zero := time.Duration(0)
	rt, err = loadRuntime(context.Background(), path, wiringOptions{lockout: &zero})
	require.NoError(t, err)
	defer rt.close()
	assert.Zero(t, rt.service.Lockout())
}

func TestLoadRuntimeRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subjects:\n  url: not a url\n"), 0o600))

	_, err := loadRuntime(context.Background(), path, wiringOptions{})
	assert.Error(t, err)
}
