package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "finecho.db", cfg.DBPath)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "ffmpeg", cfg.FFmpegBin)
	assert.Equal(t, 60*time.Second, cfg.IngestionTimeout)
	assert.Equal(t, 10*time.Minute, cfg.TranscribeTimeout)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, 2, cfg.WorkerCount)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/data/calls.db")
	t.Setenv("SEMANTIC_URL", "https://sem.example/v1/analyze")
	t.Setenv("TRANSCRIBE_TIMEOUT_SEC", "120")
	t.Setenv("WORKER_COUNT", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/data/calls.db", cfg.DBPath)
	assert.Equal(t, "https://sem.example/v1/analyze", cfg.SemanticURL)
	assert.Equal(t, 2*time.Minute, cfg.TranscribeTimeout)
	assert.Equal(t, 4, cfg.WorkerCount)
}

func TestLoadFileThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: \"7000\"\nupload_dir: /srv/uploads\nworker_count: 8\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7100")

	cfg, err := Load()
	require.NoError(t, err)
	// Env var beats the file; file beats the default.
	assert.Equal(t, "7100", cfg.Port)
	assert.Equal(t, "/srv/uploads", cfg.UploadDir)
	assert.Equal(t, 8, cfg.WorkerCount)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveCounts(t *testing.T) {
	t.Setenv("QUEUE_SIZE", "0")
	t.Setenv("WORKER_COUNT", "-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, 2, cfg.WorkerCount)
}
