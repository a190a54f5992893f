// config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "mongo", cfg.Repository)
	assert.Equal(t, int64(500<<20), cfg.Upload.MaxVideoBytes)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxThumbnailBytes)
	assert.Equal(t, 30*time.Minute, cfg.Processing.JobTimeout)
	assert.Equal(t, "processing_queue", cfg.Redis.QueueKey)
	assert.Equal(t, "video.exchange", cfg.RabbitMQ.Exchange)
	assert.Empty(t, cfg.Cassandra.Hosts)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REPOSITORY", "memory")
	t.Setenv("QUEUE", "memory")
	t.Setenv("CASSANDRA_HOSTS", "10.0.0.1:9042,10.0.0.2:9042")
	t.Setenv("PROCESSING_WORKERS", "4")
	t.Setenv("PROCESSING_JOB_TIMEOUT", "10m")
	t.Setenv("CLEANUP_TEMP_TTL", "15m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Repository)
	assert.Equal(t, []string{"10.0.0.1:9042", "10.0.0.2:9042"}, cfg.Cassandra.Hosts)
	assert.Equal(t, 4, cfg.Processing.Workers)
	assert.Equal(t, 10*time.Minute, cfg.Processing.JobTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Cleanup.TempTTL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "ftp")
	t.Setenv("PROCESSING_WORKERS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
	assert.Contains(t, err.Error(), "PROCESSING_WORKERS")
}

func TestValidateCleanupOutlivesJobs(t *testing.T) {
	tests := []struct {
		name       string
		tempTTL    time.Duration
		staleAfter time.Duration
		wantErr    []string
	}{
		{"both longer", time.Hour, time.Hour, nil},
		{"temp ttl equal", 30 * time.Minute, time.Hour, []string{"CLEANUP_TEMP_TTL"}},
		{"stale shorter", time.Hour, 10 * time.Minute, []string{"CLEANUP_STALE_AFTER"}},
		{"both shorter", time.Minute, time.Minute, []string{"CLEANUP_TEMP_TTL", "CLEANUP_STALE_AFTER"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PROCESSING_JOB_TIMEOUT", "30m")
			t.Setenv("CLEANUP_TEMP_TTL", tt.tempTTL.String())
			t.Setenv("CLEANUP_STALE_AFTER", tt.staleAfter.String())

			_, err := Load()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
