package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsProduction)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 90, cfg.BulkMaxSpanDays)
	assert.Equal(t, 20, cfg.BulkMaxSlotPatterns)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.CourtCacheTTL)
	assert.Equal(t, time.Hour, cfg.CompletionSweepInterval)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without dsn", map[string]string{"STORAGE_DRIVER": "postgres", "DB_DSN": "", "JWT_SECRET": "s"}},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "sqlite", "JWT_SECRET": "s"}},
		{"no secret", map[string]string{"STORAGE_DRIVER": "memory", "JWT_SECRET": ""}},
		{"bad span", map[string]string{"STORAGE_DRIVER": "memory", "JWT_SECRET": "s", "BULK_MAX_SPAN_DAYS": "ninety"}},
		{"bad ttl", map[string]string{"STORAGE_DRIVER": "memory", "JWT_SECRET": "s", "COURT_CACHE_TTL": "soon"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
