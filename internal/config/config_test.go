package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 3600, cfg.Dashboard.SessionCeilingSeconds)
	assert.Equal(t, time.Second, cfg.Dashboard.TickInterval)
	assert.Equal(t, 300*time.Millisecond, cfg.Dashboard.TabSettleDelay)
	assert.Equal(t, 5*time.Second, cfg.Dashboard.ToastTTL)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Empty(t, cfg.Events.NatsURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_CEILING_SECONDS", "90")
	t.Setenv("TAB_SETTLE_DELAY", "50ms")
	t.Setenv("UPSTREAM_TIMEOUT", "not-a-duration")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg := Load()

	assert.Equal(t, 90, cfg.Dashboard.SessionCeilingSeconds)
	assert.Equal(t, 50*time.Millisecond, cfg.Dashboard.TabSettleDelay)
	assert.Equal(t, 60*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "memory", cfg.Storage.Driver)
}
