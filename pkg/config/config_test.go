package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 3, cfg.Ledger.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.Ledger.RetryBackoff)
	assert.True(t, cfg.Ledger.AllowOverpayment)
	assert.Equal(t, time.Hour, cfg.Ledger.OverdueSweepInterval)
	assert.False(t, cfg.FeeCache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.FeeCache.TTL)
	assert.Equal(t, 2, cfg.Events.Workers)
	assert.Equal(t, 256, cfg.Events.BufferSize)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("LEDGER_MAX_RETRIES", 0)
	v.Set("LEDGER_ALLOW_OVERPAYMENT", false)
	v.Set("FEE_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := fromViper(v)

	assert.Equal(t, 3, cfg.Ledger.MaxRetries)
	assert.False(t, cfg.Ledger.AllowOverpayment)
	assert.Equal(t, 5*time.Minute, cfg.FeeCache.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
