package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("WEBHOOK_HMAC_KEY", "hook-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.LedgerDriver)
	assert.Equal(t, int64(50_000), cfg.MinStake)
	assert.Equal(t, 30*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.KafkaBrokerList())
}

func TestLoadPrefixedOverrides(t *testing.T) {
	t.Setenv("WHEELBET_JWT_SECRET", testSecret)
	t.Setenv("WHEELBET_WEBHOOK_SKIP_SIG", "true")
	t.Setenv("WHEELBET_LEDGER_DRIVER", "SQLite")
	t.Setenv("WHEELBET_SQLITE_PATH", ":memory:")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("MAX_STAKE", "1000000")
	t.Setenv("DEPOSIT_SWEEP_SCHEDULE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.LedgerDriver)
	assert.True(t, cfg.WebhookSkipSignature)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokerList())
	assert.Equal(t, int64(1_000_000), cfg.MaxStake)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"short secret", map[string]string{"JWT_SECRET": "short"}},
		{"missing webhook key", map[string]string{"JWT_SECRET": testSecret}},
		{"bad duration", map[string]string{"JWT_SECRET": testSecret, "WEBHOOK_SKIP_SIG": "true", "GATEWAY_TIMEOUT": "soon"}},
		{"unknown driver", map[string]string{"JWT_SECRET": testSecret, "WEBHOOK_SKIP_SIG": "true", "LEDGER_DRIVER": "mysql"}},
		{"inverted stakes", map[string]string{"JWT_SECRET": testSecret, "WEBHOOK_SKIP_SIG": "true", "MIN_STAKE": "500", "MAX_STAKE": "100"}},
		{"stake payout overflows", map[string]string{"JWT_SECRET": testSecret, "WEBHOOK_SKIP_SIG": "true", "MAX_STAKE": "461168601842738791"}},
		{"failure rate", map[string]string{"JWT_SECRET": testSecret, "WEBHOOK_SKIP_SIG": "true", "GATEWAY_FAILURE_RATE": "1.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
