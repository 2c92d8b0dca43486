package app

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.MetricsAddr)
	}
	if cfg.LedgerDriver != LedgerDriverMemory {
		t.Errorf("expected memory ledger by default, got %s", cfg.LedgerDriver)
	}
	if cfg.Currency != "usd" {
		t.Errorf("expected usd, got %s", cfg.Currency)
	}
	if cfg.BackendBaseURL != "" {
		t.Errorf("expected the mock gateway by default, got backend %s", cfg.BackendBaseURL)
	}
}

func TestReadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":18080")
	t.Setenv("LEDGER_DRIVER", LedgerDriverRedis)
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("MARKER_CLEANUP_INTERVAL", "5m")
	t.Setenv("MARKER_CLEANUP_BATCH_SIZE", "100")

	cfg := ReadConfig()

	if cfg.HTTPAddr != ":18080" {
		t.Errorf("expected :18080, got %s", cfg.HTTPAddr)
	}
	if cfg.LedgerDriver != LedgerDriverRedis {
		t.Errorf("expected redis, got %s", cfg.LedgerDriver)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Errorf("expected redis:6379, got %s", cfg.RedisAddr)
	}
	if cfg.KafkaBrokers != "kafka-1:9092,kafka-2:9092" {
		t.Errorf("unexpected brokers %s", cfg.KafkaBrokers)
	}
	if cfg.CleanupInterval != 5*time.Minute {
		t.Errorf("expected 5m, got %v", cfg.CleanupInterval)
	}
	if cfg.CleanupBatchSize != 100 {
		t.Errorf("expected 100, got %d", cfg.CleanupBatchSize)
	}
}

func TestReadConfig_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("MARKER_CLEANUP_INTERVAL", "not-a-duration")
	t.Setenv("MARKER_CLEANUP_BATCH_SIZE", "-5")

	cfg := ReadConfig()
	def := DefaultConfig()

	if cfg.CleanupInterval != def.CleanupInterval {
		t.Errorf("expected default interval, got %v", cfg.CleanupInterval)
	}
	if cfg.CleanupBatchSize != def.CleanupBatchSize {
		t.Errorf("expected default batch size, got %d", cfg.CleanupBatchSize)
	}
}
