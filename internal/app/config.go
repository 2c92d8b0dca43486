package app

import (
	"os"
	"strconv"
	"time"
)

// Леджеры pending-маркеров, которые умеет собирать приложение.
const (
	LedgerDriverMemory   = "memory"
	LedgerDriverRedis    = "redis"
	LedgerDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	// HTTPAddr — адрес публичного API.
	HTTPAddr string
	// MetricsAddr — адрес сервера метрик и health-проб.
	MetricsAddr string

	// BackendBaseURL — базовый URL бэкенд-леджера заказов. Пустое значение
	// включает mock-шлюз (dev-режим).
	BackendBaseURL string
	// BackendToken — сервисный bearer-токен для бэкенда.
	BackendToken string

	// SuccessURL и CancelURL — маршруты возврата, передаваемые провайдеру
	// при создании платёжной сессии.
	SuccessURL string
	CancelURL  string
	// Currency — валюта line items платёжной сессии.
	Currency string

	// JWTSecret — ключ проверки токенов покупателей; пустой включает
	// гостевой режим.
	JWTSecret string

	// LedgerDriver выбирает бэкенд pending-маркеров: memory, redis, postgres.
	LedgerDriver string
	RedisAddr    string
	PostgresDSN  string

	// KafkaBrokers — список брокеров через запятую; пустой отключает Kafka.
	KafkaBrokers string

	CleanupInterval  time.Duration
	CleanupBatchSize int

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает конфигурацию dev-режима: in-memory леджер,
// mock-шлюз, гостевая авторизация.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:         ":8080",
		MetricsAddr:      ":9090",
		SuccessURL:       "http://localhost:8080/payments/success",
		CancelURL:        "http://localhost:8080/payments/cancel",
		Currency:         "usd",
		LedgerDriver:     LedgerDriverMemory,
		RedisAddr:        "localhost:6379",
		CleanupInterval:  15 * time.Minute,
		CleanupBatchSize: 500,
		RequestTimeout:   30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// ReadConfig собирает конфигурацию из окружения поверх DefaultConfig.
func ReadConfig() Config {
	cfg := DefaultConfig()

	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)
	cfg.BackendBaseURL = getEnv("BACKEND_BASE_URL", cfg.BackendBaseURL)
	cfg.BackendToken = getEnv("BACKEND_TOKEN", cfg.BackendToken)
	cfg.SuccessURL = getEnv("CHECKOUT_SUCCESS_URL", cfg.SuccessURL)
	cfg.CancelURL = getEnv("CHECKOUT_CANCEL_URL", cfg.CancelURL)
	cfg.Currency = getEnv("CHECKOUT_CURRENCY", cfg.Currency)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.LedgerDriver = getEnv("LEDGER_DRIVER", cfg.LedgerDriver)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.PostgresDSN = getEnv("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.KafkaBrokers = getEnv("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.CleanupInterval = getEnvDuration("MARKER_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.CleanupBatchSize = getEnvInt("MARKER_CLEANUP_BATCH_SIZE", cfg.CleanupBatchSize)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
