package main

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"notehub/internal/config"
)

// captureLogOutput calls logConfigWarnings with the given config and returns
// the captured log output as a string.
func captureLogOutput(cfg config.Config) string {
	var buf bytes.Buffer
	original := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(original)

	logConfigWarnings(cfg)
	return buf.String()
}

func TestLogConfigWarnings_MemoryStore(t *testing.T) {
	cfg := config.Config{
		TriggerStore:            "memory",
		WebhookSecret:           "s3cret",
		CircuitBreakerThreshold: 5,
		MetricsEnabled:          true,
	}
	output := captureLogOutput(cfg)

	if !strings.Contains(output, "WARNING [P0]: TRIGGER_STORE=memory") {
		t.Error("expected memory store P0 warning, got:", output)
	}
	if strings.Contains(output, "WEBHOOK_SECRET is empty") {
		t.Error("did not expect secret warning when secret is set, got:", output)
	}
	if strings.Contains(output, "METRICS_ENABLED=false") {
		t.Error("did not expect metrics warning when metrics enabled, got:", output)
	}
}

func TestLogConfigWarnings_UnsignedWebhooks(t *testing.T) {
	cfg := config.Config{
		TriggerStore:            "postgres",
		WebhookSecret:           "",
		CircuitBreakerThreshold: 5,
		MetricsEnabled:          true,
		LeaderEnabled:           true,
	}
	output := captureLogOutput(cfg)

	if !strings.Contains(output, "WARNING [P1]: WEBHOOK_SECRET is empty") {
		t.Error("expected unsigned webhook warning, got:", output)
	}
	if strings.Contains(output, "TRIGGER_STORE=memory") {
		t.Error("did not expect memory store warning for postgres, got:", output)
	}
}

func TestLogConfigWarnings_NoBreakerNoMetrics(t *testing.T) {
	cfg := config.Config{
		TriggerStore:            "postgres",
		WebhookSecret:           "s3cret",
		CircuitBreakerThreshold: 0,
		MetricsEnabled:          false,
		LeaderEnabled:           true,
	}
	output := captureLogOutput(cfg)

	if !strings.Contains(output, "WARNING [P1]: CIRCUIT_BREAKER_THRESHOLD=0") {
		t.Error("expected disabled breaker warning, got:", output)
	}
	if !strings.Contains(output, "WARNING [P1]: METRICS_ENABLED=false") {
		t.Error("expected disabled metrics warning, got:", output)
	}
}

func TestLogConfigWarnings_SingleInstancePostgres(t *testing.T) {
	cfg := config.Config{
		TriggerStore:            "postgres",
		WebhookSecret:           "s3cret",
		CircuitBreakerThreshold: 5,
		MetricsEnabled:          true,
		LeaderEnabled:           false,
	}
	output := captureLogOutput(cfg)

	if !strings.Contains(output, "INFO: LEADER_ENABLED=false") {
		t.Error("expected single instance info, got:", output)
	}
}

func TestLogConfigWarnings_CleanProductionConfig(t *testing.T) {
	cfg := config.Config{
		TriggerStore:            "postgres",
		WebhookSecret:           "s3cret",
		CircuitBreakerThreshold: 5,
		MetricsEnabled:          true,
		LeaderEnabled:           true,
	}
	output := captureLogOutput(cfg)

	if strings.Contains(output, "WARNING") {
		t.Error("expected no warnings for production config, got:", output)
	}
}
