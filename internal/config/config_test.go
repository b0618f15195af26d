package config

import (
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

var envMu sync.Mutex

func TestLoadAll_Defaults_NoRedis(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if cfg.Modem.URL != "http://192.168.1.1/jrd/webapi" {
		t.Fatalf("unexpected Modem.URL default: %q", cfg.Modem.URL)
	}
	if cfg.Modem.Timeout != 10*time.Second {
		t.Fatalf("unexpected Modem.Timeout default: %v", cfg.Modem.Timeout)
	}
	if cfg.Send.Timeout != 60*time.Second {
		t.Fatalf("unexpected Send.Timeout default: %v", cfg.Send.Timeout)
	}
	if cfg.Send.PollInterval != 500*time.Millisecond {
		t.Fatalf("unexpected Send.PollInterval default: %v", cfg.Send.PollInterval)
	}
	if cfg.Send.InitialDelay != time.Second {
		t.Fatalf("unexpected Send.InitialDelay default: %v", cfg.Send.InitialDelay)
	}
	if cfg.Delete.RatePerSecond != 10 {
		t.Fatalf("unexpected Delete.RatePerSecond default: %d", cfg.Delete.RatePerSecond)
	}
	if cfg.Export.Dir != "sms_messages" {
		t.Fatalf("unexpected Export.Dir default: %q", cfg.Export.Dir)
	}
	if cfg.Monitor.Interval != 10*time.Second {
		t.Fatalf("unexpected Monitor.Interval default: %v", cfg.Monitor.Interval)
	}
	if cfg.Monitor.LogPath != "sms_messages/monitor.log" {
		t.Fatalf("unexpected Monitor.LogPath default: %q", cfg.Monitor.LogPath)
	}
	if cfg.Monitor.History != 10000 {
		t.Fatalf("unexpected Monitor.History default: %d", cfg.Monitor.History)
	}
	if cfg.Phone.Region != "RU" {
		t.Fatalf("unexpected Phone.Region default: %q", cfg.Phone.Region)
	}
	if cfg.Log.Level != "info" || cfg.Log.File != "" {
		t.Fatalf("unexpected Log defaults: %+v", cfg.Log)
	}

	if cfg.Redis.Enabled {
		t.Fatalf("expected Redis disabled when REDIS_ADDR not set")
	}
}

func TestLoadAll_Overrides(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	t.Setenv("MODEM_URL", "http://10.0.0.1/jrd/webapi")
	t.Setenv("SEND_POLL_MS", "250")
	t.Setenv("MONITOR_INTERVAL_SECONDS", "3")
	t.Setenv("LOG_FILE", "/tmp/smsctl.log")

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if cfg.Modem.URL != "http://10.0.0.1/jrd/webapi" {
		t.Fatalf("unexpected Modem.URL: %q", cfg.Modem.URL)
	}
	if cfg.Send.PollInterval != 250*time.Millisecond {
		t.Fatalf("unexpected Send.PollInterval: %v", cfg.Send.PollInterval)
	}
	if cfg.Monitor.Interval != 3*time.Second {
		t.Fatalf("unexpected Monitor.Interval: %v", cfg.Monitor.Interval)
	}
	if cfg.Log.File != "/tmp/smsctl.log" {
		t.Fatalf("unexpected Log.File: %q", cfg.Log.File)
	}
}

func TestLoadAll_HappyPath_WithRedis(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_TTL_SECONDS", "42")

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if !cfg.Redis.Enabled {
		t.Fatalf("expected Redis enabled")
	}
	if cfg.Redis.Address != "localhost:6379" {
		t.Fatalf("unexpected Redis.Address: %q", cfg.Redis.Address)
	}
	if cfg.Redis.Password != "secret" {
		t.Fatalf("unexpected Redis.Password: %q", cfg.Redis.Password)
	}
	if cfg.Redis.DB != 3 {
		t.Fatalf("unexpected Redis.DB: %d", cfg.Redis.DB)
	}
	if cfg.Redis.TTL != 42*time.Second {
		t.Fatalf("unexpected Redis.TTL: %v", cfg.Redis.TTL)
	}
}

func TestLoadAll_InvalidModemURL(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)
	t.Setenv("MODEM_URL", "192.168.1.1")

	_, err := LoadAll()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "MODEM_URL") {
		t.Fatalf("expected error mentioning MODEM_URL, got: %v", err)
	}
}

func TestLoadAll_InvalidInts(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"invalid MODEM_TIMEOUT_SECONDS", "MODEM_TIMEOUT_SECONDS", "abc"},
		{"invalid SEND_POLL_MS", "SEND_POLL_MS", "nope"},
		{"invalid MONITOR_HISTORY", "MONITOR_HISTORY", "x"},
		{"invalid REDIS_DB", "REDIS_DB", "bad"},
		{"invalid REDIS_TTL_SECONDS", "REDIS_TTL_SECONDS", "bad"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			clearTestEnv(t)

			// Enable redis only for redis-related invalid ints.
			if strings.HasPrefix(tc.key, "REDIS_") {
				t.Setenv("REDIS_ADDR", "localhost:6379")
			}

			t.Setenv(tc.key, tc.val)

			_, err := LoadAll()
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.key) {
				t.Fatalf("expected error mentioning %s, got: %v", tc.key, err)
			}
		})
	}
}

func TestLoadAll_ValidationFailures(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	cases := []struct {
		key string
		val string
	}{
		{"MODEM_TIMEOUT_SECONDS", "0"},
		{"SEND_TIMEOUT_SECONDS", "0"},
		{"SEND_POLL_MS", "-1"},
		{"SEND_INITIAL_DELAY_MS", "-5"},
		{"DELETE_RATE_PER_SECOND", "0"},
		{"MONITOR_INTERVAL_SECONDS", "0"},
		{"MONITOR_LOG_MAX_MB", "0"},
		{"MONITOR_HISTORY", "0"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.key, func(t *testing.T) {
			clearTestEnv(t)
			t.Setenv(tc.key, tc.val)

			_, err := LoadAll()
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.key) {
				t.Fatalf("expected error mentioning %s, got: %v", tc.key, err)
			}
		})
	}
}

func TestLoadAll_ReportsEveryProblem(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)
	t.Setenv("SEND_POLL_MS", "x")
	t.Setenv("MONITOR_HISTORY", "0")

	_, err := LoadAll()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	for _, key := range []string{"SEND_POLL_MS", "MONITOR_HISTORY"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected error mentioning %s, got: %v", key, err)
		}
	}
}

func TestGetEnv(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	if got := getEnv("NOPE", "default"); got != "default" {
		t.Fatalf("expected default, got %q", got)
	}

	t.Setenv("A", "x")
	if got := getEnv("A", "default"); got != "x" {
		t.Fatalf("expected x, got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	got, err := getEnvInt("MISSING", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Fatalf("expected default 7, got %d", got)
	}

	t.Setenv("N", "123")
	got, err = getEnvInt("N", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 123 {
		t.Fatalf("expected 123, got %d", got)
	}

	t.Setenv("BAD", "abc")
	_, err = getEnvInt("BAD", 7)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "BAD") {
		t.Fatalf("expected error mentioning BAD, got: %v", err)
	}
}

func TestJoinErrors(t *testing.T) {
	if err := joinErrors(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	e1 := errors.New("one")
	e2 := errors.New("two")
	err := joinErrors([]error{e1, e2})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	if !errors.Is(err, e1) {
		t.Fatalf("expected errors.Is(err, e1) to be true")
	}
	if !errors.Is(err, e2) {
		t.Fatalf("expected errors.Is(err, e2) to be true")
	}
}

func clearTestEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"MODEM_URL",
		"MODEM_TIMEOUT_SECONDS",
		"SEND_TIMEOUT_SECONDS",
		"SEND_POLL_MS",
		"SEND_INITIAL_DELAY_MS",
		"DELETE_RATE_PER_SECOND",
		"EXPORT_DIR",
		"MONITOR_INTERVAL_SECONDS",
		"MONITOR_LOG",
		"MONITOR_LOG_MAX_MB",
		"MONITOR_HISTORY",
		"PHONE_REGION",
		"LOG_LEVEL",
		"LOG_FILE",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"REDIS_TTL_SECONDS",
		"A",
		"N",
		"BAD",
	}
	for _, k := range keys {
		// Setenv first so the original value is restored after the test.
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}
