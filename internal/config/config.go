package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Modem   ModemConfig
	Send    SendConfig
	Delete  DeleteConfig
	Export  ExportConfig
	Monitor MonitorConfig
	Phone   PhoneConfig
	Log     LogConfig
	Redis   RedisConfig
}

type ModemConfig struct {
	URL     string
	Timeout time.Duration
}

type SendConfig struct {
	Timeout      time.Duration
	PollInterval time.Duration
	InitialDelay time.Duration
}

type DeleteConfig struct {
	RatePerSecond int
}

type ExportConfig struct {
	Dir string
}

type MonitorConfig struct {
	Interval time.Duration
	LogPath  string
	LogMaxMB int
	History  int
}

type PhoneConfig struct {
	Region string
}

type LogConfig struct {
	Level string
	File  string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

const DefaultModemURL = "http://192.168.1.1/jrd/webapi"

// LoadAll reads the configuration from the environment. Every invalid
// variable is reported in the returned error.
func LoadAll() (*Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Modem: ModemConfig{
			URL:     getEnv("MODEM_URL", DefaultModemURL),
			Timeout: time.Duration(intVar("MODEM_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Send: SendConfig{
			Timeout:      time.Duration(intVar("SEND_TIMEOUT_SECONDS", 60)) * time.Second,
			PollInterval: time.Duration(intVar("SEND_POLL_MS", 500)) * time.Millisecond,
			InitialDelay: time.Duration(intVar("SEND_INITIAL_DELAY_MS", 1000)) * time.Millisecond,
		},
		Delete: DeleteConfig{
			RatePerSecond: intVar("DELETE_RATE_PER_SECOND", 10),
		},
		Export: ExportConfig{
			Dir: getEnv("EXPORT_DIR", "sms_messages"),
		},
		Monitor: MonitorConfig{
			Interval: time.Duration(intVar("MONITOR_INTERVAL_SECONDS", 10)) * time.Second,
			LogPath:  getEnv("MONITOR_LOG", "sms_messages/monitor.log"),
			LogMaxMB: intVar("MONITOR_LOG_MAX_MB", 10),
			History:  intVar("MONITOR_HISTORY", 10000),
		},
		Phone: PhoneConfig{
			Region: getEnv("PHONE_REGION", "RU"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  os.Getenv("LOG_FILE"),
		},
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Redis = redisCfg

	errs = append(errs, validate(cfg)...)
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	var errs []error
	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		errs = append(errs, err)
	}
	ttl, err := getEnvInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		errs = append(errs, err)
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttl) * time.Second,
	}, joinErrors(errs)
}

func validate(cfg *Config) []error {
	var errs []error
	if u, err := url.Parse(cfg.Modem.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("MODEM_URL must be an absolute URL, got %q", cfg.Modem.URL))
	}
	positive := []struct {
		key string
		ok  bool
	}{
		{"MODEM_TIMEOUT_SECONDS", cfg.Modem.Timeout > 0},
		{"SEND_TIMEOUT_SECONDS", cfg.Send.Timeout > 0},
		{"SEND_POLL_MS", cfg.Send.PollInterval > 0},
		{"DELETE_RATE_PER_SECOND", cfg.Delete.RatePerSecond > 0},
		{"MONITOR_INTERVAL_SECONDS", cfg.Monitor.Interval > 0},
		{"MONITOR_LOG_MAX_MB", cfg.Monitor.LogMaxMB > 0},
		{"MONITOR_HISTORY", cfg.Monitor.History > 0},
	}
	for _, p := range positive {
		if !p.ok {
			errs = append(errs, fmt.Errorf("%s must be > 0", p.key))
		}
	}
	if cfg.Send.InitialDelay < 0 {
		errs = append(errs, errors.New("SEND_INITIAL_DELAY_MS must be >= 0"))
	}
	if cfg.Redis.Enabled && cfg.Redis.TTL <= 0 {
		errs = append(errs, errors.New("REDIS_TTL_SECONDS must be > 0"))
	}
	return errs
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
