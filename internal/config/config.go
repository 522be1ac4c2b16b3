package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envPlatformURL     = "WDN_PLATFORM_URL"
	envMetricsURL      = "WDN_METRICS_URL"
	envRegistryPath    = "WDN_REGISTRY_PATH"
	envStatePath       = "WDN_STATE_PATH"
	envReportDir       = "WDN_REPORT_DIR"
	envBackupDir       = "WDN_BACKUP_DIR"
	envConfigFile      = "WDN_CONFIG_FILE"
	envSlackWebhookURL = "WDN_SLACK_WEBHOOK_URL"
	envWebhookURL      = "WDN_WEBHOOK_URL"
	envHealthPort      = "WDN_HEALTH_PORT"
	envMetricsPort     = "WDN_METRICS_PORT"
)

const (
	defaultRegistryPath = "registry.json"
	defaultStatePath    = "warden-state.json"
	defaultReportDir    = "reports"
	defaultBackupDir    = "backups"
)

// Notification holds channel endpoints.
type Notification struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
	WebhookURL      string `yaml:"webhook_url"`
	WebhookTemplate string `yaml:"webhook_template"`
}

// Rollout holds tunable rollout timings and thresholds.
type Rollout struct {
	MonitorInterval      time.Duration `yaml:"monitor_interval"`
	CanaryDuration       time.Duration `yaml:"canary_duration"`
	RollbackThreshold    float64       `yaml:"rollback_threshold"`
	ReadyTimeout         time.Duration `yaml:"ready_timeout"`
	HealthCheckAttempts  int           `yaml:"health_check_attempts"`
	HealthCheckInterval  time.Duration `yaml:"health_check_interval"`
	VerifySamples        int           `yaml:"verify_samples"`
	VerifyInterval       time.Duration `yaml:"verify_interval"`
	MetricsFailureBudget int           `yaml:"metrics_failure_budget"`
}

// Recovery holds the verification gate parameters.
type Recovery struct {
	VerifyAttempts int           `yaml:"verify_attempts"`
	VerifyInterval time.Duration `yaml:"verify_interval"`
}

// Config describes runtime configuration loaded from the environment and an
// optional YAML file.
type Config struct {
	PlatformURL  string
	MetricsURL   string
	RegistryPath string
	StatePath    string
	ReportDir    string
	BackupDir    string
	HealthPort   int
	MetricsPort  int
	Notification Notification
	Rollout      Rollout
	Recovery     Recovery
}

type fileConfig struct {
	Notification Notification `yaml:"notification"`
	Rollout      Rollout      `yaml:"rollout"`
	Recovery     Recovery     `yaml:"recovery"`
}

// DefaultRollout returns the rollout defaults from the operational runbook.
func DefaultRollout() Rollout {
	return Rollout{
		MonitorInterval:      60 * time.Second,
		CanaryDuration:       1800 * time.Second,
		RollbackThreshold:    5,
		ReadyTimeout:         600 * time.Second,
		HealthCheckAttempts:  30,
		HealthCheckInterval:  10 * time.Second,
		VerifySamples:        10,
		VerifyInterval:       2 * time.Second,
		MetricsFailureBudget: 3,
	}
}

// DefaultRecovery returns the recovery verification defaults.
func DefaultRecovery() Recovery {
	return Recovery{
		VerifyAttempts: 12,
		VerifyInterval: 10 * time.Second,
	}
}

// Load reads configuration from environment variables, a local .env file if
// present, and the YAML file named by WDN_CONFIG_FILE. Environment variables
// take precedence over both files.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		RegistryPath: defaultRegistryPath,
		StatePath:    defaultStatePath,
		ReportDir:    defaultReportDir,
		BackupDir:    defaultBackupDir,
		Rollout:      DefaultRollout(),
		Recovery:     DefaultRecovery(),
	}

	if path, ok := lookupTrimmed(envConfigFile); ok {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if value, ok := lookupTrimmed(envPlatformURL); ok {
		cfg.PlatformURL = value
	}
	if value, ok := lookupTrimmed(envMetricsURL); ok {
		cfg.MetricsURL = value
	}
	if value, ok := lookupTrimmed(envRegistryPath); ok {
		cfg.RegistryPath = value
	}
	if value, ok := lookupTrimmed(envStatePath); ok {
		cfg.StatePath = value
	}
	if value, ok := lookupTrimmed(envReportDir); ok {
		cfg.ReportDir = value
	}
	if value, ok := lookupTrimmed(envBackupDir); ok {
		cfg.BackupDir = value
	}
	if value, ok := lookupTrimmed(envSlackWebhookURL); ok {
		cfg.Notification.SlackWebhookURL = value
	}
	if value, ok := lookupTrimmed(envWebhookURL); ok {
		cfg.Notification.WebhookURL = value
	}

	var err error
	if cfg.HealthPort, err = lookupPort(envHealthPort); err != nil {
		return Config{}, err
	}
	if cfg.MetricsPort, err = lookupPort(envMetricsPort); err != nil {
		return Config{}, err
	}

	if cfg.PlatformURL == "" {
		return Config{}, errors.New("WDN_PLATFORM_URL is required")
	}
	if err := validateURL(cfg.PlatformURL, envPlatformURL); err != nil {
		return Config{}, err
	}
	if cfg.MetricsURL != "" {
		if err := validateURL(cfg.MetricsURL, envMetricsURL); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Rollout.validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.Recovery.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (r Rollout) validate() error {
	if r.MonitorInterval <= 0 {
		return errors.New("rollout monitor_interval must be greater than zero")
	}
	if r.CanaryDuration <= 0 {
		return errors.New("rollout canary_duration must be greater than zero")
	}
	if r.RollbackThreshold < 0 || r.RollbackThreshold > 100 {
		return errors.New("rollout rollback_threshold must be within [0,100]")
	}
	if r.ReadyTimeout <= 0 {
		return errors.New("rollout ready_timeout must be greater than zero")
	}
	if r.HealthCheckAttempts <= 0 || r.HealthCheckInterval <= 0 {
		return errors.New("rollout health check policy must be positive")
	}
	if r.VerifySamples <= 0 || r.VerifyInterval <= 0 {
		return errors.New("rollout traffic verification policy must be positive")
	}
	if r.MetricsFailureBudget < 0 {
		return errors.New("rollout metrics_failure_budget must not be negative")
	}
	return nil
}

func (r Recovery) validate() error {
	if r.VerifyAttempts <= 0 || r.VerifyInterval <= 0 {
		return errors.New("recovery verification policy must be positive")
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file fileConfig
	file.Rollout = cfg.Rollout
	file.Recovery = cfg.Recovery
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	cfg.Notification = file.Notification
	cfg.Rollout = file.Rollout
	cfg.Recovery = file.Recovery
	return nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func lookupPort(key string) (int, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return 0, nil
	}
	port, err := strconv.Atoi(value)
	if err != nil || port < 0 || port > 65535 {
		return 0, fmt.Errorf("invalid %s: must be a port number", key)
	}
	return port, nil
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
