// Package config loads the YAML configuration file and applies CLIENTBOOK_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dukerupert/clientbook/internal/risk"
	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level string `yaml:"level"`
	// File, when set, receives a rotated copy of the log.
	File string `yaml:"file"`
}

type RemindersConfig struct {
	Enabled bool `yaml:"enabled"`
	// Cron is a standard five-field schedule for the reminder run.
	Cron string `yaml:"cron"`
	// ConfirmLeadDays is how many days ahead appointments are confirmed.
	ConfirmLeadDays int `yaml:"confirm_lead_days"`
	// SentRetentionDays bounds how long dedupe records are kept.
	SentRetentionDays int `yaml:"sent_retention_days"`
}

type FeedConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	// RedisAddr switches the change feed to a Redis stream when set.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisStream   string `yaml:"redis_stream"`
	// RetentionDays is how far back override writes stay active.
	RetentionDays int `yaml:"retention_days"`
}

type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subscriber      string `yaml:"subscriber"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
}

type BackupConfig struct {
	Cron          string   `yaml:"cron"`
	RetentionDays int      `yaml:"retention_days"`
	Passphrase    string   `yaml:"passphrase"`
	S3            S3Config `yaml:"s3"`
}

// Config is the top-level application configuration.
type Config struct {
	Listen    string          `yaml:"listen"`
	DBPath    string          `yaml:"db_path"`
	Log       LogConfig       `yaml:"log"`
	Reminders RemindersConfig `yaml:"reminders"`
	Feed      FeedConfig      `yaml:"feed"`
	Risk      risk.Weights    `yaml:"weights"`
	Push      PushConfig      `yaml:"push"`
	Backup    BackupConfig    `yaml:"backup"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen: ":8080",
		DBPath: "clientbook.db",
		Log:    LogConfig{Level: "info"},
		Reminders: RemindersConfig{
			Enabled:           true,
			Cron:              "0 8 * * *",
			ConfirmLeadDays:   1,
			SentRetentionDays: 30,
		},
		Feed: FeedConfig{
			PollInterval:  2 * time.Second,
			RedisStream:   "clientbook:overrides",
			RetentionDays: 60,
		},
		Risk: risk.DefaultWeights(),
		Push: PushConfig{Subscriber: "mailto:admin@localhost"},
		Backup: BackupConfig{
			Cron:          "0 3 * * *",
			RetentionDays: 30,
			S3:            S3Config{Region: "us-east-1", Prefix: "clientbook"},
		},
	}
}

// Normalize fills in missing or zero values with defaults so that partially
// filled configs still behave.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Reminders.Cron == "" {
		c.Reminders.Cron = d.Reminders.Cron
	}
	if c.Reminders.ConfirmLeadDays < 0 {
		c.Reminders.ConfirmLeadDays = 0
	}
	if c.Reminders.SentRetentionDays <= 0 {
		c.Reminders.SentRetentionDays = d.Reminders.SentRetentionDays
	}
	if c.Feed.PollInterval <= 0 {
		c.Feed.PollInterval = d.Feed.PollInterval
	}
	if c.Feed.RedisStream == "" {
		c.Feed.RedisStream = d.Feed.RedisStream
	}
	if c.Feed.RetentionDays <= 0 {
		c.Feed.RetentionDays = d.Feed.RetentionDays
	}
	c.Risk.Normalize()
	if c.Push.Subscriber == "" {
		c.Push.Subscriber = d.Push.Subscriber
	}
	if c.Backup.Cron == "" {
		c.Backup.Cron = d.Backup.Cron
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = d.Backup.RetentionDays
	}
	if c.Backup.S3.Region == "" {
		c.Backup.S3.Region = d.Backup.S3.Region
	}
	if c.Backup.S3.Prefix == "" {
		c.Backup.S3.Prefix = d.Backup.S3.Prefix
	}
}

// Load reads configuration from path. A missing file is created with the
// defaults (0600). The result has environment overrides applied and is
// normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		cfg := DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
		cfg.ApplyEnv(os.LookupEnv)
		cfg.Normalize()
		return cfg, nil
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".clientbook-config-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from CLIENTBOOK_* variables.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("CLIENTBOOK_PORT"); ok && v != "" {
		c.Listen = ":" + v
	}
	str("CLIENTBOOK_LISTEN", &c.Listen)
	str("CLIENTBOOK_DB_PATH", &c.DBPath)
	str("CLIENTBOOK_LOG_LEVEL", &c.Log.Level)
	str("CLIENTBOOK_LOG_FILE", &c.Log.File)
	str("CLIENTBOOK_VAPID_PUBLIC_KEY", &c.Push.VAPIDPublicKey)
	str("CLIENTBOOK_VAPID_PRIVATE_KEY", &c.Push.VAPIDPrivateKey)
	str("CLIENTBOOK_VAPID_SUBSCRIBER", &c.Push.Subscriber)
	str("CLIENTBOOK_REDIS_ADDR", &c.Feed.RedisAddr)
	str("CLIENTBOOK_REDIS_PASSWORD", &c.Feed.RedisPassword)
	str("CLIENTBOOK_BACKUP_PASSPHRASE", &c.Backup.Passphrase)
	str("CLIENTBOOK_S3_ENDPOINT", &c.Backup.S3.Endpoint)
	str("CLIENTBOOK_S3_BUCKET", &c.Backup.S3.Bucket)
	str("CLIENTBOOK_S3_REGION", &c.Backup.S3.Region)
	str("CLIENTBOOK_S3_ACCESS_KEY", &c.Backup.S3.AccessKey)
	str("CLIENTBOOK_S3_SECRET_KEY", &c.Backup.S3.SecretKey)

	if v, ok := lookup("CLIENTBOOK_REMINDERS_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Reminders.Enabled = b
		}
	}
}
