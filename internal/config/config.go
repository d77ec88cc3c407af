package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const envPrefix = "GROWTHQUEST_"

type Config struct {
	Server ServerConfig `toml:"server"`
	DB     DBConfig     `toml:"db"`
	Log    LogConfig    `toml:"log"`
	// Timezone decides which calendar day a completion counts for.
	Timezone string       `toml:"timezone"`
	Push     PushConfig   `toml:"push"`
	Backup   BackupConfig `toml:"backup"`
}

type ServerConfig struct {
	Port           string   `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	SecureCookies  bool     `toml:"secure_cookies"`
}

type DBConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type PushConfig struct {
	VAPIDPublicKey  string `toml:"vapid_public_key"`
	VAPIDPrivateKey string `toml:"vapid_private_key"`
	Subscriber      string `toml:"subscriber"`
	// ReminderHour is the local hour at which at-risk streak reminders go out.
	ReminderHour int `toml:"reminder_hour"`
}

type BackupConfig struct {
	Passphrase    string   `toml:"passphrase"`
	Interval      Duration `toml:"interval"`
	RetentionDays int      `toml:"retention_days"`
	S3            S3Config `toml:"s3"`
}

type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

// Duration reads values like "24h" or "90m" from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Server:   ServerConfig{Port: "8080"},
		DB:       DBConfig{Path: "growthquest.db"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Timezone: "Local",
		Push:     PushConfig{Subscriber: "admin@growthquest.local", ReminderHour: 18},
		Backup: BackupConfig{
			Interval:      Duration{24 * time.Hour},
			RetentionDays: 30,
			S3:            S3Config{Region: "us-east-1"},
		},
	}
}

// Load builds the configuration from defaults, then the TOML file at path (if
// path is non-empty), then GROWTHQUEST_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		dec := toml.NewDecoder(f).DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return cfg, fmt.Errorf("decode config: %s", strict.String())
			}
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}
	str("PORT", &cfg.Server.Port)
	str("DB_PATH", &cfg.DB.Path)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("TIMEZONE", &cfg.Timezone)
	str("VAPID_PUBLIC_KEY", &cfg.Push.VAPIDPublicKey)
	str("VAPID_PRIVATE_KEY", &cfg.Push.VAPIDPrivateKey)
	str("VAPID_SUBSCRIBER", &cfg.Push.Subscriber)
	str("BACKUP_PASSPHRASE", &cfg.Backup.Passphrase)
	str("S3_ENDPOINT", &cfg.Backup.S3.Endpoint)
	str("S3_BUCKET", &cfg.Backup.S3.Bucket)
	str("S3_REGION", &cfg.Backup.S3.Region)
	str("S3_ACCESS_KEY", &cfg.Backup.S3.AccessKey)
	str("S3_SECRET_KEY", &cfg.Backup.S3.SecretKey)

	if v, ok := os.LookupEnv(envPrefix + "ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv(envPrefix + "SECURE_COOKIES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSECURE_COOKIES: %w", envPrefix, err)
		}
		cfg.Server.SecureCookies = b
	}
	if v, ok := os.LookupEnv(envPrefix + "REMINDER_HOUR"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREMINDER_HOUR: %w", envPrefix, err)
		}
		cfg.Push.ReminderHour = n
	}
	if v, ok := os.LookupEnv(envPrefix + "BACKUP_INTERVAL"); ok {
		if err := cfg.Backup.Interval.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%sBACKUP_INTERVAL: %w", envPrefix, err)
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "BACKUP_RETENTION_DAYS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sBACKUP_RETENTION_DAYS: %w", envPrefix, err)
		}
		cfg.Backup.RetentionDays = n
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db path is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log format %q: want text or json", c.Log.Format)
	}
	if c.Push.ReminderHour < 0 || c.Push.ReminderHour > 23 {
		return fmt.Errorf("reminder hour %d out of range 0-23", c.Push.ReminderHour)
	}
	if c.Backup.Interval.Duration < 0 {
		return fmt.Errorf("backup interval must not be negative")
	}
	return nil
}

// Location resolves Timezone. "Local" and "" mean the server's zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// PushEnabled reports whether VAPID keys are configured.
func (c Config) PushEnabled() bool {
	return c.Push.VAPIDPublicKey != "" && c.Push.VAPIDPrivateKey != ""
}
