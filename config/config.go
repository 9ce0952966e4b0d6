package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Sync modes
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// Delete modes
const (
	DeleteLocal  = "local"
	DeleteRemote = "remote"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Sync      SyncConfig      `yaml:"sync"`
	Minio     MinioConfig     `yaml:"minio"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuthConfig configures the PIN gate. The PIN is a static client-side
// toggle, not a security boundary; the JWT only carries the session id.
type AuthConfig struct {
	PIN              string `yaml:"pin"`
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type GatewayConfig struct {
	ChatURL        string `yaml:"chat_url"`
	DocumentsURL   string `yaml:"documents_url"`
	UploadURL      string `yaml:"upload_url"`
	TriggersURL    string `yaml:"triggers_url"`
	APIToken       string `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UploadField    string `yaml:"upload_field"`
}

// Timeout returns the per-call timeout applied to every gateway request.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

type SyncConfig struct {
	Mode                string `yaml:"mode"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	DeleteMode          string `yaml:"delete_mode"`
	MaxSessions         int    `yaml:"max_sessions"`
}

// PollInterval returns the reconciliation timer period.
func (s SyncConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	Region     string `yaml:"region"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

// Enabled reports whether exports should be stored in MINIO.
func (m MinioConfig) Enabled() bool {
	return m.Endpoint != ""
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	GlobalConfig = cfg
	return cfg, nil
}

// Parse decodes YAML config data and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Auth.PIN == "" {
		c.Auth.PIN = "123456"
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}
	if c.Gateway.TimeoutSeconds == 0 {
		c.Gateway.TimeoutSeconds = 30
	}
	if c.Gateway.UploadField == "" {
		c.Gateway.UploadField = "file"
	}
	if c.Sync.Mode == "" {
		c.Sync.Mode = ModeRemote
	}
	if c.Sync.PollIntervalSeconds == 0 {
		c.Sync.PollIntervalSeconds = 30
	}
	if c.Sync.DeleteMode == "" {
		c.Sync.DeleteMode = DeleteLocal
	}
	if c.Sync.MaxSessions == 0 {
		c.Sync.MaxSessions = 100
	}
	if c.Minio.ExpireDays == 0 {
		c.Minio.ExpireDays = 7
	}
	if c.Minio.Bucket == "" {
		c.Minio.Bucket = "milestone-exports"
	}
	if c.Minio.Region == "" {
		c.Minio.Region = "us-east-1"
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = 120
	}
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	switch c.Sync.Mode {
	case ModeRemote, ModeLocal:
	default:
		return fmt.Errorf("sync.mode must be %q or %q, got %q", ModeRemote, ModeLocal, c.Sync.Mode)
	}
	switch c.Sync.DeleteMode {
	case DeleteLocal, DeleteRemote:
	default:
		return fmt.Errorf("sync.delete_mode must be %q or %q, got %q", DeleteLocal, DeleteRemote, c.Sync.DeleteMode)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Sync.PollIntervalSeconds < 0 || c.Gateway.TimeoutSeconds < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	return nil
}
