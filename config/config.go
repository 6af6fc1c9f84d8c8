package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StorageTypeDisk = "disk"
	StorageTypeS3   = "s3"

	CaptionStateDB     = "db"
	CaptionStateRedis  = "redis"
	CaptionStateMemory = "memory"
)

// Config is read from HUMORIZE_* environment variables
type Config struct {
	BindAddress string `envconfig:"BIND_ADDRESS" default:"0.0.0.0:8080"`
	TLSDomains  string `envconfig:"TLS_DOMAINS" default:""` // e.g. "example.com,example2.com"
	DebugMode   bool   `envconfig:"DEBUG_MODE" default:"true"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty   bool   `envconfig:"LOG_PRETTY" default:"false"`

	MySQLDSN   string `envconfig:"MYSQL_DSN" default:""`                 // MySQL will be used if this is set
	SQLiteFile string `envconfig:"SQLITE_FILE" default:"humorize.sqlite"` // otherwise SQLite

	SessionKey    string        `envconfig:"SESSION_KEY" default:""`
	SessionMaxAge time.Duration `envconfig:"SESSION_MAX_AGE" default:"8760h"`

	StorageType   string `envconfig:"STORAGE_TYPE" default:"disk"`
	StorageDir    string `envconfig:"STORAGE_DIR" default:"./media"`
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	S3Bucket      string `envconfig:"S3_BUCKET" default:""`
	S3Region      string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint    string `envconfig:"S3_ENDPOINT" default:""` // for S3 compatible services
	S3Key         string `envconfig:"S3_KEY" default:""`
	S3Secret      string `envconfig:"S3_SECRET" default:""`
	S3Prefix      string `envconfig:"S3_PREFIX" default:"photos"`

	CaptionAPIKeys    []string      `envconfig:"CAPTION_API_KEYS" default:""`
	CaptionModel      string        `envconfig:"CAPTION_MODEL" default:"gemini-1.5-flash"`
	CaptionBaseURL    string        `envconfig:"CAPTION_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	CaptionQuarantine time.Duration `envconfig:"CAPTION_QUARANTINE" default:"24h"`
	CaptionState      string        `envconfig:"CAPTION_STATE" default:"db"`
	CaptionMaxImagePx uint          `envconfig:"CAPTION_MAX_IMAGE_PX" default:"1280"`
	RedisAddr         string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID" default:""`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET" default:""`
	GoogleRedirectURL  string `envconfig:"GOOGLE_REDIRECT_URL" default:"http://localhost:8080/auth/google/callback"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("HUMORIZE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	cfg.CaptionAPIKeys = cleanKeys(cfg.CaptionAPIKeys)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageType {
	case StorageTypeDisk:
		if c.StorageDir == "" {
			return fmt.Errorf("STORAGE_DIR must be set for disk storage")
		}
	case StorageTypeS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET must be set for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_TYPE: %s", c.StorageType)
	}
	switch c.CaptionState {
	case CaptionStateDB, CaptionStateRedis, CaptionStateMemory:
	default:
		return fmt.Errorf("unsupported CAPTION_STATE: %s", c.CaptionState)
	}
	if c.CaptionQuarantine <= 0 {
		return fmt.Errorf("CAPTION_QUARANTINE must be positive")
	}
	return nil
}

// GoogleEnabled is true when OAuth sign-in is configured
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func (c *Config) TLSDomainList() []string {
	return cleanKeys(strings.Split(c.TLSDomains, ","))
}

func cleanKeys(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
