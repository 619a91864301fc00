// Package config loads server settings from the environment and an optional
// .env file.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AuthModeToken = "token"
	AuthModeOpen  = "open"

	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreLevelDB  = "leveldb"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	AuthMode string `mapstructure:"AUTH_MODE"`

	JWTSigningKey string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer     string        `mapstructure:"JWT_ISSUER"`
	TokenTTL      time.Duration `mapstructure:"TOKEN_TTL"`

	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	StorePath     string `mapstructure:"STORE_PATH"`
	LevelDBPath   string `mapstructure:"LEVELDB_PATH"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
	SeedDemo      bool   `mapstructure:"SEED_DEMO"`

	PortalEmailDomain string `mapstructure:"PORTAL_EMAIL_DOMAIN"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit      string   `mapstructure:"BODY_LIMIT"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	BackupBucket    string `mapstructure:"BACKUP_S3_BUCKET"`
	BackupPrefix    string `mapstructure:"BACKUP_S3_PREFIX"`
	BackupEndpoint  string `mapstructure:"BACKUP_S3_ENDPOINT"`
	BackupPathStyle bool   `mapstructure:"BACKUP_S3_PATH_STYLE"`
}

var defaults = map[string]interface{}{
	"PORT":                 "4000",
	"ENV":                  "development",
	"AUTH_MODE":            AuthModeToken,
	"JWT_SIGNING_KEY":      "",
	"JWT_ISSUER":           "histomed",
	"TOKEN_TTL":            "12h",
	"STORE_DRIVER":         StoreFile,
	"STORE_PATH":           "data/db.json",
	"LEVELDB_PATH":         "data/leveldb",
	"DATABASE_URL":         "",
	"DB_MAX_CONNS":         10,
	"DB_MIN_CONNS":         1,
	"MIGRATIONS_DIR":       "./migrations",
	"SEED_DEMO":            true,
	"PORTAL_EMAIL_DOMAIN":  "paciente.histomed.gt",
	"CORS_ORIGINS":         "http://localhost:5173",
	"RATE_LIMIT_RPS":       50,
	"RATE_LIMIT_BURST":     100,
	"BODY_LIMIT":           "2M",
	"KAFKA_BROKERS":        "",
	"KAFKA_TOPIC":          "histomed.records",
	"BACKUP_S3_BUCKET":     "",
	"BACKUP_S3_PREFIX":     "snapshots/",
	"BACKUP_S3_ENDPOINT":   "",
	"BACKUP_S3_PATH_STYLE": false,
}

// Load reads the environment over an optional .env file in the working
// directory. It does not validate; call Validate before use.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
		v.BindEnv(key)
	}

	// A missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))
	return cfg, nil
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

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SigningKey decodes JWT_SIGNING_KEY. It returns nil when unset.
func (c *Config) SigningKey() ([]byte, error) {
	if c.JWTSigningKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.JWTSigningKey)
	if err != nil {
		return nil, fmt.Errorf("JWT_SIGNING_KEY is not valid hex: %w", err)
	}
	return key, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthModeToken, AuthModeOpen:
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeToken, AuthModeOpen, c.AuthMode)
	}
	if c.AuthMode == AuthModeOpen && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=open is not allowed with ENV=production")
	}

	switch c.StoreDriver {
	case StoreFile, StoreLevelDB:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", StorePostgres)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q, %q or %q, got %q", StoreFile, StorePostgres, StoreLevelDB, c.StoreDriver)
	}

	key, err := c.SigningKey()
	if err != nil {
		return err
	}
	if key != nil && len(key) < 32 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
