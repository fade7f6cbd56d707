package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups the application settings read through viper.
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Minio  MinioConfig
	JWT    JWTConfig
	HTTP   HTTPConfig
	Ledger LedgerConfig
	Jobs   JobsConfig
}

type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig holds PostgreSQL settings. DatabaseURL wins over the individual parts.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	AutoMigrate bool
}

func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// RedisConfig is optional; an empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// MinioConfig is optional; an empty Endpoint disables movement exports.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type JWTConfig struct {
	Secret  string
	JWKSURL string
	Issuer  string
}

type HTTPConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LedgerConfig struct {
	Store        string // postgres or memory
	MaxRetries   int
	RetryBackoff time.Duration
}

type JobsConfig struct {
	Enabled             bool
	AlertsInterval      time.Duration
	ConsistencyInterval time.Duration
	ExportInterval      time.Duration
	AnalyticsInterval   time.Duration
}

// Load reads configuration from the environment, optionally seeded by a .env or
// config.env file. Environment variables take precedence.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "reliefledger"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "reliefledger"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 10),
			AutoMigrate: getBool(v, "DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
			TTL:      getDuration(v, "REDIS_TTL", 5*time.Minute),
		},
		Minio: MinioConfig{
			Endpoint:  getString(v, "MINIO_ENDPOINT", ""),
			AccessKey: getString(v, "MINIO_ACCESS_KEY", ""),
			SecretKey: getString(v, "MINIO_SECRET_KEY", ""),
			UseSSL:    getBool(v, "MINIO_USE_SSL", false),
			Bucket:    getString(v, "MINIO_BUCKET", "relief-exports"),
		},
		JWT: JWTConfig{
			Secret:  getString(v, "JWT_SECRET", ""),
			JWKSURL: getString(v, "JWT_JWKS_URL", ""),
			Issuer:  getString(v, "JWT_ISSUER", ""),
		},
		HTTP: HTTPConfig{
			Host:           getString(v, "HTTP_HOST", "0.0.0.0"),
			Port:           getInt(v, "HTTP_PORT", 8080),
			RequestTimeout: getDuration(v, "HTTP_REQUEST_TIMEOUT", 15*time.Second),
		},
		Ledger: LedgerConfig{
			Store:        getString(v, "LEDGER_STORE", "postgres"),
			MaxRetries:   getInt(v, "LEDGER_MAX_RETRIES", 3),
			RetryBackoff: getDuration(v, "LEDGER_RETRY_BACKOFF", 20*time.Millisecond),
		},
		Jobs: JobsConfig{
			Enabled:             getBool(v, "JOBS_ENABLED", true),
			AlertsInterval:      getDuration(v, "JOBS_ALERTS_INTERVAL", 30*time.Minute),
			ConsistencyInterval: getDuration(v, "JOBS_CONSISTENCY_INTERVAL", time.Hour),
			ExportInterval:      getDuration(v, "JOBS_EXPORT_INTERVAL", 24*time.Hour),
			AnalyticsInterval:   getDuration(v, "JOBS_ANALYTICS_INTERVAL", 5*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Ledger.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("LEDGER_STORE must be postgres or memory, got %q", c.Ledger.Store)
	}
	if c.Ledger.MaxRetries < 1 {
		return fmt.Errorf("LEDGER_MAX_RETRIES must be at least 1")
	}
	if c.JWT.Secret == "" && c.JWT.JWKSURL == "" && c.App.Env == "production" {
		return fmt.Errorf("JWT_SECRET or JWT_JWKS_URL is required in production")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	if s, ok := v.Get(key).(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return n
	}
	return v.GetInt(key)
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	d := v.GetDuration(key)
	if d <= 0 {
		return def
	}
	return d
}
