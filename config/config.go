package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	Env            string
	AllowedOrigins string
	BodyLimitBytes int
	RequestTimeout time.Duration
	BcryptCost     int

	Database  Database
	JWT       JWT
	RateLimit RateLimit
	Cache     Cache
	Redis     Redis
	Upload    Upload
	Log       Log
	Metrics   Metrics
}

type Database struct {
	Driver       string
	DSN          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
}

type JWT struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

type RateLimit struct {
	Max    int
	Window time.Duration
}

type Cache struct {
	Enabled bool
	TTL     time.Duration
}

type Redis struct {
	URL string
}

type Upload struct {
	Dir          string
	MaxFiles     int
	MaxFileBytes int64
}

type Log struct {
	Level  string
	Format string
}

type Metrics struct {
	Enabled bool
}

var defaults = map[string]any{
	"PORT":                  "8080",
	"APP_ENV":               "development",
	"ALLOWED_ORIGINS":       "*",
	"BODY_LIMIT_MB":         20,
	"REQUEST_TIMEOUT":       "10s",
	"BCRYPT_COST":           10,
	"DB_DRIVER":             "postgres",
	"DB_HOST":               "db",
	"DB_PORT":               5432,
	"DB_SSLMODE":            "disable",
	"DB_MAX_OPEN_CONNS":     10,
	"JWT_TTL":               "24h",
	"JWT_ISSUER":            "petstore-api",
	"RATE_LIMIT_MAX":        100,
	"RATE_LIMIT_WINDOW":     "15m",
	"CACHE_ENABLED":         true,
	"CACHE_TTL":             "60s",
	"UPLOAD_DIR":            "uploads",
	"UPLOAD_MAX_FILES":      10,
	"UPLOAD_MAX_FILE_BYTES": 5 << 20,
	"LOG_LEVEL":             "info",
	"LOG_FORMAT":            "text",
	"METRICS_ENABLED":       true,
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	// Prefer JWT_SECRET, fall back to JWT_SECRET_KEY
	secret := strings.TrimSpace(v.GetString("JWT_SECRET"))
	if secret == "" {
		secret = strings.TrimSpace(v.GetString("JWT_SECRET_KEY"))
	}
	if secret == "" {
		return nil, errors.New("JWT secret not configured (set JWT_SECRET or JWT_SECRET_KEY)")
	}

	cfg := &Config{
		Port:           v.GetString("PORT"),
		Env:            v.GetString("APP_ENV"),
		AllowedOrigins: v.GetString("ALLOWED_ORIGINS"),
		BodyLimitBytes: v.GetInt("BODY_LIMIT_MB") * 1024 * 1024,
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		Database: Database{
			Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:          v.GetString("DB_DSN"),
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		},
		JWT: JWT{
			Secret: secret,
			TTL:    v.GetDuration("JWT_TTL"),
			Issuer: v.GetString("JWT_ISSUER"),
		},
		RateLimit: RateLimit{
			Max:    v.GetInt("RATE_LIMIT_MAX"),
			Window: v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Cache: Cache{
			Enabled: v.GetBool("CACHE_ENABLED"),
			TTL:     v.GetDuration("CACHE_TTL"),
		},
		Redis: Redis{URL: v.GetString("REDIS_URL")},
		Upload: Upload{
			Dir:          v.GetString("UPLOAD_DIR"),
			MaxFiles:     v.GetInt("UPLOAD_MAX_FILES"),
			MaxFileBytes: v.GetInt64("UPLOAD_MAX_FILE_BYTES"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Metrics: Metrics{Enabled: v.GetBool("METRICS_ENABLED")},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	return nil
}

// DatabaseDSN returns DB_DSN or builds one for the configured driver.
func (c *Config) DatabaseDSN() string {
	d := c.Database
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Name)
	case "sqlite":
		return d.Name + ".db"
	default:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
			d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
	}
}
