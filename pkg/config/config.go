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

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
	StorageMemory   = "memory"
)

// Lock drivers.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

type Config struct {
	Env            string
	Port           int
	APIPrefix      string
	StorageDriver  string
	RequestTimeout time.Duration

	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Lock     LockConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Booking  BookingConfig
	Counter  CounterConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrateOnStart bool
}

// MongoConfig configures the document-store adapters.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LockConfig selects how bookings for one instructor are serialized.
type LockConfig struct {
	Driver string
	TTL    time.Duration
	Wait   time.Duration
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BookingConfig tunes the booking engine defaults.
type BookingConfig struct {
	DefaultDurationMinutes int
	DefaultTimezone        string
	EnableInProgress       bool
}

// CounterConfig controls delivery of the instructor lesson-count side effect.
type CounterConfig struct {
	Async   bool
	Workers int
	Retries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.StorageDriver = strings.ToLower(v.GetString("STORAGE_DRIVER"))
	cfg.RequestTimeout = parseDuration(v.GetString("REQUEST_TIMEOUT"), 10*time.Second)

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrateOnStart: v.GetBool("MIGRATE_ON_START"),
	}

	cfg.Mongo = MongoConfig{
		URI:      v.GetString("MONGO_URI"),
		Database: v.GetString("MONGO_DATABASE"),
		Timeout:  parseDuration(v.GetString("MONGO_TIMEOUT"), 10*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Lock = LockConfig{
		Driver: strings.ToLower(v.GetString("LOCK_DRIVER")),
		TTL:    parseDuration(v.GetString("LOCK_TTL"), 30*time.Second),
		Wait:   parseDuration(v.GetString("LOCK_WAIT"), 5*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	defaultDuration := v.GetInt("BOOKING_DEFAULT_DURATION")
	if defaultDuration <= 0 {
		defaultDuration = 50
	}
	cfg.Booking = BookingConfig{
		DefaultDurationMinutes: defaultDuration,
		DefaultTimezone:        v.GetString("BOOKING_DEFAULT_TIMEZONE"),
		EnableInProgress:       v.GetBool("BOOKING_ENABLE_IN_PROGRESS"),
	}

	cfg.Counter = CounterConfig{
		Async:   v.GetBool("COUNTER_ASYNC"),
		Workers: v.GetInt("COUNTER_WORKERS"),
		Retries: v.GetInt("COUNTER_RETRIES"),
	}

	if err := cfg.validateLock(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateLock makes sure a Redis lock cannot expire while the request holding it is still
// checking conflicts and inserting.
func (c *Config) validateLock() error {
	if c.Lock.Driver != LockRedis {
		return nil
	}
	if c.RequestTimeout <= 0 {
		return errors.New("LOCK_DRIVER=redis requires a positive REQUEST_TIMEOUT")
	}
	if c.Lock.TTL <= c.Lock.Wait+c.RequestTimeout {
		return fmt.Errorf("LOCK_TTL (%s) must exceed LOCK_WAIT (%s) plus REQUEST_TIMEOUT (%s)",
			c.Lock.TTL, c.Lock.Wait, c.RequestTimeout)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("REQUEST_TIMEOUT", "10s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "pilotaja")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("MIGRATE_ON_START", true)

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "pilotaja")
	v.SetDefault("MONGO_TIMEOUT", "10s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOCK_DRIVER", LockLocal)
	v.SetDefault("LOCK_TTL", "30s")
	v.SetDefault("LOCK_WAIT", "5s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BOOKING_DEFAULT_DURATION", 50)
	v.SetDefault("BOOKING_DEFAULT_TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("BOOKING_ENABLE_IN_PROGRESS", true)

	v.SetDefault("COUNTER_ASYNC", false)
	v.SetDefault("COUNTER_WORKERS", 1)
	v.SetDefault("COUNTER_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
