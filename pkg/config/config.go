package config

import (
	"errors"
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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	CORS        CORSConfig
	Log         LogConfig
	Persistence PersistenceConfig
	Moves       MovesConfig
	Drag        DragConfig
	Audit       AuditConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PersistenceConfig gates the stored-schedule endpoints and their database wiring.
type PersistenceConfig struct {
	Enabled       bool
	RunMigrations bool
}

// MovesConfig tunes move validation.
type MovesConfig struct {
	DefaultPolicy   string
	VerdictCache    bool
	VerdictCacheTTL time.Duration
}

// DragConfig bounds drag sessions.
type DragConfig struct {
	SessionTTL        time.Duration
	ValidationTimeout time.Duration
}

// AuditConfig controls periodic schedule audits.
type AuditConfig struct {
	Enabled bool
	Cron    string
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Persistence = PersistenceConfig{
		Enabled:       v.GetBool("ENABLE_PERSISTENCE"),
		RunMigrations: v.GetBool("RUN_MIGRATIONS"),
	}

	cfg.Moves = MovesConfig{
		DefaultPolicy:   v.GetString("DEFAULT_MOVE_POLICY"),
		VerdictCache:    v.GetBool("ENABLE_VERDICT_CACHE"),
		VerdictCacheTTL: parseDuration(v.GetString("VERDICT_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Drag = DragConfig{
		SessionTTL:        parseDuration(v.GetString("DRAG_SESSION_TTL"), 15*time.Minute),
		ValidationTimeout: parseDuration(v.GetString("DRAG_VALIDATION_TIMEOUT"), 2*time.Second),
	}

	workers := v.GetInt("AUDIT_WORKERS")
	if workers <= 0 {
		workers = 1
	}
	cfg.Audit = AuditConfig{
		Enabled: v.GetBool("ENABLE_AUDIT"),
		Cron:    v.GetString("AUDIT_CRON"),
		Workers: workers,
		Retries: v.GetInt("AUDIT_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_PERSISTENCE", false)
	v.SetDefault("RUN_MIGRATIONS", false)

	v.SetDefault("DEFAULT_MOVE_POLICY", "move-one")
	v.SetDefault("ENABLE_VERDICT_CACHE", false)
	v.SetDefault("VERDICT_CACHE_TTL", "10m")

	v.SetDefault("DRAG_SESSION_TTL", "15m")
	v.SetDefault("DRAG_VALIDATION_TIMEOUT", "2s")

	v.SetDefault("ENABLE_AUDIT", false)
	v.SetDefault("AUDIT_CRON", "0 2 * * *")
	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_RETRIES", 2)
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
