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

// Day-order lookup sources.
const (
	DayOrderSourceDatabase = "database"
	DayOrderSourceHTTP     = "http"
)

// Duplicate transfer handling policies.
const (
	DuplicatePolicyAllow  = "allow"
	DuplicatePolicyReject = "reject"
)

// Mail providers.
const (
	MailProviderLog      = "log"
	MailProviderSendGrid = "sendgrid"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	Timezone  string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	DayOrder DayOrderConfig
	Absences AbsenceConfig
	Mail     MailConfig
	Sessions SessionConfig
	Metrics  MetricsConfig
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
	AutoMigrate  bool
	QueryTimeout time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DayOrderConfig controls how the rotating day order is resolved.
type DayOrderConfig struct {
	Source            string
	ServiceURL        string
	Timeout           time.Duration
	DefaultDepartment string
	CacheTTL          time.Duration
	Fallback          int
	MaxDayOrder       int
}

// AbsenceConfig governs absence and transfer bookkeeping.
type AbsenceConfig struct {
	DuplicatePolicy string
}

// MailConfig selects the outbound email transport.
type MailConfig struct {
	Provider       string
	SendGridAPIKey string
	FromName       string
	FromAddress    string
	Workers        int
	BufferSize     int
}

// SessionConfig configures attendance-session tokens.
type SessionConfig struct {
	TokenSecret     string
	DefaultDuration time.Duration
	PublicBaseURL   string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Timezone = v.GetString("TIMEZONE")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
		QueryTimeout: parseDuration(v.GetString("DB_QUERY_TIMEOUT"), 5*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	fallback := v.GetInt("DAY_ORDER_FALLBACK")
	if fallback <= 0 {
		fallback = 1
	}
	cfg.DayOrder = DayOrderConfig{
		Source:            strings.ToLower(v.GetString("DAY_ORDER_SOURCE")),
		ServiceURL:        v.GetString("DAY_ORDER_SERVICE_URL"),
		Timeout:           parseDuration(v.GetString("DAY_ORDER_TIMEOUT"), 3*time.Second),
		DefaultDepartment: v.GetString("DEFAULT_DEPARTMENT"),
		CacheTTL:          parseDuration(v.GetString("DAY_ORDER_CACHE_TTL"), 15*time.Minute),
		Fallback:          fallback,
		MaxDayOrder:       v.GetInt("MAX_DAY_ORDER"),
	}

	cfg.Absences = AbsenceConfig{
		DuplicatePolicy: strings.ToLower(v.GetString("ABSENCE_DUPLICATE_POLICY")),
	}

	cfg.Mail = MailConfig{
		Provider:       strings.ToLower(v.GetString("MAIL_PROVIDER")),
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
		FromAddress:    v.GetString("MAIL_FROM_ADDRESS"),
		Workers:        v.GetInt("MAIL_WORKERS"),
		BufferSize:     v.GetInt("MAIL_BUFFER_SIZE"),
	}

	cfg.Sessions = SessionConfig{
		TokenSecret:     v.GetString("SESSION_TOKEN_SECRET"),
		DefaultDuration: parseDuration(v.GetString("SESSION_DEFAULT_DURATION"), 10*time.Minute),
		PublicBaseURL:   strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TIMEZONE", "Asia/Kolkata")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "campus_attendance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_QUERY_TIMEOUT", "5s")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "campus-attendance-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DAY_ORDER_SOURCE", DayOrderSourceDatabase)
	v.SetDefault("DAY_ORDER_SERVICE_URL", "")
	v.SetDefault("DAY_ORDER_TIMEOUT", "3s")
	v.SetDefault("DEFAULT_DEPARTMENT", "CSE")
	v.SetDefault("DAY_ORDER_CACHE_TTL", "15m")
	v.SetDefault("DAY_ORDER_FALLBACK", 1)
	v.SetDefault("MAX_DAY_ORDER", 6)

	v.SetDefault("ABSENCE_DUPLICATE_POLICY", DuplicatePolicyAllow)

	v.SetDefault("MAIL_PROVIDER", MailProviderLog)
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "Campus Attendance")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@campus.local")
	v.SetDefault("MAIL_WORKERS", 2)
	v.SetDefault("MAIL_BUFFER_SIZE", 64)

	v.SetDefault("SESSION_TOKEN_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_DEFAULT_DURATION", "10m")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("ENABLE_METRICS", true)
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
