package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Addr                string        `mapstructure:"APP_ADDR"`
	Environment         string        `mapstructure:"APP_ENV"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	StoreDriver         string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	MigrationsDir       string        `mapstructure:"MIGRATIONS_DIR"`
	MongoURI            string        `mapstructure:"MONGO_URI"`
	MongoDatabase       string        `mapstructure:"MONGO_DATABASE"`
	RunMigrations       bool          `mapstructure:"RUN_MIGRATIONS"`
	RunSeed             bool          `mapstructure:"RUN_SEED"`
	SeedAdminEmail      string        `mapstructure:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword   string        `mapstructure:"SEED_ADMIN_PASSWORD"`
	JWTSecret           string        `mapstructure:"JWT_SECRET"`
	TokenTTL            time.Duration `mapstructure:"TOKEN_TTL"`
	DataEncryptionKey   string        `mapstructure:"DATA_ENCRYPTION_KEY"`
	AllowSelfSignup     bool          `mapstructure:"ALLOW_SELF_SIGNUP"`
	Timezone            string        `mapstructure:"TIMEZONE"`
	HolidaysFile        string        `mapstructure:"HOLIDAYS_FILE"`
	PublicHolidays      string        `mapstructure:"PUBLIC_HOLIDAYS"`
	WeeklyHolidays      string        `mapstructure:"WEEKLY_HOLIDAYS"`
	DefaultAnnualLeave  float64       `mapstructure:"DEFAULT_ANNUAL_LEAVE"`
	DefaultFRLeave      float64       `mapstructure:"DEFAULT_FR_LEAVE"`
	DefaultSickLeave    float64       `mapstructure:"DEFAULT_SICK_LEAVE"`
	MaxBodyBytes        int64         `mapstructure:"MAX_BODY_BYTES"`
	UploadMaxBytes      int64         `mapstructure:"UPLOAD_MAX_BYTES"`
	RateLimitPerMinute  int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	RedisAddr           string        `mapstructure:"REDIS_ADDR"`
	RedisPassword       string        `mapstructure:"REDIS_PASSWORD"`
	CORSAllowedOrigins  string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	MetricsEnabled      bool          `mapstructure:"METRICS_ENABLED"`
	OTLPEndpoint        string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName         string        `mapstructure:"OTEL_SERVICE_NAME"`
	AWSRegion           string        `mapstructure:"AWS_REGION"`
	AWSEndpoint         string        `mapstructure:"AWS_ENDPOINT"`
	S3Bucket            string        `mapstructure:"S3_BUCKET"`
	S3PublicBaseURL     string        `mapstructure:"S3_PUBLIC_BASE_URL"`
	EventsQueueURL      string        `mapstructure:"EVENTS_QUEUE_URL"`
	EmailFrom           string        `mapstructure:"EMAIL_FROM"`
	EmailEnabled        bool          `mapstructure:"EMAIL_ENABLED"`
	BalanceResetEnabled bool          `mapstructure:"BALANCE_RESET_ENABLED"`
	ShutdownTimeout     time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var defaults = map[string]any{
	"APP_ADDR":                    ":8080",
	"APP_ENV":                     "development",
	"LOG_LEVEL":                   "info",
	"STORE_DRIVER":                DriverPostgres,
	"DATABASE_URL":                "",
	"MIGRATIONS_DIR":              "migrations",
	"MONGO_URI":                   "",
	"MONGO_DATABASE":              "hrleave",
	"RUN_MIGRATIONS":              true,
	"RUN_SEED":                    true,
	"SEED_ADMIN_EMAIL":            "",
	"SEED_ADMIN_PASSWORD":         "",
	"JWT_SECRET":                  "",
	"TOKEN_TTL":                   "8h",
	"DATA_ENCRYPTION_KEY":         "",
	"ALLOW_SELF_SIGNUP":           false,
	"TIMEZONE":                    "Asia/Dhaka",
	"HOLIDAYS_FILE":               "",
	"PUBLIC_HOLIDAYS":             "",
	"WEEKLY_HOLIDAYS":             "",
	"DEFAULT_ANNUAL_LEAVE":        20,
	"DEFAULT_FR_LEAVE":            10,
	"DEFAULT_SICK_LEAVE":          14,
	"MAX_BODY_BYTES":              1048576,
	"UPLOAD_MAX_BYTES":            5 << 20,
	"RATE_LIMIT_PER_MINUTE":       60,
	"REDIS_ADDR":                  "",
	"REDIS_PASSWORD":              "",
	"CORS_ALLOWED_ORIGINS":        "",
	"METRICS_ENABLED":             true,
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"OTEL_SERVICE_NAME":           "hrleave",
	"AWS_REGION":                  "us-east-1",
	"AWS_ENDPOINT":                "",
	"S3_BUCKET":                   "",
	"S3_PUBLIC_BASE_URL":          "",
	"EVENTS_QUEUE_URL":            "",
	"EMAIL_FROM":                  "no-reply@example.com",
	"EMAIL_ENABLED":               false,
	"BALANCE_RESET_ENABLED":       false,
	"SHUTDOWN_TIMEOUT":            "10s",
}

// Load reads an optional .env and then the environment. Every key needs a
// default so AutomaticEnv can bind it during Unmarshal.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case DriverMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo store")
		}
	case DriverMemory:
		if c.Environment == "production" {
			return fmt.Errorf("the memory store cannot be used in production")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be one of postgres, mongo, memory")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.DefaultAnnualLeave < 0 || c.DefaultFRLeave < 0 || c.DefaultSickLeave < 0 {
		return fmt.Errorf("default leave balances must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.EmailEnabled && strings.TrimSpace(c.EmailFrom) == "" {
		return fmt.Errorf("EMAIL_FROM must be set when EMAIL_ENABLED is true")
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) AllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
