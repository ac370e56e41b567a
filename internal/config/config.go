package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported ticket store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const minPrintColumns = 8

// Config aggregates runtime configuration for the tracker.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Printer  PrinterConfig
	Tickets  TicketsConfig
	Theme    ThemeConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// DatabaseConfig selects and tunes the ticket store.
type DatabaseConfig struct {
	Driver         string
	Path           string
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	FlashTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines the single user's credentials and token settings.
type AuthConfig struct {
	Username              string
	Password              string
	PasswordHash          string
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// PrinterConfig describes the receipt printer, if any.
type PrinterConfig struct {
	Disabled bool
	Columns  int
	Name     string
	Device   string
	Debug    bool
}

// TicketsConfig holds ticket defaults.
type TicketsConfig struct {
	DefaultTags string
}

// ThemeConfig holds the UI theme fallback.
type ThemeConfig struct {
	Default string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	driver := strings.ToLower(getEnv("TICKETS_DB_DRIVER", DriverSQLite))
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("invalid TICKETS_DB_DRIVER %q: want %s or %s", driver, DriverSQLite, DriverPostgres)
	}

	columns := getEnvAsInt("TICKETS_PRINT_COLS", 32)
	if columns < minPrintColumns {
		return nil, fmt.Errorf("invalid TICKETS_PRINT_COLS %d: must be at least %d", columns, minPrintColumns)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "tickets"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("TICKETS_HOST", "127.0.0.1"),
			Port:                  getEnv("TICKETS_PORT", "5000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Database: DatabaseConfig{
			Driver:         driver,
			Path:           getEnv("TICKETS_DB", "tickets.db"),
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:            os.Getenv("REDIS_ADDR"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			FlashTTLSeconds: getEnvAsInt("FLASH_TTL_SECONDS", 300),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			Username:              getEnv("TICKETS_USER", "admin"),
			Password:              getEnv("TICKETS_PASS", "admin"),
			PasswordHash:          os.Getenv("TICKETS_PASS_HASH"),
			JWTSecret:             getEnv("TICKETS_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		Printer: PrinterConfig{
			Disabled: getEnvAsBool("NO_PRINTER", false),
			Columns:  columns,
			Name:     getEnv("TICKETS_PRINTER_NAME", "BIXOLON SRP-E300"),
			Device:   os.Getenv("TICKETS_PRINTER_DEVICE"),
			Debug:    getEnvAsBool("DEBUG_PRINT", false),
		},
		Tickets: TicketsConfig{
			DefaultTags: getEnv("TICKETS_DEFAULT_TAGS", "work,personal"),
		},
		Theme: ThemeConfig{
			Default: normalizeTheme(os.Getenv("TICKETS_THEME")),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// FlashTTL returns how long undelivered flash messages are kept.
func (r RedisConfig) FlashTTL() time.Duration {
	if r.FlashTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(r.FlashTTLSeconds) * time.Second
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

func normalizeTheme(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "light" {
		return "light"
	}
	return "dark"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
