package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Data source kinds accepted by DATA_SOURCE.
const (
	SourceSnapshot = "snapshot"
	SourceCSV      = "csv"
	SourceDatabase = "database"
	SourceGenerate = "generate"
)

const minAdminTokenLen = 16

type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Data     DataConfig     `envconfig:"DATA"`
	Database DatabaseConfig `envconfig:"DB"`
	Logger   LoggerConfig   `envconfig:"LOG"`
	Security SecurityConfig `envconfig:"SECURITY"`
}

type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"localhost"`
	Port            int           `envconfig:"PORT" default:"8084"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// DataConfig selects where the dashboard dataset comes from and how long a
// loaded snapshot is served before it is reloaded.
type DataConfig struct {
	Source          string        `envconfig:"SOURCE" default:"snapshot"`
	Dir             string        `envconfig:"DIR" default:"data"`
	PreferUnified   bool          `envconfig:"PREFER_UNIFIED" default:"true"`
	CacheDir        string        `envconfig:"CACHE_DIR" default:".cache"`
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"1h"`
	GenerateMissing bool          `envconfig:"GENERATE_IF_MISSING" default:"true"`
	Seed            uint64        `envconfig:"SEED" default:"42"`
	Transactions    int           `envconfig:"TRANSACTIONS" default:"100000"`
	Customers       int           `envconfig:"CUSTOMERS" default:"50000"`
	Products        int           `envconfig:"PRODUCTS" default:"500"`
	RetailCSV       string        `envconfig:"RETAIL_CSV" default:"data/online_retail.csv"`
	LoadTimeout     time.Duration `envconfig:"LOAD_TIMEOUT" default:"2m"`
}

type DatabaseConfig struct {
	Driver          string        `envconfig:"DRIVER" default:"postgres"`
	URL             string        `envconfig:"URL"`
	Host            string        `envconfig:"HOST" default:"localhost"`
	Port            int           `envconfig:"PORT" default:"3306"`
	User            string        `envconfig:"USER" default:"root"`
	Password        string        `envconfig:"PASSWORD"`
	Name            string        `envconfig:"NAME" default:"ecommerce"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"30m"`
	AutoMigrate     bool          `envconfig:"AUTO_MIGRATE" default:"true"`
	SeedBatchSize   int           `envconfig:"SEED_BATCH_SIZE" default:"1000"`
}

type LoggerConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRPS    int      `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst  int      `envconfig:"RATE_LIMIT_BURST" default:"10"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8084"`
	TrustedProxies  []string `envconfig:"TRUSTED_PROXIES" default:"127.0.0.1"`
	// AdminToken authorizes POST /admin/refresh. Empty disables the endpoint.
	AdminToken      string   `envconfig:"ADMIN_TOKEN"`
}

// Load reads optional .env files and then the process environment. Missing
// env files are not an error; unparsable values are.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
		slog.Debug("no env file found, using process environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	validSources := []string{SourceSnapshot, SourceCSV, SourceDatabase, SourceGenerate}
	if !slices.Contains(validSources, c.Data.Source) {
		return fmt.Errorf("invalid data source %q, must be one of: %s", c.Data.Source, strings.Join(validSources, ", "))
	}

	if c.Data.Dir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Data.CacheTTL < 0 {
		return fmt.Errorf("data cache TTL cannot be negative")
	}

	if c.Data.Transactions <= 0 || c.Data.Customers <= 0 || c.Data.Products <= 0 {
		return fmt.Errorf("generator sizes must be positive")
	}

	validDrivers := []string{"postgres", "mysql"}
	if !slices.Contains(validDrivers, c.Database.Driver) {
		return fmt.Errorf("invalid database driver %q, must be one of: %s", c.Database.Driver, strings.Join(validDrivers, ", "))
	}

	if c.Data.Source == SourceDatabase && c.Database.Driver == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("DB_URL is required for the postgres driver")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text", "pretty"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if t := c.Security.AdminToken; t != "" && len(t) < minAdminTokenLen {
		return fmt.Errorf("admin token must be at least %d characters", minAdminTokenLen)
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LogValue keeps credentials out of startup logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("address", c.Address()),
		slog.String("data_source", c.Data.Source),
		slog.String("data_dir", c.Data.Dir),
		slog.Duration("cache_ttl", c.Data.CacheTTL),
		slog.String("db_driver", c.Database.Driver),
		slog.String("db_url", maskValue(c.Database.URL)),
		slog.String("log_level", c.Logger.Level),
		slog.Bool("rate_limit", c.Security.EnableRateLimit),
		slog.Bool("admin_refresh", c.Security.AdminToken != ""),
	)
}

func maskValue(v string) string {
	if len(v) <= 6 {
		return "****"
	}
	return v[:3] + "****" + v[len(v)-3:]
}
