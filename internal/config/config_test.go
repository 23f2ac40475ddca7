package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8084 {
		t.Errorf("port = %d, want 8084", cfg.Server.Port)
	}
	if cfg.Data.Source != SourceSnapshot {
		t.Errorf("data source = %q, want %q", cfg.Data.Source, SourceSnapshot)
	}
	if cfg.Data.CacheTTL != time.Hour {
		t.Errorf("cache ttl = %v, want 1h", cfg.Data.CacheTTL)
	}
	if got := cfg.Address(); got != "localhost:8084" {
		t.Errorf("Address() = %q", got)
	}
}

func TestLoad_FromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "SERVER_PORT=9090\nDATA_SOURCE=generate\nSECURITY_ALLOWED_ORIGINS=http://a.test,http://b.test\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("DATA_SOURCE")
		os.Unsetenv("SECURITY_ALLOWED_ORIGINS")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Data.Source != SourceGenerate {
		t.Errorf("source = %q", cfg.Data.Source)
	}
	if len(cfg.Security.AllowedOrigins) != 2 {
		t.Errorf("allowed origins = %v", cfg.Security.AllowedOrigins)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func validConfig() Config {
	return Config{
		Server: ServerConfig{Port: 8084, ReadTimeout: time.Second, WriteTimeout: time.Second},
		Data: DataConfig{
			Source: SourceSnapshot, Dir: "data", CacheTTL: time.Hour,
			Transactions: 10, Customers: 10, Products: 10,
		},
		Database: DatabaseConfig{Driver: "postgres"},
		Logger:   LoggerConfig{Level: "info", Format: "json"},
		Security: SecurityConfig{RateLimitRPS: 1, RateLimitBurst: 1},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"pretty logs", func(c *Config) { c.Logger.Format = "pretty" }, false},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, true},
		{"unknown source", func(c *Config) { c.Data.Source = "s3" }, true},
		{"empty data dir", func(c *Config) { c.Data.Dir = "" }, true},
		{"negative ttl", func(c *Config) { c.Data.CacheTTL = -time.Second }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, true},
		{"database without url", func(c *Config) { c.Data.Source = SourceDatabase }, true},
		{"mysql without url", func(c *Config) {
			c.Data.Source = SourceDatabase
			c.Database.Driver = "mysql"
		}, false},
		{"bad log format", func(c *Config) { c.Logger.Format = "xml" }, true},
		{"zero rps", func(c *Config) { c.Security.RateLimitRPS = 0 }, true},
		{"short admin token", func(c *Config) { c.Security.AdminToken = "secret" }, true},
		{"admin token", func(c *Config) { c.Security.AdminToken = "0123456789abcdef" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaskValue(t *testing.T) {
	if got := maskValue("abc"); got != "****" {
		t.Errorf("maskValue(short) = %q", got)
	}
	if got := maskValue("postgres://user:pw@host/db"); got != "pos****/db" {
		t.Errorf("maskValue(long) = %q", got)
	}
}
