// Package config loads the server configuration from a YAML file, command-line
// flags and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/vgents/portaljuridico/internal/events"
	"github.com/vgents/portaljuridico/internal/limiter"
	"github.com/vgents/portaljuridico/internal/sigilo"
)

// Secret environment variables. They override both the file and the flags.
const (
	EnvJWTKey        = "PJ_JWT_KEY"
	EnvAdminPassword = "PJ_ADMIN_PASSWORD"
)

// Config is the complete server configuration.
type Config struct {
	// Addr is the gRPC listen address.
	Addr string `yaml:"addr"`
	// OpsAddr serves /health and /metrics. Empty disables it.
	OpsAddr   string        `yaml:"ops_addr"`
	DSN       string        `yaml:"dsn"`
	JWTKey    string        `yaml:"jwt_key"`
	AccessTTL time.Duration `yaml:"access_ttl"`
	TLSCert   string        `yaml:"tls_cert"`
	TLSKey    string        `yaml:"tls_key"`
	// Insecure serves plaintext gRPC; meant for local development only.
	Insecure bool `yaml:"insecure"`
	// Dev enables server reflection and the console logger.
	Dev bool `yaml:"dev"`

	Log    LogConfig    `yaml:"log"`
	Redis  RedisConfig  `yaml:"redis"`
	Groups GroupsConfig `yaml:"groups"`
	Login  LoginConfig  `yaml:"login"`
	Sigilo SigiloConfig `yaml:"sigilo"`
	Admin  AdminConfig  `yaml:"admin"`
}

// LogConfig selects the minimum log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// RedisConfig enables cross-instance document events when Addr is set.
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// GroupsConfig sizes the membership cache.
type GroupsConfig struct {
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// LoginConfig tunes the login rate limiter.
type LoginConfig struct {
	Window   time.Duration `yaml:"window"`
	MaxFails int           `yaml:"max_fails"`
	BlockFor time.Duration `yaml:"block_for"`
}

// SigiloConfig holds the access-control policy knobs.
type SigiloConfig struct {
	// EmptyListPolicy is "open" or "closed".
	EmptyListPolicy string `yaml:"empty_list_policy"`
}

// AdminConfig describes the bootstrap administrator. Nothing is created
// when Password is empty.
type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:      ":8443",
		OpsAddr:   ":9090",
		DSN:       "postgres://pj:pj@localhost:5432/portaljuridico?sslmode=disable",
		AccessTTL: 15 * time.Minute,
		TLSCert:   "cert.pem",
		TLSKey:    "key.pem",
		Log:       LogConfig{Level: "info"},
		Redis:     RedisConfig{Channel: events.DefaultChannel},
		Groups:    GroupsConfig{CacheSize: 1024, CacheTTL: 5 * time.Minute},
		Login: LoginConfig{
			Window:   limiter.DefaultSettings.Window,
			MaxFails: limiter.DefaultSettings.MaxFails,
			BlockFor: limiter.DefaultSettings.BlockFor,
		},
		Sigilo: SigiloConfig{EmptyListPolicy: sigilo.FailOpen.String()},
		Admin:  AdminConfig{Email: "admin@portaljuridico.local"},
	}
}

// Load builds the configuration for args (without the program name).
// getenv is usually os.Getenv.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	fl := *cfg

	fs := pflag.NewFlagSet("pj-server", pflag.ContinueOnError)
	path := fs.StringP("config", "c", "", "YAML configuration file")
	fs.StringVar(&fl.Addr, "addr", cfg.Addr, "gRPC listen address")
	fs.StringVar(&fl.OpsAddr, "ops-addr", cfg.OpsAddr, "health and metrics listen address (empty disables)")
	fs.StringVar(&fl.DSN, "dsn", cfg.DSN, "PostgreSQL DSN")
	fs.StringVar(&fl.JWTKey, "jwt-key", "", "HS256 signing key (prefer "+EnvJWTKey+")")
	fs.DurationVar(&fl.AccessTTL, "access-ttl", cfg.AccessTTL, "access token TTL")
	fs.StringVar(&fl.TLSCert, "tls-cert", cfg.TLSCert, "TLS certificate (PEM)")
	fs.StringVar(&fl.TLSKey, "tls-key", cfg.TLSKey, "TLS private key (PEM)")
	fs.BoolVar(&fl.Insecure, "insecure", false, "serve gRPC without TLS")
	fs.BoolVar(&fl.Dev, "dev", false, "development mode: reflection and console logs")
	fs.StringVar(&fl.Log.Level, "log-level", cfg.Log.Level, "minimum log level")
	fs.StringVar(&fl.Redis.Addr, "redis-addr", "", "Redis address for cross-instance events")
	fs.StringVar(&fl.Redis.Channel, "redis-channel", cfg.Redis.Channel, "Redis Pub/Sub channel")
	fs.StringVar(&fl.Sigilo.EmptyListPolicy, "empty-list-policy", cfg.Sigilo.EmptyListPolicy, "grupo/pessoal documents with an empty list: open or closed")
	fs.StringVar(&fl.Admin.Email, "admin-email", cfg.Admin.Email, "bootstrap administrator e-mail")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *path != "" {
		if err := cfg.loadFile(*path); err != nil {
			return nil, err
		}
	}
	fs.Visit(func(f *pflag.Flag) { cfg.overlay(&fl, f.Name) })

	if getenv != nil {
		if v := getenv(EnvJWTKey); v != "" {
			cfg.JWTKey = v
		}
		if v := getenv(EnvAdminPassword); v != "" {
			cfg.Admin.Password = v
		}
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlay(fl *Config, name string) {
	switch name {
	case "addr":
		c.Addr = fl.Addr
	case "ops-addr":
		c.OpsAddr = fl.OpsAddr
	case "dsn":
		c.DSN = fl.DSN
	case "jwt-key":
		c.JWTKey = fl.JWTKey
	case "access-ttl":
		c.AccessTTL = fl.AccessTTL
	case "tls-cert":
		c.TLSCert = fl.TLSCert
	case "tls-key":
		c.TLSKey = fl.TLSKey
	case "insecure":
		c.Insecure = fl.Insecure
	case "dev":
		c.Dev = fl.Dev
	case "log-level":
		c.Log.Level = fl.Log.Level
	case "redis-addr":
		c.Redis.Addr = fl.Redis.Addr
	case "redis-channel":
		c.Redis.Channel = fl.Redis.Channel
	case "empty-list-policy":
		c.Sigilo.EmptyListPolicy = fl.Sigilo.EmptyListPolicy
	case "admin-email":
		c.Admin.Email = fl.Admin.Email
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var problems []error
	bad := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if c.Addr == "" {
		bad("addr is required")
	}
	if c.DSN == "" {
		bad("dsn is required")
	}
	if c.JWTKey == "" {
		bad("jwt key is required (--jwt-key or %s)", EnvJWTKey)
	}
	if c.AccessTTL <= 0 {
		bad("access_ttl must be positive, got %s", c.AccessTTL)
	}
	if !c.Insecure && (c.TLSCert == "" || c.TLSKey == "") {
		bad("tls_cert and tls_key are required unless insecure is set")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		bad("log.level: %v", err)
	}
	if c.Groups.CacheSize <= 0 {
		bad("groups.cache_size must be positive, got %d", c.Groups.CacheSize)
	}
	if c.Groups.CacheTTL <= 0 {
		bad("groups.cache_ttl must be positive, got %s", c.Groups.CacheTTL)
	}
	if c.Login.Window <= 0 || c.Login.BlockFor <= 0 {
		bad("login.window and login.block_for must be positive")
	}
	if c.Login.MaxFails <= 0 {
		bad("login.max_fails must be positive, got %d", c.Login.MaxFails)
	}
	if _, ok := sigilo.ParseFallback(c.Sigilo.EmptyListPolicy); !ok {
		bad("sigilo.empty_list_policy: unknown value %q (want open or closed)", c.Sigilo.EmptyListPolicy)
	}
	if c.Admin.Password != "" && c.Admin.Email == "" {
		bad("admin.email is required when an admin password is set")
	}
	return errors.Join(problems...)
}

// Policy returns the sigilo policy. Call after Validate.
func (c *Config) Policy() sigilo.Policy {
	f, _ := sigilo.ParseFallback(c.Sigilo.EmptyListPolicy)
	return sigilo.Policy{EmptyList: f}
}

// LimiterSettings returns the login limiter tunables.
func (c *Config) LimiterSettings() limiter.Settings {
	return limiter.Settings{Window: c.Login.Window, MaxFails: c.Login.MaxFails, BlockFor: c.Login.BlockFor}
}

// NewLogger builds a JSON production logger, or a console logger in dev mode.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
