// Package config carga la configuración desde YAML, aplica defaults y
// variables de entorno, y la valida.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr            string `yaml:"addr"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		// MaxBodyBytes límite del body JSON en mutaciones.
		MaxBodyBytes int64 `yaml:"max_body_bytes"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		// postgres | sqlite | redis | memory
		Driver       string `yaml:"driver"`
		DSN          string `yaml:"dsn"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
		// AutoMigrate aplica migraciones SQL al arrancar el server.
		AutoMigrate bool `yaml:"auto_migrate"`

		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`

		KV struct {
			// Retención de records soft-deleted.
			DeletedTTL string `yaml:"deleted_ttl"`
		} `yaml:"kv"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Auth struct {
		JWTSecret         string `yaml:"jwt_secret"`
		Issuer            string `yaml:"issuer"`
		SessionTTL        string `yaml:"session_ttl"`
		PrincipalCacheTTL string `yaml:"principal_cache_ttl"`
		BcryptCost        int    `yaml:"bcrypt_cost"`

		Password struct {
			MinLength     int    `yaml:"min_length"`
			RequireUpper  bool   `yaml:"require_upper"`
			RequireLower  bool   `yaml:"require_lower"`
			RequireDigit  bool   `yaml:"require_digit"`
			RequireSymbol bool   `yaml:"require_symbol"`
			BlacklistPath string `yaml:"blacklist_path"`
		} `yaml:"password"`
	} `yaml:"auth"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		SignIn  struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"signin"`
	} `yaml:"rate"`

	Collections struct {
		// Archivo .yaml/.yml/.json/.jsonc con las colecciones.
		Path string `yaml:"path"`
	} `yaml:"collections"`
}

// Load lee path (si no es vacío), aplica defaults y env, y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "15s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Driver == "sqlite" && c.Storage.DSN == "" {
		c.Storage.DSN = "hellocms.db"
	}
	if c.Storage.Redis.Addr == "" {
		c.Storage.Redis.Addr = "localhost:6379"
	}
	if c.Storage.KV.DeletedTTL == "" {
		c.Storage.KV.DeletedTTL = "720h" // 30d
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "hellocms"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "hellocms"
	}
	if c.Auth.SessionTTL == "" {
		c.Auth.SessionTTL = "24h"
	}
	if c.Auth.PrincipalCacheTTL == "" {
		c.Auth.PrincipalCacheTTL = "30s"
	}
	if c.Auth.Password.MinLength == 0 {
		c.Auth.Password.MinLength = 8
	}
	if c.Rate.SignIn.Limit == 0 {
		c.Rate.SignIn.Limit = 10
	}
	if c.Rate.SignIn.Window == "" {
		c.Rate.SignIn.Window = "1m"
	}
	if c.Collections.Path == "" {
		c.Collections.Path = "collections.yaml"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("STORAGE_MAX_OPEN_CONNS"); ok {
		c.Storage.MaxOpenConns = v
	}
	if v, ok := getEnvInt("STORAGE_MAX_IDLE_CONNS"); ok {
		c.Storage.MaxIdleConns = v
	}
	if v, ok := getEnvBool("STORAGE_AUTO_MIGRATE"); ok {
		c.Storage.AutoMigrate = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Storage.Redis.Addr = v
		if c.Cache.Redis.Addr == "" {
			c.Cache.Redis.Addr = v
		}
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Storage.Redis.Password = v
		if c.Cache.Redis.Password == "" {
			c.Cache.Redis.Password = v
		}
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Storage.Redis.DB = v
	}
	if v, ok := getEnvStr("KV_DELETED_TTL"); ok {
		c.Storage.KV.DeletedTTL = v
	}

	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}

	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.Auth.JWTSecret = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.Auth.Issuer = v
	}
	if v, ok := getEnvStr("AUTH_SESSION_TTL"); ok {
		c.Auth.SessionTTL = v
	}
	if v, ok := getEnvStr("AUTH_PRINCIPAL_CACHE_TTL"); ok {
		c.Auth.PrincipalCacheTTL = v
	}
	if v, ok := getEnvInt("AUTH_BCRYPT_COST"); ok {
		c.Auth.BcryptCost = v
	}
	if v, ok := getEnvInt("AUTH_PASSWORD_MIN_LENGTH"); ok {
		c.Auth.Password.MinLength = v
	}
	if v, ok := getEnvStr("AUTH_PASSWORD_BLACKLIST"); ok {
		c.Auth.Password.BlacklistPath = v
	}

	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_SIGNIN_LIMIT"); ok {
		c.Rate.SignIn.Limit = v
	}
	if v, ok := getEnvStr("RATE_SIGNIN_WINDOW"); ok {
		c.Rate.SignIn.Window = v
	}

	if v, ok := getEnvStr("COLLECTIONS_PATH"); ok {
		c.Collections.Path = v
	}

	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = c.Storage.Redis.Addr
	}
}

// Validate verifica coherencia y que todas las duraciones parseen.
func (c *Config) Validate() error {
	var errs []error

	switch c.App.Env {
	case "dev", "prod":
	default:
		errs = append(errs, fmt.Errorf("app.env must be dev or prod, got %q", c.App.Env))
	}

	switch c.Storage.Driver {
	case "postgres", "sqlite":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for %s", c.Storage.Driver))
		}
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported (postgres|sqlite|redis|memory)", c.Storage.Driver))
	}

	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q not supported (memory|redis)", c.Cache.Kind))
	}

	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 32 bytes (JWT_SECRET)"))
	}

	for name, v := range map[string]string{
		"server.read_timeout":      c.Server.ReadTimeout,
		"server.write_timeout":     c.Server.WriteTimeout,
		"server.shutdown_timeout":  c.Server.ShutdownTimeout,
		"storage.kv.deleted_ttl":   c.Storage.KV.DeletedTTL,
		"auth.session_ttl":         c.Auth.SessionTTL,
		"auth.principal_cache_ttl": c.Auth.PrincipalCacheTTL,
		"rate.signin.window":       c.Rate.SignIn.Window,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", name, v))
		}
	}

	return errors.Join(errs...)
}

// Dur parsea una duración ya validada.
func Dur(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// IsProd indica entorno productivo.
func (c *Config) IsProd() bool { return c.App.Env == "prod" }
