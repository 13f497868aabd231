package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

// DevJWTSecret es el secreto de desarrollo. Nunca debe usarse en produccion.
const DevJWTSecret = "devsecret"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort  string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	JWTSecret string `env:"JWT_SECRET" envDefault:"devsecret"`

	CookieSecure   bool     `env:"COOKIE_SECURE" envDefault:"false"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/forum.db"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LoginRateWindowMinutes int `env:"LOGIN_RATE_WINDOW_MINUTES" envDefault:"15"`
	LoginRateMax           int `env:"LOGIN_RATE_MAX" envDefault:"10"`

	EnableSeedEndpoint bool `env:"ENABLE_SEED_ENDPOINT" envDefault:"false"`
}

var (
	ErrInsecureSecret = errors.New("jwt secret must be set to a non-default value in production")
	ErrMissingDSN     = errors.New("DATABASE_URL is required for the postgres driver")
)

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

// UsesDevSecret indica si el secreto de firma es el valor inseguro de desarrollo.
func (c *Config) UsesDevSecret() bool {
	secret := strings.TrimSpace(c.JWTSecret)
	return secret == "" || secret == DevJWTSecret
}

func (c *Config) Validate() error {
	if c.IsProduction() && c.UsesDevSecret() {
		return ErrInsecureSecret
	}
	switch c.StoreDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return ErrMissingDSN
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}
