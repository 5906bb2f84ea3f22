package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name      string `envconfig:"APP_NAME" default:"Tally"`
		Port      int    `envconfig:"PORT" default:"8080"`
		LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
		LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"tally"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Auth struct {
		// Empty secret disables bearer token verification (local development).
		JWTSecret string `envconfig:"AUTH_JWT_SECRET"`
	}

	Import struct {
		MaxFileSize int64         `envconfig:"IMPORT_MAX_FILE_SIZE" default:"5242880"`
		Timezone    string        `envconfig:"IMPORT_TIMEZONE" default:"Europe/Chisinau"`
		SessionTTL  time.Duration `envconfig:"IMPORT_SESSION_TTL" default:"24h"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// Location resolves the timezone bank statements are written in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Import.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading import timezone %q: %w", c.Import.Timezone, err)
	}

	return loc, nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
