package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Status modes decide how the HTTP layer reports client errors.
const (
	// StatusModeLegacy answers validation failures with 200 and a message string.
	StatusModeLegacy = "legacy"
	// StatusModeStrict answers validation failures with 400 and missing records with 404.
	StatusModeStrict = "strict"
)

// Config holds the runtime settings of the service.
type Config struct {
	AppPort          string        `validate:"required"`
	DatabaseDriver   string        `validate:"oneof=sqlite postgres memory"`
	DatabaseDSN      string        `validate:"required_unless=DatabaseDriver memory"`
	DBLogLevel       string        `validate:"oneof=silent error warn info"`
	RabbitMQURL      string        `validate:"omitempty,url"`
	RabbitMQExchange string        `validate:"required_with=RabbitMQURL"`
	StatusMode       string        `validate:"oneof=legacy strict"`
	ShutdownTimeout  time.Duration `validate:"gt=0"`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Could not load .env file: %v", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers the default value of every known key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "products.db")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "products")
	v.SetDefault("STATUS_MODE", StatusModeLegacy)
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
}

// FromViper builds a Config out of an already populated viper instance.
func FromViper(v *viper.Viper) Config {
	return Config{
		AppPort:          v.GetString("APP_PORT"),
		DatabaseDriver:   v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:      v.GetString("DATABASE_DSN"),
		DBLogLevel:       v.GetString("DB_LOG_LEVEL"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQExchange: v.GetString("RABBITMQ_EXCHANGE"),
		StatusMode:       v.GetString("STATUS_MODE"),
		ShutdownTimeout:  v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
}

// Validate checks that every setting holds a supported value.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			e := validationErrors[0]
			return fmt.Errorf("invalid configuration: field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// StrictStatus reports whether client errors get 4xx status codes.
func (c Config) StrictStatus() bool {
	return c.StatusMode == StatusModeStrict
}

// EventsEnabled reports whether product events should be published.
func (c Config) EventsEnabled() bool {
	return c.RabbitMQURL != ""
}
