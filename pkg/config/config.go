// Package config loads service settings from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/TudorHulban/go-errors"
	"github.com/asaskevich/govalidator"
	"github.com/robfig/cron/v3"
)

const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// refreshParser accepts the same syntax as the worker's cron.WithSeconds scheduler.
var refreshParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Config holds the settings shared by the server and the worker.
type Config struct {
	Env      string `valid:"-"`
	LogLevel string `valid:"-"`

	HTTPAddr    string `valid:"required"`
	MetricsAddr string `valid:"required"`

	RedisAddr     string `valid:"required"`
	BacklogDriver string `valid:"required,in(redis|postgres)"`
	DatabaseURL   string `valid:"-"`

	SuggestionLimit int           `valid:"required,range(1|100)"`
	SuggestionTTL   time.Duration `valid:"-"`
	RefreshSpec     string        `valid:"required"`

	RateLimit int `valid:"required,range(1|100000)"`
	RateBurst int `valid:"required,range(1|100000)"`

	CORSOrigins []string `valid:"-"`
}

// Load reads the environment, applying defaults for unset variables.
// Malformed numbers and durations fall back to their defaults as well.
func Load() *Config {
	return &Config{
		Env:      os.Getenv("APP_ENV"),
		LogLevel: os.Getenv("LOG_LEVEL"),

		HTTPAddr:    stringEnv("HTTP_ADDR", ":8081"),
		MetricsAddr: stringEnv("METRICS_ADDR", ":8080"),

		RedisAddr:     stringEnv("REDIS_ADDR", "127.0.0.1:6379"),
		BacklogDriver: stringEnv("BACKLOG_DRIVER", DriverRedis),
		DatabaseURL:   os.Getenv("DATABASE_URL"),

		SuggestionLimit: intEnv("SUGGESTION_LIMIT", 5),
		SuggestionTTL:   durationEnv("SUGGESTION_TTL", 10*time.Minute),
		RefreshSpec:     stringEnv("REFRESH_SPEC", "@every 1m"),

		RateLimit: intEnv("RATE_LIMIT", 10),
		RateBurst: intEnv("RATE_BURST", 20),

		CORSOrigins: listEnv("CORS_ORIGINS", []string{"*"}),
	}
}

// Validate checks the loaded settings.
func (c *Config) Validate() error {
	if _, errValidation := govalidator.ValidateStruct(c); errValidation != nil {
		return goerrors.ErrServiceValidation{
			ServiceName: "taskprio",
			Caller:      "Validate - Config",
			Issue:       errValidation,
		}
	}

	if c.BacklogDriver == DriverPostgres && len(c.DatabaseURL) == 0 {
		return goerrors.ErrValidation{
			Caller: "Validate - Config",
			Issue: goerrors.ErrNilInput{
				InputName: "DatabaseURL",
			},
		}
	}

	if c.SuggestionTTL <= 0 {
		return goerrors.ErrValidation{
			Caller: "Validate - Config",
			Issue: goerrors.ErrNegativeInput{
				InputName: "SuggestionTTL",
			},
		}
	}

	if _, errParse := refreshParser.Parse(c.RefreshSpec); errParse != nil {
		return goerrors.ErrValidation{
			Caller: "Validate - Config",
			Issue: goerrors.ErrInvalidInput{
				InputName: "RefreshSpec",
			},
		}
	}

	return nil
}

func stringEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}

	return fallback
}

func intEnv(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}

	return value
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}

	return value
}

func listEnv(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	var result []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}

	return result
}
