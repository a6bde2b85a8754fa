package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken    string `envconfig:"BOT_TOKEN" required:"true"`
	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite"` // sqlite|mongo
	DBPath      string `envconfig:"DB_PATH" default:"./data/knowledge.db"`
	MongoURI    string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDB     string `envconfig:"MONGO_DB" default:"knowledge_drop"`

	DefaultTZ     string `envconfig:"DEFAULT_TZ" default:"Africa/Lagos"`
	ScheduleClock string `envconfig:"SCHEDULE_CLOCK" default:"user"` // user|server

	LogLevel      string  `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	LogFile       string  `envconfig:"LOG_FILE"`
	LogMaxSizeMB  int     `envconfig:"LOG_MAX_SIZE_MB" default:"50"`
	LogMaxBackups int     `envconfig:"LOG_MAX_BACKUPS" default:"3"`
	LogMaxAgeDays int     `envconfig:"LOG_MAX_AGE_DAYS" default:"28"`
	HTTPAddr      string  `envconfig:"HTTP_ADDR" default:":8080"` // healthz + metrics
	AdminIDs      []int64 `envconfig:"ADMIN_IDS"`

	SendRate            float64       `envconfig:"SEND_RATE" default:"25"`
	DeliveryConcurrency int           `envconfig:"DELIVERY_CONCURRENCY" default:"8"`
	DeliveryTimeout     time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"15s"`
	QuizTTL             time.Duration `envconfig:"QUIZ_TTL" default:"30m"`
}

// Load reads environment variables into Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the process cannot start with.
func (c Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is empty")
	}
	switch c.StoreDriver {
	case DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("STORE_DRIVER: unknown driver %q (want sqlite|mongo)", c.StoreDriver)
	}
	if _, err := domain.ParseClockMode(c.ScheduleClock); err != nil {
		return fmt.Errorf("SCHEDULE_CLOCK: %w", err)
	}
	if _, err := domain.ValidateTZ(c.DefaultTZ); err != nil {
		return fmt.Errorf("DEFAULT_TZ: %w", err)
	}
	if c.DeliveryConcurrency <= 0 {
		return fmt.Errorf("DELIVERY_CONCURRENCY must be positive, got %d", c.DeliveryConcurrency)
	}
	return nil
}

// ClockMode returns the validated schedule clock.
func (c Config) ClockMode() domain.ClockMode {
	m, err := domain.ParseClockMode(c.ScheduleClock)
	if err != nil {
		return domain.ClockUser
	}
	return m
}

// Location returns the default timezone, or UTC when it cannot be loaded.
func (c Config) Location() *time.Location {
	return domain.ResolveLocation(c.DefaultTZ, time.UTC)
}
