package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage backends for the preference store.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken string
	OwnerChatID   int64
	LogLevel      string
	Environment   string
	Timezone      string `validate:"required,timezone"`

	StorageBackend string `validate:"oneof=memory postgres redis"`
	StoragePrefix  string
	DatabaseURL    string `validate:"required_if=StorageBackend postgres"`
	RedisAddr      string `validate:"required_if=StorageBackend redis"`
	RedisPassword  string
	RedisDB        int `validate:"gte=0"`

	ExactAlarmsAllowed bool
	SnoozeMinutes      int    `validate:"gte=1"`
	DefaultLeadMinutes int    `validate:"gte=0,lte=180"`
	LegacyAlarmIDStart int    `validate:"gte=0"`
	LegacyAlarmIDCount int    `validate:"gte=0"`
	CronSpecRearm      string `validate:"required"` // periodic re-arm of the reminder triggers
}

// envNames maps validated fields back to the variables users set.
var envNames = map[string]string{
	"Timezone":           "TIMEZONE",
	"StorageBackend":     "STORAGE_BACKEND",
	"DatabaseURL":        "DATABASE_URL",
	"RedisAddr":          "REDIS_ADDR",
	"RedisDB":            "REDIS_DB",
	"SnoozeMinutes":      "SNOOZE_MINUTES",
	"DefaultLeadMinutes": "DEFAULT_LEAD_MINUTES",
	"LegacyAlarmIDStart": "LEGACY_ALARM_ID_START",
	"LegacyAlarmIDCount": "LEGACY_ALARM_ID_COUNT",
	"CronSpecRearm":      "CRON_SPEC_REARM",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	if ownerIDStr := os.Getenv("OWNER_CHAT_ID"); ownerIDStr != "" {
		cfg.OwnerChatID, err = strconv.ParseInt(ownerIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OWNER_CHAT_ID: %w", err)
		}
	}

	cfg.LogLevel = strings.ToLower(getenv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getenv("ENVIRONMENT", "development"))
	cfg.Timezone = getenv("TIMEZONE", "Asia/Jerusalem")

	cfg.StorageBackend = strings.ToLower(getenv("STORAGE_BACKEND", StorageMemory))
	cfg.StoragePrefix = os.Getenv("STORAGE_PREFIX")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.ExactAlarmsAllowed, err = strconv.ParseBool(getenv("EXACT_ALARMS_ALLOWED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXACT_ALARMS_ALLOWED: %w", err)
	}
	if cfg.SnoozeMinutes, err = getInt("SNOOZE_MINUTES", 10); err != nil {
		return nil, err
	}
	if cfg.DefaultLeadMinutes, err = getInt("DEFAULT_LEAD_MINUTES", 30); err != nil {
		return nil, err
	}
	if cfg.LegacyAlarmIDStart, err = getInt("LEGACY_ALARM_ID_START", 1000); err != nil {
		return nil, err
	}
	if cfg.LegacyAlarmIDCount, err = getInt("LEGACY_ALARM_ID_COUNT", 200); err != nil {
		return nil, err
	}

	cfg.CronSpecRearm = getenv("CRON_SPEC_REARM", "0 4 * * *") // Default: 4 AM daily

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	fe := fieldErrs[0]
	name := envNames[fe.Field()]
	if name == "" {
		name = fe.Field()
	}
	if fe.Tag() == "required" || fe.Tag() == "required_if" {
		return fmt.Errorf("%s is not set", name)
	}
	return fmt.Errorf("invalid %s %q: must satisfy %s", name, fmt.Sprint(fe.Value()), fe.ActualTag())
}

// ValidateForBot checks the settings required by the Telegram bot.
func (c *AppConfig) ValidateForBot() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is not set")
	}
	if c.OwnerChatID == 0 {
		return fmt.Errorf("OWNER_CHAT_ID is not set")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
