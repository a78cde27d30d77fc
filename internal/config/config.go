package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Sheets    SheetsConfig
	Ledger    LedgerConfig
	Redis     RedisConfig
	MongoDB   MongoDBConfig
	Reporting ReportingConfig
	WhatsApp  WhatsAppConfig
	QR        QRConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath  string
	SpreadsheetID    string
	LotsSheet        string
	WithdrawalsSheet string
	EditsSheet       string
	ValueInputOption string
}

// LedgerConfig controls how mutations are serialised.
type LedgerConfig struct {
	LockTimeout time.Duration
	// LockBackend is "memory" for a single instance or "redis" when several instances share a spreadsheet.
	LockBackend string
	LockKey     string
	PinRoles    map[string]string
}

// RedisConfig holds connection settings for the shared lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	ReconcileSchedule string
	SnapshotSchedule  string
	Timezone          string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
// Messaging is disabled when AccessToken is empty.
type WhatsAppConfig struct {
	AccessToken    string
	PhoneNumberID  string
	VerifyToken    string
	BaseURL        string
	APIVersion     string
	AlertRecipient string
}

// Enabled reports whether WhatsApp credentials were supplied.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != ""
}

// QRConfig configures the external QR image generator.
type QRConfig struct {
	BaseURL  string
	Size     int
	Attempts int
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	lockTimeout, err := time.ParseDuration(getenvWithDefault("LEDGER_LOCK_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("parse LEDGER_LOCK_TIMEOUT: %w", err)
	}

	redisDB, err := strconv.Atoi(getenvWithDefault("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_DB: %w", err)
	}

	qrSize, err := strconv.Atoi(getenvWithDefault("QR_SIZE", "300"))
	if err != nil {
		return nil, fmt.Errorf("parse QR_SIZE: %w", err)
	}

	qrAttempts, err := strconv.Atoi(getenvWithDefault("QR_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("parse QR_ATTEMPTS: %w", err)
	}

	pinRoles, err := ParsePinRoles(os.Getenv("EDIT_PIN_ROLES"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Sheets: SheetsConfig{
			CredentialsPath:  os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:    os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			LotsSheet:        getenvWithDefault("SHEET_LOTS", "Form Responses"),
			WithdrawalsSheet: getenvWithDefault("SHEET_WITHDRAWALS", "Withdrawal Logs"),
			EditsSheet:       getenvWithDefault("SHEET_EDITS", "Edit Logs"),
			ValueInputOption: getenvWithDefault("SHEETS_VALUE_INPUT_OPTION", "RAW"),
		},
		Ledger: LedgerConfig{
			LockTimeout: lockTimeout,
			LockBackend: getenvWithDefault("LEDGER_LOCK_BACKEND", "memory"),
			LockKey:     getenvWithDefault("LEDGER_LOCK_KEY", "seedbank:ledger:lock"),
			PinRoles:    pinRoles,
		},
		Redis: RedisConfig{
			Addr:     getenvWithDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "seedbank"),
		},
		Reporting: ReportingConfig{
			ReconcileSchedule: getenvWithDefault("RECONCILE_CRON_SCHEDULE", "0 2 * * *"),
			SnapshotSchedule:  getenvWithDefault("SNAPSHOT_CRON_SCHEDULE", "0 7 * * *"),
			Timezone:          getenvWithDefault("TIMEZONE", "Asia/Manila"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:    os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID:  os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:    os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:        getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:     getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			AlertRecipient: os.Getenv("WHATSAPP_ALERT_RECIPIENT"),
		},
		QR: QRConfig{
			BaseURL:  getenvWithDefault("QR_BASE_URL", "https://api.qrserver.com/v1"),
			Size:     qrSize,
			Attempts: qrAttempts,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	}

	if c.Sheets.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
	}

	switch c.Sheets.ValueInputOption {
	case "RAW", "USER_ENTERED":
	default:
		return fmt.Errorf("SHEETS_VALUE_INPUT_OPTION %q must be RAW or USER_ENTERED", c.Sheets.ValueInputOption)
	}

	if c.Ledger.LockTimeout <= 0 {
		return errors.New("LEDGER_LOCK_TIMEOUT must be positive")
	}

	switch c.Ledger.LockBackend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR must be provided when LEDGER_LOCK_BACKEND=redis")
		}
	default:
		return fmt.Errorf("LEDGER_LOCK_BACKEND %q must be memory or redis", c.Ledger.LockBackend)
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	if c.Reporting.ReconcileSchedule == "" || c.Reporting.SnapshotSchedule == "" {
		return errors.New("RECONCILE_CRON_SCHEDULE and SNAPSHOT_CRON_SCHEDULE must not be empty")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	if c.WhatsApp.Enabled() {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.VerifyToken == "":
			return errors.New("META_VERIFY_TOKEN must be provided")
		}
	}

	if c.QR.Size <= 0 || c.QR.Attempts <= 0 {
		return errors.New("QR_SIZE and QR_ATTEMPTS must be positive")
	}

	return nil
}

// ParsePinRoles reads "pin:role,pin:role" pairs.
func ParsePinRoles(raw string) (map[string]string, error) {
	roles := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return roles, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		pin, role, ok := strings.Cut(strings.TrimSpace(pair), ":")
		pin, role = strings.TrimSpace(pin), strings.TrimSpace(role)
		if !ok || pin == "" || role == "" {
			return nil, fmt.Errorf("EDIT_PIN_ROLES entry %q must look like pin:role", pair)
		}
		roles[pin] = role
	}
	return roles, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
