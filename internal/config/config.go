package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port        int
	LogLevel    string
	LogFormat   string
	ServiceName string
	Version     string
	Environment string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	APIKey         string // API key protecting the control API
	TrustedProxies []string

	// External messenger network application credentials. Both are required;
	// the process refuses to boot without them.
	TelegramAppID   int
	TelegramAppHash string

	// Identity service endpoint consulted by the access gate.
	IdentityBaseURL string

	// Supervisor and registry tunables.
	SupervisorTick  time.Duration
	StopDeadline    time.Duration
	BackoffCeiling  time.Duration
	MailboxCapacity int

	// CommandTimeout bounds each control API command end to end, adapter
	// calls included.
	CommandTimeout time.Duration

	// DeadLetterPath receives events that exhaust publish retries.
	DeadLetterPath string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		ServiceName:     getEnv("SERVICE_NAME", DefaultServiceName),
		Version:         getEnv("VERSION", "dev"),
		Environment:     getEnv("ENVIRONMENT", "dev"),
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", "postgres"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBName:          getEnv("DB_NAME", "botlink"),
		APIKey:          getEnv("API_KEY", ""),
		TelegramAppHash: getEnv("TELEGRAM_APP_HASH", ""),
		IdentityBaseURL: getEnv("IDENTITY_BASE_URL", ""),
		DeadLetterPath:  getEnv("EVENT_DEAD_LETTER_PATH", DefaultDeadLetterPath),
	}

	port, err := getEnvInt("PORT", DefaultPort)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value: %w", err)
	}
	cfg.Port = port

	appID, err := getEnvInt("TELEGRAM_APP_ID", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_APP_ID value: %w", err)
	}
	cfg.TelegramAppID = appID

	cfg.SupervisorTick, err = getEnvDuration("SUPERVISOR_TICK", DefaultSupervisorTick)
	if err != nil {
		return nil, fmt.Errorf("invalid SUPERVISOR_TICK value: %w", err)
	}
	cfg.StopDeadline, err = getEnvDuration("STOP_DEADLINE", DefaultStopDeadline)
	if err != nil {
		return nil, fmt.Errorf("invalid STOP_DEADLINE value: %w", err)
	}
	cfg.BackoffCeiling, err = getEnvDuration("LINK_BACKOFF_CEILING", DefaultBackoffCeiling)
	if err != nil {
		return nil, fmt.Errorf("invalid LINK_BACKOFF_CEILING value: %w", err)
	}
	cfg.MailboxCapacity, err = getEnvInt("BRIDGE_MAILBOX_CAPACITY", DefaultMailboxCapacity)
	if err != nil {
		return nil, fmt.Errorf("invalid BRIDGE_MAILBOX_CAPACITY value: %w", err)
	}
	cfg.CommandTimeout, err = getEnvDuration("COMMAND_TIMEOUT", DefaultCommandTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid COMMAND_TIMEOUT value: %w", err)
	}

	if proxies := getEnv("TRUSTED_PROXIES", ""); proxies != "" {
		cfg.TrustedProxies = splitAndTrim(proxies)
	}

	// Fatal boot errors: the control API must be authenticated and the
	// adapter cannot talk to the network without app credentials.
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable must be set for security")
	}
	if cfg.TelegramAppID == 0 || cfg.TelegramAppHash == "" {
		return nil, fmt.Errorf("TELEGRAM_APP_ID and TELEGRAM_APP_HASH must be set")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

// getEnvDuration retrieves a duration environment variable (e.g. "30s", "5m")
// or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(value)
}

// GetDBConnString returns the PostgreSQL connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}
