package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Twilio   TwilioConfig
	OCR      OCRConfig
	Media    MediaConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// TwilioConfig holds messaging-service credentials.
// AccountSID/AuthToken also authenticate media downloads.
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
	APIBaseURL  string
	Timeout     time.Duration
}

// OCRConfig holds recognition-engine configuration
type OCRConfig struct {
	Tesseract     string
	TesseractLang string
	TessdataDir   string
}

// MediaConfig holds media staging configuration
type MediaConfig struct {
	ScratchDir      string
	DownloadTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			Addr:            ":" + getEnv("PORT", "8080"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Twilio: TwilioConfig{
			AccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
			PhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
			APIBaseURL:  getEnv("TWILIO_API_BASE_URL", "https://api.twilio.com"),
			Timeout:     getEnvAsDuration("TWILIO_TIMEOUT", 15*time.Second),
		},
		OCR: OCRConfig{
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
		},
		Media: MediaConfig{
			ScratchDir:      getEnv("SCRATCH_DIR", os.TempDir()),
			DownloadTimeout: getEnvAsDuration("MEDIA_DOWNLOAD_TIMEOUT", 30*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration. Startup fails fast only on the
// database DSN; missing messaging credentials are reported per request as a
// configuration error so the service can still answer its health endpoint.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DATABASE_URL is required", ErrConfig)
	}
	if c.Server.Addr == ":" {
		return NewAppError("CONFIG_ERROR", "PORT must not be empty", ErrConfig)
	}
	return nil
}

// HasMessagingCredentials reports whether the Twilio credentials needed for
// media download and confirmation sending are present.
func (c *Config) HasMessagingCredentials() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != ""
}
