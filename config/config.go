package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"postgres"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	Port           string `envconfig:"PORT" default:"8080"`
	GoEnv          string `envconfig:"GO_ENV" default:"development"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`

	// Authentication. When Auth0Domain is empty tokens are verified with
	// JWTSecret using HS256 instead of the Auth0 JWKS.
	Auth0Domain   string `envconfig:"AUTH0_DOMAIN"`
	Auth0Audience string `envconfig:"AUTH0_AUDIENCE"`
	JWTSecret     string `envconfig:"JWT_SECRET"`
	JWTIssuer     string `envconfig:"JWT_ISSUER" default:"quickfix-api"`

	// Booking lifecycle
	StrictTransitions bool `envconfig:"STRICT_TRANSITIONS" default:"false"`

	// Photo storage
	AWSRegion          string `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSS3Bucket        string `envconfig:"AWS_S3_BUCKET"`
	AWSAccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`

	// Notifications
	NotifyQueueSize int    `envconfig:"NOTIFY_QUEUE_SIZE" default:"100"`
	MailHost        string `envconfig:"MAIL_HOST"`
	MailPort        int    `envconfig:"MAIL_PORT" default:"587"`
	MailUsername    string `envconfig:"MAIL_USERNAME"`
	MailPassword    string `envconfig:"MAIL_PASSWORD"`
	MailFrom        string `envconfig:"MAIL_FROM" default:"QuickFix <no-reply@quickfix.local>"`
	MailTLS         bool   `envconfig:"MAIL_TLS" default:"true"`
	KafkaBrokers    string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic      string `envconfig:"KAFKA_TOPIC" default:"booking-events"`
	AMQPURL         string `envconfig:"AMQP_URL"`
	AMQPExchange    string `envconfig:"AMQP_EXCHANGE" default:"booking.exchange"`
}

var (
	current *Config
	mu      sync.RWMutex
)

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// If environment-specific file doesn't exist, try .env
		if err := godotenv.Load(); err != nil {
			// In production environment variables are set directly
			// so it's okay if .env files don't exist
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	SetConfig(&cfg)
	return &cfg, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case "sqlite":
		if c.DatabaseURL == "" {
			c.DatabaseURL = "quickfix.db"
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if c.Auth0Domain == "" && c.JWTSecret == "" {
		return fmt.Errorf("either AUTH0_DOMAIN or JWT_SECRET is required")
	}
	if c.NotifyQueueSize < 1 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be positive")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// UsesAuth0 reports whether tokens are verified against the Auth0 tenant
func (c *Config) UsesAuth0() bool {
	return c.Auth0Domain != ""
}

// AllowedOrigins splits CORSOrigins into its entries
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSOrigins)
}

// Brokers splits KafkaBrokers into its entries
func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

// GetDatabaseURL returns the database URL
func (c *Config) GetDatabaseURL() string {
	return c.DatabaseURL
}

// GetConfig returns the configuration loaded last
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetConfig replaces the process-wide configuration, mainly for tests
func SetConfig(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	current = cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
