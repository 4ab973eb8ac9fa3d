package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig        `envPrefix:"AIDRELAY_APP_"`
	Server     ServerConfig     `envPrefix:"AIDRELAY_SERVER_"`
	Database   DatabaseConfig   `envPrefix:"AIDRELAY_DATABASE_"`
	Log        LogConfig        `envPrefix:"AIDRELAY_LOG_"`
	Auth       AuthConfig       `envPrefix:"AIDRELAY_AUTH_"`
	Session    SessionConfig    `envPrefix:"AIDRELAY_SESSION_"`
	Revocation RevocationConfig `envPrefix:"AIDRELAY_REVOCATION_"`
	Mail       MailConfig       `envPrefix:"AIDRELAY_MAIL_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"aidrelay"`
	URL  string `env:"URL" envDefault:"http://localhost:8080"`
}

type ServerConfig struct {
	Host string `env:"HOST" envDefault:"localhost"`
	Port string `env:"PORT" envDefault:"8080"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"aidrelay.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type AuthConfig struct {
	MinPasswordLength   int           `env:"MIN_PASSWORD_LENGTH" envDefault:"8"`
	RequireUpper        bool          `env:"REQUIRE_UPPER" envDefault:"true"`
	RequireLower        bool          `env:"REQUIRE_LOWER" envDefault:"true"`
	RequireNumber       bool          `env:"REQUIRE_NUMBER" envDefault:"true"`
	RequireSpecial      bool          `env:"REQUIRE_SPECIAL" envDefault:"true"`
	BcryptCost          int           `env:"BCRYPT_COST" envDefault:"10"`
	ConfirmationExpiry  time.Duration `env:"CONFIRMATION_EXPIRY" envDefault:"24h"`
	PasswordResetExpiry time.Duration `env:"PASSWORD_RESET_EXPIRY" envDefault:"1h"`
	TokenCleanupPeriod  time.Duration `env:"TOKEN_CLEANUP_PERIOD" envDefault:"1h"`
}

type SessionConfig struct {
	Secret string        `env:"SECRET" envDefault:"insecure-development-secret"`
	Expiry time.Duration `env:"EXPIRY" envDefault:"30m"`
}

type RevocationConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"false"`
	CleanupPeriod time.Duration `env:"CLEANUP_PERIOD" envDefault:"5m"`
}

type MailConfig struct {
	Host        string `env:"HOST" envDefault:"localhost"`
	Port        int    `env:"PORT" envDefault:"587"`
	Username    string `env:"USERNAME"`
	Password    string `env:"PASSWORD"`
	Encryption  string `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress string `env:"FROM_ADDRESS" envDefault:"noreply@aidrelay.org"`
	FromName    string `env:"FROM_NAME" envDefault:"AidRelay"`
}

// MaxSessionExpiry caps the lifetime of issued session credentials.
// Configured values beyond it are clamped, never honoured.
const MaxSessionExpiry = 30 * time.Minute

func LoadConfig(cfg *Config) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Session.Expiry <= 0 || cfg.Session.Expiry > MaxSessionExpiry {
		cfg.Session.Expiry = MaxSessionExpiry
	}

	return nil
}
