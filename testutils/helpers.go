package testutils

import (
	"testing"
	"time"

	"github.com/aidrelay/aidrelay/config"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	if len(models) > 0 {
		err = db.AutoMigrate(models...)
		require.NoError(t, err)
	}

	return db
}

// GetTestConfig returns a config with cheap bcrypt and short expiries so
// the suite stays fast without changing production defaults.
func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "aidrelay-test",
			URL:  "http://localhost:8080",
		},
		Auth: config.AuthConfig{
			MinPasswordLength:   8,
			RequireUpper:        true,
			RequireLower:        true,
			RequireNumber:       true,
			RequireSpecial:      true,
			BcryptCost:          bcrypt.MinCost,
			ConfirmationExpiry:  time.Hour,
			PasswordResetExpiry: time.Hour,
			TokenCleanupPeriod:  time.Hour,
		},
		Session: config.SessionConfig{
			Secret: "test-session-secret",
			Expiry: 30 * time.Minute,
		},
		Revocation: config.RevocationConfig{
			Enabled:       false,
			CleanupPeriod: time.Minute,
		},
	}
}
