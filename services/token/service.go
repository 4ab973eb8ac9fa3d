package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/aidrelay/aidrelay/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrTokenInvalid         = errors.New("invalid verification token")
	ErrTokenExpired         = errors.New("verification token has expired")
	ErrTokenPurposeMismatch = errors.New("verification token purpose mismatch")
)

const tokenByteLength = 32

type Service struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewService(db *gorm.DB, logger *logging.Service) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

func generateToken() (string, error) {
	bytes := make([]byte, tokenByteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Issue creates a fresh token for the account and purpose. Outstanding
// tokens of the same purpose are dropped in the same transaction, so at
// most one live token exists per account per purpose.
func (s *Service) Issue(userAccountID uint, purpose Purpose, ttl time.Duration) (*VerificationToken, error) {
	value, err := generateToken()
	if err != nil {
		s.logger.Error("failed to generate verification token", zap.Error(err))
		return nil, err
	}

	now := time.Now()
	vt := &VerificationToken{
		Token:         value,
		UserAccountID: userAccountID,
		Purpose:       purpose,
		ExpiresAt:     now.Add(ttl),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_account_id = ? AND purpose = ?", userAccountID, purpose).
			Delete(&VerificationToken{}).Error; err != nil {
			return err
		}
		return tx.Create(vt).Error
	})
	if err != nil {
		s.logger.Error("failed to store verification token",
			zap.Error(err),
			zap.Uint("account_id", userAccountID))
		return nil, fmt.Errorf("failed to issue verification token: %w", err)
	}

	s.logger.Info("verification token issued",
		zap.Uint("account_id", userAccountID),
		zap.String("purpose", string(purpose)),
		zap.Time("expires_at", vt.ExpiresAt))
	return vt, nil
}

// Consume atomically marks the token used and returns the owning
// account. The guarded UPDATE means two concurrent consumers cannot
// both succeed; the loser sees the token as already used.
func (s *Service) Consume(value string, purpose Purpose) (uint, error) {
	now := time.Now()

	result := s.db.Model(&VerificationToken{}).
		Where("token = ? AND purpose = ? AND used = ? AND expires_at > ?", value, purpose, false, now).
		Updates(map[string]any{"used": true, "used_at": now})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to consume verification token: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return 0, s.classifyConsumeFailure(value, purpose, now)
	}

	var vt VerificationToken
	if err := s.db.Where("token = ?", value).First(&vt).Error; err != nil {
		return 0, fmt.Errorf("failed to load consumed token: %w", err)
	}

	s.logger.Info("verification token consumed",
		zap.Uint("account_id", vt.UserAccountID),
		zap.String("purpose", string(purpose)))
	return vt.UserAccountID, nil
}

func (s *Service) classifyConsumeFailure(value string, purpose Purpose, now time.Time) error {
	var vt VerificationToken
	if err := s.db.Where("token = ?", value).First(&vt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("unknown verification token presented")
			return ErrTokenInvalid
		}
		return fmt.Errorf("failed to classify token failure: %w", err)
	}

	switch {
	case vt.Used:
		// A replayed token answers the same as an unknown one.
		s.logger.Warn("already used verification token presented",
			zap.Uint("account_id", vt.UserAccountID))
		return ErrTokenInvalid
	case vt.Purpose != purpose:
		s.logger.Warn("verification token presented for wrong purpose",
			zap.Uint("account_id", vt.UserAccountID),
			zap.String("issued_for", string(vt.Purpose)),
			zap.String("attempted", string(purpose)))
		return ErrTokenPurposeMismatch
	case !vt.ExpiresAt.After(now):
		s.logger.Warn("expired verification token presented",
			zap.Uint("account_id", vt.UserAccountID),
			zap.Time("expired_at", vt.ExpiresAt))
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}

func (s *Service) CleanupExpired() error {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&VerificationToken{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup expired verification tokens: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Info("expired verification tokens cleaned up",
			zap.Int64("tokens_removed", result.RowsAffected))
	}
	return nil
}

func (s *Service) StartCleanupWorker(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			if err := s.CleanupExpired(); err != nil {
				s.logger.Error("verification token cleanup failed", zap.Error(err))
			}
		}
	}()

	s.logger.Info("started verification token cleanup worker",
		zap.Duration("interval", interval))
}
