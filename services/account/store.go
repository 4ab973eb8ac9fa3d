package account

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aidrelay/aidrelay/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrDuplicateEmail = errors.New("an account with this email already exists")
	ErrNotFound       = errors.New("account not found")
)

// Store owns the user_accounts table. Email uniqueness is enforced by
// the unique index on the normalized address, so concurrent
// registrations race safely.
type Store struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewStore(db *gorm.DB, logger *logging.Service) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// NormalizeEmail lower-cases and trims an address. Every read and write
// goes through it; two addresses differing only in case are the same
// account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) Create(email, name, passwordHash string) (*UserAccount, error) {
	acct := &UserAccount{
		Email:        NormalizeEmail(email),
		Name:         name,
		PasswordHash: passwordHash,
	}

	if err := s.db.Create(acct).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Uniform answer whether the existing row is confirmed or
			// not, so registration cannot be used for enumeration.
			s.logger.Warn("duplicate email on account creation")
			return nil, ErrDuplicateEmail
		}
		s.logger.Error("failed to create account", zap.Error(err))
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account created", zap.Uint("account_id", acct.ID))
	return acct, nil
}

func (s *Store) FindByEmail(email string) (*UserAccount, error) {
	var acct UserAccount
	err := s.db.Where("email = ?", NormalizeEmail(email)).First(&acct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up account by email: %w", err)
	}
	return &acct, nil
}

func (s *Store) FindByID(id uint) (*UserAccount, error) {
	var acct UserAccount
	err := s.db.First(&acct, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up account by id: %w", err)
	}
	return &acct, nil
}

// Confirm marks the account as confirmed. The guard on confirmed_at
// makes the transition happen at most once.
func (s *Store) Confirm(id uint) error {
	result := s.db.Model(&UserAccount{}).
		Where("id = ? AND confirmed_at IS NULL", id).
		Update("confirmed_at", time.Now())
	if result.Error != nil {
		return fmt.Errorf("failed to confirm account: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Info("account confirmed", zap.Uint("account_id", id))
	}
	return nil
}

func (s *Store) UpdatePasswordHash(id uint, newHash string) error {
	result := s.db.Model(&UserAccount{}).
		Where("id = ?", id).
		Update("password_hash", newHash)
	if result.Error != nil {
		return fmt.Errorf("failed to update password hash: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("password hash updated", zap.Uint("account_id", id))
	return nil
}
