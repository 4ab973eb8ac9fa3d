package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/aidrelay/aidrelay/config"
	"github.com/aidrelay/aidrelay/services/account"
	"github.com/aidrelay/aidrelay/services/logging"
	"github.com/aidrelay/aidrelay/services/password"
	"github.com/aidrelay/aidrelay/services/revocation"
	"github.com/aidrelay/aidrelay/services/session"
	"github.com/aidrelay/aidrelay/services/token"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	ErrValidation = errors.New("invalid input")
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password so login responses carry no enumeration signal.
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountNotConfirmed = errors.New("account has not been confirmed")
	ErrUnauthenticated     = errors.New("authentication required")
)

// Mailer dispatches verification tokens. Delivery is best-effort; the
// service logs failures and never surfaces them to the caller.
type Mailer interface {
	SendConfirmationToken(toEmail, token string) error
	SendPasswordResetToken(toEmail, token string) error
}

type Service struct {
	config      *config.Config
	store       *account.Store
	hasher      *password.Service
	tokens      *token.Service
	sessions    *session.Service
	revocations *revocation.Service
	mailer      Mailer
	logger      *logging.Service
	validate    *validator.Validate
}

func NewService(
	cfg *config.Config,
	store *account.Store,
	hasher *password.Service,
	tokens *token.Service,
	sessions *session.Service,
	logger *logging.Service,
) *Service {
	return &Service{
		config:   cfg,
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
		validate: validator.New(),
	}
}

func (s *Service) SetMailer(mailer Mailer) {
	s.mailer = mailer
}

// SetRevocationService enables denylist checks during session
// validation. Without it sessions are purely stateless.
func (s *Service) SetRevocationService(revocations *revocation.Service) {
	s.revocations = revocations
}

func (s *Service) ValidatePassword(pw string) error {
	if len(pw) < s.config.Auth.MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, s.config.Auth.MinPasswordLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range pw {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	var missing []string
	if s.config.Auth.RequireUpper && !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if s.config.Auth.RequireLower && !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if s.config.Auth.RequireNumber && !hasNumber {
		missing = append(missing, "one number")
	}
	if s.config.Auth.RequireSpecial && !hasSpecial {
		missing = append(missing, "one special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: password must contain at least %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// Register creates an unconfirmed account and dispatches a confirmation
// token. A duplicate email answers uniformly whether the existing
// account is confirmed or not.
func (s *Service) Register(email, name, pw string) error {
	email = account.NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := s.validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: email address is not valid", ErrValidation)
	}
	if err := s.validate.Var(name, "required,min=1,max=255"); err != nil {
		return fmt.Errorf("%w: name must be between 1 and 255 characters", ErrValidation)
	}
	if err := s.ValidatePassword(pw); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return err
	}

	acct, err := s.store.Create(email, name, hash)
	if err != nil {
		return err
	}

	vt, err := s.tokens.Issue(acct.ID, token.PurposeConfirmation, s.config.Auth.ConfirmationExpiry)
	if err != nil {
		return err
	}

	s.dispatch("confirmation token", acct.Email, func(m Mailer) error {
		return m.SendConfirmationToken(acct.Email, vt.Token)
	})

	s.logger.Info("registration accepted", zap.Uint("account_id", acct.ID))
	return nil
}

// Confirm consumes a registration token and marks the account
// confirmed. Every failure collapses to the token-invalid class.
func (s *Service) Confirm(email, tokenValue string) error {
	acct, err := s.store.FindByEmail(email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return token.ErrTokenInvalid
		}
		return err
	}

	ownerID, err := s.tokens.Consume(tokenValue, token.PurposeConfirmation)
	if err != nil {
		return err
	}
	if ownerID != acct.ID {
		s.logger.Warn("confirmation token presented for wrong account",
			zap.Uint("token_owner", ownerID),
			zap.Uint("account_id", acct.ID))
		return token.ErrTokenInvalid
	}

	return s.store.Confirm(acct.ID)
}

// Login verifies credentials and mints a session cookie. Unknown email
// and wrong password yield the same failure; the absent-account path
// still burns a hash comparison to keep timing uniform.
func (s *Service) Login(email, pw string) (*session.Credential, error) {
	acct, err := s.store.FindByEmail(email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			s.hasher.DummyVerify(pw)
			s.logger.Warn("login attempt for unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Verify(acct.PasswordHash, pw); err != nil {
		s.logger.Warn("login attempt with wrong password", zap.Uint("account_id", acct.ID))
		return nil, ErrInvalidCredentials
	}

	if !acct.Confirmed() {
		s.logger.Warn("login attempt on unconfirmed account", zap.Uint("account_id", acct.ID))
		return nil, ErrAccountNotConfirmed
	}

	cred, err := s.sessions.Issue(acct.ID, time.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("login successful", zap.Uint("account_id", acct.ID))
	return cred, nil
}

// CurrentUser resolves a session cookie value to the live account row.
// The account is re-fetched on every call so admin and confirmation
// state are never stale.
func (s *Service) CurrentUser(cookieValue string) (*account.UserAccount, error) {
	claims, err := s.sessions.Decode(cookieValue, time.Now())
	if err != nil {
		return nil, ErrUnauthenticated
	}

	if s.revocations != nil && s.revocations.IsRevoked(claims.ID) {
		s.logger.Warn("revoked session credential presented", zap.Uint("account_id", claims.UserID))
		return nil, ErrUnauthenticated
	}

	acct, err := s.store.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return acct, nil
}

// RenewSession reissues a fresh cookie for an authenticated subject,
// sliding the expiry window forward.
func (s *Service) RenewSession(userID uint) (*session.Credential, error) {
	return s.sessions.Issue(userID, time.Now())
}

// EndSession denylists the presented credential when revocation is
// enabled. The cookie itself is cleared client-side via an expired
// Set-Cookie; there is no server-side session state.
func (s *Service) EndSession(cookieValue string) {
	if s.revocations == nil {
		return
	}
	claims, err := s.sessions.Decode(cookieValue, time.Now())
	if err != nil {
		return
	}
	s.revocations.Revoke(claims.ID, claims.ExpiresAt.Time)
}

// ChangePassword requires the current password before storing a new
// hash. Previously issued cookies stay valid until their own expiry; a
// fresh cookie is returned to extend the authenticated flow.
func (s *Service) ChangePassword(userID uint, currentPassword, newPassword string) (*session.Credential, error) {
	acct, err := s.store.FindByID(userID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	if err := s.hasher.Verify(acct.PasswordHash, currentPassword); err != nil {
		s.logger.Warn("password change with wrong current password", zap.Uint("account_id", acct.ID))
		return nil, ErrInvalidCredentials
	}

	if err := s.ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePasswordHash(acct.ID, hash); err != nil {
		return nil, err
	}

	s.logger.Info("password changed", zap.Uint("account_id", acct.ID))
	return s.sessions.Issue(acct.ID, time.Now())
}

// RequestPasswordReset always reports success. A token is issued and
// dispatched only when the account exists.
func (s *Service) RequestPasswordReset(email string) error {
	acct, err := s.store.FindByEmail(email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	vt, err := s.tokens.Issue(acct.ID, token.PurposePasswordReset, s.config.Auth.PasswordResetExpiry)
	if err != nil {
		return err
	}

	s.dispatch("password reset token", acct.Email, func(m Mailer) error {
		return m.SendPasswordResetToken(acct.Email, vt.Token)
	})

	s.logger.Info("password reset token issued", zap.Uint("account_id", acct.ID))
	return nil
}

// ResetPassword consumes a reset token and stores a new hash without
// requiring the old password. The new password is validated before the
// token is consumed so a weak password does not burn it.
func (s *Service) ResetPassword(email, tokenValue, newPassword string) error {
	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}

	acct, err := s.store.FindByEmail(email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return token.ErrTokenInvalid
		}
		return err
	}

	ownerID, err := s.tokens.Consume(tokenValue, token.PurposePasswordReset)
	if err != nil {
		return err
	}
	if ownerID != acct.ID {
		s.logger.Warn("password reset token presented for wrong account",
			zap.Uint("token_owner", ownerID),
			zap.Uint("account_id", acct.ID))
		return token.ErrTokenInvalid
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(acct.ID, hash); err != nil {
		return err
	}

	s.logger.Info("password reset completed", zap.Uint("account_id", acct.ID))
	return nil
}

// dispatch sends mail on its own goroutine so SMTP latency and failures
// never reach the originating request.
func (s *Service) dispatch(kind, email string, send func(Mailer) error) {
	if s.mailer == nil {
		s.logger.Warn("no mailer configured, dropping " + kind)
		return
	}
	mailer := s.mailer
	go func() {
		if err := send(mailer); err != nil {
			s.logger.Error("failed to dispatch "+kind, zap.Error(err), zap.String("email", email))
		}
	}()
}
