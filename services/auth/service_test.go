package auth

import (
	"testing"
	"time"

	"github.com/aidrelay/aidrelay/services/account"
	"github.com/aidrelay/aidrelay/services/logging"
	"github.com/aidrelay/aidrelay/services/password"
	"github.com/aidrelay/aidrelay/services/revocation"
	"github.com/aidrelay/aidrelay/services/session"
	"github.com/aidrelay/aidrelay/services/token"
	"github.com/aidrelay/aidrelay/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	svc    *Service
	store  *account.Store
	tokens *token.Service
	db     *gorm.DB
	mailer *testutils.RecordingMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := testutils.GetTestConfig()
	db := testutils.SetupTestDB(t, &account.UserAccount{}, &token.VerificationToken{})
	logger := logging.NewNop()

	store := account.NewStore(db, logger)
	hasher := password.NewService(cfg, logger)
	tokens := token.NewService(db, logger)
	sessions := session.NewService(cfg, logger)

	svc := NewService(cfg, store, hasher, tokens, sessions, logger)
	mailer := testutils.NewRecordingMailer()
	svc.SetMailer(mailer)

	return &testEnv{
		svc:    svc,
		store:  store,
		tokens: tokens,
		db:     db,
		mailer: mailer,
	}
}

// registerAndConfirm walks a fresh account through registration and
// confirmation so follow-up tests can log in.
func (e *testEnv) registerAndConfirm(t *testing.T, email, pw string) *account.UserAccount {
	t.Helper()

	require.NoError(t, e.svc.Register(email, "Alex", pw))
	tokenValue := e.waitForConfirmationToken(t, email)
	require.NoError(t, e.svc.Confirm(email, tokenValue))

	acct, err := e.store.FindByEmail(email)
	require.NoError(t, err)
	return acct
}

func (e *testEnv) waitForConfirmationToken(t *testing.T, email string) string {
	t.Helper()
	require.Eventually(t, func() bool {
		return e.mailer.ConfirmationToken(account.NormalizeEmail(email)) != ""
	}, time.Second, 5*time.Millisecond)
	return e.mailer.ConfirmationToken(account.NormalizeEmail(email))
}

func (e *testEnv) waitForPasswordResetToken(t *testing.T, email string) string {
	t.Helper()
	require.Eventually(t, func() bool {
		return e.mailer.PasswordResetToken(account.NormalizeEmail(email)) != ""
	}, time.Second, 5*time.Millisecond)
	return e.mailer.PasswordResetToken(account.NormalizeEmail(email))
}

func TestService_ValidatePassword(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"accepts a compliant password", "Secret1!", false},
		{"rejects a short password", "Sh0rt!", true},
		{"rejects a password without uppercase", "secret1!", true},
		{"rejects a password without lowercase", "SECRET1!", true},
		{"rejects a password without a number", "Secrets!", true},
		{"rejects a password without a symbol", "Secrets1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.svc.ValidatePassword(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestService_Register(t *testing.T) {
	env := newTestEnv(t)

	t.Run("creates an unconfirmed account and dispatches a token", func(t *testing.T) {
		require.NoError(t, env.svc.Register("Alice@Example.com", "Alice", "Secret1!"))

		acct, err := env.store.FindByEmail("alice@example.com")
		require.NoError(t, err)
		assert.False(t, acct.Confirmed())

		tokenValue := env.waitForConfirmationToken(t, "alice@example.com")
		assert.NotEmpty(t, tokenValue)
	})

	t.Run("rejects a duplicate email in any casing", func(t *testing.T) {
		err := env.svc.Register("ALICE@EXAMPLE.COM", "Alice 2", "Other-Secret1!")
		assert.ErrorIs(t, err, account.ErrDuplicateEmail)
	})

	t.Run("rejects an invalid email address", func(t *testing.T) {
		assert.ErrorIs(t, env.svc.Register("not-an-email", "Alex", "Secret1!"), ErrValidation)
	})

	t.Run("rejects a missing name", func(t *testing.T) {
		assert.ErrorIs(t, env.svc.Register("bob@example.com", "   ", "Secret1!"), ErrValidation)
	})

	t.Run("rejects a weak password before touching the store", func(t *testing.T) {
		assert.ErrorIs(t, env.svc.Register("carol@example.com", "Carol", "weak"), ErrValidation)
		_, err := env.store.FindByEmail("carol@example.com")
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("succeeds even when mail delivery fails", func(t *testing.T) {
		failing := &testutils.FailingMailer{}
		env.svc.SetMailer(failing)
		defer env.svc.SetMailer(env.mailer)

		require.NoError(t, env.svc.Register("dora@example.com", "Dora", "Secret1!"))
		require.Eventually(t, func() bool {
			return failing.Calls() > 0
		}, time.Second, 5*time.Millisecond)
	})
}

func TestService_Confirm(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.svc.Register("alice@example.com", "Alice", "Secret1!"))
	tokenValue := env.waitForConfirmationToken(t, "alice@example.com")

	t.Run("unconfirmed accounts cannot log in", func(t *testing.T) {
		_, err := env.svc.Login("alice@example.com", "Secret1!")
		assert.ErrorIs(t, err, ErrAccountNotConfirmed)
	})

	t.Run("rejects an unknown email without burning the token", func(t *testing.T) {
		err := env.svc.Confirm("nobody@example.com", tokenValue)
		assert.ErrorIs(t, err, token.ErrTokenInvalid)
	})

	t.Run("rejects a token issued to a different account", func(t *testing.T) {
		require.NoError(t, env.svc.Register("mallory@example.com", "Mallory", "Secret1!"))
		malloryToken := env.waitForConfirmationToken(t, "mallory@example.com")

		err := env.svc.Confirm("alice@example.com", malloryToken)
		assert.ErrorIs(t, err, token.ErrTokenInvalid)

		acct, err := env.store.FindByEmail("alice@example.com")
		require.NoError(t, err)
		assert.False(t, acct.Confirmed())
	})

	t.Run("confirms with a valid token", func(t *testing.T) {
		require.NoError(t, env.svc.Confirm("Alice@Example.COM", tokenValue))

		acct, err := env.store.FindByEmail("alice@example.com")
		require.NoError(t, err)
		assert.True(t, acct.Confirmed())
	})

	t.Run("a confirmation token is single-use", func(t *testing.T) {
		err := env.svc.Confirm("alice@example.com", tokenValue)
		assert.ErrorIs(t, err, token.ErrTokenInvalid)
	})
}

func TestService_Login(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndConfirm(t, "alice@example.com", "Secret1!")

	t.Run("mints a session credential on success", func(t *testing.T) {
		cred, err := env.svc.Login("alice@example.com", "Secret1!")
		require.NoError(t, err)
		assert.NotEmpty(t, cred.Value)
		assert.True(t, cred.ExpiresAt.Sub(cred.IssuedAt) <= 30*time.Minute)
	})

	t.Run("accepts any email casing", func(t *testing.T) {
		_, err := env.svc.Login("ALICE@example.COM", "Secret1!")
		assert.NoError(t, err)
	})

	t.Run("unknown email and wrong password fail identically", func(t *testing.T) {
		_, errUnknown := env.svc.Login("ghost@example.com", "Secret1!")
		_, errWrong := env.svc.Login("alice@example.com", "WrongSecret1!")
		assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
		assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	})
}

func TestService_CurrentUser(t *testing.T) {
	env := newTestEnv(t)
	acct := env.registerAndConfirm(t, "alice@example.com", "Secret1!")

	cred, err := env.svc.Login("alice@example.com", "Secret1!")
	require.NoError(t, err)

	t.Run("resolves a valid credential to the live account", func(t *testing.T) {
		got, err := env.svc.CurrentUser(cred.Value)
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.ID)
		assert.Equal(t, "alice@example.com", got.Email)
		assert.False(t, got.IsAdmin)
	})

	t.Run("re-fetches account state instead of trusting the cookie", func(t *testing.T) {
		require.NoError(t, env.db.Model(&account.UserAccount{}).
			Where("id = ?", acct.ID).Update("is_admin", true).Error)

		got, err := env.svc.CurrentUser(cred.Value)
		require.NoError(t, err)
		assert.True(t, got.IsAdmin)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := env.svc.CurrentUser("foo")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("rejects a credential for a deleted account", func(t *testing.T) {
		other := env.registerAndConfirm(t, "gone@example.com", "Secret1!")
		otherCred, err := env.svc.Login("gone@example.com", "Secret1!")
		require.NoError(t, err)

		require.NoError(t, env.db.Delete(&account.UserAccount{}, other.ID).Error)

		_, err = env.svc.CurrentUser(otherCred.Value)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestService_SessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	acct := env.registerAndConfirm(t, "alice@example.com", "Secret1!")

	t.Run("renewal issues a fresh credential", func(t *testing.T) {
		first, err := env.svc.Login("alice@example.com", "Secret1!")
		require.NoError(t, err)

		renewed, err := env.svc.RenewSession(acct.ID)
		require.NoError(t, err)
		assert.NotEqual(t, first.JTI, renewed.JTI)

		got, err := env.svc.CurrentUser(renewed.Value)
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.ID)
	})

	t.Run("ending a session without revocation leaves the credential valid", func(t *testing.T) {
		cred, err := env.svc.Login("alice@example.com", "Secret1!")
		require.NoError(t, err)

		env.svc.EndSession(cred.Value)

		// Stateless by default: the credential rides out its expiry.
		_, err = env.svc.CurrentUser(cred.Value)
		assert.NoError(t, err)
	})

	t.Run("ending a session with revocation denylists the credential", func(t *testing.T) {
		env.svc.SetRevocationService(revocation.NewService(revocation.NewMemoryStore(), logging.NewNop()))
		defer env.svc.SetRevocationService(nil)

		cred, err := env.svc.Login("alice@example.com", "Secret1!")
		require.NoError(t, err)

		env.svc.EndSession(cred.Value)

		_, err = env.svc.CurrentUser(cred.Value)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	acct := env.registerAndConfirm(t, "alice@example.com", "Secret1!")

	t.Run("requires the correct current password", func(t *testing.T) {
		_, err := env.svc.ChangePassword(acct.ID, "WrongSecret1!", "NewSecret1!")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = env.svc.Login("alice@example.com", "Secret1!")
		assert.NoError(t, err)
	})

	t.Run("rejects a weak replacement", func(t *testing.T) {
		_, err := env.svc.ChangePassword(acct.ID, "Secret1!", "weak")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("stores the new password and extends the session", func(t *testing.T) {
		cred, err := env.svc.ChangePassword(acct.ID, "Secret1!", "NewSecret1!")
		require.NoError(t, err)
		require.NotNil(t, cred)

		_, err = env.svc.Login("alice@example.com", "Secret1!")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = env.svc.Login("alice@example.com", "NewSecret1!")
		assert.NoError(t, err)
	})
}

func TestService_PasswordReset(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndConfirm(t, "alice@example.com", "Secret1!")

	t.Run("request for an unknown email reports success silently", func(t *testing.T) {
		require.NoError(t, env.svc.RequestPasswordReset("ghost@example.com"))

		var count int64
		require.NoError(t, env.db.Model(&token.VerificationToken{}).
			Where("purpose = ?", token.PurposePasswordReset).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("resets the password with a dispatched token", func(t *testing.T) {
		require.NoError(t, env.svc.RequestPasswordReset("alice@example.com"))
		resetToken := env.waitForPasswordResetToken(t, "alice@example.com")

		require.NoError(t, env.svc.ResetPassword("alice@example.com", resetToken, "NewSecret1!"))

		_, err := env.svc.Login("alice@example.com", "Secret1!")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = env.svc.Login("alice@example.com", "NewSecret1!")
		assert.NoError(t, err)
	})

	t.Run("a reset token is single-use", func(t *testing.T) {
		used := env.mailer.PasswordResetToken("alice@example.com")
		err := env.svc.ResetPassword("alice@example.com", used, "AnotherSecret1!")
		assert.ErrorIs(t, err, token.ErrTokenInvalid)
	})

	t.Run("rejects a fabricated token", func(t *testing.T) {
		err := env.svc.ResetPassword("alice@example.com", "000000", "AnotherSecret1!")
		assert.ErrorIs(t, err, token.ErrTokenInvalid)
	})

	t.Run("a weak new password does not burn the token", func(t *testing.T) {
		// The recorder still holds the consumed token; wait for the
		// replacement to land.
		previous := env.mailer.PasswordResetToken("alice@example.com")
		require.NoError(t, env.svc.RequestPasswordReset("alice@example.com"))
		var resetToken string
		require.Eventually(t, func() bool {
			resetToken = env.mailer.PasswordResetToken("alice@example.com")
			return resetToken != "" && resetToken != previous
		}, time.Second, 5*time.Millisecond)

		err := env.svc.ResetPassword("alice@example.com", resetToken, "weak")
		assert.ErrorIs(t, err, ErrValidation)

		require.NoError(t, env.svc.ResetPassword("alice@example.com", resetToken, "FreshSecret1!"))
	})

	t.Run("a confirmation token cannot reset a password", func(t *testing.T) {
		require.NoError(t, env.svc.Register("peggy@example.com", "Peggy", "Secret1!"))
		confirmToken := env.waitForConfirmationToken(t, "peggy@example.com")

		err := env.svc.ResetPassword("peggy@example.com", confirmToken, "NewSecret1!")
		assert.ErrorIs(t, err, token.ErrTokenPurposeMismatch)
	})
}
