package testutils

import (
	"errors"
	"sync"
	"sync/atomic"
)

// RecordingMailer captures dispatched tokens so tests can complete the
// confirmation and reset flows end to end. Dispatch is asynchronous;
// poll the accessors with require.Eventually.
type RecordingMailer struct {
	mu                  sync.Mutex
	confirmationTokens  map[string]string
	passwordResetTokens map[string]string
}

func NewRecordingMailer() *RecordingMailer {
	return &RecordingMailer{
		confirmationTokens:  make(map[string]string),
		passwordResetTokens: make(map[string]string),
	}
}

func (m *RecordingMailer) SendConfirmationToken(toEmail, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmationTokens[toEmail] = token
	return nil
}

func (m *RecordingMailer) SendPasswordResetToken(toEmail, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passwordResetTokens[toEmail] = token
	return nil
}

func (m *RecordingMailer) ConfirmationToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmationTokens[email]
}

func (m *RecordingMailer) PasswordResetToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.passwordResetTokens[email]
}

// FailingMailer always fails delivery, for asserting that mail errors
// stay on the dispatch goroutine.
type FailingMailer struct {
	calls atomic.Int64
}

func (m *FailingMailer) SendConfirmationToken(toEmail, token string) error {
	m.calls.Add(1)
	return errors.New("smtp unavailable")
}

func (m *FailingMailer) SendPasswordResetToken(toEmail, token string) error {
	m.calls.Add(1)
	return errors.New("smtp unavailable")
}

func (m *FailingMailer) Calls() int64 {
	return m.calls.Load()
}
