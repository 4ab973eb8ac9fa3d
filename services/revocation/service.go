package revocation

import (
	"time"

	"github.com/aidrelay/aidrelay/services/logging"
	"go.uber.org/zap"
)

// Service denylists session credentials before their encoded expiry.
// It is an additive layer over the stateless cookie codec: sessions
// stay valid until expiry unless explicitly revoked here.
type Service struct {
	store  *MemoryStore
	logger *logging.Service
}

func NewService(store *MemoryStore, logger *logging.Service) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

func (s *Service) Revoke(jti string, expiresAt time.Time) {
	s.store.Revoke(jti, expiresAt)
	s.logger.Info("session credential revoked",
		zap.String("jti", jti),
		zap.Time("expires_at", expiresAt))
}

func (s *Service) IsRevoked(jti string) bool {
	return s.store.IsRevoked(jti)
}

func (s *Service) CleanupExpired() {
	if removed := s.store.CleanupExpired(); removed > 0 {
		s.logger.Info("expired revocations cleaned up", zap.Int("removed", removed))
	}
}

func (s *Service) StartCleanupWorker(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			s.CleanupExpired()
		}
	}()

	s.logger.Info("started revocation cleanup worker",
		zap.Duration("interval", interval))
}
