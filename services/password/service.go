package password

import (
	"errors"

	"github.com/aidrelay/aidrelay/config"
	"github.com/aidrelay/aidrelay/services/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashingFailed = errors.New("failed to hash password")
	ErrMismatch      = errors.New("password does not match")
)

// Service wraps bcrypt. Each hash carries its own salt and verification
// runs in constant time inside the primitive.
type Service struct {
	cost   int
	logger *logging.Service
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	cost := cfg.Auth.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		cost:   cost,
		logger: logger,
	}
}

func (s *Service) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		s.logger.Error("password hashing failed", zap.Error(err))
		return "", ErrHashingFailed
	}
	return string(hash), nil
}

func (s *Service) Verify(digest, plaintext string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)); err != nil {
		return ErrMismatch
	}
	return nil
}

// DummyVerify burns a bcrypt comparison against a fixed digest. Called
// on the unknown-account login path so response timing does not reveal
// whether the email exists.
func (s *Service) DummyVerify(plaintext string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyDigest), []byte(plaintext))
}

// bcrypt digest of an unguessable throwaway value.
const dummyDigest = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
