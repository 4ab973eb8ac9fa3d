package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aidrelay/aidrelay/config"
	"github.com/aidrelay/aidrelay/services/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CookieName is the fixed name of the session cookie.
const CookieName = "aidrelay_session"

var (
	ErrMalformed        = errors.New("malformed session credential")
	ErrInvalidSignature = errors.New("invalid session credential signature")
	ErrExpired          = errors.New("session credential has expired")
)

type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// Credential is a minted session token plus the metadata a handler
// needs to attach it to a response.
type Credential struct {
	Value     string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Service encodes and decodes stateless session credentials. Nothing is
// persisted server-side: integrity and expiry live entirely inside the
// signed cookie value.
type Service struct {
	config *config.Config
	logger *logging.Service
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		logger: logger,
	}
}

func (s *Service) Expiry() time.Duration {
	expiry := s.config.Session.Expiry
	if expiry <= 0 || expiry > config.MaxSessionExpiry {
		expiry = config.MaxSessionExpiry
	}
	return expiry
}

func (s *Service) Issue(userID uint, now time.Time) (*Credential, error) {
	jti := uuid.New().String()
	expiresAt := now.Add(s.Expiry())

	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.config.App.Name,
			Subject:   fmt.Sprintf("%d", userID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	value, err := token.SignedString([]byte(s.config.Session.Secret))
	if err != nil {
		s.logger.Error("failed to sign session credential", zap.Error(err))
		return nil, fmt.Errorf("failed to issue session credential: %w", err)
	}

	return &Credential{
		Value:     value,
		JTI:       jti,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// Decode verifies signature and expiry of a cookie value as of "now".
// An expired credential is rejected even when the signature is valid.
func (s *Service) Decode(value string, now time.Time) (*Claims, error) {
	token, err := jwt.ParseWithClaims(value, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", token.Method.Alg())
		}
		return []byte(s.config.Session.Secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			s.logger.Warn("session credential with invalid signature presented")
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}

// Cookie wraps a credential in the HTTP cookie downstream handlers set
// on the response.
func (s *Service) Cookie(cred *Credential) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    cred.Value,
		Path:     "/",
		HttpOnly: true,
		Expires:  cred.ExpiresAt,
	}
}

// ExpiredCookie instructs the client to drop its session cookie. There
// is no server-side state to clear.
func (s *Service) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	}
}
