package auth

import (
	"net/http"

	"github.com/aidrelay/aidrelay/services/account"
	"github.com/aidrelay/aidrelay/services/session"
	"github.com/labstack/echo/v4"
)

const identityKey = "auth_identity"

// Identity is the typed view of the authenticated caller that every
// protected handler receives. The admin capability is resolved here,
// once, instead of being re-derived per call site.
type Identity struct {
	User    *account.UserAccount
	IsAdmin bool
}

// RequireSession decodes the session cookie, re-fetches the account and
// stores the caller's Identity in the request context.
func (s *Service) RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(session.CookieName)
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			acct, err := s.CurrentUser(cookie.Value)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			c.Set(identityKey, &Identity{
				User:    acct,
				IsAdmin: acct.IsAdmin,
			})
			return next(c)
		}
	}
}

// RequireAdmin layers the admin capability check on top of
// RequireSession.
func (s *Service) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := CurrentIdentity(c)
			if identity == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !identity.IsAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "administrator access required")
			}
			return next(c)
		}
	}
}

// CurrentIdentity returns the Identity stored by RequireSession, or nil
// outside a protected route.
func CurrentIdentity(c echo.Context) *Identity {
	if identity, ok := c.Get(identityKey).(*Identity); ok {
		return identity
	}
	return nil
}

// SessionCookieValue extracts the raw session cookie from the request,
// empty when absent.
func SessionCookieValue(c echo.Context) string {
	cookie, err := c.Cookie(session.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
