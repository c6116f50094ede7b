package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/lens/internal/auth"
)

// requireToken guards the API with a bearer token when an access token hash
// is configured. Without one the API is open; it binds to loopback by
// default.
func (s *Server) requireToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.opts.AccessTokenHash == "" {
				return next(c)
			}

			token, found := bearerToken(c)
			if !found || !auth.VerifyToken(token, s.opts.AccessTokenHash) {
				return fail(c, http.StatusUnauthorized, "Authentication required", nil)
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}
