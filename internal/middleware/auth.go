package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"patient-management-api/internal/auth"
)

// ClientIDKey holds the authenticated client id in the echo context.
const ClientIDKey = "client_id"

// BearerAuth requires an HS256 token in the Authorization header.
func BearerAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "no token")
			}

			claims, err := auth.ParseToken(raw, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "bad token")
			}

			c.Set(ClientIDKey, claims.ClientID)
			return next(c)
		}
	}
}
