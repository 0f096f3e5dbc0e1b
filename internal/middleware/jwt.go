package middleware

import (
	"net/http"

	"vitrina/internal/common"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// AdminJWT protects the admin routes. The token subject is the tenant
// account key; it is copied into the request context so handlers and
// services never trust a tenant id from the request body.
func AdminJWT(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return
			}
			if sub, ok := claims["sub"].(string); ok {
				ctx := common.WithAccountKey(c.Request().Context(), sub)
				c.SetRequest(c.Request().WithContext(ctx))
			}
		},
	})
}

// AccountKeyFromRequest returns the authenticated tenant account key.
func AccountKeyFromRequest(c echo.Context) (string, error) {
	key, ok := common.GetAccountKeyFromContext(c.Request().Context())
	if !ok || key == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing account key in token")
	}
	return key, nil
}
