// Package middleware holds the echo middleware guarding and instrumenting
// the parking API.
package middleware

import (
	"net/http" // HTTP status codes for rejections
	"strings"  // bearer prefix handling

	"github.com/golang-jwt/jwt/v5" // token parsing and validation
	"github.com/labstack/echo/v4"  // middleware signatures
)

// JWTAuth validates a Bearer access token signed with secret and stores its
// subject and role claims in the context under "user_id" and "role".  It
// wraps the admin group; handlers behind it read the claims via c.Get().
func JWTAuth(secret string) echo.MiddlewareFunc {
	// Built once when the group registers the middleware.
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		// Runs for every request on the protected group.
		return func(c echo.Context) error {
			// The header must be "Bearer <jwt>"; anything else is 401.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Only HMAC tokens are accepted; the key callback rejects any
			// other signing method before the signature is checked.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			// Bad signature, expired or malformed: 401.
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			// Claims come back as a map when parsed without a claims type.
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			// Expose the subject and role to RequireRole and the handlers.
			sub, _ := claims["sub"].(string)
			c.Set("user_id", sub)
			c.Set("role", claims["role"])
			return next(c)
		}
	}
}
