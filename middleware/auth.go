package middleware

import (
	"errors"
	"net/http"
	"strings"

	"carmarket/auth"
	"carmarket/models"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the authenticated user's id.
const UserIDKey = "userId"

type AccessTokenParser interface {
	ParseAccess(token string) (*auth.Claims, error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>",
// falling back to the token query parameter.
func BearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", models.NewUnauthorizedError("No authorization token provided")
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", models.NewUnauthorizedError("Format should be: Bearer <token>")
	}
	return parts[1], nil
}

// JWTAuthMiddleware requires a valid access token and stores its user id under UserIDKey.
func JWTAuthMiddleware(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		// CORS preflight carries no credentials
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token, err := BearerToken(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		claims, err := tokens.ParseAccess(token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				AbortWithError(c, models.NewTokenExpiredError())
				return
			}
			AbortWithError(c, models.NewUnauthorizedError("Invalid token"))
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// CurrentUserID returns the id set by JWTAuthMiddleware.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
