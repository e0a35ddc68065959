package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"kash_budget/internal/domain"
	"kash_budget/internal/logger"

	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// JWT requires "Authorization: Bearer <token>" and stores the owner id
// under "user_id".
func JWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		userID, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			logger.WithContext(c.Request.Context()).Error("token authentication failed", "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
			return
		}

		c.Set("user_id", userID)
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), "user_id", userID))
		c.Next()
	}
}
