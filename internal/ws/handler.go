package ws

import (
	"context"
	"errors"
	"net/http"

	"kash_budget/internal/domain"
	"kash_budget/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// HandleWS upgrades GET /ws?token=... into the caller's live ledger feed.
// An empty allowedOrigin accepts any origin.
func HandleWS(hub *Hub, auth Authenticator, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		userID, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "user_id", userID, "error", err)
			return
		}

		client := NewClient(userID, conn, hub)
		go client.Run()
	}
}
