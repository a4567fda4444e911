package middleware

import (
	"context"
	"net/http"
	"strings"

	"anoa.com/volunteergoals/internal/entity"
	auth "anoa.com/volunteergoals/internal/modules/auth/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// UserFinder loads the account behind a token.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type AuthMiddleware struct {
	users  UserFinder
	secret string
}

func NewAuthMiddleware(users UserFinder, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		users:  users,
		secret: secret,
	}
}

// RequireAuth verifies the bearer token and stores user_id and role in the
// context. Websocket handshakes may pass the token as ?access_token=.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Browsers cannot set headers on a websocket handshake.
		if tokenString == "" && websocket.IsWebSocketUpgrade(c.Request) {
			tokenString = c.Query("access_token")
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(m.secret, tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireAdmin re-reads the account so a demoted or deactivated admin loses
// access before the token expires.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		id, err := uuid.Parse(userID.(string))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			c.Abort()
			return
		}

		user, err := m.users.FindByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			c.Abort()
			return
		}

		if !user.IsAdmin() || !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}

		c.Set("role", user.Role)
		c.Next()
	}
}
