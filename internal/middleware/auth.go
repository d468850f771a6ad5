package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/service"
)

// SessionCookie is the cookie carrying the session token for browser clients
const SessionCookie = "session"

const currentUserKey = "current_user"

// Authenticator resolves session tokens
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// SessionToken extracts the token from a Bearer Authorization header or the session cookie
func SessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if token, err := c.Cookie(SessionCookie); err == nil {
		return token
	}
	return ""
}

// RequireAuth rejects requests without a valid session and stores the user on the context
func RequireAuth(auth Authenticator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.Authenticate(c.Request.Context(), SessionToken(c))
		if err != nil {
			if !errors.Is(err, service.ErrUnauthenticated) {
				logger.Error("session lookup failed", "error", err.Error())
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "authentication required",
			})
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// RequireRole rejects authenticated users lacking role. It must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || user.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "insufficient permissions",
			})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user set by RequireAuth, nil on public routes
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
