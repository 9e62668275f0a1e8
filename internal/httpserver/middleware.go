package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/gin-gonic/gin"
)

type ctxKey string

const userCtxKey ctxKey = "user"

type tokenLookup interface {
	LookupByToken(ctx context.Context, token string) (*domain.User, error)
}

// authMiddleware resolves the bearer token into a user. With optional set,
// requests without an Authorization header pass through anonymously; a
// header that is present but invalid is always rejected so the client can
// drop its stale session.
func authMiddleware(users tokenLookup, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if optional && c.GetHeader("Authorization") == "" {
				c.Next()
				return
			}
			abortWithMessage(c, http.StatusUnauthorized, "authorization required")
			return
		}
		attachUser(c, users, token)
	}
}

func feedAuthMiddleware(users tokenLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			abortWithMessage(c, http.StatusUnauthorized, "authorization required")
			return
		}
		attachUser(c, users, token)
	}
}

func attachUser(c *gin.Context, users tokenLookup, token string) {
	u, err := users.LookupByToken(c.Request.Context(), token)
	if err != nil || u == nil {
		abortWithMessage(c, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	ctx := context.WithValue(c.Request.Context(), userCtxKey, u)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil || !u.IsAdmin {
			abortWithMessage(c, http.StatusForbidden, "admin access required")
			return
		}
		c.Next()
	}
}

// currentUser returns the authenticated user, or nil for anonymous requests.
func currentUser(c *gin.Context) *domain.User {
	u, _ := c.Request.Context().Value(userCtxKey).(*domain.User)
	return u
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
