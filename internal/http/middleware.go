package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"goblog/internal/domain"
)

const ctxUserKey = "current_user"

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// requireAuth resolves the session token (Authorization header or cookie) to a
// user and stores it in the request context. Requests without a valid session
// are rejected.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := h.sessionUser(c)
		if user == nil {
			c.Header("Location", "/login?next="+c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// sessionUser returns the user for the request's session token, or nil when
// there is no valid session.
func (h *Handler) sessionUser(c *gin.Context) *domain.User {
	tokenStr := bearerToken(c)
	if tokenStr == "" {
		if cookie, err := c.Cookie(sessionCookie); err == nil {
			tokenStr = cookie
		}
	}
	if tokenStr == "" {
		return nil
	}

	userID, err := h.tokens.VerifySession(tokenStr)
	if err != nil {
		return nil
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		return nil
	}
	return user
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func currentUser(c *gin.Context) *domain.User {
	value, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	user, _ := value.(*domain.User)
	return user
}
