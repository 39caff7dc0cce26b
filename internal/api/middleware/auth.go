package middleware

import (
	"net/http"
	"strings"

	"complaintdesk/backend/internal/apperr"
	"complaintdesk/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// BearerToken extracts the token from the Authorization header. When
// allowQuery is set, a "token" query parameter is accepted as well, for
// clients that cannot set headers on a websocket upgrade.
func BearerToken(c *gin.Context, allowQuery bool) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if allowQuery {
		return c.Query("token")
	}
	return ""
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// caller's identity to the request context.
func RequireAuth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := BearerToken(c, false)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		id, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.PublicMessage(err)})
			return
		}
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func OptionalAuth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := BearerToken(c, false)
		if raw == "" {
			c.Next()
			return
		}
		id, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.PublicMessage(err)})
			return
		}
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// Authorize enforces the role half of the policy for op. Ownership checks
// need the resource and stay in the services.
func Authorize(op auth.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.FromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if err := auth.Authorize(op, id); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": apperr.PublicMessage(err)})
			return
		}
		c.Next()
	}
}

// Identity returns the caller attached by RequireAuth.
func Identity(c *gin.Context) (auth.Identity, bool) {
	return auth.FromContext(c.Request.Context())
}
