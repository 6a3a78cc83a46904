package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Lovsan/chatterbox/internal/domain"
)

const identityKey = "identity"

// Middleware validates the bearer token and injects the verified
// identity into the request context. The websocket path also accepts a
// token query param because browsers cannot set headers on upgrades.
func Middleware(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if h := c.GetHeader("Authorization"); h != "" {
			if parts := strings.SplitN(h, " ", 2); len(parts) == 2 {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
			return
		}

		user, err := svc.Validate(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(identityKey, user)
		c.Next()
	}
}

// Identity returns the verified user injected by Middleware.
func Identity(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}
