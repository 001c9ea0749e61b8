package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	jww "github.com/spf13/jwalterweatherman"

	"channel-service/internal/identity"
	"channel-service/internal/models"
)

const (
	userContextKey   = "user"
	userIDContextKey = "userID"
)

// Authenticator resolves a signed user id.
type Authenticator interface {
	Authenticate(ctx context.Context, userID, signature string) (models.User, error)
}

// AuthMiddleware requires the signed identity headers and stores the caller on the context.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(identity.HeaderUserID)
		signature := c.GetHeader(identity.HeaderSignature)
		if userID == "" || signature == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing signature headers"})
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), userID, signature)
		if err != nil {
			jww.WARN.Printf("auth rejected user=%s path=%s remote=%s: %v", userID, c.Request.URL.Path, c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		SetUser(c, user)
		c.Next()
	}
}

// SetUser stores the authenticated caller.
func SetUser(c *gin.Context, user models.User) {
	c.Set(userContextKey, user)
	c.Set(userIDContextKey, user.ID)
}

// CurrentUser returns the caller stored by AuthMiddleware.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, ok := c.Get(userContextKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}
