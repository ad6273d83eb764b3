package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"newsdesk/internal/domain"
)

const principalKey = "principal"

// UserResolver loads the user record behind a token's subject.
type UserResolver interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// RequireAuth validates the bearer token and stores the resolved principal
// in the request context. Requests without a valid token get a 401; a valid
// token for a deleted user gets a 404.
func RequireAuth(tokens *TokenManager, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing or invalid authorization header"})
			return
		}

		userID, err := tokens.Parse(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "user not found"})
			return
		}

		c.Set(principalKey, domain.Principal{ID: user.ID, Role: user.Role})
		c.Next()
	}
}

// RequireAdmin rejects requests whose principal does not carry the admin
// role. It must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok || !p.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "admin required"})
			return
		}
		c.Next()
	}
}

// PrincipalFrom retrieves the principal stored by RequireAuth.
func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
