package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vinshon/buildxup-backend/internal/http/respond"
	"github.com/vinshon/buildxup-backend/internal/token"
)

const authContextKey = "authContext"

// AuthContext is the identity injected into every authorized request. It is
// the only thing downstream handlers know about the caller; role checks are
// theirs to make.
type AuthContext struct {
	UserID    int64
	CompanyID int64
	Role      string
}

// TokenVerifier is the single codec operation the middleware needs.
type TokenVerifier interface {
	VerifyAccessToken(raw string) (token.Claims, error)
}

// Auth is the sole authorization gate for protected routes.
type Auth struct {
	Verifier TokenVerifier
}

// RequireToken extracts and verifies the bearer token, then attaches the
// resolved identity to the request context. The scheme is checked before any
// codec call.
func (m *Auth) RequireToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		respond.AbortFail(c, http.StatusUnauthorized, "Access denied. No token provided.")
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		respond.AbortFail(c, http.StatusUnauthorized, "Invalid token format. Must be Bearer token.")
		return
	}

	claims, err := m.Verifier.VerifyAccessToken(strings.TrimSpace(parts[1]))
	if err != nil {
		respond.AbortFail(c, http.StatusUnauthorized, "Unauthorized access")
		return
	}

	c.Set(authContextKey, AuthContext{
		UserID:    claims.UserID,
		CompanyID: claims.CompanyID,
		Role:      claims.Role,
	})
	c.Next()
}

// GetAuthContext exposes the injected identity to handlers.
func GetAuthContext(c *gin.Context) (AuthContext, bool) {
	value, ok := c.Get(authContextKey)
	if !ok {
		return AuthContext{}, false
	}
	auth, ok := value.(AuthContext)
	return auth, ok
}
