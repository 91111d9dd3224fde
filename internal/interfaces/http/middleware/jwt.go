package middleware

import (
	"errors"
	"net/http"

	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/auth"
	"github.com/cnec/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
)

// PrincipalKey is the gin context key of the authenticated auth.Principal
const PrincipalKey = "principal"

// TokenValidator validates bearer tokens
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Authenticate validates the bearer token and stores the caller principal.
// The principal is also attached to the request logger as the actor.
func Authenticate(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, http.StatusUnauthorized, shared.CodeUnauthorized, "Authorization header is required")
			return
		}
		token, err := auth.ExtractTokenFromHeader(header)
		if err != nil {
			abort(c, http.StatusUnauthorized, shared.CodeUnauthorized, "Authorization header must be a bearer token")
			return
		}

		claims, err := validator.Validate(token)
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				message = "Token has expired"
			}
			abort(c, http.StatusUnauthorized, shared.CodeUnauthorized, message)
			return
		}

		principal := claims.Principal()
		c.Set(PrincipalKey, principal)

		actor := string(principal.Role) + ":" + principal.Subject
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireRole rejects principals whose role is not one of roles. It must
// run after Authenticate.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			abort(c, http.StatusUnauthorized, shared.CodeUnauthorized, "Authentication required")
			return
		}
		for _, r := range roles {
			if principal.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, shared.CodeForbidden, "Insufficient role for this operation")
	}
}

// RequireAdmin admits admin principals only
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(auth.RoleAdmin)
}

// GetPrincipal returns the principal stored by Authenticate
func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}
