package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tumblelab/gym-api/internal/models"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
	"github.com/tumblelab/gym-api/pkg/response"
)

// SelfRule grants access when the :id path parameter matches the caller's
// own user ID, whatever their role.
const SelfRule = "SELF"

// RBAC allows the request through when the caller's role is listed, or when
// SelfRule is listed and the target record is the caller's own. The rule set
// is parsed once at route registration, not per request.
func RBAC(rules ...string) gin.HandlerFunc {
	roles := make(map[models.UserRole]struct{}, len(rules))
	allowSelf := false
	for _, rule := range rules {
		if rule == SelfRule {
			allowSelf = true
			continue
		}
		roles[models.UserRole(rule)] = struct{}{}
	}

	return func(c *gin.Context) {
		value, ok := c.Get(ContextUserKey)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := roles[claims.Role]; ok {
			c.Next()
			return
		}
		if allowSelf && claims.UserID != "" && c.Param("id") == claims.UserID {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is RBAC over typed roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	rules := make([]string, len(roles))
	for i, r := range roles {
		rules[i] = string(r)
	}
	return RBAC(rules...)
}
