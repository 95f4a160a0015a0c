package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/tumblelab/gym-api/internal/models"
)

func rbacRequest(t *testing.T, claims *models.JWTClaims, paramID string, rules ...string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/users/"+paramID, nil)
	c.Params = gin.Params{{Key: "id", Value: paramID}}
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}

	// A pass-through leaves the recorder at its default 200.
	RBAC(rules...)(c)
	return w.Code
}

func TestRBACAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin}
	status := rbacRequest(t, claims, "user-9", string(models.RoleAdmin))
	assert.Equal(t, http.StatusOK, status)
}

func TestRBACRejectsUnlistedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleStaff}
	status := rbacRequest(t, claims, "user-9", string(models.RoleSuperAdmin))
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRBACSelfRuleMatchesOwnRecord(t *testing.T) {
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleStaff}

	status := rbacRequest(t, claims, "user-1", string(models.RoleSuperAdmin), SelfRule)
	assert.Equal(t, http.StatusOK, status)

	status = rbacRequest(t, claims, "user-2", string(models.RoleSuperAdmin), SelfRule)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRBACWithoutClaimsIsUnauthorized(t *testing.T) {
	status := rbacRequest(t, nil, "user-1", string(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, status)
}
