package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/equipped-com/platform-api/internal/models"
	"github.com/equipped-com/platform-api/internal/rbac"
	"github.com/equipped-com/platform-api/internal/tenant"
)

func withTenantRole(role rbac.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxTenantKey, &tenant.Context{
			Account: models.Account{Slug: "acme"},
			Role:    role,
		})
		c.Next()
	}
}

func TestRequireAction(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	r := gin.New()
	r.POST("/admin", withTenantRole(rbac.RoleAdmin), RequireAction(rbac.ActionInviteCreate), ok)
	r.POST("/member", withTenantRole(rbac.RoleMember), RequireAction(rbac.ActionInviteCreate), ok)
	r.POST("/naked", RequireAction(rbac.ActionInviteCreate), ok)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/member", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "Insufficient permissions")

	// No tenant context at all -> rejected as missing context, not forbidden
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/naked", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "TENANT_CONTEXT_MISSING")
}
