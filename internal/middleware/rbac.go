package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/equipped-com/platform-api/internal/rbac"
	"github.com/equipped-com/platform-api/pkg/errors"
	"github.com/equipped-com/platform-api/pkg/metrics"
	"github.com/equipped-com/platform-api/pkg/response"
)

// RequireAction checks the resolved tenant role against the action table.
// It must run after Tenant; a request without a tenant context is rejected.
func RequireAction(action rbac.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, ok := TenantFromContext(c)
		if !ok {
			response.Error(c, errors.ErrTenantContextMissing)
			c.Abort()
			return
		}

		if !rbac.CanPerform(tc.Role, action) {
			metrics.AccessChecks.WithLabelValues(string(action), "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.AccessChecks.WithLabelValues(string(action), "allowed").Inc()
		c.Next()
	}
}
