package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/equipped-com/platform-api/internal/tenant"
	"github.com/equipped-com/platform-api/pkg/errors"
	"github.com/equipped-com/platform-api/pkg/logger"
	"github.com/equipped-com/platform-api/pkg/response"
)

const (
	// CtxTenantKey stores the resolved *tenant.Context for the request.
	CtxTenantKey = "tenantContext"

	// AccountHeader names the account slug header. In production the edge
	// proxy derives it from the subdomain; clients may also set it directly.
	AccountHeader = "X-Account"
)

// Tenant resolves the acting account from the X-Account header and the
// authenticated user. Requests that cannot be bound to an account are
// rejected before any handler runs.
func Tenant(resolver *tenant.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserIDKey)
		slug := c.GetHeader(AccountHeader)

		tc, err := resolver.Resolve(c.Request.Context(), userID, slug)
		if err != nil {
			if err == tenant.ErrContextMissing {
				response.Error(c, errors.ErrTenantContextMissing)
			} else {
				logger.WithModule("http").Error("tenant resolution failed",
					zap.String("slug", slug),
					zap.Error(err),
				)
				response.Error(c, errors.ErrInternalServer)
			}
			c.Abort()
			return
		}

		c.Set(CtxTenantKey, tc)
		c.Next()
	}
}

// TenantOptional resolves the tenant when the header and membership are
// present but lets the request through without one. Invitation accept and
// decline run here: the invitee is authenticated yet not a member.
func TenantOptional(resolver *tenant.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserIDKey)
		slug := c.GetHeader(AccountHeader)

		tc, ok, err := resolver.ResolveOptional(c.Request.Context(), userID, slug)
		if err != nil {
			logger.WithModule("http").Error("tenant resolution failed",
				zap.String("slug", slug),
				zap.Error(err),
			)
			response.Error(c, errors.ErrInternalServer)
			c.Abort()
			return
		}
		if ok {
			c.Set(CtxTenantKey, tc)
		}

		c.Next()
	}
}

// TenantFromContext returns the resolved tenant context, if any.
func TenantFromContext(c *gin.Context) (*tenant.Context, bool) {
	v, ok := c.Get(CtxTenantKey)
	if !ok {
		return nil, false
	}
	tc, ok := v.(*tenant.Context)
	return tc, ok && tc != nil
}
