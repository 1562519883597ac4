package api

import (
	"github.com/gin-gonic/gin"

	"github.com/equipped-com/platform-api/internal/handlers"
	"github.com/equipped-com/platform-api/internal/middleware"
	"github.com/equipped-com/platform-api/internal/rbac"
	"github.com/equipped-com/platform-api/internal/services"
	"github.com/equipped-com/platform-api/internal/tenant"
)

func registerInvitationRoutes(api *gin.RouterGroup, resolver *tenant.Resolver, invitations *services.InvitationService, users *services.UserService) {
	handler := handlers.NewInvitationHandler(invitations, users)

	scoped := middleware.Tenant(resolver)
	// Accept and decline are self-service: the invitee is authenticated but
	// not yet a member, so tenant resolution is best-effort only.
	optional := middleware.TenantOptional(resolver)

	group := api.Group("/invitations")
	{
		group.POST("", scoped, middleware.RequireAction(rbac.ActionInviteCreate), handler.Create)
		group.GET("", scoped, middleware.RequireAction(rbac.ActionInviteList), handler.List)
		group.POST("/:id/revoke", scoped, middleware.RequireAction(rbac.ActionInviteRevoke), handler.Revoke)
		group.POST("/:id/accept", optional, handler.Accept)
		group.POST("/:id/decline", optional, handler.Decline)
	}
}
