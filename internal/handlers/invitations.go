package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/equipped-com/platform-api/internal/middleware"
	"github.com/equipped-com/platform-api/internal/models"
	"github.com/equipped-com/platform-api/internal/rbac"
	"github.com/equipped-com/platform-api/internal/services"
	appErrors "github.com/equipped-com/platform-api/pkg/errors"
	"github.com/equipped-com/platform-api/pkg/response"
)

// InvitationHandler exposes the invitation lifecycle over HTTP.
type InvitationHandler struct {
	invitations *services.InvitationService
	users       *services.UserService
}

// NewInvitationHandler constructs an InvitationHandler.
func NewInvitationHandler(invitations *services.InvitationService, users *services.UserService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, users: users}
}

type createInvitationRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=owner admin member buyer"`
}

type invitationDTO struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	InvitedBy  string     `json:"invited_by,omitempty"`
	SentAt     time.Time  `json:"sent_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	DeclinedAt *time.Time `json:"declined_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	Status     string     `json:"status"`
}

// POST /api/invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	tc, ok := middleware.TenantFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrTenantContextMissing)
		return
	}

	var req createInvitationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	inv, err := h.invitations.Create(requestContext(c), tc, services.CreateInvitationInput{
		Email: req.Email,
		Role:  rbac.Role(strings.ToLower(req.Role)),
	})
	if err != nil {
		response.Error(c, mapInvitationError(err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"invitation": toInvitationDTO(inv, time.Now())})
}

// GET /api/invitations
func (h *InvitationHandler) List(c *gin.Context) {
	tc, ok := middleware.TenantFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrTenantContextMissing)
		return
	}

	invitations, err := h.invitations.List(requestContext(c), tc)
	if err != nil {
		response.Error(c, mapInvitationError(err))
		return
	}

	now := time.Now()
	items := make([]invitationDTO, 0, len(invitations))
	for i := range invitations {
		items = append(items, toInvitationDTO(&invitations[i], now))
	}

	response.Success(c, http.StatusOK, gin.H{"invitations": items})
}

// POST /api/invitations/:id/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	actor, err := h.actingUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	invitationID := strings.TrimSpace(c.Param("id"))
	if invitationID == "" {
		response.Error(c, appErrors.NewBadRequest("Invitation ID is required"))
		return
	}

	access, inv, err := h.invitations.Accept(requestContext(c), actor, invitationID)
	if err != nil {
		response.Error(c, mapInvitationError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"invitation": toInvitationDTO(inv, time.Now()),
		"access": gin.H{
			"account_id": access.AccountID,
			"role":       access.Role,
		},
	})
}

// POST /api/invitations/:id/decline
func (h *InvitationHandler) Decline(c *gin.Context) {
	actor, err := h.actingUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	invitationID := strings.TrimSpace(c.Param("id"))
	if invitationID == "" {
		response.Error(c, appErrors.NewBadRequest("Invitation ID is required"))
		return
	}

	inv, err := h.invitations.Decline(requestContext(c), actor, invitationID)
	if err != nil {
		response.Error(c, mapInvitationError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"invitation": toInvitationDTO(inv, time.Now())})
}

// POST /api/invitations/:id/revoke
func (h *InvitationHandler) Revoke(c *gin.Context) {
	tc, ok := middleware.TenantFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrTenantContextMissing)
		return
	}

	invitationID := strings.TrimSpace(c.Param("id"))
	if invitationID == "" {
		response.Error(c, appErrors.NewBadRequest("Invitation ID is required"))
		return
	}

	inv, err := h.invitations.Revoke(requestContext(c), tc, invitationID)
	if err != nil {
		response.Error(c, mapInvitationError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"invitation": toInvitationDTO(inv, time.Now())})
}

func (h *InvitationHandler) actingUser(c *gin.Context) (*models.User, error) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		return nil, appErrors.ErrUnauthorized
	}

	user, err := h.users.FindByID(requestContext(c), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return nil, appErrors.ErrUnauthorized
		}
		return nil, appErrors.ErrInternalServer
	}
	return user, nil
}

// mapInvitationError translates service sentinels into API errors.
func mapInvitationError(err error) error {
	switch {
	case errors.Is(err, services.ErrInvitationNotFound):
		return appErrors.ErrNotFound
	case errors.Is(err, services.ErrPermissionDenied):
		return appErrors.ErrForbidden
	case errors.Is(err, services.ErrOwnerGrantDenied):
		return appErrors.ErrOwnerGrantForbidden
	case errors.Is(err, services.ErrInvalidRole):
		return appErrors.NewBadRequest("Role must be one of: owner, admin, member, buyer")
	case errors.Is(err, services.ErrAlreadyMember):
		return appErrors.ErrAlreadyMember
	case errors.Is(err, services.ErrInvitationAccepted):
		return appErrors.ErrInvitationAccepted
	case errors.Is(err, services.ErrInvitationDeclined):
		return appErrors.ErrInvitationDeclined
	case errors.Is(err, services.ErrInvitationRevoked):
		return appErrors.ErrInvitationRevoked
	case errors.Is(err, services.ErrInvitationExpired):
		return appErrors.ErrInvitationExpired
	default:
		return appErrors.ErrInternalServer
	}
}

func toInvitationDTO(inv *models.Invitation, now time.Time) invitationDTO {
	return invitationDTO{
		ID:         inv.ID,
		Email:      inv.Email,
		Role:       string(inv.Role),
		InvitedBy:  inv.InvitedByID,
		SentAt:     inv.SentAt,
		ExpiresAt:  inv.ExpiresAt,
		AcceptedAt: inv.AcceptedAt,
		DeclinedAt: inv.DeclinedAt,
		RevokedAt:  inv.RevokedAt,
		Status:     string(inv.Status(now)),
	}
}
