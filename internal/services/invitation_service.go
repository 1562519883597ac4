package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/equipped-com/platform-api/internal/models"
	"github.com/equipped-com/platform-api/internal/rbac"
	"github.com/equipped-com/platform-api/internal/store"
	"github.com/equipped-com/platform-api/internal/tenant"
	"github.com/equipped-com/platform-api/pkg/logger"
	"github.com/equipped-com/platform-api/pkg/metrics"
)

// invitationLifetime is fixed platform-wide; accounts cannot configure it.
const invitationLifetime = 14 * 24 * time.Hour

var (
	// ErrInvitationNotFound covers unknown ids, cross-tenant ids, and
	// invitations addressed to a different email. The three cases are
	// deliberately indistinguishable to avoid leaking tenant data.
	ErrInvitationNotFound = errors.New("invitation: not found")
	// ErrInvitationExpired indicates the invitation's expiry has passed.
	ErrInvitationExpired = errors.New("invitation: expired")
	// ErrInvitationAccepted signals the invitation was already accepted.
	ErrInvitationAccepted = errors.New("invitation: already accepted")
	// ErrInvitationDeclined signals the invitation was already declined.
	ErrInvitationDeclined = errors.New("invitation: already declined")
	// ErrInvitationRevoked signals the invitation was revoked.
	ErrInvitationRevoked = errors.New("invitation: already revoked")
	// ErrAlreadyMember indicates the invitee already holds access to the account.
	ErrAlreadyMember = errors.New("invitation: user already has access")
	// ErrInvalidRole rejects roles outside the four known values.
	ErrInvalidRole = errors.New("invitation: invalid role")
	// ErrPermissionDenied is returned when the acting role fails the rule table.
	ErrPermissionDenied = errors.New("invitation: insufficient permissions")
	// ErrOwnerGrantDenied is returned when a non-owner tries to grant the owner role.
	ErrOwnerGrantDenied = errors.New("invitation: only owners may grant the owner role")
)

// InvitationOption customises InvitationService behaviour.
type InvitationOption func(*InvitationService)

// WithInvitationClock injects a custom clock primarily for testing.
func WithInvitationClock(clock func() time.Time) InvitationOption {
	return func(s *InvitationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// InvitationService orchestrates the invitation lifecycle: create, accept,
// decline, revoke, and list. All status checks go through models.Invitation
// .Status; all writes go through the InvitationStore's compare-and-set calls.
type InvitationService struct {
	db          *gorm.DB
	invitations *store.InvitationStore
	notifier    Notifier
	audit       *AuditService
	now         func() time.Time
	log         *zap.Logger
}

// NewInvitationService constructs an InvitationService with the provided dependencies.
// The notifier and audit service are optional.
func NewInvitationService(db *gorm.DB, invitations *store.InvitationStore, notifier Notifier, audit *AuditService, opts ...InvitationOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}
	if invitations == nil {
		return nil, errors.New("invitation service: store is required")
	}

	service := &InvitationService{
		db:          db,
		invitations: invitations,
		notifier:    notifier,
		audit:       audit,
		now:         time.Now,
		log:         logger.WithModule("invitations"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// CreateInvitationInput carries the caller-supplied fields for Create.
type CreateInvitationInput struct {
	Email string
	Role  rbac.Role
}

// Create validates and records a new invitation. Inviting an email that
// already has a pending invitation returns the existing row unchanged.
func (s *InvitationService) Create(ctx context.Context, tc *tenant.Context, input CreateInvitationInput) (*models.Invitation, error) {
	ctx = ensureContext(ctx)
	if tc == nil {
		return nil, tenant.ErrContextMissing
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, errors.New("invitation service: email is required")
	}
	if !rbac.ValidRole(input.Role) {
		return nil, ErrInvalidRole
	}
	if !rbac.CanPerform(tc.Role, rbac.ActionInviteCreate) {
		return nil, ErrPermissionDenied
	}
	if !rbac.CanGrantRole(tc.Role, input.Role) {
		return nil, ErrOwnerGrantDenied
	}

	if err := s.checkNotMember(ctx, tc.Account.ID, email); err != nil {
		return nil, err
	}

	now := s.now()

	// One open invitation per (account, email): a pending one is returned
	// unchanged, and an expired one still occupies the slot until a terminal
	// transition frees it. The unique index over open invitations backs this
	// check on drivers that support partial indexes.
	if existing, err := s.invitations.FindNonTerminalByEmail(ctx, tc.Account.ID, email); err != nil {
		return nil, err
	} else if existing != nil {
		if statusErr := statusError(existing.Status(now)); statusErr != nil {
			return nil, statusErr
		}
		return existing, nil
	}

	inv := &models.Invitation{
		AccountID:   tc.Account.ID,
		Email:       email,
		Role:        input.Role,
		InvitedByID: tc.User.ID,
		SentAt:      now,
		ExpiresAt:   now.Add(invitationLifetime),
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		if isUniqueConstraintError(err) {
			// Lost a concurrent create for the same email; return the winner.
			if winner, findErr := s.invitations.FindNonTerminalByEmail(ctx, tc.Account.ID, email); findErr == nil && winner != nil {
				if statusErr := statusError(winner.Status(now)); statusErr != nil {
					return nil, statusErr
				}
				return winner, nil
			}
		}
		return nil, err
	}

	metrics.InvitationTransitions.WithLabelValues("create", "success").Inc()
	s.recordAudit(ctx, tc.Account.ID, tc.User.ID, "invitation.create", inv)

	if s.notifier != nil {
		s.notifier.SendInvitation(ctx, inv, &tc.Account)
	}

	return inv, nil
}

// List returns every invitation for the acting account.
func (s *InvitationService) List(ctx context.Context, tc *tenant.Context) ([]models.Invitation, error) {
	ctx = ensureContext(ctx)
	if tc == nil {
		return nil, tenant.ErrContextMissing
	}
	if !rbac.CanPerform(tc.Role, rbac.ActionInviteList) {
		return nil, ErrPermissionDenied
	}

	return s.invitations.ListByAccount(ctx, tc.Account.ID)
}

// Accept grants the invitation's role to the acting user. The access grant
// and the accepted timestamp are applied in one transaction; readers never
// observe one without the other.
func (s *InvitationService) Accept(ctx context.Context, actor *models.User, invitationID string) (*models.AccountAccess, *models.Invitation, error) {
	ctx = ensureContext(ctx)

	inv, err := s.loadForInvitee(ctx, actor, invitationID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	if err := statusError(inv.Status(now)); err != nil {
		return nil, nil, err
	}

	var access *models.AccountAccess
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		grant := &models.AccountAccess{
			AccountID: inv.AccountID,
			UserID:    actor.ID,
			Role:      inv.Role,
		}
		if err := tx.Create(grant).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrAlreadyMember
			}
			return fmt.Errorf("invitation service: grant access: %w", err)
		}

		if err := s.invitations.WithTx(tx).MarkAccepted(ctx, inv.ID, now); err != nil {
			return err
		}

		access = grant
		return nil
	})
	if err != nil {
		return nil, nil, s.translateTransitionError(ctx, inv.ID, "accept", err)
	}

	inv.AcceptedAt = &now
	metrics.InvitationTransitions.WithLabelValues("accept", "success").Inc()
	s.recordAudit(ctx, inv.AccountID, actor.ID, "invitation.accept", inv)
	s.notifyInviter(ctx, inv, func(inviter *models.User) {
		s.notifier.SendAcceptanceNotice(ctx, inv, inviter)
	})

	return access, inv, nil
}

// Decline records the invitee's refusal. No access row is created.
func (s *InvitationService) Decline(ctx context.Context, actor *models.User, invitationID string) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	inv, err := s.loadForInvitee(ctx, actor, invitationID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := statusError(inv.Status(now)); err != nil {
		return nil, err
	}

	if err := s.invitations.MarkDeclined(ctx, inv.ID, now); err != nil {
		return nil, s.translateTransitionError(ctx, inv.ID, "decline", err)
	}

	inv.DeclinedAt = &now
	metrics.InvitationTransitions.WithLabelValues("decline", "success").Inc()
	s.recordAudit(ctx, inv.AccountID, actor.ID, "invitation.decline", inv)
	s.notifyInviter(ctx, inv, func(inviter *models.User) {
		s.notifier.SendDeclineNotice(ctx, inv, inviter)
	})

	return inv, nil
}

// Revoke withdraws a pending invitation. Invitations belonging to another
// tenant fail as not found so their existence is never confirmed.
func (s *InvitationService) Revoke(ctx context.Context, tc *tenant.Context, invitationID string) (*models.Invitation, error) {
	ctx = ensureContext(ctx)
	if tc == nil {
		return nil, tenant.ErrContextMissing
	}
	if !rbac.CanPerform(tc.Role, rbac.ActionInviteRevoke) {
		return nil, ErrPermissionDenied
	}

	inv, err := s.invitations.GetByAccountAndID(ctx, tc.Account.ID, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrInvitationNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}

	now := s.now()
	if err := statusError(inv.Status(now)); err != nil {
		return nil, err
	}

	if err := s.invitations.MarkRevoked(ctx, inv.ID, now); err != nil {
		return nil, s.translateTransitionError(ctx, inv.ID, "revoke", err)
	}

	inv.RevokedAt = &now
	metrics.InvitationTransitions.WithLabelValues("revoke", "success").Inc()
	s.recordAudit(ctx, tc.Account.ID, tc.User.ID, "invitation.revoke", inv)

	return inv, nil
}

// loadForInvitee fetches the invitation and verifies the acting identity is
// the invitee. A mismatched email reports not-found rather than forbidden.
func (s *InvitationService) loadForInvitee(ctx context.Context, actor *models.User, invitationID string) (*models.Invitation, error) {
	if actor == nil || strings.TrimSpace(actor.ID) == "" {
		return nil, errors.New("invitation service: acting user is required")
	}

	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrInvitationNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}

	if !strings.EqualFold(inv.Email, actor.Email) {
		return nil, ErrInvitationNotFound
	}

	return inv, nil
}

func (s *InvitationService) checkNotMember(ctx context.Context, accountID, email string) error {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("invitation service: lookup user: %w", err)
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.AccountAccess{}).
		Where("account_id = ? AND user_id = ?", accountID, user.ID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("invitation service: lookup access: %w", err)
	}
	if count > 0 {
		return ErrAlreadyMember
	}
	return nil
}

// translateTransitionError maps a compare-and-set loss onto the terminal error
// matching the state the winner left behind.
func (s *InvitationService) translateTransitionError(ctx context.Context, invitationID, transition string, err error) error {
	if errors.Is(err, store.ErrAlreadyTerminal) {
		metrics.InvitationTransitions.WithLabelValues(transition, "conflict").Inc()
		current, loadErr := s.invitations.GetByID(ctx, invitationID)
		if loadErr == nil {
			if terminalErr := statusError(current.Status(s.now())); terminalErr != nil {
				return terminalErr
			}
		}
		return ErrInvitationNotFound
	}
	if errors.Is(err, store.ErrInvitationNotFound) {
		return ErrInvitationNotFound
	}
	return err
}

func (s *InvitationService) recordAudit(ctx context.Context, accountID, userID, action string, inv *models.Invitation) {
	if s.audit == nil {
		return
	}

	entry := AuditEntry{
		AccountID: &accountID,
		UserID:    &userID,
		Action:    action,
		Resource:  "invitation",
		Result:    "success",
		Metadata: map[string]any{
			"invitation_id": inv.ID,
			"email":         inv.Email,
			"role":          inv.Role,
		},
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *InvitationService) notifyInviter(ctx context.Context, inv *models.Invitation, send func(*models.User)) {
	if s.notifier == nil || strings.TrimSpace(inv.InvitedByID) == "" {
		return
	}

	var inviter models.User
	if err := s.db.WithContext(ctx).First(&inviter, "id = ?", inv.InvitedByID).Error; err != nil {
		s.log.Warn("inviter lookup failed", zap.String("invitation_id", inv.ID), zap.Error(err))
		return
	}
	send(&inviter)
}

// statusError converts a derived status into the matching sentinel, or nil
// when the invitation is still pending.
func statusError(status models.InvitationStatus) error {
	switch status {
	case models.InvitationAccepted:
		return ErrInvitationAccepted
	case models.InvitationDeclined:
		return ErrInvitationDeclined
	case models.InvitationRevoked:
		return ErrInvitationRevoked
	case models.InvitationExpired:
		return ErrInvitationExpired
	default:
		return nil
	}
}
