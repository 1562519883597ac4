package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/equipped-com/platform-api/internal/models"
)

var (
	// ErrInvitationNotFound indicates no invitation matches the provided id.
	ErrInvitationNotFound = errors.New("invitation store: not found")
	// ErrAlreadyTerminal signals that a terminal timestamp is already recorded,
	// typically because a concurrent transition won the race.
	ErrAlreadyTerminal = errors.New("invitation store: already terminal")
)

// InvitationStore owns invitation rows. Every mutation goes through its
// compare-and-set operations; no caller writes invitation columns directly.
type InvitationStore struct {
	db *gorm.DB
}

// NewInvitationStore constructs an InvitationStore backed by the provided database.
func NewInvitationStore(db *gorm.DB) (*InvitationStore, error) {
	if db == nil {
		return nil, errors.New("invitation store: db is required")
	}
	return &InvitationStore{db: db}, nil
}

// WithTx returns a store bound to the supplied transaction handle so lifecycle
// transitions can pair invitation writes with access grants atomically.
func (s *InvitationStore) WithTx(tx *gorm.DB) *InvitationStore {
	if tx == nil {
		return s
	}
	return &InvitationStore{db: tx}
}

// Create persists a new invitation row.
func (s *InvitationStore) Create(ctx context.Context, inv *models.Invitation) error {
	if inv == nil {
		return errors.New("invitation store: invitation is required")
	}
	inv.Email = normaliseEmail(inv.Email)

	if err := s.db.WithContext(ctx).Create(inv).Error; err != nil {
		return fmt.Errorf("invitation store: create: %w", err)
	}
	return nil
}

// GetByID loads an invitation regardless of tenant. Callers enforcing tenant
// scoping should use GetByAccountAndID instead.
func (s *InvitationStore) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	return s.first(ctx, "id = ?", id)
}

// GetByAccountAndID loads an invitation scoped to one account. An invitation
// belonging to another tenant is reported as not found, never as forbidden.
func (s *InvitationStore) GetByAccountAndID(ctx context.Context, accountID, id string) (*models.Invitation, error) {
	return s.first(ctx, "account_id = ? AND id = ?", accountID, id)
}

// ListByAccount returns all invitations for the account, newest first.
func (s *InvitationStore) ListByAccount(ctx context.Context, accountID string) ([]models.Invitation, error) {
	var invitations []models.Invitation
	if err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("sent_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, fmt.Errorf("invitation store: list: %w", err)
	}
	return invitations, nil
}

// FindPendingByEmail returns the non-terminal, non-expired invitation for the
// (account, email) pair, or nil when none exists. At most one such row can
// exist at a time. The expiry comparison is inclusive so the filter agrees
// with the status derivation at the exact expiry instant.
func (s *InvitationStore) FindPendingByEmail(ctx context.Context, accountID, email string, now time.Time) (*models.Invitation, error) {
	var inv models.Invitation
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND email = ?", accountID, normaliseEmail(email)).
		Where("accepted_at IS NULL AND declined_at IS NULL AND revoked_at IS NULL").
		Where("expires_at >= ?", now).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("invitation store: find pending: %w", err)
	}
	return &inv, nil
}

// FindNonTerminalByEmail returns the invitation for the (account, email) pair
// with no terminal timestamp recorded, expired or not, or nil when none
// exists. This mirrors the unique index over open invitations, so at most one
// such row can exist.
func (s *InvitationStore) FindNonTerminalByEmail(ctx context.Context, accountID, email string) (*models.Invitation, error) {
	var inv models.Invitation
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND email = ?", accountID, normaliseEmail(email)).
		Where("accepted_at IS NULL AND declined_at IS NULL AND revoked_at IS NULL").
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("invitation store: find non-terminal: %w", err)
	}
	return &inv, nil
}

// ListExpiredPending returns invitations whose expiry has passed without any
// terminal timestamp being recorded. This is the reaper's storage-level filter;
// it matches exactly the rows Status would derive as expired.
func (s *InvitationStore) ListExpiredPending(ctx context.Context, now time.Time) ([]models.Invitation, error) {
	var invitations []models.Invitation
	if err := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Where("accepted_at IS NULL AND declined_at IS NULL AND revoked_at IS NULL").
		Order("expires_at ASC").
		Find(&invitations).Error; err != nil {
		return nil, fmt.Errorf("invitation store: list expired: %w", err)
	}
	return invitations, nil
}

// MarkAccepted records acceptance. The write succeeds only when no terminal
// timestamp is set; a concurrent accept/decline/revoke loser gets
// ErrAlreadyTerminal rather than silently overwriting.
func (s *InvitationStore) MarkAccepted(ctx context.Context, id string, now time.Time) error {
	return s.markTerminal(ctx, id, "accepted_at", now)
}

// MarkDeclined records a decline under the same compare-and-set discipline.
func (s *InvitationStore) MarkDeclined(ctx context.Context, id string, now time.Time) error {
	return s.markTerminal(ctx, id, "declined_at", now)
}

// MarkRevoked records a revocation under the same compare-and-set discipline.
func (s *InvitationStore) MarkRevoked(ctx context.Context, id string, now time.Time) error {
	return s.markTerminal(ctx, id, "revoked_at", now)
}

func (s *InvitationStore) markTerminal(ctx context.Context, id, column string, now time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("id = ?", id).
		Where("accepted_at IS NULL AND declined_at IS NULL AND revoked_at IS NULL").
		Update(column, now)
	if result.Error != nil {
		return fmt.Errorf("invitation store: mark %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		// Either the row does not exist or another transition already won.
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyTerminal
	}
	return nil
}

func (s *InvitationStore) first(ctx context.Context, query string, args ...any) (*models.Invitation, error) {
	var inv models.Invitation
	if err := s.db.WithContext(ctx).Where(query, args...).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("invitation store: load: %w", err)
	}
	return &inv, nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
