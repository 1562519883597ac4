package models

import (
	"time"

	"github.com/equipped-com/platform-api/internal/rbac"
)

// InvitationStatus is derived from the stored timestamps, never stored itself.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationRevoked  InvitationStatus = "revoked"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation offers a role to an email address within one account. Rows are
// never deleted; terminal transitions set exactly one of the three terminal
// timestamps and the row is retained for audit.
type Invitation struct {
	BaseModel

	AccountID   string    `gorm:"type:uuid;not null;index:idx_invitations_account_email" json:"account_id"`
	Email       string    `gorm:"not null;index:idx_invitations_account_email" json:"email"`
	Role        rbac.Role `gorm:"not null" json:"role"`
	InvitedByID string    `gorm:"type:uuid" json:"invited_by"`

	SentAt    time.Time `gorm:"not null" json:"sent_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`

	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	DeclinedAt *time.Time `json:"declined_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// Status derives the invitation state at the given instant. The precedence
// order is load-bearing: a terminal timestamp recorded before expiry must
// never be overridden by the passage of time.
func (i *Invitation) Status(now time.Time) InvitationStatus {
	switch {
	case i.RevokedAt != nil:
		return InvitationRevoked
	case i.DeclinedAt != nil:
		return InvitationDeclined
	case i.AcceptedAt != nil:
		return InvitationAccepted
	case now.After(i.ExpiresAt):
		return InvitationExpired
	default:
		return InvitationPending
	}
}

// Terminal reports whether any terminal timestamp has been recorded.
// An expired invitation is not terminal; expiry is derived, not written.
func (i *Invitation) Terminal() bool {
	return i.AcceptedAt != nil || i.DeclinedAt != nil || i.RevokedAt != nil
}
