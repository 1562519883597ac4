package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/equipped-com/platform-api/internal/database/testutil"
	"github.com/equipped-com/platform-api/internal/models"
	"github.com/equipped-com/platform-api/internal/rbac"
	"github.com/equipped-com/platform-api/internal/store"
)

func seedInvitation(t *testing.T, db *gorm.DB, accountID, email string, expiresAt time.Time, acceptedAt *time.Time) *models.Invitation {
	t.Helper()

	inv := &models.Invitation{
		AccountID:  accountID,
		Email:      email,
		Role:       rbac.RoleMember,
		SentAt:     expiresAt.Add(-14 * 24 * time.Hour),
		ExpiresAt:  expiresAt,
		AcceptedAt: acceptedAt,
	}
	require.NoError(t, db.Create(inv).Error)
	return inv
}

func TestRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	account := &models.Account{Name: "Acme Corp", Slug: "acme"}
	require.NoError(t, db.Create(account).Error)

	now := time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC)
	past := now.Add(-72 * time.Hour)
	accepted := now.Add(-100 * time.Hour)

	// Three expired and still pending.
	seedInvitation(t, db, account.ID, "a@example.com", past, nil)
	seedInvitation(t, db, account.ID, "b@example.com", past.Add(-24*time.Hour), nil)
	seedInvitation(t, db, account.ID, "c@example.com", past.Add(-48*time.Hour), nil)
	// Expired but accepted before expiry; the terminal state wins.
	seedInvitation(t, db, account.ID, "d@example.com", past, &accepted)
	// Still pending, not yet expired.
	seedInvitation(t, db, account.ID, "e@example.com", now.Add(24*time.Hour), nil)

	invitations, err := store.NewInvitationStore(db)
	require.NoError(t, err)

	r, err := New(db, invitations, WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	count, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, count)

	// The scan is observational; no invitation row was touched.
	var terminal int64
	require.NoError(t, db.Model(&models.Invitation{}).
		Where("revoked_at IS NOT NULL OR declined_at IS NOT NULL").
		Count(&terminal).Error)
	require.EqualValues(t, 0, terminal)

	var pending int64
	require.NoError(t, db.Model(&models.Invitation{}).
		Where("accepted_at IS NULL AND declined_at IS NULL AND revoked_at IS NULL").
		Count(&pending).Error)
	require.EqualValues(t, 4, pending)
}

func TestRunOnceEmpty(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	invitations, err := store.NewInvitationStore(db)
	require.NoError(t, err)

	r, err := New(db, invitations)
	require.NoError(t, err)

	count, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestStartStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	invitations, err := store.NewInvitationStore(db)
	require.NoError(t, err)

	r, err := New(db, invitations, WithSchedule("@every 1h"))
	require.NoError(t, err)

	require.NoError(t, r.Start())

	done := r.Stop()
	select {
	case <-done.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}
