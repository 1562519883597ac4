package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/equipped-com/platform-api/internal/database/testutil"
	"github.com/equipped-com/platform-api/internal/models"
	"github.com/equipped-com/platform-api/internal/rbac"
)

func newTestAccountService(t *testing.T, db *gorm.DB) (*AccountService, *UserService) {
	t.Helper()

	users, err := NewUserService(db)
	require.NoError(t, err)

	accounts, err := NewAccountService(db, users)
	require.NoError(t, err)

	return accounts, users
}

func TestAccountCreateGrantsOwner(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	accounts, users := newTestAccountService(t, db)

	owner, err := users.Create(context.Background(), CreateUserInput{
		Email:    "founder@acme.example",
		Name:     "Founder",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	account, err := accounts.Create(context.Background(), CreateAccountInput{
		Name:    "Acme Corp",
		Slug:    "Acme",
		OwnerID: owner.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "acme", account.Slug)

	var access models.AccountAccess
	require.NoError(t, db.First(&access, "account_id = ? AND user_id = ?", account.ID, owner.ID).Error)
	require.Equal(t, rbac.RoleOwner, access.Role)
}

func TestAccountCreateSlugValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	accounts, users := newTestAccountService(t, db)

	owner, err := users.Create(context.Background(), CreateUserInput{
		Email: "founder@acme.example", Password: "s3cret-pass",
	})
	require.NoError(t, err)

	for _, slug := range []string{"", "-acme", "acme-", "ac me", "ACME corp!", "a_b"} {
		_, err := accounts.Create(context.Background(), CreateAccountInput{Slug: slug, OwnerID: owner.ID})
		require.ErrorIs(t, err, ErrInvalidSlug, "slug %q", slug)
	}
}

func TestAccountCreateSlugTaken(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	accounts, users := newTestAccountService(t, db)

	owner, err := users.Create(context.Background(), CreateUserInput{
		Email: "founder@acme.example", Password: "s3cret-pass",
	})
	require.NoError(t, err)

	_, err = accounts.Create(context.Background(), CreateAccountInput{Slug: "acme", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = accounts.Create(context.Background(), CreateAccountInput{Slug: "acme", OwnerID: owner.ID})
	require.ErrorIs(t, err, ErrSlugTaken)
}

func TestSignup(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	accounts, users := newTestAccountService(t, db)

	user, account, err := accounts.Signup(context.Background(), SignupInput{
		Email:       "Founder@Globex.example",
		Name:        "Founder",
		Password:    "s3cret-pass",
		AccountName: "Globex",
		Slug:        "globex",
	})
	require.NoError(t, err)
	require.Equal(t, "founder@globex.example", user.Email)
	require.Equal(t, "globex", account.Slug)

	authenticated, err := users.Authenticate(context.Background(), user.Email, "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, user.ID, authenticated.ID)

	var access models.AccountAccess
	require.NoError(t, db.First(&access, "account_id = ? AND user_id = ?", account.ID, user.ID).Error)
	require.Equal(t, rbac.RoleOwner, access.Role)
}

func TestSignupDuplicateEmailRollsBack(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	accounts, _ := newTestAccountService(t, db)

	_, _, err := accounts.Signup(context.Background(), SignupInput{
		Email: "founder@acme.example", Password: "s3cret-pass", Slug: "acme",
	})
	require.NoError(t, err)

	_, _, err = accounts.Signup(context.Background(), SignupInput{
		Email: "founder@acme.example", Password: "s3cret-pass", Slug: "other",
	})
	require.ErrorIs(t, err, ErrEmailTaken)

	var count int64
	require.NoError(t, db.Model(&models.Account{}).Where("slug = ?", "other").Count(&count).Error)
	require.EqualValues(t, 0, count)
}
