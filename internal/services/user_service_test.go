package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/equipped-com/platform-api/internal/database/testutil"
)

func TestUserCreateAndAuthenticate(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	users, err := NewUserService(db)
	require.NoError(t, err)

	user, err := users.Create(context.Background(), CreateUserInput{
		Email:    "  Dev@Example.COM ",
		Name:     "Dev",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.Equal(t, "dev@example.com", user.Email)
	require.NotEqual(t, "correct horse", user.Password)

	authenticated, err := users.Authenticate(context.Background(), "DEV@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, authenticated.ID)

	_, err = users.Authenticate(context.Background(), "dev@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.Authenticate(context.Background(), "ghost@example.com", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	users, err := NewUserService(db)
	require.NoError(t, err)

	_, err = users.Create(context.Background(), CreateUserInput{Email: "dev@example.com", Password: "pw-123456"})
	require.NoError(t, err)

	_, err = users.Create(context.Background(), CreateUserInput{Email: "Dev@example.com", Password: "pw-123456"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserFindByID(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	users, err := NewUserService(db)
	require.NoError(t, err)

	user, err := users.Create(context.Background(), CreateUserInput{Email: "dev@example.com", Password: "pw-123456"})
	require.NoError(t, err)

	found, err := users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, found.Email)

	_, err = users.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}
