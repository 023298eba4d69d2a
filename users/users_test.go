package users_test

import (
	"testing"

	"github.com/jrsteele09/ticketremaster/internal/errors"
	"github.com/jrsteele09/ticketremaster/users"
	fakeuserrepo "github.com/jrsteele09/ticketremaster/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	require.Error(t, users.ValidatePasswordStrength("Short1"))
	require.Error(t, users.ValidatePasswordStrength("alllowercase1"))
	require.Error(t, users.ValidatePasswordStrength("ALLUPPERCASE1"))
	require.Error(t, users.ValidatePasswordStrength("NoNumbersHere"))
	require.NoError(t, users.ValidatePasswordStrength("Tickets4All"))
}

func TestAuthenticate(t *testing.T) {
	hash, err := users.HashPassword("Tickets4All")
	require.NoError(t, err)

	u := &users.User{Username: "alice", PasswordHash: hash}
	require.True(t, u.Authenticate("Tickets4All"))
	require.False(t, u.Authenticate("tickets4all"))
}

func TestUserHelpers(t *testing.T) {
	u := &users.User{Username: "alice", Roles: []users.RoleType{users.RoleBuyer, users.RoleSeller}}
	require.Equal(t, []string{"buyer", "seller"}, u.RoleNames())
	require.True(t, u.HasRole(users.RoleSeller))
	require.False(t, u.HasRole(users.RoleAdmin))
	require.Equal(t, "alice", u.DisplayName())

	u.Name = "Alice Smith"
	require.Equal(t, "Alice Smith", u.DisplayName())
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	u := &users.User{Username: "Alice", Email: "alice@example.com"}
	require.NoError(t, repo.Upsert(u))
	require.NotEmpty(t, u.ID)

	byName, err := repo.GetByLogin("alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)

	byEmail, err := repo.GetByLogin(" ALICE@example.com ")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	_, err = repo.GetByLogin("bob")
	require.ErrorIs(t, err, errors.ErrUserNotFound)

	require.NoError(t, repo.SetBlocked(u.ID, true))
	blocked, err := repo.GetByID(u.ID)
	require.NoError(t, err)
	require.True(t, blocked.Blocked)

	// Renaming drops the old login
	u.Username = "alicia"
	require.NoError(t, repo.Upsert(u))
	_, err = repo.GetByLogin("alice")
	require.ErrorIs(t, err, errors.ErrUserNotFound)
}
