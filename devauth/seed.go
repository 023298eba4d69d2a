package devauth

import (
	"fmt"

	"github.com/jrsteele09/ticketremaster/users"
)

// SeedAccount describes a user created at start-up.
type SeedAccount struct {
	Username string
	Password string
	Email    string
	Name     string
	Roles    []string
}

// Seed hashes the account's password and stores the user in repo.
// Weak passwords are refused even in development.
func Seed(repo users.UserRepo, account SeedAccount) (*users.User, error) {
	if err := users.ValidatePasswordStrength(account.Password); err != nil {
		return nil, fmt.Errorf("[devauth.Seed] %s: %w", account.Username, err)
	}
	hash, err := users.HashPassword(account.Password)
	if err != nil {
		return nil, err
	}

	user := &users.User{
		Username:     account.Username,
		Email:        account.Email,
		Name:         account.Name,
		PasswordHash: hash,
		Verified:     true,
	}
	for _, role := range account.Roles {
		user.Roles = append(user.Roles, users.RoleType(role))
	}

	if err := repo.Upsert(user); err != nil {
		return nil, err
	}
	return user, nil
}
