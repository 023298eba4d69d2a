package users

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// RoleType is a marketplace role carried in the userinfo "roles" claim.
type RoleType string

const (
	RoleBuyer  RoleType = "buyer"  // Can purchase tickets
	RoleSeller RoleType = "seller" // Can list tickets on the marketplace
	RoleAdmin  RoleType = "admin"  // Can manage events
)

type User struct {
	ID           string     `json:"id,omitempty"`       // Unique identifier for the user, used as the token subject
	Email        string     `json:"email,omitempty"`    // User's email address
	Username     string     `json:"username,omitempty"` // Unique username
	PasswordHash string     `json:"-"`                  // Hashed version of the user's password - never serialize
	Name         string     `json:"name,omitempty"`     // Display name
	Roles        []RoleType `json:"roles,omitempty"`

	Verified bool `json:"verified,omitempty"` // Verified, has the user verified their email
	Blocked  bool `json:"blocked,omitempty"`  // Blocked, has the user been blocked from logging in
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Authenticate reports whether password matches the user's stored hash.
func (u *User) Authenticate(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// RoleNames returns the roles as plain strings for token claims.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, string(r))
	}
	return names
}

// HasRole checks if the user has a specific role
func (u *User) HasRole(role RoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// DisplayName falls back to the username when no name is set.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Username
}
