package users

type UserRepo interface {
	Upsert(user *User) error
	GetByID(id string) (*User, error)
	// GetByLogin finds a user by username or email.
	GetByLogin(login string) (*User, error)
	SetBlocked(id string, blocked bool) error
}
