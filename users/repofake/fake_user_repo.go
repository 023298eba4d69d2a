package fakeuserrepo

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/ticketremaster/internal/errors"
	"github.com/jrsteele09/ticketremaster/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users  map[string]*users.User
	logins map[string]string // lower-cased username or email to user id
	lock   sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:  make(map[string]*users.User),
		logins: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if previous, ok := ur.users[user.ID]; ok {
		delete(ur.logins, strings.ToLower(previous.Username))
		delete(ur.logins, strings.ToLower(previous.Email))
	}

	u := *user
	u.Roles = append([]users.RoleType(nil), user.Roles...)
	ur.users[u.ID] = &u
	if u.Username != "" {
		ur.logins[strings.ToLower(u.Username)] = u.ID
	}
	if u.Email != "" {
		ur.logins[strings.ToLower(u.Email)] = u.ID
	}
	return nil
}

func (ur *FakeUserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (ur *FakeUserRepo) GetByLogin(login string) (*users.User, error) {
	ur.lock.RLock()
	id, ok := ur.logins[strings.ToLower(strings.TrimSpace(login))]
	ur.lock.RUnlock()

	if !ok {
		return nil, errors.ErrUserNotFound
	}
	return ur.GetByID(id)
}

func (ur *FakeUserRepo) SetBlocked(id string, blocked bool) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[id]
	if !ok {
		return errors.ErrUserNotFound
	}
	u.Blocked = blocked
	return nil
}
