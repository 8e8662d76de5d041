package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/social-auth/users"
)

var _ users.UserRepo = (*UserRepo)(nil)

type UserRepo struct {
	users     map[string]*users.User
	usernames map[string]string // username to user id
	lock      sync.RWMutex
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		users:     make(map[string]*users.User),
		usernames: make(map[string]string),
	}
}

func (ur *UserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if existing, ok := ur.users[user.ID]; ok {
		delete(ur.usernames, existing.Username)
	}
	ur.users[user.ID] = user
	ur.usernames[user.Username] = user.ID
	return nil
}

func (ur *UserRepo) Delete(_ context.Context, id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return users.ErrUserNotFound
	}
	delete(ur.usernames, user.Username)
	delete(ur.users, id)
	return nil
}

func (ur *UserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return user, nil
}

func (ur *UserRepo) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	ur.lock.RLock()
	id, ok := ur.usernames[username]
	ur.lock.RUnlock()
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return ur.GetByID(ctx, id)
}

// List returns users ordered by username. A non-positive limit returns everything after offset.
func (ur *UserRepo) List(_ context.Context, offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, u := range ur.users {
		userList = append(userList, u)
	}
	sort.Slice(userList, func(i, j int) bool {
		return userList[i].Username < userList[j].Username
	})

	if offset >= len(userList) {
		return []*users.User{}, nil
	}
	end := len(userList)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return userList[offset:end], nil
}

func (ur *UserRepo) SetBlocked(_ context.Context, username string, blocked bool) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, err := ur.lookup(username)
	if err != nil {
		return err
	}
	user.Blocked = blocked
	return nil
}

func (ur *UserRepo) RecordLogin(_ context.Context, username string, at time.Time) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, err := ur.lookup(username)
	if err != nil {
		return err
	}
	user.LastLogin = at
	return nil
}

// lookup expects the lock to be held.
func (ur *UserRepo) lookup(username string) (*users.User, error) {
	id, ok := ur.usernames[username]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return ur.users[id], nil
}
