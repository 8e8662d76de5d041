package users

import (
	"context"
	"time"
)

type UserRepo interface {
	Upsert(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	SetBlocked(ctx context.Context, username string, blocked bool) error
	RecordLogin(ctx context.Context, username string, at time.Time) error
}
