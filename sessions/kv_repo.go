package sessions

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/jrsteele09/social-auth/kv"
	"github.com/pkg/errors"
)

const keyPrefix = "session:"

var _ Repo = (*KVRepo)(nil)

// KVRepo stores sessions as JSON values in the same backend as the grants.
type KVRepo struct {
	backend kv.Store
}

func NewKVRepo(backend kv.Store) *KVRepo {
	return &KVRepo{backend: backend}
}

func (r *KVRepo) Upsert(ctx context.Context, session *SessionData) error {
	if session == nil || session.ID == "" {
		return errors.New("session without id")
	}
	b, err := json.Marshal(session)
	if err != nil {
		return errors.Wrapf(err, "encode session %s", session.ID)
	}
	return errors.Wrapf(r.backend.Put(ctx, keyPrefix+session.ID, string(b)), "save session %s", session.ID)
}

func (r *KVRepo) Get(ctx context.Context, sessionID string) (*SessionData, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	value, err := r.backend.Get(ctx, keyPrefix+sessionID)
	if stderrors.Is(err, kv.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load session %s", sessionID)
	}
	var session SessionData
	if err := json.Unmarshal([]byte(value), &session); err != nil {
		return nil, errors.Wrapf(err, "decode session %s", sessionID)
	}
	return &session, nil
}

func (r *KVRepo) Delete(ctx context.Context, sessionID string) error {
	return errors.Wrapf(r.backend.Delete(ctx, keyPrefix+sessionID), "delete session %s", sessionID)
}
