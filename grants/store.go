package grants

import (
	"context"
	stderrors "errors"

	"github.com/hashicorp/go-multierror"
	"github.com/jrsteele09/social-auth/kv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultKeyPrefix namespaces every key the store writes.
const DefaultKeyPrefix = "authorization"

// Repo is the persistence interface used by the authorization flow.
type Repo interface {
	Save(ctx context.Context, g *Grant) error
	Remove(ctx context.Context, g *Grant) error
	FindByID(ctx context.Context, id string) (*Grant, error)
	FindByToken(ctx context.Context, token string, tokenType TokenType) (*Grant, error)
}

var _ Repo = (*Store)(nil)

// Store persists grants in a key-value backend. Each grant is kept under "<prefix>:<id>" with
// secondary index entries "<prefix>:code:<value>" and "<prefix>:access_token:<value>" holding
// the grant id.
//
// Writes touch several keys without a transaction, so an index entry may outlive or point
// away from its grant. Lookups re-check the primary record and treat such entries as misses.
type Store struct {
	backend   kv.Store
	mapper    *Mapper
	keyPrefix string
}

type StoreOption func(*Store)

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *Store) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

func NewStore(backend kv.Store, mapper *Mapper, opts ...StoreOption) *Store {
	s := &Store{
		backend:   backend,
		mapper:    mapper,
		keyPrefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the grant record and refreshes the index entry of each token it carries.
func (s *Store) Save(ctx context.Context, g *Grant) error {
	r, err := s.mapper.Flatten(g)
	if err != nil {
		return err
	}
	if err := s.backend.PutRecord(ctx, s.primaryKey(g.ID), r.Fields()); err != nil {
		return errors.Wrapf(err, "save authorization %s", g.ID)
	}
	if r.AuthorizationCodeValue != "" {
		if err := s.backend.Put(ctx, s.indexKey(TokenTypeCode, r.AuthorizationCodeValue), g.ID); err != nil {
			return errors.Wrapf(err, "index authorization code of %s", g.ID)
		}
	}
	if r.AccessTokenValue != "" {
		if err := s.backend.Put(ctx, s.indexKey(TokenTypeAccessToken, r.AccessTokenValue), g.ID); err != nil {
			return errors.Wrapf(err, "index access token of %s", g.ID)
		}
	}
	return nil
}

// Remove deletes the grant record, then drops the index entries that still point at it.
// Index cleanup is best effort: failures are logged and never returned.
func (s *Store) Remove(ctx context.Context, g *Grant) error {
	if g == nil || g.ID == "" {
		return errors.Wrap(ErrInvalidArgument, "remove authorization without id")
	}
	if err := s.backend.Delete(ctx, s.primaryKey(g.ID)); err != nil {
		return errors.Wrapf(err, "remove authorization %s", g.ID)
	}

	var cleanupErr *multierror.Error
	if g.AuthorizationCode != nil && g.AuthorizationCode.Value != "" {
		cleanupErr = multierror.Append(cleanupErr, s.removeIndex(ctx, TokenTypeCode, g.AuthorizationCode.Value, g.ID))
	}
	if g.AccessToken != nil && g.AccessToken.Value != "" {
		cleanupErr = multierror.Append(cleanupErr, s.removeIndex(ctx, TokenTypeAccessToken, g.AccessToken.Value, g.ID))
	}
	if err := cleanupErr.ErrorOrNil(); err != nil {
		log.Warn().Err(err).Str("authorization_id", g.ID).Msg("failed to clean up authorization index entries")
	}
	return nil
}

// removeIndex deletes an index entry unless it has since been claimed by another grant.
func (s *Store) removeIndex(ctx context.Context, tokenType TokenType, value, id string) error {
	key := s.indexKey(tokenType, value)
	current, err := s.backend.Get(ctx, key)
	if stderrors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read index %s", key)
	}
	if current != id {
		return nil
	}
	return errors.Wrapf(s.backend.Delete(ctx, key), "delete index %s", key)
}

// FindByID returns the grant stored under id, or nil when there is none.
func (s *Store) FindByID(ctx context.Context, id string) (*Grant, error) {
	if id == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "find authorization by empty id")
	}
	r, err := s.loadRecord(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}
	return s.mapper.Unflatten(ctx, r)
}

// FindByToken returns the grant whose authorization code or access token equals token, or
// nil when there is none. An unspecified tokenType searches the code index first.
func (s *Store) FindByToken(ctx context.Context, token string, tokenType TokenType) (*Grant, error) {
	if token == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "find authorization by empty token")
	}

	var searched []TokenType
	switch tokenType {
	case TokenTypeCode, TokenTypeAccessToken:
		searched = []TokenType{tokenType}
	case TokenTypeUnspecified:
		searched = []TokenType{TokenTypeCode, TokenTypeAccessToken}
	default:
		return nil, nil
	}

	for _, tt := range searched {
		r, err := s.findRecordByToken(ctx, token, tt)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return s.mapper.Unflatten(ctx, r)
		}
	}
	return nil, nil
}

// findRecordByToken resolves one index entry and confirms the primary record still carries
// the token. Dangling or stale entries yield a nil record.
func (s *Store) findRecordByToken(ctx context.Context, token string, tokenType TokenType) (*Record, error) {
	key := s.indexKey(tokenType, token)
	id, err := s.backend.Get(ctx, key)
	if stderrors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read index %s", key)
	}

	r, err := s.loadRecord(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}

	var current string
	switch tokenType {
	case TokenTypeCode:
		current = r.AuthorizationCodeValue
	case TokenTypeAccessToken:
		current = r.AccessTokenValue
	}
	if current != token {
		log.Debug().Str("index", key).Str("authorization_id", id).Msg("ignoring stale authorization index entry")
		return nil, nil
	}
	return r, nil
}

func (s *Store) loadRecord(ctx context.Context, id string) (*Record, error) {
	fields, err := s.backend.GetRecord(ctx, s.primaryKey(id))
	if stderrors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load authorization %s", id)
	}
	return RecordFromFields(fields)
}

func (s *Store) primaryKey(id string) string {
	return s.keyPrefix + ":" + id
}

func (s *Store) indexKey(tokenType TokenType, value string) string {
	return s.keyPrefix + ":" + string(tokenType) + ":" + value
}
