package memstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/social-auth/kv"
)

var _ kv.Store = (*Store)(nil)

// Store is an in-memory kv.Store.
type Store struct {
	records map[string]map[string]string
	values  map[string]string
	lock    sync.RWMutex
}

func New() *Store {
	return &Store{
		records: make(map[string]map[string]string),
		values:  make(map[string]string),
	}
}

func (s *Store) PutRecord(_ context.Context, key string, fields map[string]string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.values, key)
	s.records[key] = copyFields(fields)
	return nil
}

func (s *Store) GetRecord(_ context.Context, key string) (map[string]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	fields, ok := s.records[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return copyFields(fields), nil
}

func (s *Store) Put(_ context.Context, key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.records, key)
	s.values[key] = value
	return nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return value, nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, key := range keys {
		delete(s.records, key)
		delete(s.values, key)
	}
	return nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Len returns the number of keys held, records and values together.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.records) + len(s.values)
}

func copyFields(fields map[string]string) map[string]string {
	c := make(map[string]string, len(fields))
	for k, v := range fields {
		c[k] = v
	}
	return c
}
