// Package kv defines the key-value backend that grants and pending authorization requests are
// persisted to. A backend offers per-key atomicity only; nothing spans several keys.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and GetRecord when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Store is a key-value backend holding two kinds of entries: records (a flat set of scalar
// fields stored under one key) and plain string values.
type Store interface {
	// PutRecord replaces the record stored under key.
	PutRecord(ctx context.Context, key string, fields map[string]string) error
	// GetRecord returns the fields of the record stored under key.
	GetRecord(ctx context.Context, key string) (map[string]string, error)
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	// Delete removes the given keys, whatever kind of entry they hold. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}
