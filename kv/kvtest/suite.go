// Package kvtest holds the behaviour every kv.Store backend must share.
package kvtest

import (
	"context"
	"testing"

	"github.com/jrsteele09/social-auth/kv"
	"github.com/stretchr/testify/require"
)

// RunStoreTests exercises a backend. newStore must return an empty store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) kv.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("record round trip", func(t *testing.T) {
		s := newStore(t)
		fields := map[string]string{"id": "g-1", "clientId": "c-1", "state": ""}
		require.NoError(t, s.PutRecord(ctx, "authorization:g-1", fields))

		got, err := s.GetRecord(ctx, "authorization:g-1")
		require.NoError(t, err)
		require.Equal(t, "g-1", got["id"])
		require.Equal(t, "c-1", got["clientId"])
		require.Empty(t, got["state"])
	})

	t.Run("put record replaces every field", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutRecord(ctx, "r", map[string]string{"a": "1", "b": "2"}))
		require.NoError(t, s.PutRecord(ctx, "r", map[string]string{"a": "3"}))

		got, err := s.GetRecord(ctx, "r")
		require.NoError(t, err)
		require.Equal(t, "3", got["a"])
		_, ok := got["b"]
		require.False(t, ok)
	})

	t.Run("missing keys", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRecord(ctx, "nope")
		require.ErrorIs(t, err, kv.ErrNotFound)
		_, err = s.Get(ctx, "nope")
		require.ErrorIs(t, err, kv.ErrNotFound)
		require.NoError(t, s.Delete(ctx, "nope"))
	})

	t.Run("value round trip", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "authorization:code:abc", "g-1"))
		require.NoError(t, s.Put(ctx, "authorization:code:abc", "g-2"))

		got, err := s.Get(ctx, "authorization:code:abc")
		require.NoError(t, err)
		require.Equal(t, "g-2", got)
	})

	t.Run("delete removes records and values", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutRecord(ctx, "r", map[string]string{"a": "1"}))
		require.NoError(t, s.Put(ctx, "v", "x"))
		require.NoError(t, s.Delete(ctx, "r", "v"))

		_, err := s.GetRecord(ctx, "r")
		require.ErrorIs(t, err, kv.ErrNotFound)
		_, err = s.Get(ctx, "v")
		require.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, newStore(t).Ping(ctx))
	})
}
