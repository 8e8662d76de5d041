// Package boltstore is a kv.Store kept in a single bolt file, for single node deployments.
// Each record is a nested bucket of the records bucket; values live in the values bucket.
package boltstore

import (
	"context"
	"time"

	"github.com/jrsteele09/social-auth/kv"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const (
	recordsBucketName = "records"
	valuesBucketName  = "values"
)

var _ kv.Store = (*Store)(nil)

type Store struct {
	db *bolt.DB
}

// New opens (or creates) the bolt file and makes the top level buckets.
func New(fileName string) (*Store, error) {
	db, err := bolt.Open(fileName, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to make boltdb for %s", fileName)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bktName := range []string{recordsBucketName, valuesBucketName} {
			if _, e := tx.CreateBucketIfNotExists([]byte(bktName)); e != nil {
				return errors.Wrapf(e, "failed to create top level bucket %s", bktName)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create top level buckets")
	}
	return &Store{db: db}, nil
}

func (s *Store) PutRecord(_ context.Context, key string, fields map[string]string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := deleteKey(tx, key); err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		bkt, err := tx.Bucket([]byte(recordsBucketName)).CreateBucket([]byte(key))
		if err != nil {
			return errors.Wrapf(err, "can't create record bucket %s", key)
		}
		for k, v := range fields {
			if err := bkt.Put([]byte(k), []byte(v)); err != nil {
				return errors.Wrapf(err, "failed to put field %s to %s", k, key)
			}
		}
		return nil
	})
}

func (s *Store) GetRecord(_ context.Context, key string) (map[string]string, error) {
	var fields map[string]string
	err := s.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(recordsBucketName)).Bucket([]byte(key))
		if bkt == nil {
			return kv.ErrNotFound
		}
		fields = make(map[string]string)
		return bkt.ForEach(func(k, v []byte) error {
			fields[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (s *Store) Put(_ context.Context, key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := deleteKey(tx, key); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(valuesBucketName)).Put([]byte(key), []byte(value)); err != nil {
			return errors.Wrapf(err, "failed to put key %s to bucket %s", key, valuesBucketName)
		}
		return nil
	})
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(valuesBucketName)).Get([]byte(key))
		if v == nil {
			return kv.ErrNotFound
		}
		value = string(v)
		return nil
	})
	return value, err
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, key := range keys {
			if err := deleteKey(tx, key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Ping(context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(recordsBucketName)) == nil {
			return errors.New("records bucket is missing")
		}
		return nil
	})
}

func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "can't close boltdb")
}

func deleteKey(tx *bolt.Tx, key string) error {
	records := tx.Bucket([]byte(recordsBucketName))
	if records.Bucket([]byte(key)) != nil {
		if err := records.DeleteBucket([]byte(key)); err != nil {
			return errors.Wrapf(err, "can't delete record bucket %s", key)
		}
	}
	if err := tx.Bucket([]byte(valuesBucketName)).Delete([]byte(key)); err != nil {
		return errors.Wrapf(err, "can't delete key %s", key)
	}
	return nil
}
