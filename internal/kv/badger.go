package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const maxTxnRetries = 10

// BadgerStore implements Store over an embedded Badger database. Badger
// transactions are serializable, so read-modify-write increments are atomic
// per key; conflicting commits are retried.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the Badger database at dir. The returned
// store must be closed by the caller.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

// GetCounter returns the counter value for key, or 0 when absent/expired.
func (s *BadgerStore) GetCounter(ctx context.Context, key string) (int64, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s holds non-numeric value: %w", key, err)
	}
	return n, nil
}

// IncrementCounter atomically adds one to the counter at key and refreshes
// its TTL. Returns the new value.
func (s *BadgerStore) IncrementCounter(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var next int64
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			current := int64(0)
			item, err := txn.Get([]byte(key))
			if err == nil {
				raw, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				current, err = strconv.ParseInt(string(raw), 10, 64)
				if err != nil {
					return fmt.Errorf("counter %s holds non-numeric value: %w", key, err)
				}
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			next = current + 1
			entry := badger.NewEntry([]byte(key), []byte(strconv.FormatInt(next, 10)))
			if ttl > 0 {
				entry = entry.WithTTL(ttl)
			}
			return txn.SetEntry(entry)
		})
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return 0, fmt.Errorf("increment %s: %w", key, err)
		}
	}
	return 0, fmt.Errorf("increment %s: too many transaction conflicts", key)
}

// SetWithExpiry stores value at key with the given TTL.
func (s *BadgerStore) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), []byte(value))
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Get returns the live value at key, or ErrNotFound.
func (s *BadgerStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value = string(raw)
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Delete removes key; deleting an absent key is not an error.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close flushes and closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
