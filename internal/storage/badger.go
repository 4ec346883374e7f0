package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BadgerDB is a DB backed by a badger directory. It is the default
// backend for vaultd, where a single process owns the store.
type BadgerDB struct {
	db *badger.DB
}

// NewBadger opens (or creates) a badger store in dir.
func NewBadger(dir string) (*BadgerDB, error) {
	return openBadger(badger.DefaultOptions(dir), dir)
}

// NewBadgerInMemory opens a badger store that never touches disk.
func NewBadgerInMemory() (*BadgerDB, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true), "memory")
}

func openBadger(opts badger.Options, where string) (*BadgerDB, error) {
	opts.Logger = nil
	db, err := badger.Open(opts)
	switch {
	case err == nil:
		return &BadgerDB{db: db}, nil
	case isLockErr(err):
		return nil, fmt.Errorf("vault store %s is in use by another process (is vaultd running?): %w", where, err)
	default:
		return nil, fmt.Errorf("open vault store %s: %w", where, err)
	}
}

func isLockErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Cannot acquire directory lock") ||
		strings.Contains(msg, "resource temporarily unavailable")
}

// lookup reads key inside a read transaction. found is false when the key
// is absent; the value is only copied out when want is set.
func (b *BadgerDB) lookup(key []byte, want bool) (val []byte, found bool, err error) {
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		if want {
			val, err = item.ValueCopy(nil)
		}
		return err
	})
	return val, found, err
}

func (b *BadgerDB) update(op string, fn func(txn *badger.Txn) error) error {
	if err := b.db.Update(fn); err != nil {
		return fmt.Errorf("badger %s: %w", op, err)
	}
	return nil
}

// Get returns ErrNotFound when key is absent.
func (b *BadgerDB) Get(key []byte) ([]byte, error) {
	val, found, err := b.lookup(key, true)
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return val, nil
}

func (b *BadgerDB) Has(key []byte) (bool, error) {
	_, found, err := b.lookup(key, false)
	if err != nil {
		return false, fmt.Errorf("badger has: %w", err)
	}
	return found, nil
}

// Put writes value under key in its own transaction.
func (b *BadgerDB) Put(key, value []byte) error {
	return b.update("put", func(txn *badger.Txn) error { return txn.Set(key, value) })
}

func (b *BadgerDB) Delete(key []byte) error {
	return b.update("delete", func(txn *badger.Txn) error { return txn.Delete(key) })
}

// ForEach visits keys under prefix in byte order. Keys and values passed
// to fn are copies.
func (b *BadgerDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), val); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerDB) Close() error {
	return b.db.Close()
}
