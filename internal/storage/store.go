package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	klog "github.com/Klingon-tech/klingvault/internal/log"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
)

// vaultPrefix namespaces vault blobs inside a shared DB.
var vaultPrefix = []byte("vault/")

// BlobStore persists opaque vault blobs keyed by vault ID.
type BlobStore interface {
	// Get returns ErrNotFound when no blob is stored under id.
	Get(id string) ([]byte, error)
	Set(id string, blob []byte) error
	// Delete removes the blob. Deleting a missing id is not an error.
	Delete(id string) error
	// List returns the stored vault IDs in sorted order.
	List() ([]string, error)
	Close() error
}

// Open returns the BlobStore for backend rooted at dir. The memory
// backend ignores dir.
func Open(backend, dir string) (BlobStore, error) {
	var (
		store BlobStore
		err   error
	)
	switch backend {
	case BackendMemory:
		store = NewMemoryStore()
	case BackendFile:
		dir = filepath.Join(dir, "vaults")
		store, err = NewFileStore(dir)
	case BackendBadger:
		dir = filepath.Join(dir, "vaultdb")
		var db *BadgerDB
		if db, err = NewBadger(dir); err == nil {
			store = NewDBStore(db)
		}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	klog.Storage.Debug().Str("backend", backend).Str("path", dir).Msg("Vault store opened")
	return store, nil
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid vault id %q", id)
	}
	return nil
}

// DBStore keeps vault blobs in a DB under the "vault/" namespace.
type DBStore struct {
	owner DB
	db    *PrefixDB
}

// NewDBStore wraps db. Closing the store closes db.
func NewDBStore(db DB) *DBStore {
	return &DBStore{owner: db, db: NewPrefixDB(db, vaultPrefix)}
}

// NewMemoryStore returns a DBStore over a fresh MemoryDB.
func NewMemoryStore() *DBStore {
	return NewDBStore(NewMemory())
}

// Get returns the blob stored under id.
func (s *DBStore) Get(id string) ([]byte, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	return s.db.Get([]byte(id))
}

// Set stores blob under id, replacing any previous value.
func (s *DBStore) Set(id string, blob []byte) error {
	if err := validID(id); err != nil {
		return err
	}
	return s.db.Put([]byte(id), blob)
}

// Delete removes the blob stored under id.
func (s *DBStore) Delete(id string) error {
	if err := validID(id); err != nil {
		return err
	}
	return s.db.Delete([]byte(id))
}

// List returns the stored vault IDs.
func (s *DBStore) List() ([]string, error) {
	var ids []string
	err := s.db.ForEach(nil, func(key, _ []byte) error {
		ids = append(ids, string(key))
		return nil
	})
	return ids, err
}

// Close closes the underlying DB.
func (s *DBStore) Close() error {
	return s.owner.Close()
}

// FileStore keeps one "<id>.vault" file per vault in a directory.
// Writes go to a temporary file that is synced and renamed over the
// target, so a crash never leaves a half-written vault.
type FileStore struct {
	dir string
}

const vaultExt = ".vault"

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+vaultExt)
}

// Get reads the blob stored under id.
func (s *FileStore) Get(id string) ([]byte, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read vault: %w", err)
	}
	return data, nil
}

// Set atomically replaces the blob stored under id.
func (s *FileStore) Set(id string, blob []byte) error {
	if err := validID(id); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp vault: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := tmp.Chmod(0600); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp vault: %w", err)
	}
	if _, err := tmp.Write(blob); err != nil {
		cleanup()
		return fmt.Errorf("write vault: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync vault: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close vault: %w", err)
	}
	if err := os.Rename(tmpName, s.path(id)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename vault: %w", err)
	}
	return nil
}

// Delete removes the vault file for id.
func (s *FileStore) Delete(id string) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete vault: %w", err)
	}
	return nil
}

// List returns the IDs of all vault files in the directory.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read vault dir: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(e.Name(), vaultExt); ok {
			ids = append(ids, name)
		}
	}
	return ids, nil
}

// Close is a no-op for FileStore.
func (s *FileStore) Close() error {
	return nil
}
