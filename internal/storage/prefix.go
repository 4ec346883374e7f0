package storage

import "bytes"

// PrefixDB scopes every key of an inner DB under a fixed namespace.
// DBStore uses it to keep vault blobs apart from anything else sharing
// the same badger directory.
type PrefixDB struct {
	inner DB
	ns    []byte
}

// NewPrefixDB returns a view of inner restricted to keys starting with ns.
func NewPrefixDB(inner DB, ns []byte) *PrefixDB {
	return &PrefixDB{inner: inner, ns: bytes.Clone(ns)}
}

// key joins the namespace and k into a fresh slice.
func (p *PrefixDB) key(k []byte) []byte {
	full := make([]byte, 0, len(p.ns)+len(k))
	full = append(full, p.ns...)
	return append(full, k...)
}

func (p *PrefixDB) Get(key []byte) ([]byte, error) { return p.inner.Get(p.key(key)) }

func (p *PrefixDB) Put(key, value []byte) error { return p.inner.Put(p.key(key), value) }

func (p *PrefixDB) Delete(key []byte) error { return p.inner.Delete(p.key(key)) }

func (p *PrefixDB) Has(key []byte) (bool, error) { return p.inner.Has(p.key(key)) }

// ForEach walks the keys under prefix within the namespace. The namespace
// is trimmed from each key before fn sees it.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	n := len(p.ns)
	return p.inner.ForEach(p.key(prefix), func(k, v []byte) error {
		return fn(k[n:], v)
	})
}

// Close does nothing. The owner of the inner DB closes it.
func (p *PrefixDB) Close() error { return nil }
