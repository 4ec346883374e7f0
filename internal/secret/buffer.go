// Package secret holds key material in memory that is kept out of the Go
// heap where the platform allows it.
//
// On unix systems a Buffer is backed by an anonymous mmap region locked
// into RAM with mlock, so the garbage collector never copies it and it is
// never written to swap. On Linux the region is also excluded from core
// dumps. When the platform or the process's memlock limit does not allow
// this, the Buffer falls back to ordinary heap memory; Locked reports
// which one is in use. Either way Close zeroes the contents.
package secret

import (
	"fmt"
	"sync"
)

// Buffer holds sensitive data and zeroes it on Close. After Close any
// access to the contents panics.
//
// A Buffer must not be copied after creation.
type Buffer struct {
	mu      sync.Mutex
	data    []byte
	closed  bool
	locked  bool
	release func([]byte) error
}

// New allocates a zero-filled secret buffer of the given size.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}
	data, release, err := allocate(size)
	if err != nil {
		return &Buffer{data: make([]byte, size)}, nil
	}
	return &Buffer{data: data, locked: true, release: release}, nil
}

// NewFromBytes copies source into a new Buffer and zeroes source, so the
// caller's slice no longer holds the secret.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("secret: cannot create buffer from empty source")
	}
	b, err := New(len(source))
	if err != nil {
		return nil, err
	}
	copy(b.data, source)
	for i := range source {
		source[i] = 0
	}
	return b, nil
}

// Bytes returns the secret data. The slice aliases the buffer; do not keep
// it beyond the Buffer's lifetime. Panics if the buffer has been closed.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return b.data
}

// Len returns the size of the secret data.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Locked reports whether the buffer lives in locked memory outside the
// Go heap.
func (b *Buffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Closed reports whether Close has been called.
func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close zeroes the contents and releases the memory. Close is idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	for i := range b.data {
		b.data[i] = 0
	}
	var err error
	if b.release != nil {
		err = b.release(b.data)
	}
	b.data = nil
	return err
}
