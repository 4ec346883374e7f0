package crypto

import (
	"crypto/rand"
	"fmt"
	"io"
)

// randReader is the secure source. Tests swap it to exercise failure paths.
var randReader io.Reader = rand.Reader

// RandomBytes returns n bytes from the operating system's secure RNG.
// There is no fallback: a failing source is reported to the caller.
func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("random: invalid length %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, fmt.Errorf("random: secure source unavailable: %w", err)
	}
	return b, nil
}

// MustRandomBytes is like RandomBytes but panics if the source fails.
func MustRandomBytes(n int) []byte {
	b, err := RandomBytes(n)
	if err != nil {
		panic(err)
	}
	return b
}
