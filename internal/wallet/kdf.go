package wallet

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// KeySize is the length of a derived vault key in bytes.
const KeySize = 32

// SaltSize is the length of a vault salt in bytes.
const SaltSize = 32

// Supported key-derivation algorithms.
const (
	KDFPBKDF2   = "pbkdf2-sha256"
	KDFArgon2id = "argon2id"
)

// DefaultPBKDF2Iterations is the work factor for new vaults.
const DefaultPBKDF2Iterations = 310_000

// MinPBKDF2Iterations is the lowest work factor a configuration may request.
const MinPBKDF2Iterations = 100_000

// ErrUnknownKDF is returned for an algorithm name DeriveKey does not support.
var ErrUnknownKDF = errors.New("unknown key derivation algorithm")

// KDFParams describes how a password is stretched into a vault key.
// Memory (KiB) and Parallelism only apply to argon2id.
type KDFParams struct {
	Algorithm   string `json:"algorithm"`
	Iterations  uint32 `json:"iterations"`
	Memory      uint32 `json:"memory,omitempty"`
	Parallelism uint8  `json:"parallelism,omitempty"`
}

// DefaultKDFParams returns the parameters used for new vaults.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Algorithm:  KDFPBKDF2,
		Iterations: DefaultPBKDF2Iterations,
	}
}

// DefaultArgon2Params returns recommended Argon2id parameters.
func DefaultArgon2Params() KDFParams {
	return KDFParams{
		Algorithm:   KDFArgon2id,
		Iterations:  3,
		Memory:      64 * 1024, // 64 MB
		Parallelism: 4,
	}
}

// Validate checks that the parameters are usable.
func (p KDFParams) Validate() error {
	switch p.Algorithm {
	case KDFPBKDF2:
		if p.Iterations == 0 {
			return fmt.Errorf("pbkdf2: iterations must be positive")
		}
	case KDFArgon2id:
		if p.Iterations == 0 || p.Memory == 0 || p.Parallelism == 0 {
			return fmt.Errorf("argon2id: iterations, memory and parallelism must be positive")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKDF, p.Algorithm)
	}
	return nil
}

// Stronger returns whichever of p and q costs more to brute-force.
// Parameters of the same algorithm are merged field by field so that no
// dimension of the work factor decreases. Across algorithms the target
// q wins only when p is the weaker pbkdf2 choice.
func (p KDFParams) Stronger(q KDFParams) KDFParams {
	if p.Algorithm != q.Algorithm {
		if p.Algorithm == KDFArgon2id {
			return p
		}
		return q
	}
	out := p
	out.Iterations = max(p.Iterations, q.Iterations)
	out.Memory = max(p.Memory, q.Memory)
	out.Parallelism = max(p.Parallelism, q.Parallelism)
	return out
}

// DeriveKey stretches password with salt into a KeySize key.
// Identical inputs always yield identical output.
func DeriveKey(password, salt []byte, params KDFParams) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("derive key: empty salt")
	}
	switch params.Algorithm {
	case KDFArgon2id:
		return argon2.IDKey(password, salt, params.Iterations, params.Memory, params.Parallelism, KeySize), nil
	default:
		return pbkdf2.Key(password, salt, int(params.Iterations), KeySize, sha256.New), nil
	}
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
