// Package crypto provides the hashing, randomness and signature primitives
// used by the vault.
package crypto

import (
	"github.com/Klingon-tech/klingvault/pkg/types"
	"github.com/zeebo/blake3"
)

// messagePrefix domain-separates signed messages from any other BLAKE3 use.
const messagePrefix = "Klingvault Signed Message:\n"

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// MessageHash returns the 32-byte digest that Sign and VerifyMessage operate on.
func MessageHash(message []byte) types.Hash {
	h := blake3.New()
	h.Write([]byte(messagePrefix))
	h.Write(message)
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// AddressFromPubKey derives an address from a compressed public key.
// Address = BLAKE3(compressed_pubkey)[:20].
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}
