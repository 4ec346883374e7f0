package crypto

import (
	"fmt"

	"github.com/Klingon-tech/klingvault/pkg/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// Signature sizes.
const (
	SchnorrSize    = schnorr.SignatureSize
	PublicKeySize  = secp256k1.PubKeyBytesLenCompressed
	MessageSigSize = SchnorrSize + PublicKeySize
)

// PrivateKey wraps a secp256k1 private key for Schnorr signing.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// Sign produces a Schnorr signature over a 32-byte hash.
func (pk *PrivateKey) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := schnorr.Sign(pk.key, hash)
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// SignMessage signs an arbitrary message and returns sig(64) || pubkey(33),
// which VerifyMessage can check against an address alone.
func (pk *PrivateKey) SignMessage(message []byte) ([]byte, error) {
	h := MessageHash(message)
	sig, err := pk.Sign(h[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, MessageSigSize)
	out = append(out, sig...)
	out = append(out, pk.PublicKey()...)
	return out, nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// Address returns the address of the key's public key.
func (pk *PrivateKey) Address() types.Address {
	return AddressFromPubKey(pk.PublicKey())
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero overwrites the private scalar. The key must not be used afterwards.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// VerifySignature checks a Schnorr signature against a 32-byte hash
// and a compressed public key. Returns false on any error.
func VerifySignature(hash, signature, publicKey []byte) bool {
	pubKey, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pubKey)
}

// VerifyMessage checks a SignMessage envelope: the embedded public key must
// hash to addr and the signature must verify over message.
func VerifyMessage(addr types.Address, message, signature []byte) bool {
	if len(signature) != MessageSigSize {
		return false
	}
	sig := signature[:SchnorrSize]
	pub := signature[SchnorrSize:]
	if AddressFromPubKey(pub) != addr {
		return false
	}
	h := MessageHash(message)
	return VerifySignature(h[:], sig, pub)
}
