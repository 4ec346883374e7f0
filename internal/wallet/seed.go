package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/klingvault/pkg/crypto"
	"github.com/tyler-smith/go-bip39"
)

// SeedSize is the length of a derived seed in bytes (512 bits).
const SeedSize = 64

// seedIDSize is the number of hash bytes kept in a seed identifier.
const seedIDSize = 16

// SeedFromMnemonic derives a 512-bit seed from a mnemonic and optional passphrase
// using PBKDF2-SHA512 as specified in BIP-39.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	mnemonic = NormalizeMnemonic(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}

// SeedID returns a content-derived identifier for a phrase, so the same
// phrase always maps to the same seed slot.
func SeedID(mnemonic string) string {
	h := crypto.Hash([]byte(NormalizeMnemonic(mnemonic)))
	return hex.EncodeToString(h[:seedIDSize])
}
