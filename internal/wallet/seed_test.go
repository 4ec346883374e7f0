package wallet

import (
	"bytes"
	"encoding/hex"
	"testing"
)

const (
	testMnemonic12 = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testMnemonic24 = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"
)

func TestSeedFromMnemonic(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic24, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}

	if len(seed) != SeedSize {
		t.Errorf("seed length = %d, want %d", len(seed), SeedSize)
	}
	if bytes.Equal(seed, make([]byte, SeedSize)) {
		t.Error("seed should not be all zeros")
	}
}

func TestSeedFromMnemonic_KnownVector(t *testing.T) {
	// Standard BIP-39 test vector
	// Mnemonic: "abandon" x11 + "about", passphrase: "TREZOR"
	seed, err := SeedFromMnemonic(testMnemonic12, "TREZOR")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}

	want, _ := hex.DecodeString("c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04")
	if !bytes.Equal(seed, want) {
		t.Errorf("seed = %x, want %x", seed, want)
	}
}

func TestSeedFromMnemonic_Normalized(t *testing.T) {
	a, err := SeedFromMnemonic(testMnemonic12, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	b, err := SeedFromMnemonic("  ABANDON abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about ", "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("formatting differences should not change the seed")
	}
}

func TestSeedFromMnemonic_PassphraseChanges(t *testing.T) {
	seed1, _ := SeedFromMnemonic(testMnemonic12, "")
	seed2, _ := SeedFromMnemonic(testMnemonic12, "extra")
	if bytes.Equal(seed1, seed2) {
		t.Error("different passphrases should produce different seeds")
	}
}

func TestSeedFromMnemonic_Invalid(t *testing.T) {
	if _, err := SeedFromMnemonic("invalid mnemonic words", ""); err == nil {
		t.Error("expected error for invalid mnemonic")
	}
}

func TestSeedID(t *testing.T) {
	id := SeedID(testMnemonic12)
	if len(id) != 2*seedIDSize {
		t.Errorf("SeedID length = %d, want %d", len(id), 2*seedIDSize)
	}
	if SeedID(" ABANDON "+testMnemonic12[len("abandon "):]) != id {
		t.Error("SeedID should ignore formatting")
	}
	if SeedID(testMnemonic24) == id {
		t.Error("different phrases should have different seed IDs")
	}
}
