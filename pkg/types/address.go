package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// AddressSize is the length of an address in bytes.
const AddressSize = 20

// Network names understood by the vault settings.
const (
	Mainnet = "mainnet"
	Testnet = "testnet"
)

// Address HRP (human-readable part) constants for bech32 encoding.
const (
	MainnetHRP = "kgx"
	TestnetHRP = "tkgx"
)

// HRPForNetwork returns the bech32 HRP used to render addresses on network.
func HRPForNetwork(network string) (string, error) {
	switch network {
	case Mainnet, "":
		return MainnetHRP, nil
	case Testnet:
		return TestnetHRP, nil
	default:
		return "", fmt.Errorf("unknown network %q", network)
	}
}

// Address represents a 160-bit address (public key hash).
type Address [AddressSize]byte

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Encode renders the address as bech32 with the given HRP.
func (a Address) Encode(hrp string) (string, error) {
	s, err := bech32.EncodeFromBase256(hrp, a[:])
	if err != nil {
		return "", fmt.Errorf("bech32 encode: %w", err)
	}
	return s, nil
}

// String returns the mainnet bech32 form (e.g. "kgx1...").
func (a Address) String() string {
	s, err := a.Encode(MainnetHRP)
	if err != nil {
		return MainnetHRP + ":" + a.Hex()
	}
	return s
}

// Hex returns the raw hex-encoded address without prefix.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns a copy of the address as a byte slice.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// ParseAddress parses a bech32 ("kgx1...", "tkgx1...") or raw 40-char hex address.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}
	if isHex40(s) {
		return HexToAddress(s)
	}

	hrp, data, err := bech32.DecodeToBase256(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 address: %w", err)
	}
	if hrp != MainnetHRP && hrp != TestnetHRP {
		return Address{}, fmt.Errorf("unknown address prefix %q", hrp)
	}
	if len(data) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(data))
	}
	var a Address
	copy(a[:], data)
	return a, nil
}

// ParseAddressOn parses a bech32 address and requires the HRP that
// network renders with. Raw hex carries no network and is rejected.
func ParseAddressOn(s, network string) (Address, error) {
	want, err := HRPForNetwork(network)
	if err != nil {
		return Address{}, err
	}
	if isHex40(s) {
		return Address{}, fmt.Errorf("address %q has no network prefix", s)
	}
	hrp, _, err := bech32.DecodeToBase256(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 address: %w", err)
	}
	if hrp != want {
		return Address{}, fmt.Errorf("address prefix %q is not %s (%q)", hrp, network, want)
	}
	return ParseAddress(s)
}

// HexToAddress converts a raw hex string to an Address.
func HexToAddress(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

func isHex40(s string) bool {
	if len(s) != 40 {
		return false
	}
	return strings.Trim(strings.ToLower(s), "0123456789abcdef") == ""
}
