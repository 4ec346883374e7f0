package vault

import (
	"fmt"

	"github.com/Klingon-tech/klingvault/internal/wallet"
	"github.com/Klingon-tech/klingvault/pkg/types"
)

// DerivationType selects how CreateAccount obtains the account's seed.
type DerivationType string

const (
	// DerivationDerive derives a new key from a seed already in the vault.
	DerivationDerive DerivationType = "derive"
	// DerivationImport adds a new mnemonic to the vault and derives from it.
	DerivationImport DerivationType = "import"
)

// AccountOptions configures CreateAccount.
type AccountOptions struct {
	// Name defaults to "Account N".
	Name string
	// DerivationType defaults to DerivationDerive.
	DerivationType DerivationType
	// SeedID selects the seed for DerivationDerive. Defaults to MasterSeedID.
	SeedID string
	// Mnemonic is the phrase to import for DerivationImport.
	Mnemonic string
	// DerivationPath defaults to the next unused m/44'/8888'/0'/0/<n> on
	// the seed, or to index 0 for DerivationImport. "m" uses the seed's
	// master key directly.
	DerivationPath string
}

// findAccount returns the index of the account whose address decodes to
// addr, or -1.
func findAccount(accounts []Account, addr types.Address) int {
	for i, a := range accounts {
		if parsed, err := types.ParseAddress(a.Address); err == nil && parsed == addr {
			return i
		}
	}
	return -1
}

func findBySeedPath(accounts []Account, seedID, path string) int {
	for i, a := range accounts {
		if a.SeedID == seedID && a.DerivationPath == path {
			return i
		}
	}
	return -1
}

// resolvePath returns the canonical stored form of a requested path.
func resolvePath(requested, seedID string, accounts []Account) (string, error) {
	switch requested {
	case "":
		return nextDefaultPath(seedID, accounts), nil
	case "m":
		return "", nil
	}
	indices, err := wallet.ParsePath(requested)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDerivationPath, err)
	}
	return wallet.FormatPath(indices), nil
}

// nextDefaultPath returns the lowest BIP-44 receive path not yet used by
// an account on seedID.
func nextDefaultPath(seedID string, accounts []Account) string {
	for i := uint32(0); ; i++ {
		p := wallet.DefaultPath(i)
		if findBySeedPath(accounts, seedID, p) < 0 {
			return p
		}
	}
}

// seedInUse reports whether any account derives from seedID.
func seedInUse(accounts []Account, seedID string) bool {
	for _, a := range accounts {
		if a.SeedID == seedID {
			return true
		}
	}
	return false
}

func encodeAddress(addr types.Address, network string) (string, error) {
	hrp, err := types.HRPForNetwork(network)
	if err != nil {
		return "", err
	}
	return addr.Encode(hrp)
}
