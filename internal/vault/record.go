package vault

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Klingon-tech/klingvault/internal/wallet"
	"github.com/Klingon-tech/klingvault/pkg/types"
)

// RecordVersion is the blob format written by this package.
const RecordVersion = 1

// MasterSeedID names the seed generated by CreateVault.
const MasterSeedID = "master"

// ErrMalformedRecord is returned when a stored blob cannot be a vault.
var ErrMalformedRecord = errors.New("malformed vault record")

// HexBytes is a byte slice encoded as a lowercase hex string in JSON.
type HexBytes []byte

// MarshalText implements encoding.TextMarshaler.
func (h HexBytes) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(h)))
	hex.Encode(out, h)
	return out, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HexBytes) UnmarshalText(text []byte) error {
	b := make([]byte, hex.DecodedLen(len(text)))
	if _, err := hex.Decode(b, text); err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	*h = b
	return nil
}

// SealedSeed is one encrypted mnemonic with the nonce it was sealed under.
type SealedSeed struct {
	Ciphertext HexBytes `json:"ciphertext"`
	Nonce      HexBytes `json:"nonce"`
}

// Settings are the user-adjustable vault preferences.
type Settings struct {
	// AutoLockMinutes is the inactivity timeout. Zero disables auto-lock.
	AutoLockMinutes int    `json:"autoLockMinutes"`
	DefaultNetwork  string `json:"defaultNetwork"`
}

// DefaultSettings returns the settings given to new vaults.
func DefaultSettings() Settings {
	return Settings{AutoLockMinutes: 15, DefaultNetwork: types.Mainnet}
}

// Validate checks the settings.
func (s Settings) Validate() error {
	if s.AutoLockMinutes < 0 {
		return fmt.Errorf("%w: autoLockMinutes must not be negative", ErrInvalidSettings)
	}
	if _, err := types.HRPForNetwork(s.DefaultNetwork); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

// AutoLock returns the inactivity timeout as a duration.
func (s Settings) AutoLock() time.Duration {
	return time.Duration(s.AutoLockMinutes) * time.Minute
}

// Account is the public record of one keypair held by the vault.
type Account struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	// DerivationPath is empty when the seed's master key is used directly.
	DerivationPath string    `json:"derivationPath,omitempty"`
	SeedID         string    `json:"seedId"`
	PublicKey      HexBytes  `json:"publicKey"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Record is the persisted vault. It is encoded as JSON with byte fields
// in lowercase hex and times in RFC 3339.
type Record struct {
	Version        int                   `json:"version"`
	ID             string                `json:"id"`
	EncryptedSeeds map[string]SealedSeed `json:"encryptedSeeds"`
	Salt           HexBytes              `json:"salt"`
	KDF            wallet.KDFParams      `json:"kdf"`
	Accounts       []Account             `json:"accounts"`
	CreatedAt      time.Time             `json:"createdAt"`
	LastUnlock     *time.Time            `json:"lastUnlock,omitempty"`
	Settings       Settings              `json:"settings"`
}

// Marshal encodes the record.
func (r *Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalRecord decodes and validates a blob produced by Marshal.
func UnmarshalRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Record) validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))
	}
	if r.Version != RecordVersion {
		return bad("unsupported version %d", r.Version)
	}
	if r.ID == "" {
		return bad("missing id")
	}
	if len(r.Salt) == 0 {
		return bad("missing salt")
	}
	if err := r.KDF.Validate(); err != nil {
		return bad("kdf: %v", err)
	}
	if _, ok := r.EncryptedSeeds[MasterSeedID]; !ok {
		return bad("missing master seed")
	}
	if len(r.Accounts) == 0 {
		return bad("no accounts")
	}
	for _, a := range r.Accounts {
		if _, ok := r.EncryptedSeeds[a.SeedID]; !ok {
			return bad("account %s references unknown seed %q", a.Address, a.SeedID)
		}
		if _, err := types.ParseAddress(a.Address); err != nil {
			return bad("account address: %v", err)
		}
	}
	return nil
}

// clone returns a deep copy that mutations can work on without touching r.
func (r *Record) clone() *Record {
	c := *r
	c.Salt = slices.Clone(r.Salt)
	c.EncryptedSeeds = make(map[string]SealedSeed, len(r.EncryptedSeeds))
	for id, s := range r.EncryptedSeeds {
		c.EncryptedSeeds[id] = SealedSeed{
			Ciphertext: slices.Clone(s.Ciphertext),
			Nonce:      slices.Clone(s.Nonce),
		}
	}
	c.Accounts = cloneAccounts(r.Accounts)
	if r.LastUnlock != nil {
		t := *r.LastUnlock
		c.LastUnlock = &t
	}
	return &c
}

func cloneAccounts(in []Account) []Account {
	out := make([]Account, len(in))
	for i, a := range in {
		out[i] = a
		out[i].PublicKey = slices.Clone(a.PublicKey)
	}
	return out
}
