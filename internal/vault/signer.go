package vault

import (
	"fmt"

	"github.com/Klingon-tech/klingvault/internal/secret"
	"github.com/Klingon-tech/klingvault/pkg/crypto"
	"github.com/Klingon-tech/klingvault/pkg/types"
)

// session is the in-memory state of an unlocked vault.
type session struct {
	key  *secret.Buffer
	keys map[types.Address]*crypto.PrivateKey
}

func newSession(key *secret.Buffer) *session {
	return &session{key: key, keys: make(map[types.Address]*crypto.PrivateKey)}
}

// wipe zeroes every private scalar and the session key and drops all
// references to them.
func (s *session) wipe() {
	for addr, k := range s.keys {
		k.Zero()
		delete(s.keys, addr)
	}
	s.key.Close()
}

func (s *session) empty() bool {
	return len(s.keys) == 0 && s.key.Closed()
}

// Sign signs message with the active keypair for address. The result is
// a 64-byte Schnorr signature over the BLAKE3 message hash followed by
// the 33-byte compressed public key; check it with Verify.
//
// Sign only uses keypairs activated by Unlock or CreateAccount, and only
// for an address rendered for the vault's DefaultNetwork. It fails with
// ErrAccountNotActive while locked, for an unknown address, or for an
// address carrying another network's prefix.
func (k *Keystore) Sign(address string, message []byte) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.session == nil {
		return nil, ErrAccountNotActive
	}
	addr, err := types.ParseAddressOn(address, k.record.Settings.DefaultNetwork)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountNotActive, err)
	}
	priv, ok := k.session.keys[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotActive, address)
	}
	sig, err := priv.SignMessage(message)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	k.autolock.Touch()

	k.logger.Debug().Str("address", address).Int("message_len", len(message)).Msg("Message signed")
	return sig, nil
}

// Verify reports whether signature is a valid Sign result for message by
// the account at address. It needs no vault and so knows no network:
// a signature commits to the key, and either bech32 rendering of the same
// key hash verifies.
func Verify(address string, message, signature []byte) bool {
	addr, err := types.ParseAddress(address)
	if err != nil {
		return false
	}
	return crypto.VerifyMessage(addr, message, signature)
}
