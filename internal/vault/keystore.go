// Package vault implements the wallet keystore: a single encrypted vault
// record holding BIP-39 seeds and their derived accounts, a session that
// keeps derived private keys in memory while unlocked, and an inactivity
// timer that locks the session again.
//
// Private keys exist only between a successful Unlock (or CreateVault)
// and the next Lock. Go cannot guarantee that no copy of a secret remains
// on the heap, so Lock zeroes every key it holds and drops every
// reference; the session key itself lives in locked memory outside the
// Go heap where the platform allows it.
package vault

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingvault/internal/clock"
	klog "github.com/Klingon-tech/klingvault/internal/log"
	"github.com/Klingon-tech/klingvault/internal/secret"
	"github.com/Klingon-tech/klingvault/internal/storage"
	"github.com/Klingon-tech/klingvault/internal/wallet"
	"github.com/Klingon-tech/klingvault/pkg/crypto"
	"github.com/Klingon-tech/klingvault/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultVaultID is the store key used when Options.VaultID is empty.
const DefaultVaultID = "default"

// Store persists opaque vault blobs. Get must return storage.ErrNotFound
// (or an error wrapping it) when no blob exists.
type Store interface {
	Get(vaultID string) ([]byte, error)
	Set(vaultID string, blob []byte) error
	Delete(vaultID string) error
}

// Options configures a Keystore.
type Options struct {
	// VaultID is the key the blob is stored under.
	VaultID string
	// KDF is used for new vaults and as the floor when a password changes.
	// Zero value means wallet.DefaultKDFParams.
	KDF wallet.KDFParams
	// Settings for new vaults. Nil means DefaultSettings.
	Settings *Settings
	// MnemonicWords is the length of the phrase CreateVault generates.
	// Zero means 24.
	MnemonicWords int
	// Clock drives auto-lock. Nil means the real clock.
	Clock clock.Clock
	// Logger defaults to the vault component logger.
	Logger *zerolog.Logger
}

// Keystore governs one vault: Uninitialized until CreateVault, then
// Locked or Unlocked. It is safe for concurrent use. Mutations are
// serialized; Sign and read-only calls run concurrently with each other.
type Keystore struct {
	mu       sync.RWMutex
	store    Store
	id       string
	kdf      wallet.KDFParams
	initial  Settings
	words    int
	clock    clock.Clock
	logger   zerolog.Logger
	autolock *AutoLock

	record  *Record  // last persisted state, nil until loaded
	session *session // nil while locked
}

// NewKeystore returns a locked Keystore over store.
func NewKeystore(store Store, opts Options) *Keystore {
	k := &Keystore{
		store:   store,
		id:      opts.VaultID,
		kdf:     opts.KDF,
		initial: DefaultSettings(),
		words:   opts.MnemonicWords,
		clock:   opts.Clock,
		logger:  klog.Vault,
	}
	if k.id == "" {
		k.id = DefaultVaultID
	}
	if k.kdf == (wallet.KDFParams{}) {
		k.kdf = wallet.DefaultKDFParams()
	}
	if opts.Settings != nil {
		k.initial = *opts.Settings
	}
	if k.words == 0 {
		k.words = wallet.MnemonicWords24
	}
	if k.clock == nil {
		k.clock = clock.Real()
	}
	if opts.Logger != nil {
		k.logger = *opts.Logger
	}
	k.logger = klog.WithVaultID(k.logger, k.id)
	k.autolock = NewAutoLock(k.clock)
	return k
}

// HasVault reports whether a vault blob exists in the store.
func (k *Keystore) HasVault() (bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, err := k.store.Get(k.id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Op: "get", Err: err}
	}
	return true, nil
}

// IsUnlocked reports whether private keys are active.
func (k *Keystore) IsUnlocked() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.session != nil
}

// CreateVault generates a master mnemonic, encrypts it under a key derived
// from password and persists a new vault with one account. The vault is
// left unlocked. The phrase is returned exactly once; the caller must have
// the user back it up.
func (k *Keystore) CreateVault(password []byte) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	_, err := k.store.Get(k.id)
	if err == nil {
		return "", ErrAlreadyInitialized
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", &StorageError{Op: "get", Err: err}
	}
	if err := k.initial.Validate(); err != nil {
		return "", err
	}

	phrase, err := wallet.GenerateMnemonic(k.words)
	if err != nil {
		return "", err
	}
	salt, err := crypto.RandomBytes(wallet.SaltSize)
	if err != nil {
		return "", err
	}
	key, err := k.deriveKey(password, salt, k.kdf)
	if err != nil {
		return "", err
	}
	sess, err := k.newSession(key)
	if err != nil {
		return "", err
	}

	ciphertext, nonce, err := wallet.Seal([]byte(phrase), sess.key.Bytes())
	if err != nil {
		sess.wipe()
		return "", err
	}

	now := k.clock.Now().UTC()
	rec := &Record{
		Version:        RecordVersion,
		ID:             uuid.NewString(),
		EncryptedSeeds: map[string]SealedSeed{MasterSeedID: {Ciphertext: ciphertext, Nonce: nonce}},
		Salt:           salt,
		KDF:            k.kdf,
		CreatedAt:      now,
		LastUnlock:     &now,
		Settings:       k.initial,
	}

	path := wallet.DefaultPath(0)
	priv, acct, err := k.deriveAccount([]byte(phrase), path, rec.Settings.DefaultNetwork)
	if err != nil {
		sess.wipe()
		return "", err
	}
	acct.Name = "Account 1"
	acct.SeedID = MasterSeedID
	acct.CreatedAt = now
	rec.Accounts = []Account{acct}
	sess.keys[priv.Address()] = priv

	if err := k.persist("create", rec); err != nil {
		sess.wipe()
		return "", err
	}
	k.record = rec
	k.session = sess
	k.armAutoLock()

	k.logger.Info().
		Str("record_id", rec.ID).
		Str("address", acct.Address).
		Str("kdf", rec.KDF.Algorithm).
		Msg("Vault created")
	return phrase, nil
}

// Unlock derives the vault key from password, decrypts every seed and
// activates every account's keypair. A wrong password and a damaged vault
// both return ErrIncorrectPassword; the cause is logged. When already
// unlocked, the existing session is replaced only on success.
func (k *Keystore) Unlock(password []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	rec, err := k.loadLocked()
	if errors.Is(err, ErrMalformedRecord) {
		k.logger.Error().Err(err).Msg("Unlock failed: vault record is damaged")
		return ErrIncorrectPassword
	}
	if err != nil {
		return err
	}

	key, err := k.deriveKey(password, rec.Salt, rec.KDF)
	if err != nil {
		k.logger.Error().Err(err).Msg("Unlock failed: key derivation")
		return ErrIncorrectPassword
	}
	sess, err := k.newSession(key)
	if err != nil {
		return err
	}
	if err := k.activate(sess, rec); err != nil {
		sess.wipe()
		return err
	}

	next := rec.clone()
	now := k.clock.Now().UTC()
	next.LastUnlock = &now
	if err := k.persist("unlock", next); err != nil {
		sess.wipe()
		return err
	}

	if k.session != nil {
		k.session.wipe()
	}
	k.record = next
	k.session = sess
	k.armAutoLock()

	k.logger.Info().Int("accounts", len(next.Accounts)).Msg("Vault unlocked")
	return nil
}

// activate decrypts rec's seeds with the session key and fills
// sess.keys with every account's private key.
func (k *Keystore) activate(sess *session, rec *Record) error {
	phrases := make(map[string][]byte, len(rec.EncryptedSeeds))
	defer func() {
		for _, p := range phrases {
			wallet.Zero(p)
		}
	}()

	for id, sealed := range rec.EncryptedSeeds {
		phrase, err := wallet.Open(sealed.Ciphertext, sess.key.Bytes(), sealed.Nonce)
		if err != nil {
			ev := k.logger.Warn().Str("seed_id", id)
			if errors.Is(err, wallet.ErrMalformed) {
				ev.Str("reason", "malformed ciphertext")
			} else {
				ev.Str("reason", "authentication failed")
			}
			ev.Msg("Unlock failed")
			return ErrIncorrectPassword
		}
		phrases[id] = phrase
	}

	for _, acct := range rec.Accounts {
		priv, derived, err := k.deriveAccount(phrases[acct.SeedID], acct.DerivationPath, rec.Settings.DefaultNetwork)
		if err != nil {
			k.logger.Error().Err(err).Str("address", acct.Address).Msg("Unlock failed: cannot derive account")
			return ErrIncorrectPassword
		}
		want, _ := types.ParseAddress(acct.Address)
		if priv.Address() != want {
			priv.Zero()
			k.logger.Error().
				Str("address", acct.Address).
				Str("derived", derived.Address).
				Msg("Unlock failed: derived key does not match stored address")
			return ErrIncorrectPassword
		}
		sess.keys[want] = priv
	}
	return nil
}

// Lock discards the session key and every active keypair and stops the
// auto-lock timer. Locking a locked vault does nothing.
func (k *Keystore) Lock() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.lockLocked()
}

func (k *Keystore) lockLocked() {
	k.autolock.Disarm()
	if k.session == nil {
		return
	}
	s := k.session
	k.session = nil
	s.wipe()
	if !s.empty() {
		panic("vault: session key material survived lock")
	}
	k.logger.Info().Msg("Vault locked")
}

// expire is the auto-lock callback.
func (k *Keystore) expire(gen uint64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.autolock.Current(gen) {
		return
	}
	k.logger.Info().Msg("Auto-lock timeout reached")
	k.lockLocked()
}

// ResetActivity restarts the auto-lock countdown. Hosts call it on user
// interaction; Sign and ExportSeed call it themselves.
func (k *Keystore) ResetActivity() {
	k.autolock.Touch()
}

func (k *Keystore) armAutoLock() {
	if k.session == nil || k.record == nil {
		k.autolock.Disarm()
		return
	}
	k.autolock.Arm(k.record.Settings.AutoLock(), k.expire)
}

// AutoLockArmed reports whether the inactivity timer is running.
func (k *Keystore) AutoLockArmed() bool {
	return k.autolock.Armed()
}

// CreateAccount adds an account and activates its keypair. In derive mode
// the key comes from an existing seed; in import mode the mnemonic is
// validated, sealed under the session key and stored under its SeedID,
// so importing the same phrase twice stores it once; the vault's own
// phrase always resolves to MasterSeedID. Asking again for an
// existing (seed, path) pair returns the existing account.
func (k *Keystore) CreateAccount(opts AccountOptions) (Account, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.session == nil {
		return Account{}, ErrVaultLocked
	}
	next := k.record.clone()

	var (
		seedID string
		phrase []byte
	)
	switch opts.DerivationType {
	case DerivationDerive, "":
		seedID = opts.SeedID
		if seedID == "" {
			seedID = MasterSeedID
		}
		sealed, ok := next.EncryptedSeeds[seedID]
		if !ok {
			return Account{}, fmt.Errorf("%w: %s", ErrSeedNotFound, seedID)
		}
		p, err := k.openSeed(seedID, sealed)
		if err != nil {
			return Account{}, err
		}
		phrase = p

	case DerivationImport:
		if !wallet.ValidateMnemonic(opts.Mnemonic) {
			return Account{}, ErrInvalidMnemonic
		}
		phrase = []byte(wallet.NormalizeMnemonic(opts.Mnemonic))
		seedID = wallet.SeedID(opts.Mnemonic)
		master, err := k.openSeed(MasterSeedID, next.EncryptedSeeds[MasterSeedID])
		if err != nil {
			wallet.Zero(phrase)
			return Account{}, err
		}
		if subtle.ConstantTimeCompare(master, phrase) == 1 {
			// The vault's own phrase stays under the master entry.
			seedID = MasterSeedID
		}
		wallet.Zero(master)
		if _, ok := next.EncryptedSeeds[seedID]; !ok {
			ciphertext, nonce, err := wallet.Seal(phrase, k.session.key.Bytes())
			if err != nil {
				wallet.Zero(phrase)
				return Account{}, err
			}
			next.EncryptedSeeds[seedID] = SealedSeed{Ciphertext: ciphertext, Nonce: nonce}
		}

	default:
		return Account{}, fmt.Errorf("unknown derivation type %q", opts.DerivationType)
	}
	defer wallet.Zero(phrase)

	requested := opts.DerivationPath
	if requested == "" && opts.DerivationType == DerivationImport {
		// Imports start at the phrase's first receive account.
		requested = wallet.DefaultPath(0)
	}
	path, err := resolvePath(requested, seedID, next.Accounts)
	if err != nil {
		return Account{}, err
	}
	if i := findBySeedPath(next.Accounts, seedID, path); i >= 0 {
		return cloneAccounts(next.Accounts[i : i+1])[0], nil
	}

	priv, acct, err := k.deriveAccount(phrase, path, next.Settings.DefaultNetwork)
	if err != nil {
		return Account{}, err
	}
	if i := findAccount(next.Accounts, priv.Address()); i >= 0 {
		// Same key reached through another seed or path.
		priv.Zero()
		return cloneAccounts(next.Accounts[i : i+1])[0], nil
	}

	acct.Name = opts.Name
	if acct.Name == "" {
		acct.Name = fmt.Sprintf("Account %d", len(next.Accounts)+1)
	}
	acct.SeedID = seedID
	acct.CreatedAt = k.clock.Now().UTC()
	next.Accounts = append(next.Accounts, acct)

	if err := k.persist("create account", next); err != nil {
		priv.Zero()
		return Account{}, err
	}
	k.record = next
	k.session.keys[priv.Address()] = priv
	k.autolock.Touch()

	k.logger.Info().
		Str("address", acct.Address).
		Str("seed_id", seedID).
		Str("path", path).
		Msg("Account created")
	return cloneAccounts([]Account{acct})[0], nil
}

// openSeed decrypts one stored seed with the session key. Failures are
// logged with their cause and reported as ErrIncorrectPassword.
func (k *Keystore) openSeed(id string, sealed SealedSeed) ([]byte, error) {
	phrase, err := wallet.Open(sealed.Ciphertext, k.session.key.Bytes(), sealed.Nonce)
	if err != nil {
		k.logger.Error().Err(err).Str("seed_id", id).Msg("Cannot open seed")
		return nil, ErrIncorrectPassword
	}
	return phrase, nil
}

// GetAccounts returns the vault's accounts in order. It works while
// locked since accounts hold only public data.
func (k *Keystore) GetAccounts() ([]Account, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	rec, err := k.peekLocked()
	if err != nil {
		return nil, err
	}
	return cloneAccounts(rec.Accounts), nil
}

// RenameAccount changes an account's label.
func (k *Keystore) RenameAccount(address, name string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.session == nil {
		return ErrVaultLocked
	}
	next := k.record.clone()
	i, err := accountIndex(next.Accounts, address)
	if err != nil {
		return err
	}
	next.Accounts[i].Name = name
	if err := k.persist("rename account", next); err != nil {
		return err
	}
	k.record = next
	k.autolock.Touch()
	return nil
}

// DeleteAccount removes an account and drops its keypair. The last
// account cannot be deleted. Imported seeds no account uses any more are
// removed with it; the master seed is always kept.
func (k *Keystore) DeleteAccount(address string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.session == nil {
		return ErrVaultLocked
	}
	next := k.record.clone()
	i, err := accountIndex(next.Accounts, address)
	if err != nil {
		return err
	}
	if len(next.Accounts) == 1 {
		return ErrCannotDeleteLastAccount
	}
	removed := next.Accounts[i]
	next.Accounts = append(next.Accounts[:i], next.Accounts[i+1:]...)
	if removed.SeedID != MasterSeedID && !seedInUse(next.Accounts, removed.SeedID) {
		delete(next.EncryptedSeeds, removed.SeedID)
	}

	if err := k.persist("delete account", next); err != nil {
		return err
	}
	k.record = next
	addr, _ := types.ParseAddress(removed.Address)
	if priv, ok := k.session.keys[addr]; ok {
		priv.Zero()
		delete(k.session.keys, addr)
	}
	k.autolock.Touch()

	k.logger.Info().Str("address", removed.Address).Msg("Account deleted")
	return nil
}

// ExportSeed returns the mnemonic behind an account. The password is
// always re-derived and the seed decrypted fresh, even while unlocked.
func (k *Keystore) ExportSeed(address string, password []byte) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	rec, err := k.peekLocked()
	if err != nil {
		return "", err
	}
	i, err := accountIndex(rec.Accounts, address)
	if err != nil {
		return "", err
	}
	seedID := rec.Accounts[i].SeedID
	sealed, ok := rec.EncryptedSeeds[seedID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSeedNotFound, seedID)
	}

	key, err := k.deriveKey(password, rec.Salt, rec.KDF)
	if err != nil {
		return "", ErrIncorrectPassword
	}
	defer wallet.Zero(key)
	phrase, err := wallet.Open(sealed.Ciphertext, key, sealed.Nonce)
	if err != nil {
		k.logger.Warn().Str("address", address).Msg("Seed export rejected")
		return "", ErrIncorrectPassword
	}
	defer wallet.Zero(phrase)
	k.autolock.Touch()

	k.logger.Warn().Str("address", address).Str("seed_id", seedID).Msg("Seed exported")
	return string(phrase), nil
}

// ChangePassword re-encrypts every seed under a key derived from
// newPassword with a fresh salt and fresh nonces. The KDF work factor is
// raised to the configured one if that is stronger, never lowered.
func (k *Keystore) ChangePassword(oldPassword, newPassword []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	rec, err := k.loadLocked()
	if err != nil {
		return err
	}
	oldKey, err := k.deriveKey(oldPassword, rec.Salt, rec.KDF)
	if err != nil {
		return ErrIncorrectPassword
	}
	phrases := make(map[string][]byte, len(rec.EncryptedSeeds))
	defer func() {
		for _, p := range phrases {
			wallet.Zero(p)
		}
	}()
	for id, sealed := range rec.EncryptedSeeds {
		phrase, err := wallet.Open(sealed.Ciphertext, oldKey, sealed.Nonce)
		if err != nil {
			wallet.Zero(oldKey)
			return ErrIncorrectPassword
		}
		phrases[id] = phrase
	}
	wallet.Zero(oldKey)

	next := rec.clone()
	next.KDF = rec.KDF.Stronger(k.kdf)
	next.Salt, err = crypto.RandomBytes(wallet.SaltSize)
	if err != nil {
		return err
	}
	newKey, err := k.deriveKey(newPassword, next.Salt, next.KDF)
	if err != nil {
		return err
	}
	sess, err := k.newSession(newKey)
	if err != nil {
		return err
	}
	for id, phrase := range phrases {
		ciphertext, nonce, err := wallet.Seal(phrase, sess.key.Bytes())
		if err != nil {
			sess.wipe()
			return err
		}
		next.EncryptedSeeds[id] = SealedSeed{Ciphertext: ciphertext, Nonce: nonce}
	}

	if err := k.persist("change password", next); err != nil {
		sess.wipe()
		return err
	}
	k.record = next
	if k.session != nil {
		// Keep the active keypairs; only the session key changes.
		k.session.key.Close()
		k.session.key = sess.key
		k.autolock.Touch()
	} else {
		sess.wipe()
	}

	k.logger.Info().
		Str("kdf", next.KDF.Algorithm).
		Uint32("iterations", next.KDF.Iterations).
		Msg("Vault password changed")
	return nil
}

// UpdateSettings replaces the vault settings. Changing the network
// re-renders every account address for that network; changing the
// timeout re-arms auto-lock.
func (k *Keystore) UpdateSettings(s Settings) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.session == nil {
		return ErrVaultLocked
	}
	if err := s.Validate(); err != nil {
		return err
	}
	next := k.record.clone()
	next.Settings = s
	for i, a := range next.Accounts {
		addr, err := types.ParseAddress(a.Address)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		if next.Accounts[i].Address, err = encodeAddress(addr, s.DefaultNetwork); err != nil {
			return err
		}
	}

	if err := k.persist("update settings", next); err != nil {
		return err
	}
	k.record = next
	k.armAutoLock()

	k.logger.Info().
		Int("auto_lock_minutes", s.AutoLockMinutes).
		Str("network", s.DefaultNetwork).
		Msg("Vault settings updated")
	return nil
}

// Settings returns the vault's current settings.
func (k *Keystore) Settings() (Settings, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	rec, err := k.peekLocked()
	if err != nil {
		return Settings{}, err
	}
	return rec.Settings, nil
}

// DestroyVault deletes the whole vault after checking password against
// the master seed, and locks the keystore.
func (k *Keystore) DestroyVault(password []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	rec, err := k.loadLocked()
	if err != nil {
		return err
	}
	key, err := k.deriveKey(password, rec.Salt, rec.KDF)
	if err != nil {
		return ErrIncorrectPassword
	}
	master := rec.EncryptedSeeds[MasterSeedID]
	phrase, err := wallet.Open(master.Ciphertext, key, master.Nonce)
	wallet.Zero(key)
	if err != nil {
		return ErrIncorrectPassword
	}
	wallet.Zero(phrase)

	if err := k.store.Delete(k.id); err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	k.lockLocked()
	k.record = nil

	k.logger.Warn().Str("record_id", rec.ID).Msg("Vault destroyed")
	return nil
}

// loadLocked returns the cached record, reading it from the store on
// first use. Callers hold the write lock.
func (k *Keystore) loadLocked() (*Record, error) {
	if k.record != nil {
		return k.record, nil
	}
	rec, err := k.read()
	if err != nil {
		return nil, err
	}
	k.record = rec
	return rec, nil
}

// peekLocked is loadLocked for callers holding only the read lock; it
// does not fill the cache.
func (k *Keystore) peekLocked() (*Record, error) {
	if k.record != nil {
		return k.record, nil
	}
	return k.read()
}

func (k *Keystore) read() (*Record, error) {
	blob, err := k.store.Get(k.id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoVault
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	return UnmarshalRecord(blob)
}

func (k *Keystore) persist(op string, rec *Record) error {
	blob, err := rec.Marshal()
	if err != nil {
		return fmt.Errorf("encode vault: %w", err)
	}
	if err := k.store.Set(k.id, blob); err != nil {
		k.logger.Error().Err(err).Str("op", op).Msg("Vault write failed")
		return &StorageError{Op: op, Err: err}
	}
	return nil
}

func (k *Keystore) deriveKey(password, salt []byte, params wallet.KDFParams) ([]byte, error) {
	defer klog.Benchmark(k.logger, "derive key "+params.Algorithm)()
	return wallet.DeriveKey(password, salt, params)
}

// newSession moves key into a secret buffer; key is zeroed.
func (k *Keystore) newSession(key []byte) (*session, error) {
	buf, err := secret.NewFromBytes(key)
	if err != nil {
		wallet.Zero(key)
		return nil, err
	}
	if !buf.Locked() {
		k.logger.Debug().Msg("Session key held in ordinary memory (mlock unavailable)")
	}
	return newSession(buf), nil
}

// deriveAccount derives the keypair at path from phrase and returns it
// with a partially filled Account (address, path and public key).
func (k *Keystore) deriveAccount(phrase []byte, path, network string) (*crypto.PrivateKey, Account, error) {
	seed, err := wallet.SeedFromMnemonic(string(phrase), "")
	if err != nil {
		return nil, Account{}, err
	}
	defer wallet.Zero(seed)

	hd, err := wallet.KeyFromSeed(seed, path)
	if err != nil {
		return nil, Account{}, fmt.Errorf("%w: %v", ErrInvalidDerivationPath, err)
	}
	defer hd.Wipe()
	priv, err := hd.Signer()
	if err != nil {
		return nil, Account{}, err
	}

	addr, err := encodeAddress(priv.Address(), network)
	if err != nil {
		priv.Zero()
		return nil, Account{}, err
	}
	return priv, Account{
		Address:        addr,
		DerivationPath: path,
		PublicKey:      priv.PublicKey(),
	}, nil
}

func accountIndex(accounts []Account, address string) (int, error) {
	addr, err := types.ParseAddress(address)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrAccountNotFound, err)
	}
	i := findAccount(accounts, addr)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	return i, nil
}
