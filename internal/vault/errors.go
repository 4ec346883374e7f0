package vault

import "errors"

// Errors returned at the Keystore boundary. Callers compare with errors.Is.
var (
	ErrAlreadyInitialized      = errors.New("vault already initialized")
	ErrNoVault                 = errors.New("no vault")
	ErrIncorrectPassword       = errors.New("incorrect password")
	ErrInvalidMnemonic         = errors.New("invalid mnemonic")
	ErrVaultLocked             = errors.New("vault is locked")
	ErrAccountNotActive        = errors.New("account not active")
	ErrAccountNotFound         = errors.New("account not found")
	ErrCannotDeleteLastAccount = errors.New("cannot delete the last account")
	ErrSeedNotFound            = errors.New("seed not found")
	ErrInvalidDerivationPath   = errors.New("invalid derivation path")
	ErrInvalidSettings         = errors.New("invalid settings")
	ErrStorage                 = errors.New("storage error")
)

// StorageError reports a failure of the underlying Store. It matches
// ErrStorage under errors.Is and unwraps to the store's own error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorage) true for every StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }
