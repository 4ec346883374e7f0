package rpc

import "github.com/Klingon-tech/klingvault/internal/vault"

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
)

// Vault error codes, one per keystore error kind.
const (
	CodeVaultLocked       = -32001
	CodeIncorrectPassword = -32002
	CodeNoVault           = -32003
	CodeStorage           = -32004
	CodeConflict          = -32005 // already initialized, last account
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// PasswordParam is used by vault_create and vault_unlock.
type PasswordParam struct {
	Password string `json:"password"`
}

// ChangePasswordParam is used by vault_changePassword.
type ChangePasswordParam struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// SettingsParam is used by vault_updateSettings. Omitted fields keep
// their current value.
type SettingsParam struct {
	AutoLockMinutes *int   `json:"auto_lock_minutes,omitempty"`
	Network         string `json:"network,omitempty"`
}

// AccountCreateParam is used by account_create.
type AccountCreateParam struct {
	Name           string `json:"name,omitempty"`
	DerivationType string `json:"derivation_type,omitempty"` // derive (default) or import
	SeedID         string `json:"seed_id,omitempty"`
	Mnemonic       string `json:"mnemonic,omitempty"`
	DerivationPath string `json:"derivation_path,omitempty"`
}

// AccountRenameParam is used by account_rename.
type AccountRenameParam struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// AddressParam is used by account_delete.
type AddressParam struct {
	Address string `json:"address"`
}

// SignParam is used by msg_sign. Exactly one of Message (UTF-8 text) and
// MessageHex is set.
type SignParam struct {
	Address    string `json:"address"`
	Message    string `json:"message,omitempty"`
	MessageHex string `json:"message_hex,omitempty"`
}

// VerifyParam is used by msg_verify.
type VerifyParam struct {
	Address    string `json:"address"`
	Message    string `json:"message,omitempty"`
	MessageHex string `json:"message_hex,omitempty"`
	Signature  string `json:"signature"` // hex
}

// ── Result types ────────────────────────────────────────────────────────

// StatusResult is returned by vault_status.
type StatusResult struct {
	Initialized   bool            `json:"initialized"`
	Unlocked      bool            `json:"unlocked"`
	AutoLockArmed bool            `json:"auto_lock_armed"`
	Accounts      int             `json:"accounts"`
	Settings      *vault.Settings `json:"settings,omitempty"`
}

// CreateResult is returned by vault_create. The mnemonic is returned
// only here.
type CreateResult struct {
	Mnemonic string `json:"mnemonic"`
	Address  string `json:"address"`
}

// AccountResult is one account as returned by account_* methods.
type AccountResult struct {
	Address        string `json:"address"`
	Name           string `json:"name"`
	DerivationPath string `json:"derivation_path"`
	SeedID         string `json:"seed_id"`
	PublicKey      string `json:"public_key"`
	CreatedAt      int64  `json:"created_at"`
}

// NewAccountResult converts a vault account for RPC responses.
func NewAccountResult(a vault.Account) AccountResult {
	return AccountResult{
		Address:        a.Address,
		Name:           a.Name,
		DerivationPath: a.DerivationPath,
		SeedID:         a.SeedID,
		PublicKey:      hexString(a.PublicKey),
		CreatedAt:      a.CreatedAt.Unix(),
	}
}

// SignResult is returned by msg_sign.
type SignResult struct {
	Signature string `json:"signature"` // hex, 64-byte Schnorr signature || 33-byte public key
}

// VerifyResult is returned by msg_verify.
type VerifyResult struct {
	Valid bool `json:"valid"`
}

// OKResult is returned by methods with no other result.
type OKResult struct {
	OK bool `json:"ok"`
}
