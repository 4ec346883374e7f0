package rpc

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingvault/internal/vault"
)

// ── Vault endpoints ─────────────────────────────────────────────────────

func (s *Server) handleVaultStatus(_ *Request) (interface{}, *Error) {
	settings, err := s.keystore.Settings()
	if errors.Is(err, vault.ErrNoVault) {
		return &StatusResult{}, nil
	}
	if err != nil {
		return nil, vaultError(err)
	}
	accounts, err := s.keystore.GetAccounts()
	if err != nil {
		return nil, vaultError(err)
	}
	return &StatusResult{
		Initialized:   true,
		Unlocked:      s.keystore.IsUnlocked(),
		AutoLockArmed: s.keystore.AutoLockArmed(),
		Accounts:      len(accounts),
		Settings:      &settings,
	}, nil
}

func (s *Server) handleVaultCreate(req *Request) (interface{}, *Error) {
	var params PasswordParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Password == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "password is required"}
	}

	pw := []byte(params.Password)
	defer zero(pw)
	mnemonic, err := s.keystore.CreateVault(pw)
	if err != nil {
		return nil, vaultError(err)
	}
	accounts, err := s.keystore.GetAccounts()
	if err != nil || len(accounts) == 0 {
		return nil, &Error{Code: CodeInternalError, Message: "vault created without an account"}
	}

	s.logger.Info().Str("address", accounts[0].Address).Msg("Vault created over RPC")
	return &CreateResult{Mnemonic: mnemonic, Address: accounts[0].Address}, nil
}

func (s *Server) handleVaultUnlock(req *Request) (interface{}, *Error) {
	var params PasswordParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	pw := []byte(params.Password)
	defer zero(pw)
	if err := s.keystore.Unlock(pw); err != nil {
		return nil, vaultError(err)
	}
	return &OKResult{OK: true}, nil
}

func (s *Server) handleVaultLock(_ *Request) (interface{}, *Error) {
	s.keystore.Lock()
	return &OKResult{OK: true}, nil
}

// handleVaultTouch records user activity so an idle client can keep the
// session alive without signing.
func (s *Server) handleVaultTouch(_ *Request) (interface{}, *Error) {
	if !s.keystore.IsUnlocked() {
		return nil, vaultError(vault.ErrVaultLocked)
	}
	s.keystore.ResetActivity()
	return &OKResult{OK: true}, nil
}

func (s *Server) handleVaultChangePassword(req *Request) (interface{}, *Error) {
	var params ChangePasswordParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.NewPassword == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "new_password is required"}
	}

	oldPw, newPw := []byte(params.OldPassword), []byte(params.NewPassword)
	defer zero(oldPw)
	defer zero(newPw)
	if err := s.keystore.ChangePassword(oldPw, newPw); err != nil {
		return nil, vaultError(err)
	}
	return &OKResult{OK: true}, nil
}

func (s *Server) handleVaultGetSettings(_ *Request) (interface{}, *Error) {
	settings, err := s.keystore.Settings()
	if err != nil {
		return nil, vaultError(err)
	}
	return &settings, nil
}

func (s *Server) handleVaultUpdateSettings(req *Request) (interface{}, *Error) {
	var params SettingsParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	settings, err := s.keystore.Settings()
	if err != nil {
		return nil, vaultError(err)
	}
	if params.AutoLockMinutes != nil {
		settings.AutoLockMinutes = *params.AutoLockMinutes
	}
	if params.Network != "" {
		settings.DefaultNetwork = params.Network
	}
	if err := s.keystore.UpdateSettings(settings); err != nil {
		return nil, vaultError(err)
	}
	return &settings, nil
}

// ── Account endpoints ───────────────────────────────────────────────────

func (s *Server) handleAccountList(_ *Request) (interface{}, *Error) {
	accounts, err := s.keystore.GetAccounts()
	if err != nil {
		return nil, vaultError(err)
	}
	results := make([]AccountResult, len(accounts))
	for i, a := range accounts {
		results[i] = NewAccountResult(a)
	}
	return results, nil
}

func (s *Server) handleAccountCreate(req *Request) (interface{}, *Error) {
	var params AccountCreateParam
	if req.Params != nil {
		if err := parseParams(req, &params); err != nil {
			return nil, err
		}
	}

	opts := vault.AccountOptions{
		Name:           params.Name,
		SeedID:         params.SeedID,
		Mnemonic:       params.Mnemonic,
		DerivationPath: params.DerivationPath,
	}
	switch vault.DerivationType(params.DerivationType) {
	case "", vault.DerivationDerive:
		opts.DerivationType = vault.DerivationDerive
	case vault.DerivationImport:
		opts.DerivationType = vault.DerivationImport
		if params.Mnemonic == "" {
			return nil, &Error{Code: CodeInvalidParams, Message: "mnemonic is required for import"}
		}
	default:
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("unknown derivation_type %q", params.DerivationType)}
	}

	acct, err := s.keystore.CreateAccount(opts)
	if err != nil {
		return nil, vaultError(err)
	}
	return NewAccountResult(acct), nil
}

func (s *Server) handleAccountRename(req *Request) (interface{}, *Error) {
	var params AccountRenameParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Address == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}
	if err := s.keystore.RenameAccount(params.Address, params.Name); err != nil {
		return nil, vaultError(err)
	}
	return &OKResult{OK: true}, nil
}

func (s *Server) handleAccountDelete(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Address == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}
	if err := s.keystore.DeleteAccount(params.Address); err != nil {
		return nil, vaultError(err)
	}
	return &OKResult{OK: true}, nil
}

// ── Message endpoints ───────────────────────────────────────────────────

func (s *Server) handleMsgSign(req *Request) (interface{}, *Error) {
	var params SignParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	msg, rpcErr := messageParam(params.Message, params.MessageHex)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if !s.keystore.IsUnlocked() {
		return nil, vaultError(vault.ErrVaultLocked)
	}

	sig, err := s.keystore.Sign(params.Address, msg)
	if err != nil {
		return nil, vaultError(err)
	}
	return &SignResult{Signature: hexString(sig)}, nil
}

func (s *Server) handleMsgVerify(req *Request) (interface{}, *Error) {
	var params VerifyParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	msg, rpcErr := messageParam(params.Message, params.MessageHex)
	if rpcErr != nil {
		return nil, rpcErr
	}
	sig, err := hex.DecodeString(params.Signature)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid signature: must be hex"}
	}
	return &VerifyResult{Valid: vault.Verify(params.Address, msg, sig)}, nil
}

// ── Helpers ─────────────────────────────────────────────────────────────

// messageParam returns the message bytes from exactly one of text and
// hexText. An empty message is allowed.
func messageParam(text, hexText string) ([]byte, *Error) {
	if text != "" && hexText != "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "set only one of message and message_hex"}
	}
	if hexText == "" {
		return []byte(text), nil
	}
	msg, err := hex.DecodeString(hexText)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid message_hex"}
	}
	return msg, nil
}

// vaultError maps keystore errors to JSON-RPC errors.
func vaultError(err error) *Error {
	code := CodeInternalError
	switch {
	case errors.Is(err, vault.ErrVaultLocked):
		code = CodeVaultLocked
	case errors.Is(err, vault.ErrIncorrectPassword):
		code = CodeIncorrectPassword
	case errors.Is(err, vault.ErrNoVault):
		code = CodeNoVault
	case errors.Is(err, vault.ErrStorage):
		code = CodeStorage
	case errors.Is(err, vault.ErrAlreadyInitialized),
		errors.Is(err, vault.ErrCannotDeleteLastAccount):
		code = CodeConflict
	case errors.Is(err, vault.ErrAccountNotFound),
		errors.Is(err, vault.ErrAccountNotActive),
		errors.Is(err, vault.ErrSeedNotFound):
		code = CodeNotFound
	case errors.Is(err, vault.ErrInvalidMnemonic),
		errors.Is(err, vault.ErrInvalidDerivationPath),
		errors.Is(err, vault.ErrInvalidSettings):
		code = CodeInvalidParams
	}
	return &Error{Code: code, Message: err.Error()}
}

func hexString(b []byte) string {
	return hex.EncodeToString(b)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
