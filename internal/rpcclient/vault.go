package rpcclient

import (
	"encoding/hex"

	"github.com/Klingon-tech/klingvault/internal/rpc"
)

// Status returns the daemon's vault state.
func (c *Client) Status() (*rpc.StatusResult, error) {
	var result rpc.StatusResult
	if err := c.Call("vault_status", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Unlock unlocks the daemon's vault. The password crosses the loopback
// connection in the clear.
func (c *Client) Unlock(password []byte) error {
	return c.Call("vault_unlock", rpc.PasswordParam{Password: string(password)}, nil)
}

// Lock locks the daemon's vault.
func (c *Client) Lock() error {
	return c.Call("vault_lock", nil, nil)
}

// Touch resets the daemon's auto-lock countdown.
func (c *Client) Touch() error {
	return c.Call("vault_touch", nil, nil)
}

// Accounts lists the vault's accounts.
func (c *Client) Accounts() ([]rpc.AccountResult, error) {
	var result []rpc.AccountResult
	if err := c.Call("account_list", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateAccount adds an account with the given options.
func (c *Client) CreateAccount(params rpc.AccountCreateParam) (*rpc.AccountResult, error) {
	var result rpc.AccountResult
	if err := c.Call("account_create", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Sign signs message with the account at address and returns the raw
// signature.
func (c *Client) Sign(address string, message []byte) ([]byte, error) {
	var result rpc.SignResult
	params := rpc.SignParam{Address: address, MessageHex: hex.EncodeToString(message)}
	if err := c.Call("msg_sign", params, &result); err != nil {
		return nil, err
	}
	return hex.DecodeString(result.Signature)
}
