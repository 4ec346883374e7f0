package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Klingon-tech/klingvault/config"
	"github.com/Klingon-tech/klingvault/internal/clock"
	klog "github.com/Klingon-tech/klingvault/internal/log"
	"github.com/Klingon-tech/klingvault/internal/storage"
	"github.com/Klingon-tech/klingvault/internal/vault"
	"github.com/Klingon-tech/klingvault/internal/wallet"
	"github.com/rs/zerolog"
)

const testPassword = "correct horse"

// testEnv holds all components for an RPC test.
type testEnv struct {
	server   *Server
	keystore *vault.Keystore
	clock    *clock.FakeClock
	url      string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvWithConfig(t, config.RPCConfig{})
}

func setupTestEnvWithConfig(t *testing.T, rpcCfg config.RPCConfig) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	fc := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	nop := zerolog.Nop()
	ks := vault.NewKeystore(storage.NewMemoryStore(), vault.Options{
		KDF:    wallet.KDFParams{Algorithm: wallet.KDFPBKDF2, Iterations: 1000},
		Clock:  fc,
		Logger: &nop,
	})
	t.Cleanup(ks.Lock)

	srv := New("127.0.0.1:0", ks, rpcCfg)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		server:   srv,
		keystore: ks,
		clock:    fc,
		url:      fmt.Sprintf("http://%s/", srv.Addr()),
	}
}

// setupCreatedVault returns an env whose vault exists and is unlocked,
// and the address of its first account.
func setupCreatedVault(t *testing.T) (*testEnv, string) {
	t.Helper()
	env := setupTestEnv(t)
	resp := rpcCall(t, env.url, "vault_create", PasswordParam{Password: testPassword})
	if resp.Error != nil {
		t.Fatalf("vault_create error: %s", resp.Error.Message)
	}
	var result CreateResult
	decodeResult(t, resp, &result)
	return env, result.Address
}

func rpcCall(t *testing.T, url, method string, params interface{}) Response {
	t.Helper()
	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rpcResp
}

func decodeResult(t *testing.T, resp Response, target interface{}) {
	t.Helper()
	data, _ := json.Marshal(resp.Result)
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func expectCode(t *testing.T, resp Response, code int) {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected error code %d, got result %v", code, resp.Result)
	}
	if resp.Error.Code != code {
		t.Errorf("error code = %d (%s), want %d", resp.Error.Code, resp.Error.Message, code)
	}
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestRPC_StatusUninitialized(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "vault_status", nil)
	if resp.Error != nil {
		t.Fatalf("vault_status error: %s", resp.Error.Message)
	}
	var status StatusResult
	decodeResult(t, resp, &status)
	if status.Initialized || status.Unlocked || status.Settings != nil {
		t.Errorf("status = %+v, want uninitialized", status)
	}

	expectCode(t, rpcCall(t, env.url, "vault_unlock", PasswordParam{Password: testPassword}), CodeNoVault)
	expectCode(t, rpcCall(t, env.url, "account_list", nil), CodeNoVault)
}

func TestRPC_CreateVault(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "vault_create", PasswordParam{Password: testPassword})
	if resp.Error != nil {
		t.Fatalf("vault_create error: %s", resp.Error.Message)
	}
	var result CreateResult
	decodeResult(t, resp, &result)
	if n := len(strings.Fields(result.Mnemonic)); n != 24 {
		t.Errorf("mnemonic has %d words, want 24", n)
	}
	if !strings.HasPrefix(result.Address, "kgx1") {
		t.Errorf("address = %q, want kgx1 prefix", result.Address)
	}

	var status StatusResult
	decodeResult(t, rpcCall(t, env.url, "vault_status", nil), &status)
	if !status.Initialized || !status.Unlocked || !status.AutoLockArmed || status.Accounts != 1 {
		t.Errorf("status = %+v", status)
	}

	expectCode(t, rpcCall(t, env.url, "vault_create", PasswordParam{Password: testPassword}), CodeConflict)
}

func TestRPC_CreateVault_EmptyPassword(t *testing.T) {
	env := setupTestEnv(t)
	expectCode(t, rpcCall(t, env.url, "vault_create", PasswordParam{}), CodeInvalidParams)
	expectCode(t, rpcCall(t, env.url, "vault_create", nil), CodeInvalidParams)
}

func TestRPC_LockUnlock(t *testing.T) {
	env, addr := setupCreatedVault(t)

	if resp := rpcCall(t, env.url, "vault_lock", nil); resp.Error != nil {
		t.Fatalf("vault_lock error: %s", resp.Error.Message)
	}
	if env.keystore.IsUnlocked() {
		t.Fatal("keystore still unlocked after vault_lock")
	}

	expectCode(t, rpcCall(t, env.url, "msg_sign", SignParam{Address: addr, Message: "hi"}), CodeVaultLocked)
	expectCode(t, rpcCall(t, env.url, "vault_touch", nil), CodeVaultLocked)
	expectCode(t, rpcCall(t, env.url, "vault_unlock", PasswordParam{Password: "wrong"}), CodeIncorrectPassword)

	if resp := rpcCall(t, env.url, "vault_unlock", PasswordParam{Password: testPassword}); resp.Error != nil {
		t.Fatalf("vault_unlock error: %s", resp.Error.Message)
	}
	if resp := rpcCall(t, env.url, "msg_sign", SignParam{Address: addr, Message: "hi"}); resp.Error != nil {
		t.Fatalf("msg_sign after unlock: %s", resp.Error.Message)
	}
}

func TestRPC_SignVerify(t *testing.T) {
	env, addr := setupCreatedVault(t)

	resp := rpcCall(t, env.url, "msg_sign", SignParam{Address: addr, Message: "hello"})
	if resp.Error != nil {
		t.Fatalf("msg_sign error: %s", resp.Error.Message)
	}
	var sig SignResult
	decodeResult(t, resp, &sig)
	if len(sig.Signature) != 2*(64+33) {
		t.Fatalf("signature hex length = %d, want %d", len(sig.Signature), 2*(64+33))
	}

	tests := []struct {
		name   string
		params VerifyParam
		want   bool
	}{
		{"text", VerifyParam{Address: addr, Message: "hello", Signature: sig.Signature}, true},
		{"same bytes as hex", VerifyParam{Address: addr, MessageHex: "68656c6c6f", Signature: sig.Signature}, true},
		{"other message", VerifyParam{Address: addr, Message: "hellO", Signature: sig.Signature}, false},
		{"truncated", VerifyParam{Address: addr, Message: "hello", Signature: sig.Signature[:128]}, false},
		{"bad address", VerifyParam{Address: "kgx1nope", Message: "hello", Signature: sig.Signature}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := rpcCall(t, env.url, "msg_verify", tt.params)
			if resp.Error != nil {
				t.Fatalf("msg_verify error: %s", resp.Error.Message)
			}
			var result VerifyResult
			decodeResult(t, resp, &result)
			if result.Valid != tt.want {
				t.Errorf("valid = %v, want %v", result.Valid, tt.want)
			}
		})
	}
}

func TestRPC_SignParams(t *testing.T) {
	env, addr := setupCreatedVault(t)

	expectCode(t, rpcCall(t, env.url, "msg_sign", SignParam{Address: addr, Message: "a", MessageHex: "61"}), CodeInvalidParams)
	expectCode(t, rpcCall(t, env.url, "msg_sign", SignParam{Address: addr, MessageHex: "zz"}), CodeInvalidParams)
	expectCode(t, rpcCall(t, env.url, "msg_sign", SignParam{Address: "kgx1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq", Message: "a"}), CodeNotFound)
	expectCode(t, rpcCall(t, env.url, "msg_verify", VerifyParam{Address: addr, Message: "a", Signature: "xyz"}), CodeInvalidParams)

	// The empty message is signable.
	if resp := rpcCall(t, env.url, "msg_sign", SignParam{Address: addr}); resp.Error != nil {
		t.Errorf("empty message: %s", resp.Error.Message)
	}
}

func TestRPC_AutoLock(t *testing.T) {
	env, addr := setupCreatedVault(t)

	env.clock.Advance(10 * time.Minute)
	if resp := rpcCall(t, env.url, "vault_touch", nil); resp.Error != nil {
		t.Fatalf("vault_touch error: %s", resp.Error.Message)
	}
	env.clock.Advance(10 * time.Minute)
	if !env.keystore.IsUnlocked() {
		t.Fatal("touch should have reset the inactivity timer")
	}

	env.clock.Advance(6 * time.Minute)
	if env.keystore.IsUnlocked() {
		t.Fatal("vault should auto-lock after 15 idle minutes")
	}
	expectCode(t, rpcCall(t, env.url, "msg_sign", SignParam{Address: addr, Message: "late"}), CodeVaultLocked)
}

func TestRPC_Accounts(t *testing.T) {
	env, first := setupCreatedVault(t)

	resp := rpcCall(t, env.url, "account_create", AccountCreateParam{Name: "Savings"})
	if resp.Error != nil {
		t.Fatalf("account_create error: %s", resp.Error.Message)
	}
	var second AccountResult
	decodeResult(t, resp, &second)
	if second.Name != "Savings" || second.DerivationPath != "m/44'/8888'/0'/0/1" || second.SeedID != vault.MasterSeedID {
		t.Errorf("derived account = %+v", second)
	}
	if len(second.PublicKey) != 66 {
		t.Errorf("public key hex length = %d, want 66", len(second.PublicKey))
	}

	resp = rpcCall(t, env.url, "account_create", AccountCreateParam{
		DerivationType: "import",
		Mnemonic:       "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
	})
	if resp.Error != nil {
		t.Fatalf("account_create import error: %s", resp.Error.Message)
	}
	var imported AccountResult
	decodeResult(t, resp, &imported)
	if imported.SeedID == vault.MasterSeedID || imported.DerivationPath != "m/44'/8888'/0'/0/0" {
		t.Errorf("imported account = %+v", imported)
	}

	if resp := rpcCall(t, env.url, "account_rename", AccountRenameParam{Address: first, Name: "Main"}); resp.Error != nil {
		t.Fatalf("account_rename error: %s", resp.Error.Message)
	}
	if resp := rpcCall(t, env.url, "account_delete", AddressParam{Address: imported.Address}); resp.Error != nil {
		t.Fatalf("account_delete error: %s", resp.Error.Message)
	}

	var list []AccountResult
	decodeResult(t, rpcCall(t, env.url, "account_list", nil), &list)
	if len(list) != 2 || list[0].Name != "Main" || list[1].Address != second.Address {
		t.Errorf("account_list = %+v", list)
	}
}

func TestRPC_AccountErrors(t *testing.T) {
	env, first := setupCreatedVault(t)

	tests := []struct {
		name   string
		method string
		params interface{}
		code   int
	}{
		{"unknown derivation type", "account_create", AccountCreateParam{DerivationType: "guess"}, CodeInvalidParams},
		{"import without mnemonic", "account_create", AccountCreateParam{DerivationType: "import"}, CodeInvalidParams},
		{"bad mnemonic", "account_create", AccountCreateParam{DerivationType: "import", Mnemonic: "not a phrase"}, CodeInvalidParams},
		{"bad path", "account_create", AccountCreateParam{DerivationPath: "m/x"}, CodeInvalidParams},
		{"unknown seed", "account_create", AccountCreateParam{SeedID: "nope"}, CodeNotFound},
		{"rename unknown", "account_rename", AccountRenameParam{Address: "kgx1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq", Name: "x"}, CodeNotFound},
		{"rename no address", "account_rename", AccountRenameParam{Name: "x"}, CodeInvalidParams},
		{"delete last", "account_delete", AddressParam{Address: first}, CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, rpcCall(t, env.url, tt.method, tt.params), tt.code)
		})
	}

	rpcCall(t, env.url, "vault_lock", nil)
	expectCode(t, rpcCall(t, env.url, "account_create", nil), CodeVaultLocked)

	// Listing works while locked.
	var list []AccountResult
	decodeResult(t, rpcCall(t, env.url, "account_list", nil), &list)
	if len(list) != 1 || list[0].Address != first {
		t.Errorf("locked account_list = %+v", list)
	}
}

func TestRPC_ChangePassword(t *testing.T) {
	env, _ := setupCreatedVault(t)

	expectCode(t, rpcCall(t, env.url, "vault_changePassword", ChangePasswordParam{OldPassword: "wrong", NewPassword: "new"}), CodeIncorrectPassword)
	expectCode(t, rpcCall(t, env.url, "vault_changePassword", ChangePasswordParam{OldPassword: testPassword}), CodeInvalidParams)

	resp := rpcCall(t, env.url, "vault_changePassword", ChangePasswordParam{OldPassword: testPassword, NewPassword: "new"})
	if resp.Error != nil {
		t.Fatalf("vault_changePassword error: %s", resp.Error.Message)
	}

	rpcCall(t, env.url, "vault_lock", nil)
	expectCode(t, rpcCall(t, env.url, "vault_unlock", PasswordParam{Password: testPassword}), CodeIncorrectPassword)
	if resp := rpcCall(t, env.url, "vault_unlock", PasswordParam{Password: "new"}); resp.Error != nil {
		t.Fatalf("unlock with new password: %s", resp.Error.Message)
	}
}

func TestRPC_Settings(t *testing.T) {
	env, _ := setupCreatedVault(t)

	var settings vault.Settings
	decodeResult(t, rpcCall(t, env.url, "vault_getSettings", nil), &settings)
	if settings != vault.DefaultSettings() {
		t.Errorf("settings = %+v, want defaults", settings)
	}

	off := 0
	resp := rpcCall(t, env.url, "vault_updateSettings", SettingsParam{AutoLockMinutes: &off, Network: "testnet"})
	if resp.Error != nil {
		t.Fatalf("vault_updateSettings error: %s", resp.Error.Message)
	}
	decodeResult(t, resp, &settings)
	if settings.AutoLockMinutes != 0 || settings.DefaultNetwork != "testnet" {
		t.Errorf("updated settings = %+v", settings)
	}

	var list []AccountResult
	decodeResult(t, rpcCall(t, env.url, "account_list", nil), &list)
	if !strings.HasPrefix(list[0].Address, "tkgx1") {
		t.Errorf("address after network change = %q, want tkgx1 prefix", list[0].Address)
	}

	// Auto-lock disabled: a long idle period keeps the session.
	env.clock.Advance(24 * time.Hour)
	if !env.keystore.IsUnlocked() {
		t.Error("auto-lock should be disabled")
	}

	expectCode(t, rpcCall(t, env.url, "vault_updateSettings", SettingsParam{Network: "regtest"}), CodeInvalidParams)
	rpcCall(t, env.url, "vault_lock", nil)
	expectCode(t, rpcCall(t, env.url, "vault_updateSettings", SettingsParam{Network: "mainnet"}), CodeVaultLocked)
}

func TestRPC_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "nonexistent_method", nil)
	expectCode(t, resp, CodeMethodNotFound)

	// Seed export and destroy are not served over RPC.
	expectCode(t, rpcCall(t, env.url, "vault_exportSeed", nil), CodeMethodNotFound)
	expectCode(t, rpcCall(t, env.url, "vault_destroy", nil), CodeMethodNotFound)
}

func TestRPC_InvalidParams(t *testing.T) {
	env := setupTestEnv(t)

	// vault_unlock requires params.
	expectCode(t, rpcCall(t, env.url, "vault_unlock", nil), CodeInvalidParams)
	expectCode(t, rpcCall(t, env.url, "vault_unlock", []int{1, 2}), CodeInvalidParams)
}

func TestRPC_InvalidJSON(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Post(env.url, "application/json", bytes.NewReader([]byte("not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	expectCode(t, rpcResp, CodeParseError)
}

func TestRPC_WrongVersion(t *testing.T) {
	env := setupTestEnv(t)

	body := []byte(`{"jsonrpc":"1.0","method":"vault_status","id":7}`)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	expectCode(t, rpcResp, CodeInvalidRequest)
	if id, _ := rpcResp.ID.(float64); id != 7 {
		t.Errorf("id = %v, want 7", rpcResp.ID)
	}
}

func TestRPC_BodyTooLarge(t *testing.T) {
	env := setupTestEnv(t)

	body := append([]byte(`{"jsonrpc":"2.0","method":"vault_status","params":"`), bytes.Repeat([]byte("a"), maxBodySize)...)
	body = append(body, `"}`...)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	expectCode(t, rpcResp, CodeInvalidRequest)
}

func TestRPC_GetMethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	expectCode(t, rpcResp, CodeInvalidRequest)
}

func TestVaultError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{vault.ErrVaultLocked, CodeVaultLocked},
		{fmt.Errorf("unlock: %w", vault.ErrIncorrectPassword), CodeIncorrectPassword},
		{vault.ErrNoVault, CodeNoVault},
		{&vault.StorageError{Op: "set", Err: fmt.Errorf("disk full")}, CodeStorage},
		{vault.ErrAlreadyInitialized, CodeConflict},
		{vault.ErrAccountNotFound, CodeNotFound},
		{vault.ErrInvalidSettings, CodeInvalidParams},
		{vault.ErrMalformedRecord, CodeInternalError},
	}
	for _, tt := range tests {
		if got := vaultError(tt.err); got.Code != tt.code {
			t.Errorf("vaultError(%v).Code = %d, want %d", tt.err, got.Code, tt.code)
		}
	}
}

// --- IP Filtering ---

func TestRPC_IPFilter_Allowed(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		AllowedIPs: []string{"127.0.0.1"},
	})

	resp := rpcCall(t, env.url, "vault_status", nil)
	if resp.Error != nil {
		t.Errorf("expected success for 127.0.0.1, got error: %s", resp.Error.Message)
	}
}

func TestRPC_IPFilter_Blocked(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		AllowedIPs: []string{"10.0.0.0/8"}, // Only allow 10.x.x.x.
	})

	// Request comes from 127.0.0.1 → should be blocked.
	req := Request{JSONRPC: "2.0", Method: "vault_status", ID: 1}
	body, _ := json.Marshal(req)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
}

func TestParseAllowedIPs(t *testing.T) {
	got := parseAllowedIPs([]string{"127.0.0.1", "::1", "10.1.2.3/8", "garbage"})
	want := []string{"127.0.0.1/32", "::1/128", "10.0.0.0/8"}
	if len(got) != len(want) {
		t.Fatalf("parsed %v, want %v", got, want)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("prefix %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestAccessPolicy_Admits(t *testing.T) {
	p := newAccessPolicy(config.RPCConfig{AllowedIPs: []string{"127.0.0.1", "10.0.0.0/8"}})
	tests := []struct {
		remote string
		want   bool
	}{
		{"127.0.0.1:5000", true},
		{"[::ffff:127.0.0.1]:5000", true},
		{"10.9.8.7:1", true},
		{"192.168.1.1:80", false},
		{"[::1]:80", false},
		{"not-an-addr", false},
	}
	for _, tt := range tests {
		if got := p.admits(tt.remote); got != tt.want {
			t.Errorf("admits(%q) = %v, want %v", tt.remote, got, tt.want)
		}
	}
	if !(accessPolicy{}).admits("203.0.113.9:1") {
		t.Error("empty allowlist should admit everyone")
	}
}

// --- CORS ---

func TestRPC_CORS_SpecificOrigin(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		CORSOrigins: []string{"http://myapp.com"},
	})

	req := Request{JSONRPC: "2.0", Method: "vault_status", ID: 1}
	body, _ := json.Marshal(req)

	// Matching origin.
	httpReq, _ := http.NewRequest("POST", env.url, bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Origin", "http://myapp.com")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "http://myapp.com" {
		t.Errorf("CORS origin = %q, want %q", origin, "http://myapp.com")
	}

	// Non-matching origin.
	httpReq2, _ := http.NewRequest("POST", env.url, bytes.NewReader(body))
	httpReq2.Header.Set("Content-Type", "application/json")
	httpReq2.Header.Set("Origin", "http://evil.com")

	resp2, err := http.DefaultClient.Do(httpReq2)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp2.Body.Close()

	if resp2.StatusCode != http.StatusForbidden {
		t.Errorf("non-matching origin status = %d, want 403", resp2.StatusCode)
	}
	if origin := resp2.Header.Get("Access-Control-Allow-Origin"); origin != "" {
		t.Errorf("non-matching origin should have no CORS header, got %q", origin)
	}
}

func TestRPC_CORS_Preflight(t *testing.T) {
	env := setupTestEnvWithConfig(t, config.RPCConfig{
		CORSOrigins: []string{"*"},
	})

	httpReq, _ := http.NewRequest("OPTIONS", env.url, nil)
	httpReq.Header.Set("Origin", "http://example.com")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("preflight should allow any origin")
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight should have Allow-Methods header")
	}
}

func TestRPC_CORS_Disabled(t *testing.T) {
	env := setupTestEnv(t)

	req := Request{JSONRPC: "2.0", Method: "vault_status", ID: 1}
	body, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest("POST", env.url, bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Origin", "http://example.com")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status with CORS disabled = %d, want 403", resp.StatusCode)
	}
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "" {
		t.Errorf("disabled CORS should have no origin header, got %q", origin)
	}
}

// --- Browser guards ---

// postWith sends a raw JSON-RPC request with the given headers. A
// non-empty host overrides the Host header.
func postWith(t *testing.T, url, method string, params interface{}, host string, headers map[string]string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(Request{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if host != "" {
		req.Host = host
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRPC_BrowserGuards(t *testing.T) {
	env := setupTestEnv(t)
	port := env.server.Addr()[strings.LastIndex(env.server.Addr(), ":")+1:]
	jsonCT := map[string]string{"Content-Type": "application/json"}

	tests := []struct {
		name    string
		host    string
		headers map[string]string
		want    int
	}{
		{"plain json", "", jsonCT, http.StatusOK},
		{"json with charset", "", map[string]string{"Content-Type": "application/json; charset=utf-8"}, http.StatusOK},
		{"localhost host", "localhost:" + port, jsonCT, http.StatusOK},
		{"ipv6 loopback host", "[::1]:" + port, jsonCT, http.StatusOK},
		{"text/plain body", "", map[string]string{"Content-Type": "text/plain"}, http.StatusUnsupportedMediaType},
		{"form body", "", map[string]string{"Content-Type": "application/x-www-form-urlencoded"}, http.StatusUnsupportedMediaType},
		{"no content type", "", nil, http.StatusUnsupportedMediaType},
		{"rebound host", "attacker-rebind.example:" + port, jsonCT, http.StatusForbidden},
		{"lan host", "192.168.1.20:" + port, jsonCT, http.StatusForbidden},
		{"foreign origin", "", map[string]string{"Content-Type": "application/json", "Origin": "https://evil.example"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postWith(t, env.url, "vault_status", nil, tt.host, tt.headers)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestRPC_BrowserCannotDriveVault(t *testing.T) {
	env, addr := setupCreatedVault(t)
	port := env.server.Addr()[strings.LastIndex(env.server.Addr(), ":")+1:]
	off := 0

	// Simple cross-origin POST: no preflight, so only the server stands
	// between the page and the handler.
	simple := map[string]string{"Content-Type": "text/plain", "Origin": "https://evil.example"}
	resp := postWith(t, env.url, "vault_updateSettings", SettingsParam{AutoLockMinutes: &off}, "", simple)
	if resp.StatusCode == http.StatusOK {
		t.Fatal("cross-origin settings change was accepted")
	}
	if !env.keystore.AutoLockArmed() {
		t.Error("auto-lock disarmed by a cross-origin request")
	}

	// DNS rebinding: same-origin from the browser's view, wrong Host.
	rebound := map[string]string{"Content-Type": "application/json"}
	resp = postWith(t, env.url, "msg_sign", SignParam{Address: addr, Message: "pay me"}, "attacker-rebind.example:"+port, rebound)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("rebound msg_sign status = %d, want 403", resp.StatusCode)
	}
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err == nil && out.Result != nil {
		t.Errorf("rebound msg_sign returned a result: %v", out.Result)
	}

	resp = postWith(t, env.url, "account_delete", AddressParam{Address: addr}, "", simple)
	if resp.StatusCode == http.StatusOK {
		t.Error("cross-origin account_delete was accepted")
	}
	if n := len(rpcCallAccounts(t, env.url)); n != 1 {
		t.Errorf("accounts = %d, want 1", n)
	}
}

func rpcCallAccounts(t *testing.T, url string) []AccountResult {
	t.Helper()
	var list []AccountResult
	decodeResult(t, rpcCall(t, url, "account_list", nil), &list)
	return list
}

func TestLoopbackHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"127.0.0.1:8547", true},
		{"127.0.0.1", true},
		{"LOCALHOST:8547", true},
		{"[::1]:8547", true},
		{"::1", true},
		{"127.8.9.10:1", true},
		{"evil.example", false},
		{"localhost.evil.example:8547", false},
		{"10.0.0.1:8547", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := loopbackHost(tt.host); got != tt.want {
			t.Errorf("loopbackHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}
