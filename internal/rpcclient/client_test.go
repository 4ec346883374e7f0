package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Klingon-tech/klingvault/config"
	"github.com/Klingon-tech/klingvault/internal/clock"
	klog "github.com/Klingon-tech/klingvault/internal/log"
	"github.com/Klingon-tech/klingvault/internal/rpc"
	"github.com/Klingon-tech/klingvault/internal/storage"
	"github.com/Klingon-tech/klingvault/internal/vault"
	"github.com/Klingon-tech/klingvault/internal/wallet"
	"github.com/rs/zerolog"
)

const testPassword = "hunter2"

type testEnv struct {
	client   *Client
	keystore *vault.Keystore
	address  string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	nop := zerolog.Nop()
	ks := vault.NewKeystore(storage.NewMemoryStore(), vault.Options{
		KDF:    wallet.KDFParams{Algorithm: wallet.KDFPBKDF2, Iterations: 1000},
		Clock:  clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Logger: &nop,
	})
	if _, err := ks.CreateVault([]byte(testPassword)); err != nil {
		t.Fatalf("create vault: %v", err)
	}
	t.Cleanup(ks.Lock)
	accounts, err := ks.GetAccounts()
	if err != nil {
		t.Fatalf("get accounts: %v", err)
	}

	srv := rpc.New("127.0.0.1:0", ks)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	url := "http://" + srv.Addr() + "/"
	return &testEnv{
		client:   New(url),
		keystore: ks,
		address:  accounts[0].Address,
	}
}

func TestClient_Status(t *testing.T) {
	env := setupTestEnv(t)

	status, err := env.client.Status()
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if !status.Initialized || !status.Unlocked || status.Accounts != 1 {
		t.Errorf("status = %+v", status)
	}
}

func TestClient_SignVerify(t *testing.T) {
	env := setupTestEnv(t)

	msg := []byte{0x00, 0xff, 'h', 'i'}
	sig, err := env.client.Sign(env.address, msg)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	if !vault.Verify(env.address, msg, sig) {
		t.Error("signature from daemon does not verify")
	}
}

func TestClient_LockUnlock(t *testing.T) {
	env := setupTestEnv(t)

	if err := env.client.Lock(); err != nil {
		t.Fatalf("Lock error: %v", err)
	}
	_, err := env.client.Sign(env.address, []byte("x"))
	if !IsCode(err, rpc.CodeVaultLocked) {
		t.Fatalf("Sign while locked = %v, want vault locked", err)
	}
	if err := env.client.Touch(); !IsCode(err, rpc.CodeVaultLocked) {
		t.Errorf("Touch while locked = %v, want vault locked", err)
	}

	if err := env.client.Unlock([]byte("wrong")); !IsCode(err, rpc.CodeIncorrectPassword) {
		t.Fatalf("Unlock(wrong) = %v, want incorrect password", err)
	}
	if err := env.client.Unlock([]byte(testPassword)); err != nil {
		t.Fatalf("Unlock error: %v", err)
	}
	if !env.keystore.IsUnlocked() {
		t.Error("keystore should be unlocked")
	}
	if err := env.client.Touch(); err != nil {
		t.Errorf("Touch error: %v", err)
	}
}

func TestClient_Accounts(t *testing.T) {
	env := setupTestEnv(t)

	acct, err := env.client.CreateAccount(rpc.AccountCreateParam{Name: "Second"})
	if err != nil {
		t.Fatalf("CreateAccount error: %v", err)
	}
	accounts, err := env.client.Accounts()
	if err != nil {
		t.Fatalf("Accounts error: %v", err)
	}
	if len(accounts) != 2 || accounts[0].Address != env.address || accounts[1].Address != acct.Address {
		t.Errorf("accounts = %+v", accounts)
	}
}

func TestClient_Call_InvalidEndpoint(t *testing.T) {
	client := NewWithTimeout("http://127.0.0.1:1/", time.Second) // port 1, should refuse

	if _, err := client.Status(); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestClient_Call_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)

	var raw json.RawMessage
	err := env.client.Call("nonexistent_method", nil, &raw)
	if err == nil {
		t.Fatal("expected error for unknown method")
	}

	var rpcErr *RPCError
	ok := errors.As(err, &rpcErr)
	if !ok {
		t.Fatalf("expected RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != -32601 {
		t.Errorf("error code = %d, want -32601", rpcErr.Code)
	}
	if IsCode(err, rpc.CodeVaultLocked) {
		t.Error("IsCode matched the wrong code")
	}
}

func TestClient_Forbidden(t *testing.T) {
	env := setupTestEnv(t)
	srv := rpc.New("127.0.0.1:0", env.keystore, config.RPCConfig{AllowedIPs: []string{"10.0.0.1"}})
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	_, err := New("http://" + srv.Addr() + "/").Status()
	if err == nil {
		t.Fatal("expected error from filtered daemon")
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		t.Errorf("403 reported as rpc error %v", rpcErr)
	}
}

func TestClient_CallContextCanceled(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := env.client.CallContext(ctx, "vault_status", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("CallContext() = %v, want context.Canceled", err)
	}
}

func TestClient_RequestIDs(t *testing.T) {
	env := setupTestEnv(t)
	for i := 0; i < 3; i++ {
		if _, err := env.client.Status(); err != nil {
			t.Fatalf("Status #%d error: %v", i, err)
		}
	}
	if got := env.client.nextID.Load(); got != 3 {
		t.Errorf("nextID = %d, want 3", got)
	}
}
