// Klingvault daemon: keeps one vault open behind a loopback JSON-RPC
// server so local applications can sign without handling the password
// themselves.
//
// Usage:
//
//	vaultd [--testnet] [--rpc-port=...]   Run daemon
//	vaultd --help                         Show help
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/klingvault/config"
	klog "github.com/Klingon-tech/klingvault/internal/log"
	"github.com/Klingon-tech/klingvault/internal/rpc"
	"github.com/Klingon-tech/klingvault/internal/vault"
)

const version = "0.1.0"

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if flags.Help {
		usage()
		return
	}
	if flags.Version {
		fmt.Printf("vaultd version %s\n", version)
		return
	}

	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "Error: init logging: %v\n", err)
		os.Exit(1)
	}
	logger := klog.WithComponent("vaultd")

	store, err := cfg.OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open store: %v\n", err)
		os.Exit(1)
	}
	settings := cfg.VaultSettings()
	ks := vault.NewKeystore(store, vault.Options{
		VaultID:       cfg.Vault.ID,
		KDF:           cfg.KDFParams(),
		Settings:      &settings,
		MnemonicWords: cfg.Vault.MnemonicWords,
	})

	srv := rpc.New(cfg.RPC.ListenAddr(), ks, cfg.RPC)
	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		store.Close()
		os.Exit(1)
	}
	logger.Info().
		Str("network", string(cfg.Network)).
		Str("backend", cfg.Vault.Backend).
		Str("vault", cfg.Vault.ID).
		Str("endpoint", cfg.RPC.Endpoint()).
		Msg("Vault daemon started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Shutting down")

	// Lock first so no key outlives a slow shutdown.
	ks.Lock()
	if err := srv.Stop(); err != nil {
		logger.Error().Err(err).Msg("Stop RPC server")
	}
	if err := store.Close(); err != nil {
		logger.Error().Err(err).Msg("Close store")
	}
}

func usage() {
	fmt.Print(`vaultd - Klingvault signing daemon

Usage:
  vaultd [options]

The daemon starts locked. Unlock it with "vaultctl --daemon unlock" or the
vault_unlock RPC method; it locks again after the vault's auto-lock
timeout and on shutdown. Seed export and vault deletion are only
available through vaultctl without --daemon.

Core Options:
  --network       Network type: mainnet or testnet (default: mainnet)
  --testnet       Shorthand for --network=testnet
  --datadir       Data directory (default: ~/.klingvault)
  --config, -c    Config file path

Vault Options:
  --vault         Vault name inside the store (default: default)
  --backend       Storage backend: file, badger or memory (default: file)
  --autolock      Auto-lock minutes for new vaults (default: 15)
  --kdf           pbkdf2-sha256 or argon2id

RPC Options:
  --rpc-addr      Loopback listen address (default: 127.0.0.1)
  --rpc-port      RPC port (mainnet: 8547, testnet: 8647)
  --rpc-allowed   Allowed IPs for RPC (comma-separated)
  --rpc-cors      Allowed CORS origins for RPC (comma-separated)

Logging:
  --log-level     debug, info, warn, error or off (default: info)
  --log-file      Log file path
  --log-json      Output logs as JSON
`)
}
