// Package config handles vaultctl and vaultd configuration.
//
// Settings come from three layers, later ones winning: built-in defaults,
// the key = value config file in the data directory, and command-line
// flags. Per-vault preferences that travel with the vault (auto-lock,
// default network) are stored in the vault record itself; the values
// here only seed new vaults.
package config

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/Klingon-tech/klingvault/internal/storage"
	"github.com/Klingon-tech/klingvault/internal/vault"
	"github.com/Klingon-tech/klingvault/internal/wallet"
	"github.com/Klingon-tech/klingvault/pkg/types"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = types.Mainnet
	Testnet NetworkType = types.Testnet
)

// Config holds vaultctl and vaultd runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Vault storage and key derivation
	Vault VaultConfig

	// Daemon RPC server
	RPC RPCConfig

	// Logging
	Log LogConfig
}

// VaultConfig holds vault settings.
type VaultConfig struct {
	ID              string `conf:"vault.id"`
	Backend         string `conf:"vault.backend"` // memory, file or badger
	AutoLockMinutes int    `conf:"vault.autolock"`
	MnemonicWords   int    `conf:"vault.words"`

	// KDF for new vaults and password changes.
	KDF               string `conf:"kdf.algorithm"`
	KDFIterations     uint32 `conf:"kdf.iterations"`
	Argon2Memory      uint32 `conf:"kdf.memory"` // KiB
	Argon2Parallelism uint8  `conf:"kdf.parallelism"`
}

// RPCConfig holds the vaultd RPC server settings. The server only binds
// to loopback addresses.
type RPCConfig struct {
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// ListenAddr returns the host:port the RPC server binds to.
func (r RPCConfig) ListenAddr() string {
	return net.JoinHostPort(r.Addr, strconv.Itoa(r.Port))
}

// Endpoint returns the URL clients use to reach the RPC server.
func (r RPCConfig) Endpoint() string {
	return "http://" + r.ListenAddr() + "/"
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// KDFParams returns the key derivation parameters for new vaults.
func (c *Config) KDFParams() wallet.KDFParams {
	switch c.Vault.KDF {
	case wallet.KDFArgon2id:
		return wallet.KDFParams{
			Algorithm:   wallet.KDFArgon2id,
			Iterations:  c.Vault.KDFIterations,
			Memory:      c.Vault.Argon2Memory,
			Parallelism: c.Vault.Argon2Parallelism,
		}
	default:
		return wallet.KDFParams{Algorithm: wallet.KDFPBKDF2, Iterations: c.Vault.KDFIterations}
	}
}

// VaultSettings returns the settings given to newly created vaults.
func (c *Config) VaultSettings() vault.Settings {
	return vault.Settings{
		AutoLockMinutes: c.Vault.AutoLockMinutes,
		DefaultNetwork:  string(c.Network),
	}
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingvault
//	macOS:   ~/Library/Application Support/Klingvault
//	Windows: %APPDATA%\Klingvault
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingvault"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Klingvault")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Klingvault")
		}
		return filepath.Join(home, "AppData", "Roaming", "Klingvault")
	default:
		return filepath.Join(home, ".klingvault")
	}
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingvault.conf")
}

// OpenStore opens the configured vault store.
func (c *Config) OpenStore() (storage.BlobStore, error) {
	return storage.Open(c.Vault.Backend, c.DataDir)
}
