package config

import (
	"fmt"
	"net"

	klog "github.com/Klingon-tech/klingvault/internal/log"
	"github.com/Klingon-tech/klingvault/internal/storage"
	"github.com/Klingon-tech/klingvault/internal/wallet"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.DataDir == "" && cfg.Vault.Backend != storage.BackendMemory {
		return fmt.Errorf("datadir is required for the %s backend", cfg.Vault.Backend)
	}

	switch cfg.Vault.Backend {
	case storage.BackendFile, storage.BackendBadger, storage.BackendMemory:
	default:
		return fmt.Errorf("vault.backend must be %s, %s or %s",
			storage.BackendFile, storage.BackendBadger, storage.BackendMemory)
	}
	if cfg.Vault.ID == "" {
		return fmt.Errorf("vault.id is required")
	}
	if cfg.Vault.AutoLockMinutes < 0 {
		return fmt.Errorf("vault.autolock must not be negative")
	}
	if w := cfg.Vault.MnemonicWords; w != wallet.MnemonicWords12 && w != wallet.MnemonicWords24 {
		return fmt.Errorf("vault.words must be %d or %d", wallet.MnemonicWords12, wallet.MnemonicWords24)
	}

	kdf := cfg.KDFParams()
	if err := kdf.Validate(); err != nil {
		return fmt.Errorf("kdf: %w", err)
	}
	if kdf.Algorithm == wallet.KDFPBKDF2 && kdf.Iterations < wallet.MinPBKDF2Iterations {
		return fmt.Errorf("kdf.iterations must be at least %d for %s", wallet.MinPBKDF2Iterations, wallet.KDFPBKDF2)
	}

	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	if !isLoopback(cfg.RPC.Addr) {
		return fmt.Errorf("rpc.addr %q must be a loopback address", cfg.RPC.Addr)
	}
	for _, entry := range cfg.RPC.AllowedIPs {
		if net.ParseIP(entry) == nil {
			if _, _, err := net.ParseCIDR(entry); err != nil {
				return fmt.Errorf("rpc.allowed: %q is not an IP or CIDR", entry)
			}
		}
	}

	if !klog.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
