package config

import (
	"github.com/Klingon-tech/klingvault/internal/storage"
	"github.com/Klingon-tech/klingvault/internal/vault"
	"github.com/Klingon-tech/klingvault/internal/wallet"
)

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	settings := vault.DefaultSettings()
	kdf := wallet.DefaultKDFParams()
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Vault: VaultConfig{
			ID:              vault.DefaultVaultID,
			Backend:         storage.BackendFile,
			AutoLockMinutes: settings.AutoLockMinutes,
			MnemonicWords:   wallet.MnemonicWords24,
			KDF:             kdf.Algorithm,
			KDFIterations:   kdf.Iterations,
		},
		RPC: RPCConfig{
			Addr:       "127.0.0.1",
			Port:       8547,
			AllowedIPs: []string{"127.0.0.1", "::1"},
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.RPC.Port = 8647
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}

// applyKDFDefaults fills the work factors a KDF switch leaves unset.
func applyKDFDefaults(cfg *Config) {
	switch cfg.Vault.KDF {
	case wallet.KDFArgon2id:
		d := wallet.DefaultArgon2Params()
		if cfg.Vault.KDFIterations == 0 || cfg.Vault.KDFIterations == wallet.DefaultPBKDF2Iterations {
			cfg.Vault.KDFIterations = d.Iterations
		}
		if cfg.Vault.Argon2Memory == 0 {
			cfg.Vault.Argon2Memory = d.Memory
		}
		if cfg.Vault.Argon2Parallelism == 0 {
			cfg.Vault.Argon2Parallelism = d.Parallelism
		}
	case wallet.KDFPBKDF2:
		if cfg.Vault.KDFIterations == 0 {
			cfg.Vault.KDFIterations = wallet.DefaultPBKDF2Iterations
		}
	}
}
