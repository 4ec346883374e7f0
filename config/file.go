package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	applyKDFDefaults(cfg)
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(strings.ToLower(value))
	case "datadir":
		cfg.DataDir = value

	// Vault
	case "vault.id":
		cfg.Vault.ID = value
	case "vault.backend":
		cfg.Vault.Backend = strings.ToLower(value)
	case "vault.autolock":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Vault.AutoLockMinutes = n
	case "vault.words":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Vault.MnemonicWords = n

	// Key derivation
	case "kdf.algorithm", "kdf":
		cfg.Vault.KDF = strings.ToLower(value)
	case "kdf.iterations":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Vault.KDFIterations = uint32(n)
	case "kdf.memory":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Vault.Argon2Memory = uint32(n)
	case "kdf.parallelism":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return err
		}
		cfg.Vault.Argon2Parallelism = uint8(n)

	// RPC
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.Port = port
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	content := `# Klingvault Configuration
#
# Auto-lock and network below only seed NEW vaults. An existing vault
# keeps its own settings; change them with "vaultctl settings".

# Network for address rendering: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.klingvault)
# datadir = ~/.klingvault

# ============================================================================
# Vault
# ============================================================================

# Vault name inside the store
vault.id = default

# Storage backend: file (one file per vault), badger or memory
vault.backend = file

# Lock after this many idle minutes (0 disables auto-lock)
vault.autolock = 15

# Recovery phrase length for new vaults: 12 or 24
vault.words = 24

# ============================================================================
# Key Derivation
# ============================================================================

# pbkdf2-sha256 or argon2id. A password change never weakens the
# parameters a vault already uses.
kdf.algorithm = pbkdf2-sha256
kdf.iterations = 310000

# argon2id only
# kdf.memory = 65536
# kdf.parallelism = 4

# ============================================================================
# Daemon RPC (vaultd)
# ============================================================================

# Loopback only: 127.0.0.1, ::1 or localhost
rpc.addr = 127.0.0.1
rpc.port = ` + defaultRPCPort(network) + `
rpc.allowed = 127.0.0.1,::1
# Allowed CORS origins (comma-separated, "*" = all)
# rpc.cors = http://localhost:3000

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0600)
}

func defaultRPCPort(network NetworkType) string {
	if network == Testnet {
		return "8647"
	}
	return "8547"
}
