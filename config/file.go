package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads configuration values from a .conf file.
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

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

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
	return nil
}

// setConfigValue sets one config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	var err error
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(strings.ToLower(value))
	case "datadir":
		cfg.DataDir = value
	case "owner":
		cfg.Owner = value

	// RPC
	case "rpc.url", "rpc":
		cfg.RPC.URL = value
	case "rpc.timeout":
		cfg.RPC.Timeout, err = time.ParseDuration(value)
	case "rpc.pagelimit":
		cfg.RPC.PageLimit, err = strconv.Atoi(value)
	case "rpc.concurrency":
		cfg.RPC.Concurrency, err = strconv.Atoi(value)

	// Gas
	case "gas.budget.merge":
		cfg.Gas.Budget.Merge, err = strconv.ParseUint(value, 10, 64)
	case "gas.budget.split":
		cfg.Gas.Budget.Split, err = strconv.ParseUint(value, 10, 64)
	case "gas.budget.transfer":
		cfg.Gas.Budget.Transfer, err = strconv.ParseUint(value, 10, 64)
	case "gas.budget.burn":
		cfg.Gas.Budget.Burn, err = strconv.ParseUint(value, 10, 64)
	case "gas.budget.object":
		cfg.Gas.Budget.Object, err = strconv.ParseUint(value, 10, 64)
	case "gas.poll":
		cfg.Gas.Poll, err = time.ParseDuration(value)

	// Burn
	case "burn.maxbatch":
		cfg.Burn.MaxBatch, err = strconv.Atoi(value)

	// Signer
	case "signer.command", "signer":
		cfg.Signer.Command = value

	// Notifications
	case "notify.desktop":
		cfg.Notify.Desktop = parseBool(value)

	// Metrics
	case "metrics.addr":
		cfg.Metrics.Addr = value

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
	return err
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	d := Default(network)
	content := `# coinforge configuration
#
# Every key can also be set through the environment, e.g.
#   COINFORGE_RPC_URL, COINFORGE_GAS_BUDGET_MERGE, COINFORGE_LOG_LEVEL

# Network: mainnet, testnet or devnet
network = ` + string(network) + `

# Data directory (default: ~/.coinforge)
# datadir = ~/.coinforge

# Wallet address whose coins are managed
# owner = 0x...

# ============================================================================
# Ledger RPC
# ============================================================================

# Defaults to the public full node of the selected network.
# rpc.url = ` + d.RPC.URL + `
rpc.timeout = 30s
# rpc.pagelimit = 50
# rpc.concurrency = 4

# ============================================================================
# Gas (base units of the gas coin)
# ============================================================================

gas.budget.merge = 2000000000
gas.budget.split = 2000000000
gas.budget.transfer = 500000000
gas.budget.burn = 1000000000
gas.budget.object = 500000000

# Reference gas price refresh interval
gas.poll = 60s

# ============================================================================
# Zero-balance cleanup
# ============================================================================

# Maximum coins destroyed per transaction (1-1024)
burn.maxbatch = 1024

# ============================================================================
# Signer
# ============================================================================

# External command that simulates, signs and submits transactions.
# It receives "simulate", "submit" or "wait" as its last argument.
# signer.command = /usr/local/bin/sui-signer --keystore ~/.sui/sui.keystore

# ============================================================================
# Notifications and metrics
# ============================================================================

notify.desktop = false
# metrics.addr = 127.0.0.1:9464

# ============================================================================
# Logging
# ============================================================================

log.level = warn
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
