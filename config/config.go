// Package config handles coinforge configuration.
//
// Settings are layered, later layers winning:
//   - Defaults for the selected network
//   - The coinforge.conf file in the data directory
//   - COINFORGE_* environment variables
//   - Command-line flags
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies the ledger network.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
	Devnet  NetworkType = "devnet"
)

// EnvPrefix prefixes every environment override, e.g. COINFORGE_RPC_URL.
const EnvPrefix = "COINFORGE"

// =============================================================================
// Configuration
// =============================================================================

// Config holds runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`
	Owner   string      `conf:"owner"` // Wallet address whose coins are managed

	// Ledger JSON-RPC endpoint
	RPC RPCConfig

	// Gas budgets and price polling
	Gas GasConfig

	// Zero-balance cleanup
	Burn BurnConfig

	// External signer
	Signer SignerConfig

	// Notifications
	Notify NotifyConfig

	// Prometheus exposition
	Metrics MetricsConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds ledger endpoint settings.
type RPCConfig struct {
	URL         string        `conf:"rpc.url"`
	Timeout     time.Duration `conf:"rpc.timeout"`
	PageLimit   int           `conf:"rpc.pagelimit"`   // Items per page request
	Concurrency int           `conf:"rpc.concurrency"` // Coin types fetched in parallel
}

// GasConfig holds gas settings.
type GasConfig struct {
	Budget BudgetConfig
	Poll   time.Duration `conf:"gas.poll"` // Reference price refresh interval
}

// BudgetConfig holds per-task-kind gas budgets in gas-coin base units.
type BudgetConfig struct {
	Merge    uint64 `conf:"gas.budget.merge"`
	Split    uint64 `conf:"gas.budget.split"`
	Transfer uint64 `conf:"gas.budget.transfer"`
	Burn     uint64 `conf:"gas.budget.burn"`
	Object   uint64 `conf:"gas.budget.object"`
}

// BurnConfig holds zero-balance cleanup settings.
type BurnConfig struct {
	MaxBatch int `conf:"burn.maxbatch"`
}

// SignerConfig holds the external signer command line.
type SignerConfig struct {
	Command string `conf:"signer.command"`
}

// NotifyConfig holds notification settings.
type NotifyConfig struct {
	Desktop bool `conf:"notify.desktop"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Addr string `conf:"metrics.addr"` // Empty disables the endpoint
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.coinforge
//	macOS:   ~/Library/Application Support/Coinforge
//	Windows: %APPDATA%\Coinforge
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".coinforge"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Coinforge")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Coinforge")
		}
		return filepath.Join(home, "AppData", "Roaming", "Coinforge")
	default:
		return filepath.Join(home, ".coinforge")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// QueueDir returns the task queue database directory.
func (c *Config) QueueDir() string {
	return filepath.Join(c.NetworkDataDir(), "queue")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "coinforge.conf")
}
