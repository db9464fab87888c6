package config

import "time"

// Stock gas budgets, in gas-coin base units.
const (
	DefaultMergeBudget    = 2_000_000_000
	DefaultSplitBudget    = 2_000_000_000
	DefaultTransferBudget = 500_000_000
	DefaultBurnBudget     = 1_000_000_000
	DefaultObjectBudget   = 500_000_000
)

// MaxBurnBatch caps how many coins one cleanup transaction destroys.
const MaxBurnBatch = 1024

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		RPC: RPCConfig{
			URL:         "https://fullnode.mainnet.sui.io:443",
			Timeout:     30 * time.Second,
			PageLimit:   50,
			Concurrency: 4,
		},
		Gas: GasConfig{
			Budget: BudgetConfig{
				Merge:    DefaultMergeBudget,
				Split:    DefaultSplitBudget,
				Transfer: DefaultTransferBudget,
				Burn:     DefaultBurnBudget,
				Object:   DefaultObjectBudget,
			},
			Poll: 60 * time.Second,
		},
		Burn: BurnConfig{
			MaxBatch: MaxBurnBatch,
		},
		Notify: NotifyConfig{
			Desktop: false,
		},
		Log: LogConfig{
			Level: "warn",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.RPC.URL = "https://fullnode.testnet.sui.io:443"
	return cfg
}

// DefaultDevnet returns the default configuration for devnet.
func DefaultDevnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Devnet
	cfg.RPC.URL = "https://fullnode.devnet.sui.io:443"
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	case Devnet:
		return DefaultDevnet()
	default:
		return DefaultMainnet()
	}
}
