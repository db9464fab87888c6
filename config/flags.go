package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Flags holds parsed global command-line flags. Parsing stops at the first
// non-flag argument, which starts the subcommand.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string
	Owner   string

	// RPC
	RPCURL string

	// Signer
	Signer string

	// Metrics
	MetricsAddr string

	// Notifications
	Desktop bool

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args (subcommand and its flags)
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetDesktop bool
	SetLogJSON bool
}

// ParseFlags parses global flags from args (without the program name).
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("coinforge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet, testnet or devnet)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")
	fs.StringVar(&f.Owner, "owner", "", "Wallet address whose coins are managed")

	// RPC
	fs.StringVar(&f.RPCURL, "rpc", "", "Ledger JSON-RPC endpoint")

	// Signer
	fs.StringVar(&f.Signer, "signer", "", "External signer command")

	// Metrics
	fs.StringVar(&f.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	// Notifications
	fs.BoolVar(&f.Desktop, "desktop-notify", false, "Also show desktop notifications")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f.SetDesktop = isFlagSet(fs, "desktop-notify")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()
	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(f.Network))
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.Owner != "" {
		cfg.Owner = f.Owner
	}

	// RPC
	if f.RPCURL != "" {
		cfg.RPC.URL = f.RPCURL
	}

	// Signer
	if f.Signer != "" {
		cfg.Signer.Command = f.Signer
	}

	// Metrics
	if f.MetricsAddr != "" {
		cfg.Metrics.Addr = f.MetricsAddr
	}

	// Notifications
	if f.SetDesktop {
		cfg.Notify.Desktop = f.Desktop
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// GlobalUsage describes the global flags.
const GlobalUsage = `Global flags:
  --network <net>       mainnet (default), testnet or devnet
  --datadir <path>      Data directory (default: ~/.coinforge)
  --config, -c <path>   Config file (default: <datadir>/coinforge.conf)
  --owner <address>     Wallet address whose coins are managed
  --rpc <url>           Ledger JSON-RPC endpoint
  --signer <command>    External signer command
  --metrics-addr <addr> Serve Prometheus metrics (gas watch only)
  --desktop-notify      Also show desktop notifications
  --log-level <level>   debug, info, warn (default) or error
  --log-file <path>     Also write JSON logs to this file
  --log-json            Output logs as JSON
`

// Load builds the configuration from args with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Environment
// 5. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, err
	}
	if flags.Help || flags.Version {
		return nil, flags, nil
	}

	dataDir := flags.DataDir
	if dataDir == "" {
		dataDir = os.Getenv(EnvPrefix + "_DATADIR")
	}
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = (&Config{DataDir: dataDir}).ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}

	// Determine network first (needed for defaults).
	network := flags.Network
	if network == "" {
		network = os.Getenv(EnvPrefix + "_NETWORK")
	}
	if network == "" {
		network = fileValues["network"]
	}
	cfg := Default(NetworkType(strings.ToLower(network)))
	cfg.DataDir = dataDir

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, nil, err
	}

	// Flags have the highest precedence.
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.QueueDir(),
		cfg.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
