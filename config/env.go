package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// ApplyEnv applies COINFORGE_* environment overrides. Names follow the
// struct path, e.g. COINFORGE_RPC_URL or COINFORGE_GAS_BUDGET_MERGE. Unset
// variables leave the current values alone.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("failed to process env var: %w", err)
	}
	return nil
}
