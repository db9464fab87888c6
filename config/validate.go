package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Network {
	case Mainnet, Testnet, Devnet:
	default:
		return fmt.Errorf("network must be %q, %q or %q", Mainnet, Testnet, Devnet)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir is empty")
	}
	if cfg.Owner != "" {
		if _, err := types.ParseAddress(cfg.Owner); err != nil {
			return fmt.Errorf("owner: %w", err)
		}
	}

	u, err := url.Parse(cfg.RPC.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("rpc.url must be an http(s) URL")
	}
	if cfg.RPC.Timeout <= 0 {
		return fmt.Errorf("rpc.timeout must be positive")
	}
	if cfg.RPC.PageLimit < 1 {
		return fmt.Errorf("rpc.pagelimit must be at least 1")
	}
	if cfg.RPC.Concurrency < 1 {
		return fmt.Errorf("rpc.concurrency must be at least 1")
	}

	b := cfg.Gas.Budget
	for name, v := range map[string]uint64{
		"merge": b.Merge, "split": b.Split, "transfer": b.Transfer, "burn": b.Burn, "object": b.Object,
	} {
		if v == 0 {
			return fmt.Errorf("gas.budget.%s must be positive", name)
		}
	}
	if cfg.Gas.Poll < time.Second {
		return fmt.Errorf("gas.poll must be at least 1s")
	}

	if cfg.Burn.MaxBatch < 1 || cfg.Burn.MaxBatch > MaxBurnBatch {
		return fmt.Errorf("burn.maxbatch must be in range [1, %d]", MaxBurnBatch)
	}

	if cfg.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
			return fmt.Errorf("metrics.addr: %w", err)
		}
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !logLevels[cfg.Log.Level] {
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}
