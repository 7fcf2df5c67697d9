// Package bci implements the braid node command line interface.
package bci

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/braid-engine/braid/bconsensus"
	"github.com/braid-engine/braid/btime"
)

// NodeConfig is the whole node configuration, stored as one TOML file
// in the node's home directory.
type NodeConfig struct {
	// Address the node status HTTP API listens on.
	// Empty disables the API.
	APIListenAddr string `toml:"api_listen_addr"`

	// ClockCompensation is added to the wall clock when deciding
	// which slot is current, compensating for drift against the
	// network.
	ClockCompensation btime.Duration `toml:"clock_compensation"`

	Consensus bconsensus.Config `toml:"consensus"`
}

// DefaultNodeConfig returns the node defaults, with every file path
// rooted in homeDir. The genesis timestamp is left unset.
func DefaultNodeConfig(homeDir string) NodeConfig {
	cfg := bconsensus.DefaultConfig()
	cfg.StakingKeysPath = filepath.Join(homeDir, "staking_keys.json")
	cfg.InitialRollsPath = filepath.Join(homeDir, "initial_rolls.json")
	cfg.InitialLedgerPath = filepath.Join(homeDir, "initial_ledger.json")

	return NodeConfig{
		APIListenAddr: "127.0.0.1:33035",
		Consensus:     cfg,
	}
}

// ConfigPath names the node config file inside homeDir.
func ConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.toml")
}

// LoadNodeConfig reads and decodes the TOML config at path.
// Keys the config does not recognize are an error, so that a typo in
// a setting name cannot silently fall back to a default.
func LoadNodeConfig(path string) (NodeConfig, error) {
	var cfg NodeConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return NodeConfig{}, fmt.Errorf(
			"config file %s has unknown keys: %v", path, undecoded,
		)
	}
	return cfg, nil
}

// WriteNodeConfig writes cfg as TOML to path.
// It refuses to overwrite an existing file.
func WriteNodeConfig(path string, cfg NodeConfig) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode config file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close config file %s: %w", path, err)
	}
	return nil
}
