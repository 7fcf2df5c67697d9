// Package bconsensus implements the consensus engine maintaining the
// slot-sliced block graph.
//
// The engine runs as a single kernel goroutine owning all graph state.
// It consumes protocol events (blocks and headers arriving from peers,
// peers asking for blocks), reacts with protocol commands
// (propagation, wishlist updates, attack notices, block lookups),
// keeps the pool informed of slot and finality progress,
// and notifies the execution layer of blockclique changes.
package bconsensus

import (
	"errors"
	"fmt"
	"time"

	"github.com/braid-engine/braid/bassert"
	"github.com/braid-engine/braid/btime"
)

// Config carries the consensus engine settings.
// The zero value is not usable; start from [DefaultConfig].
type Config struct {
	// Number of threads slicing the slot space.
	// Addresses and blocks are assigned to threads;
	// every non-genesis block carries one parent per thread.
	ThreadCount uint8 `toml:"thread_count"`

	// Time between two slots of the same thread.
	// Must be a multiple of ThreadCount
	// so that threads tick at evenly spaced offsets.
	T0 btime.Duration `toml:"t0"`

	// Timestamp of the genesis blocks, slot (0, 0).
	GenesisTimestamp btime.Time `toml:"genesis_timestamp"`

	// Seed string for deriving the deterministic genesis block signers
	// and the selection draws.
	GenesisKeySeed string `toml:"genesis_key_seed"`

	// Accumulated descendant fitness needed before a block becomes final.
	DeltaF0 uint64 `toml:"delta_f0"`

	// Buffer size of every channel the engine creates.
	ChannelSize int `toml:"channel_size"`

	// Bound on the discarded-block cache.
	MaxDiscardedBlocks int `toml:"max_discarded_blocks"`

	// Blocks whose slot lies more than this many periods
	// past the current slot are rejected as out of sync.
	FutureBlockProcessingMaxPeriods uint64 `toml:"future_block_processing_max_periods"`

	// Bound on blocks parked while waiting for missing dependencies.
	MaxDependencyBlocks int `toml:"max_dependency_blocks"`

	// Path to the encrypted staking keys file.
	StakingKeysPath string `toml:"staking_keys_path"`

	// Path to the initial ledger file, JSON validated against
	// the ledger schema before use.
	InitialLedgerPath string `toml:"initial_ledger_path"`

	// Path to the initial roll distribution file,
	// mapping addresses to roll counts for the selection draws.
	InitialRollsPath string `toml:"initial_rolls_path"`

	// Assertion environment for debug builds.
	// The zero value disables all assertions.
	AssertEnv bassert.Env `toml:"-"`
}

// DefaultConfig returns the production defaults.
// Paths and the genesis timestamp must still be filled in by the caller.
func DefaultConfig() Config {
	return Config{
		ThreadCount: 32,
		T0:          btime.Duration(16 * time.Second),

		GenesisKeySeed: "braid-genesis-v1",

		DeltaF0: 64,

		ChannelSize:                     256,
		MaxDiscardedBlocks:              100,
		FutureBlockProcessingMaxPeriods: 100,
		MaxDependencyBlocks:             2048,
	}
}

// Validate reports every constraint violation in cfg, joined.
func (cfg Config) Validate() error {
	var err error

	if cfg.ThreadCount == 0 {
		err = errors.Join(err, errors.New("Config.ThreadCount must be positive"))
	}

	if cfg.T0 <= 0 {
		err = errors.Join(err, errors.New("Config.T0 must be positive"))
	} else if cfg.ThreadCount > 0 && cfg.T0.Std()%(time.Duration(cfg.ThreadCount)*time.Millisecond) != 0 {
		err = errors.Join(err, fmt.Errorf(
			"Config.T0 (%s) must be a whole number of milliseconds divisible by Config.ThreadCount (%d)",
			cfg.T0, cfg.ThreadCount,
		))
	}

	if cfg.GenesisKeySeed == "" {
		err = errors.Join(err, errors.New("Config.GenesisKeySeed must not be empty"))
	}

	if cfg.DeltaF0 == 0 {
		err = errors.Join(err, errors.New("Config.DeltaF0 must be positive"))
	}

	if cfg.ChannelSize <= 0 {
		err = errors.Join(err, errors.New("Config.ChannelSize must be positive"))
	}

	if cfg.MaxDiscardedBlocks <= 0 {
		err = errors.Join(err, errors.New("Config.MaxDiscardedBlocks must be positive"))
	}

	if cfg.MaxDependencyBlocks <= 0 {
		err = errors.Join(err, errors.New("Config.MaxDependencyBlocks must be positive"))
	}

	return err
}
