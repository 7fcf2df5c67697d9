package bconsensus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/braid-engine/braid/bcrypto"
	"github.com/braid-engine/braid/bexec"
	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/bpool"
	"github.com/braid-engine/braid/bprotocol"
	"github.com/braid-engine/braid/bstore"
	"github.com/braid-engine/braid/btime"
	"github.com/braid-engine/braid/bwatchdog"
)

// Channels are the engine's connections to its collaborators.
type Channels struct {
	// Execution is notified of blockclique and finality changes.
	Execution bexec.Controller

	// ProtocolCommands carries block propagation, wishlist updates,
	// attack notifications, and block answers to the protocol layer.
	ProtocolCommands *bprotocol.CommandSender

	// ProtocolEvents carries blocks, headers, and block requests
	// in from the protocol layer. The engine treats a close of this
	// channel as fatal.
	ProtocolEvents *bprotocol.EventReceiver

	// PoolCommands tells the pool about slot and finality progress.
	PoolCommands *bpool.CommandSender

	// Watchdog, when non-nil, monitors the kernel goroutine.
	Watchdog *bwatchdog.Watchdog
}

// Credentials hold the secrets the node stakes with.
type Credentials struct {
	// Password decrypts the staking key file named by
	// Config.StakingKeysPath.
	Password string

	// StakingKeys, when non-nil, are used directly
	// and the staking key file is not read.
	StakingKeys []bcrypto.Ed25519Signer
}

// Start launches the consensus engine: it builds the block graph,
// from the bootstrap state when one is given and from fresh genesis
// blocks otherwise, and hands it to a kernel goroutine.
//
// clockComp is added to the wall clock when deciding which slot is
// current, compensating for clock drift against the network.
//
// The engine stops when ctx is canceled or when its manager stops it.
func Start(
	ctx context.Context,
	log *slog.Logger,
	cfg Config,
	chans Channels,
	boot *Bootstrap,
	store bstore.Storage,
	clockComp time.Duration,
	creds Credentials,
) (*CommandSender, *EventReceiver, *Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	signers := creds.StakingKeys
	if signers == nil && cfg.StakingKeysPath != "" {
		var err error
		signers, err = LoadStakingKeys(cfg.StakingKeysPath, creds.Password)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load staking keys: %w", err)
		}
	}
	byAddr := make(map[bmodels.Address]bcrypto.Ed25519Signer, len(signers))
	for _, s := range signers {
		byAddr[bmodels.AddressFromPublicKey(s.PubKey())] = s
	}

	seed := cfg.GenesisKeySeed
	var rolls map[bmodels.Address]uint64
	if boot != nil && boot.POS != nil {
		rolls = boot.POS.Rolls
		if boot.POS.Seed != "" {
			seed = boot.POS.Seed
		}
	} else if cfg.InitialRollsPath != "" {
		var err error
		rolls, err = LoadInitialRolls(cfg.InitialRollsPath)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	if len(rolls) == 0 {
		return nil, nil, nil, errors.New(
			"no roll distribution: provide a bootstrap proof of stake or Config.InitialRollsPath",
		)
	}

	draws, err := newSelectionDraws(seed, rolls)
	if err != nil {
		return nil, nil, nil, err
	}

	var bootGraph *BootstrapableGraph
	if boot != nil {
		bootGraph = boot.Graph
	}

	now := btime.Now().Add(clockComp)
	currentSlot, started := bmodels.SlotAt(cfg.GenesisTimestamp, cfg.T0.Std(), cfg.ThreadCount, now)

	kCtx, cancel := context.WithCancelCause(ctx)

	graph, err := newBlockGraph(kCtx, log, cfg, store, draws, byAddr, bootGraph, currentSlot)
	if err != nil {
		cancel(err)
		return nil, nil, nil, fmt.Errorf("failed to build block graph: %w", err)
	}

	nextSlot := bmodels.Slot{}
	if started {
		nextSlot = currentSlot.NextSlot(cfg.ThreadCount)
	}

	cmds := make(chan command, cfg.ChannelSize)
	events := make(chan Event, cfg.ChannelSize)

	k := &kernel{
		log: log,
		cfg: cfg,

		graph: graph,

		clockComp: clockComp,

		cmds:   cmds,
		events: events,

		protocol: chans.ProtocolCommands,
		pEvents:  chans.ProtocolEvents.C,
		pool:     chans.PoolCommands,
		exec:     chans.Execution,

		wd: chans.Watchdog,

		nextSlot: nextSlot,

		done: make(chan struct{}),
	}
	go k.mainLoop(kCtx)

	log.Info(
		"Consensus engine started",
		"threads", cfg.ThreadCount,
		"current_slot", currentSlot,
		"staking_addresses", len(byAddr),
		"roll_holders", len(rolls),
	)

	return &CommandSender{log: log, cmds: cmds},
		&EventReceiver{C: events},
		&Manager{log: log, cancel: cancel, kernelDone: k.done},
		nil
}
