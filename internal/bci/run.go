package bci

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/braid-engine/braid/bapi"
	"github.com/braid-engine/braid/bconsensus"
	"github.com/braid-engine/braid/bcrypto"
	"github.com/braid-engine/braid/bexec"
	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/bpool"
	"github.com/braid-engine/braid/bprotocol"
	"github.com/braid-engine/braid/bstore"
	"github.com/braid-engine/braid/bstore/bsqlitestore"
	"github.com/braid-engine/braid/btime"
	"github.com/braid-engine/braid/bwatchdog"
)

// stopTimeout bounds how long a shutting-down node waits for the
// consensus kernel to exit.
const stopTimeout = 5 * time.Second

// runNode wires up and runs the whole node: storage, watchdog,
// consensus engine, and the status API, until ctx is canceled.
//
// There is no peer-to-peer layer yet, so outbound protocol, pool, and
// execution traffic is logged and dropped; the node is a
// self-contained single-participant network.
func runNode(
	ctx context.Context,
	log *slog.Logger,
	homeDir string,
	cfg NodeConfig,
	password string,
	ephemeral bool,
) error {
	if cfg.Consensus.GenesisTimestamp == 0 {
		return errors.New("config has no genesis timestamp; run braid init or set consensus.genesis_timestamp")
	}

	fl := flock.New(filepath.Join(homeDir, "braid.lock"))
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock home directory: %w", err)
	}
	if !locked {
		return fmt.Errorf("home directory %s is in use by another process", homeDir)
	}
	defer fl.Unlock()

	if cfg.Consensus.InitialLedgerPath != "" {
		ledger, err := LoadInitialLedger(cfg.Consensus.InitialLedgerPath)
		if err != nil {
			return err
		}
		log.Info("Validated initial ledger", "accounts", len(ledger))
	}

	// We need a cancelable context if we fail partway through setup.
	// Be sure to defer cancel() after other deferred close and
	// cleanup calls, for types dependent on a parent context
	// cancellation.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var store bstore.Storage
	if ephemeral {
		ms, err := bsqlitestore.NewInMemStore(ctx)
		if err != nil {
			return fmt.Errorf("failed to open in-memory block store: %w", err)
		}
		defer closeStore(log, ms)
		store = ms
	} else {
		dbPath := filepath.Join(homeDir, "blocks.db")
		ds, err := bsqlitestore.NewOnDiskStore(ctx, dbPath)
		if err != nil {
			return fmt.Errorf("failed to open block store at %s: %w", dbPath, err)
		}
		defer closeStore(log, ds)
		store = ds
	}

	// Just reassign ctx here because we will not have any further
	// references to the root context, other than explicit cancel
	// calls to ensure clean shutdown.
	wd, ctx := bwatchdog.NewWatchdog(ctx, log.With("sys", "watchdog"))
	defer wd.Wait()
	defer cancel()

	signers, err := loadConfiguredStakingKeys(cfg.Consensus.StakingKeysPath, password)
	if err != nil {
		return err
	}

	protoCmds, protoCmdCh, _, protoEvts := bprotocol.NewChannelPair(
		log.With("sys", "protocol"), cfg.Consensus.ChannelSize,
	)
	poolCmds, poolCmdCh := bpool.NewChannelPair(
		log.With("sys", "pool"), cfg.Consensus.ChannelSize,
	)
	execCtrl, execReqCh := bexec.NewChannelController(
		log.With("sys", "execution"), cfg.Consensus.ChannelSize,
	)

	go drainProtocolCommands(ctx, log.With("sys", "protocol"), protoCmdCh)
	go drainPoolCommands(ctx, log.With("sys", "pool"), poolCmdCh)
	go drainExecutionRequests(ctx, log.With("sys", "execution"), execReqCh)

	consensusCfg := cfg.Consensus
	consensusCfg.AssertEnv = assertEnvFromOS(log)

	cmds, evs, mgr, err := bconsensus.Start(
		ctx,
		log.With("sys", "consensus"),
		consensusCfg,
		bconsensus.Channels{
			Execution:        execCtrl,
			ProtocolCommands: protoCmds,
			ProtocolEvents:   protoEvts,
			PoolCommands:     poolCmds,
			Watchdog:         wd,
		},
		nil,
		store,
		cfg.ClockCompensation.Std(),
		bconsensus.Credentials{Password: password, StakingKeys: signers},
	)
	if err != nil {
		return fmt.Errorf("failed to start consensus engine: %w", err)
	}

	go logEngineEvents(ctx, log.With("sys", "consensus"), evs.C)

	if cfg.APIListenAddr != "" {
		ln, err := (new(net.ListenConfig)).Listen(ctx, "tcp", cfg.APIListenAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.APIListenAddr, err)
		}

		srv := bapi.NewHTTPServer(ctx, log.With("sys", "api"), bapi.HTTPServerConfig{
			Listener:         ln,
			Graph:            cmds,
			StakingAddresses: stakingAddresses(signers),
		})
		defer srv.Wait()
		defer cancel()

		log.Info("Node API listening", "addr", ln.Addr().String())
	}

	if len(signers) == 0 {
		log.Info("Running follower node; no staking keys loaded")
	} else {
		log.Info("Running staking node", "staking_keys", len(signers))
	}

	if gt := cfg.Consensus.GenesisTimestamp; gt.After(btime.Now()) {
		log.Info(
			"Genesis is in the future; the engine idles until then",
			"genesis", gt, "remaining", gt.Until().Round(time.Second),
		)
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if err := mgr.Stop(stopCtx, evs); err != nil {
		log.Warn("Consensus engine did not stop cleanly", "err", err)
	}

	return nil
}

// loadConfiguredStakingKeys reads the staking key file when one is
// configured. A missing file is an empty key set, not an error.
func loadConfiguredStakingKeys(path, password string) ([]bcrypto.Ed25519Signer, error) {
	if path == "" {
		return nil, nil
	}
	signers, err := bconsensus.LoadStakingKeys(path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to load staking keys: %w", err)
	}
	return signers, nil
}

func stakingAddresses(signers []bcrypto.Ed25519Signer) []bmodels.Address {
	addrs := make([]bmodels.Address, len(signers))
	for i, s := range signers {
		addrs[i] = bmodels.AddressFromPublicKey(s.PubKey())
	}
	return addrs
}

func closeStore(log *slog.Logger, s *bsqlitestore.Store) {
	if err := s.Close(); err != nil {
		log.Warn("Error closing block store", "err", err)
	}
}

func logEngineEvents(ctx context.Context, log *slog.Logger, evs <-chan bconsensus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-evs:
			if !ok {
				return
			}
			switch {
			case ev.NeedSync != nil:
				log.Warn("Engine fell too far behind the network and needs a resync")
			default:
				log.Info("Engine event", "kind", ev.Kind())
			}
		}
	}
}

func drainProtocolCommands(ctx context.Context, log *slog.Logger, cmds <-chan bprotocol.Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			log.Debug("No peers connected, dropping outbound protocol command", "kind", cmd.Kind())
		}
	}
}

func drainPoolCommands(ctx context.Context, log *slog.Logger, cmds <-chan bpool.Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			log.Debug("No pool attached, dropping pool command", "kind", cmd.Kind())
		}
	}
}

func drainExecutionRequests(ctx context.Context, log *slog.Logger, reqs <-chan bexec.Request) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-reqs:
			if !ok {
				return
			}
			log.Debug("No execution layer attached, dropping request", "kind", req.Kind())
		}
	}
}
