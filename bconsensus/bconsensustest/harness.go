// Package bconsensustest runs complete consensus engines against mock
// collaborators for tests.
//
// The Run functions own the full lifecycle of one engine under test:
// they wire storage and the protocol, pool, and execution mocks, start
// the engine, hand control to the test body, and tear everything down
// in an order that cannot deadlock, on every exit path including test
// failures. The builders construct signed blocks and operations, and
// the validators assert on the commands the engine emits, under scaled
// timeouts.
package bconsensustest

import (
	"context"
	"log/slog"
	"testing"

	"github.com/braid-engine/braid/bconsensus"
	"github.com/braid-engine/braid/bexec/bexectest"
	"github.com/braid-engine/braid/bpool/bpooltest"
	"github.com/braid-engine/braid/bprotocol/bprotocoltest"
	"github.com/braid-engine/braid/bstore"
	"github.com/braid-engine/braid/bstore/bmemstore"
	"github.com/braid-engine/braid/bwatchdog"
	"github.com/braid-engine/braid/internal/btest"
)

// Env is the live harness handed to a test body.
//
// Everything in it is created when the Run function starts and torn
// down before it returns; nothing survives across tests.
type Env struct {
	Log *slog.Logger

	Cfg bconsensus.Config

	Store bstore.Storage

	Protocol  *bprotocoltest.MockProtocolController
	Execution *bexectest.MockExecutionController

	Commands *bconsensus.CommandSender
	Events   *bconsensus.EventReceiver
}

// PoolEnv extends [Env] with the pool mock, for test bodies that assert
// on pool traffic. While the body runs, nothing drains the pool channel
// except the body itself.
type PoolEnv struct {
	Env

	Pool *bpooltest.MockPoolController
}

// RunConsensusPoolTest starts a consensus engine on a fresh in-memory
// store and runs body against it, with the pool mock under the body's
// control. See [RunConsensusPoolTestWithStorage] for the lifecycle.
func RunConsensusPoolTest(
	t *testing.T,
	cfg bconsensus.Config,
	creds bconsensus.Credentials,
	boot *bconsensus.Bootstrap,
	body func(ctx context.Context, env PoolEnv),
) {
	t.Helper()
	RunConsensusPoolTestWithStorage(t, cfg, creds, boot, bmemstore.NewStore(btest.NewLogger(t)), body)
}

// RunConsensusPoolTestWithStorage starts a consensus engine on the given
// store and runs body against it.
//
// Startup order: storage is seeded from boot's graph, the three mocks
// are wired, an execution drain goroutine begins discarding execution
// requests, and the engine starts. The pool channel is not drained
// while body runs; a body that ignores pool traffic long enough to fill
// the channel will stall the engine, which is exactly the backpressure
// the pool variants exist to surface. Use [RunConsensusNoPoolTest] when
// the test does not care about pool traffic.
//
// Shutdown runs on every exit path, body panics included, in this
// order: a pool sink starts absorbing pool traffic, the engine is
// stopped under a protocol-side drain so commands emitted while
// stopping cannot block it, the pool sink is stopped, and finally the
// execution drain is canceled and joined.
func RunConsensusPoolTestWithStorage(
	t *testing.T,
	cfg bconsensus.Config,
	creds bconsensus.Credentials,
	boot *bconsensus.Bootstrap,
	store bstore.Storage,
	body func(ctx context.Context, env PoolEnv),
) {
	t.Helper()

	log := btest.NewLogger(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wd, wCtx := bwatchdog.NewNopWatchdog(ctx, log.With("sys", "watchdog"))
	t.Cleanup(wd.Wait)

	seedStorage(ctx, t, store, boot)

	protocol, pCmds, pEvents := bprotocoltest.NewMockProtocolController(log.With("sys", "mock_protocol"), cfg.ChannelSize)
	pool, poolCmds := bpooltest.NewMockPoolController(log.With("sys", "mock_pool"), cfg.ChannelSize)
	execution, execCtrl := bexectest.NewMockExecutionController(log.With("sys", "mock_execution"), cfg.ChannelSize)

	drainCtx, drainCancel := context.WithCancel(ctx)
	defer drainCancel()
	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		execution.DrainRequests(drainCtx)
	}()

	cmds, evs, mgr, err := bconsensus.Start(
		wCtx, log.With("sys", "consensus"),
		cfg,
		bconsensus.Channels{
			Execution:        execCtrl,
			ProtocolCommands: pCmds,
			ProtocolEvents:   pEvents,
			PoolCommands:     poolCmds,
			Watchdog:         wd,
		},
		boot, store, 0, creds,
	)
	if err != nil {
		drainCancel()
		<-drainDone
		t.Fatalf("failed to start consensus engine: %v", err)
	}

	defer func() {
		// The engine's stop path may emit on every channel,
		// so the pool sink and the protocol drain must be live
		// until Stop returns, and the execution drain until after that.
		sink := bpooltest.NewCommandSink(ctx, log.With("sys", "pool_sink"), pool)

		if err := protocol.IgnoreCommandsWhile(ctx, func() error {
			return mgr.Stop(ctx, evs)
		}); err != nil {
			t.Errorf("failed to stop consensus engine: %v", err)
		}

		sink.Stop()

		drainCancel()
		<-drainDone
	}()

	body(ctx, PoolEnv{
		Env: Env{
			Log: log,

			Cfg: cfg,

			Store: store,

			Protocol:  protocol,
			Execution: execution,

			Commands: cmds,
			Events:   evs,
		},
		Pool: pool,
	})
}

// RunConsensusNoPoolTest starts a consensus engine on a fresh in-memory
// store and runs body against it, with pool traffic sunk from the
// moment the engine starts. See [RunConsensusNoPoolTestWithStorage].
func RunConsensusNoPoolTest(
	t *testing.T,
	cfg bconsensus.Config,
	creds bconsensus.Credentials,
	boot *bconsensus.Bootstrap,
	body func(ctx context.Context, env Env),
) {
	t.Helper()
	RunConsensusNoPoolTestWithStorage(t, cfg, creds, boot, bmemstore.NewStore(btest.NewLogger(t)), body)
}

// RunConsensusNoPoolTestWithStorage is [RunConsensusPoolTestWithStorage]
// for tests that never assert on pool traffic: a command sink drains the
// pool channel from wiring time, so the engine cannot block on it no
// matter what the body does.
func RunConsensusNoPoolTestWithStorage(
	t *testing.T,
	cfg bconsensus.Config,
	creds bconsensus.Credentials,
	boot *bconsensus.Bootstrap,
	store bstore.Storage,
	body func(ctx context.Context, env Env),
) {
	t.Helper()

	log := btest.NewLogger(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wd, wCtx := bwatchdog.NewNopWatchdog(ctx, log.With("sys", "watchdog"))
	t.Cleanup(wd.Wait)

	seedStorage(ctx, t, store, boot)

	protocol, pCmds, pEvents := bprotocoltest.NewMockProtocolController(log.With("sys", "mock_protocol"), cfg.ChannelSize)
	pool, poolCmds := bpooltest.NewMockPoolController(log.With("sys", "mock_pool"), cfg.ChannelSize)
	execution, execCtrl := bexectest.NewMockExecutionController(log.With("sys", "mock_execution"), cfg.ChannelSize)

	sink := bpooltest.NewCommandSink(ctx, log.With("sys", "pool_sink"), pool)

	drainCtx, drainCancel := context.WithCancel(ctx)
	defer drainCancel()
	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		execution.DrainRequests(drainCtx)
	}()

	cmds, evs, mgr, err := bconsensus.Start(
		wCtx, log.With("sys", "consensus"),
		cfg,
		bconsensus.Channels{
			Execution:        execCtrl,
			ProtocolCommands: pCmds,
			ProtocolEvents:   pEvents,
			PoolCommands:     poolCmds,
			Watchdog:         wd,
		},
		boot, store, 0, creds,
	)
	if err != nil {
		sink.Stop()
		drainCancel()
		<-drainDone
		t.Fatalf("failed to start consensus engine: %v", err)
	}

	defer func() {
		if err := protocol.IgnoreCommandsWhile(ctx, func() error {
			return mgr.Stop(ctx, evs)
		}); err != nil {
			t.Errorf("failed to stop consensus engine: %v", err)
		}

		sink.Stop()

		drainCancel()
		<-drainDone
	}()

	body(ctx, Env{
		Log: log,

		Cfg: cfg,

		Store: store,

		Protocol:  protocol,
		Execution: execution,

		Commands: cmds,
		Events:   evs,
	})
}

// seedStorage writes every bootstrapped block into storage before the
// engine starts, so lookups by ID succeed from the first event on.
func seedStorage(ctx context.Context, t *testing.T, store bstore.Storage, boot *bconsensus.Bootstrap) {
	t.Helper()

	if boot == nil || boot.Graph == nil {
		return
	}
	for id, ab := range boot.Graph.ActiveBlocks {
		if err := store.StoreBlock(ctx, ab.Block); err != nil {
			t.Fatalf("failed to seed storage with bootstrapped block %s: %v", id, err)
		}
	}
}
