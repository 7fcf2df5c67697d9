package bci_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/braid-engine/braid/btime"
	"github.com/braid-engine/braid/internal/bci"
)

func TestNodeConfig_roundTrip(t *testing.T) {
	t.Parallel()

	home := t.TempDir()

	cfg := bci.DefaultNodeConfig(home)
	cfg.Consensus.GenesisTimestamp = btime.Now()
	cfg.ClockCompensation = btime.Duration(250 * time.Millisecond)

	path := bci.ConfigPath(home)
	require.NoError(t, bci.WriteNodeConfig(path, cfg))

	got, err := bci.LoadNodeConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestLoadNodeConfig_rejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_listen_addr = "127.0.0.1:0"

[consensus]
thread_cnt = 2
`), 0o644))

	_, err := bci.LoadNodeConfig(path)
	require.ErrorContains(t, err, "unknown keys")
	require.ErrorContains(t, err, "thread_cnt")
}

func TestLoadNodeConfig_missingFile(t *testing.T) {
	t.Parallel()

	_, err := bci.LoadNodeConfig(filepath.Join(t.TempDir(), "config.toml"))
	require.Error(t, err)
}

func TestWriteNodeConfig_refusesOverwrite(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	path := bci.ConfigPath(home)

	cfg := bci.DefaultNodeConfig(home)
	require.NoError(t, bci.WriteNodeConfig(path, cfg))
	require.Error(t, bci.WriteNodeConfig(path, cfg))
}
