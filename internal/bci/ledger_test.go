package bci_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/braid-engine/braid/bconsensus/bconsensustest"
	"github.com/braid-engine/braid/internal/bci"
)

func writeLedgerFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "initial_ledger.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadInitialLedger(t *testing.T) {
	t.Parallel()

	a := bconsensustest.RandomAddress(t)
	b := bconsensustest.RandomAddress(t)

	path := writeLedgerFile(t, fmt.Sprintf(
		`{%q: {"balance": 1000}, %q: {"balance": 0}}`,
		a.String(), b.String(),
	))

	ledger, err := bci.LoadInitialLedger(path)
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	require.Equal(t, uint64(1000), ledger[a].Balance)
	require.Equal(t, uint64(0), ledger[b].Balance)
}

func TestLoadInitialLedger_invalid(t *testing.T) {
	t.Parallel()

	addr := bconsensustest.RandomAddress(t).String()

	for name, content := range map[string]string{
		"address not hex":    `{"not-an-address": {"balance": 5}}`,
		"address too short":  `{"abcd": {"balance": 5}}`,
		"negative balance":   fmt.Sprintf(`{%q: {"balance": -5}}`, addr),
		"fractional balance": fmt.Sprintf(`{%q: {"balance": 1.5}}`, addr),
		"missing balance":    fmt.Sprintf(`{%q: {}}`, addr),
		"unknown field":      fmt.Sprintf(`{%q: {"balance": 5, "rolls": 2}}`, addr),
		"not an object":      `[1, 2, 3]`,
		"not json":           `hello`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := bci.LoadInitialLedger(writeLedgerFile(t, content))
			require.Error(t, err)
		})
	}
}

func TestLoadInitialLedger_missingFile(t *testing.T) {
	t.Parallel()

	_, err := bci.LoadInitialLedger(filepath.Join(t.TempDir(), "initial_ledger.json"))
	require.Error(t, err)
}
