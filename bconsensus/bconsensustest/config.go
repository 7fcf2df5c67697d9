package bconsensustest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/braid-engine/braid/bassert/basserttest"
	"github.com/braid-engine/braid/bconsensus"
	"github.com/braid-engine/braid/bcrypto"
	"github.com/braid-engine/braid/bcrypto/bcryptotest"
	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/btime"
)

// TestPassword encrypts the throwaway staking key files written by test
// setup.
const TestPassword = "testpassword"

// DefaultTestConfig returns a two-thread config with tight slot timing
// and an initial roll file granting every roll to the returned signer,
// so that signer produces a draw-valid block for any slot.
//
// The genesis timestamp sits one hour in the future: no slot ticks
// during the test unless the caller moves GenesisTimestamp into the
// past. The roll file lives in a per-test temp directory.
func DefaultTestConfig(t *testing.T) (bconsensus.Config, bcrypto.Ed25519Signer) {
	t.Helper()

	staker := bcryptotest.DeterministicEd25519Signers(1)[0]
	addr := bmodels.AddressFromPublicKey(staker.PubKey())

	rollsPath := filepath.Join(t.TempDir(), "initial_rolls.json")
	rolls := fmt.Sprintf("{%q: 1000}\n", addr)
	if err := os.WriteFile(rollsPath, []byte(rolls), 0o600); err != nil {
		t.Fatalf("failed to write initial rolls file: %v", err)
	}

	cfg := bconsensus.DefaultConfig()
	cfg.ThreadCount = 2
	cfg.T0 = btime.Duration(200 * time.Millisecond)
	cfg.GenesisTimestamp = btime.Now().Add(time.Hour)
	cfg.DeltaF0 = 2
	cfg.InitialRollsPath = rollsPath
	cfg.AssertEnv = basserttest.DefaultEnv()

	return cfg, staker
}
