package bconsensus

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/braid-engine/braid/bcrypto/bcryptotest"
)

func TestStakingKeys_roundTrip(t *testing.T) {
	t.Parallel()

	signers := bcryptotest.DeterministicEd25519Signers(3)
	path := filepath.Join(t.TempDir(), "staking_keys.dat")

	require.NoError(t, SaveStakingKeys(path, "hunter2", signers))

	loaded, err := LoadStakingKeys(path, "hunter2")
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i := range signers {
		require.Equal(t, signers[i].PubKey(), loaded[i].PubKey())
	}
}

func TestStakingKeys_missingFileIsEmpty(t *testing.T) {
	t.Parallel()

	loaded, err := LoadStakingKeys(filepath.Join(t.TempDir(), "absent.dat"), "pw")
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestStakingKeys_wrongPassword(t *testing.T) {
	t.Parallel()

	signers := bcryptotest.DeterministicEd25519Signers(1)
	path := filepath.Join(t.TempDir(), "staking_keys.dat")

	require.NoError(t, SaveStakingKeys(path, "correct", signers))

	_, err := LoadStakingKeys(path, "wrong")
	require.Error(t, err)
}
