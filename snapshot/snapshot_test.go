package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/mezonai/mmn-recovery/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStateRootIsOrderIndependent(t *testing.T) {
	a := &types.Account{Address: "a", Balance: uint256.NewInt(1), Nonce: 1}
	b := &types.Account{Address: "b", Balance: uint256.NewInt(2), Nonce: 2}

	input := []*types.Account{b, a}
	r1 := ComputeStateRoot(input)
	r2 := ComputeStateRoot([]*types.Account{a, b})
	assert.Equal(t, r1, r2)
	assert.Equal(t, "b", input[0].Address, "input must not be reordered")
}

func TestComputeStateRootSeesEveryField(t *testing.T) {
	base := ComputeStateRoot([]*types.Account{{Address: "a", Balance: uint256.NewInt(1), Nonce: 1}})

	assert.NotEqual(t, base, ComputeStateRoot([]*types.Account{{Address: "a", Balance: uint256.NewInt(2), Nonce: 1}}))
	assert.NotEqual(t, base, ComputeStateRoot([]*types.Account{{Address: "a", Balance: uint256.NewInt(1), Nonce: 2}}))
	assert.NotEqual(t, base, ComputeStateRoot([]*types.Account{{Address: "b", Balance: uint256.NewInt(1), Nonce: 1}}))
	assert.NotEqual(t, base, ComputeStateRoot(nil))
}

func TestWriteAndReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), []byte("{}"), 0644))

	accounts := []*types.Account{
		{Address: "bob", Balance: uint256.NewInt(20), Nonce: 2},
		{Address: "alice", Balance: uint256.NewInt(10), Nonce: 1},
	}
	path, err := WriteSnapshot(dir, accounts, 19)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)

	_, err = os.Stat(filepath.Join(dir, "old.json"))
	assert.True(t, os.IsNotExist(err))

	meta, loaded, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(19), meta.TxBlockNum)
	assert.Equal(t, ComputeStateRoot(accounts), meta.StateRoot)
	require.Len(t, loaded, 2)
	assert.Equal(t, "alice", loaded[0].Address)
}

func TestReadSnapshotDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteSnapshot(dir, []*types.Account{{Address: "alice", Balance: uint256.NewInt(10)}}, 1)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"balance":"10"`, `"balance":"90"`, 1)
	require.NotEqual(t, string(data), tampered)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0644))

	_, _, err = ReadSnapshot(path)
	assert.Error(t, err)
}
