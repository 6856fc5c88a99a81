package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/mezonai/mmn-recovery/snapshot"
	"github.com/mezonai/mmn-recovery/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupConfigs writes node.yml and recovery.ini into a temp dir and points the root flags at them
func setupConfigs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	persistence := filepath.Join(dir, "persistence")

	nodeYml := "node:\n" +
		"  persistence_dir: " + persistence + "\n" +
		"  snapshot_dir: " + filepath.Join(dir, "snapshots") + "\n" +
		"  store:\n" +
		"    type: leveldb\n" +
		"    directory: " + filepath.Join(persistence, "db") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node.yml"), []byte(nodeYml), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recovery.ini"), []byte("[recovery]\nnum_final_block_per_pow = 10\nincrdb_dsnums_with_statedeltas = 1\n"), 0644))

	rootConfig = RootConfig{
		NodeConfigPath:     filepath.Join(dir, "node.yml"),
		RecoveryConfigPath: filepath.Join(dir, "recovery.ini"),
	}
	t.Cleanup(func() { rootConfig = RootConfig{} })
	return dir
}

func TestSnapshotExportImport(t *testing.T) {
	dir := setupConfigs(t)

	node, err := openNode()
	require.NoError(t, err)
	require.NoError(t, node.accounts.StoreBatch([]*types.Account{
		{Address: "alice", Balance: uint256.NewInt(10), Nonce: 1},
		{Address: "bob", Balance: uint256.NewInt(20)},
	}, nil))
	require.NoError(t, node.blocks.PutTxBlock(&types.TxBlock{Header: types.TxBlockHeader{BlockNum: 42}}))
	node.Close()

	snapshotConfig = SnapshotConfig{}
	require.NoError(t, exportSnapshot())
	path := filepath.Join(dir, "snapshots", snapshot.FileName)
	meta, accounts, err := snapshot.ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), meta.TxBlockNum)
	assert.Len(t, accounts, 2)

	// wipe, then import the snapshot back
	require.NoError(t, cleanCmd.RunE(cleanCmd, nil))
	snapshotConfig = SnapshotConfig{Path: path}
	require.NoError(t, importSnapshot())

	node, err = openNode()
	require.NoError(t, err)
	defer node.Close()
	require.NoError(t, node.ledger.LoadFromDisk())
	assert.Equal(t, meta.StateRoot, node.ledger.StateRoot())
}

func TestRecoverFailureWipesStorage(t *testing.T) {
	setupConfigs(t)

	node, err := openNode()
	require.NoError(t, err)
	require.NoError(t, node.accounts.Store(&types.Account{Address: "alice", Balance: uint256.NewInt(1)}))
	node.Close()

	// no tx blocks persisted
	recoverConfig = RecoverConfig{KeepOnFailure: true}
	assert.Error(t, runRecover(false))

	node, err = openNode()
	require.NoError(t, err)
	all, err := node.accounts.All()
	require.NoError(t, err)
	assert.Len(t, all, 1, "kept on failure")
	node.Close()

	recoverConfig = RecoverConfig{}
	assert.Error(t, runRecover(false))

	node, err = openNode()
	require.NoError(t, err)
	defer node.Close()
	all, err = node.accounts.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}
