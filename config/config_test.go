package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mezonai/mmn-recovery/store"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadNodeConfig(t *testing.T) {
	key := base58.Encode([]byte{1, 2, 3, 4})
	path := writeConfig(t, "node.yml", `node:
  lookup_node: true
  persistence_dir: ./persistence
  archive_dir: ./StateDeltaFromS3
  metrics_addr: ":9100"
  store:
    type: leveldb
    directory: ./persistence/db
  genesis_committee:
    - pubkey: `+key+`
      ip: 10.0.0.1
      port: 33133
`)

	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.LookupNode)
	assert.Equal(t, "./persistence", cfg.PersistenceDir)
	assert.Equal(t, "./StateDeltaFromS3", cfg.ArchiveDir)
	assert.Equal(t, DefaultSnapshotDir, cfg.SnapshotDir)
	assert.Equal(t, store.LevelDBStoreType, cfg.Store.Type)

	comm, err := cfg.Committee()
	require.NoError(t, err)
	require.Equal(t, 1, comm.Len())
	assert.Equal(t, key, comm.Members[0].PubKey.String())
	assert.Equal(t, uint32(33133), comm.Members[0].Peer.Port)
}

func TestLoadNodeConfigErrors(t *testing.T) {
	_, err := LoadNodeConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = LoadNodeConfig(writeConfig(t, "node.yml", "node:\n  store:\n    type: leveldb\n    directory: db\n"))
	assert.Error(t, err, "persistence_dir required")

	_, err = LoadNodeConfig(writeConfig(t, "node.yml", "node:\n  persistence_dir: p\n  store:\n    type: mongo\n    directory: db\n"))
	assert.Error(t, err, "unknown store type")

	_, err = LoadNodeConfig(writeConfig(t, "node.yml", "node:\n  persistence_dir: p\n  unknown_field: 1\n"))
	assert.Error(t, err, "unknown fields rejected")

	_, err = LoadNodeConfig(writeConfig(t, "node.yml", "node:\n  persistence_dir: p\n  store:\n    type: leveldb\n    directory: db\n  genesis_committee:\n    - pubkey: \"0OIl\"\n"))
	assert.Error(t, err, "invalid base58 key")
}

func TestLoadRecoveryConfig(t *testing.T) {
	path := writeConfig(t, "recovery.ini", `[recovery]
num_final_block_per_pow = 10
incrdb_dsnums_with_statedeltas = 2
trim_incompleted_blocks = true
`)
	cfg, err := LoadRecoveryConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), cfg.NumFinalBlockPerPow)
	assert.Equal(t, uint64(2), cfg.IncrDBDSNumsWithStateDeltas)
	assert.True(t, cfg.TrimIncompletedBlocks)

	cfg, err = LoadRecoveryConfig(writeConfig(t, "recovery.ini", "[recovery]\n"))
	require.NoError(t, err)
	assert.Equal(t, uint64(DefaultNumFinalBlockPerPow), cfg.NumFinalBlockPerPow)
	assert.False(t, cfg.TrimIncompletedBlocks)

	_, err = LoadRecoveryConfig(writeConfig(t, "recovery.ini", "[recovery]\nnum_final_block_per_pow = 0\n"))
	assert.Error(t, err)
}
