package config

import "github.com/mezonai/mmn-recovery/store"

// CommitteeMember is one seat of the genesis DS committee
type CommitteeMember struct {
	PubKey string `yaml:"pubkey"`
	IP     string `yaml:"ip"`
	Port   uint32 `yaml:"port"`
}

// NodeConfig holds the node settings used by recovery
type NodeConfig struct {
	LookupNode       bool              `yaml:"lookup_node"`
	PersistenceDir   string            `yaml:"persistence_dir"`
	ArchiveDir       string            `yaml:"archive_dir"`
	SnapshotDir      string            `yaml:"snapshot_dir"`
	MetricsAddr      string            `yaml:"metrics_addr"`
	Store            store.StoreConfig `yaml:"store"`
	GenesisCommittee []CommitteeMember `yaml:"genesis_committee"`
}

// ConfigFile is the top-level structure for node.yml
type ConfigFile struct {
	Node NodeConfig `yaml:"node"`
}

// RecoveryConfig is the [recovery] section of recovery.ini
type RecoveryConfig struct {
	NumFinalBlockPerPow         uint64 `ini:"num_final_block_per_pow"`
	IncrDBDSNumsWithStateDeltas uint64 `ini:"incrdb_dsnums_with_statedeltas"`
	TrimIncompletedBlocks       bool   `ini:"trim_incompleted_blocks"`
}
