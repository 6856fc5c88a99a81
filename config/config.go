package config

import (
	"fmt"
	"os"

	"github.com/mezonai/mmn-recovery/committee"
	"github.com/mezonai/mmn-recovery/logx"
	"github.com/mezonai/mmn-recovery/types"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// LoadNodeConfig reads and parses the node.yml file
func LoadNodeConfig(path string) (*NodeConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		logx.Error("CONFIG", "Failed to open file: ", err)
		return nil, err
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfgFile); err != nil {
		logx.Error("CONFIG", "Failed to decode YAML: ", err)
		return nil, err
	}

	cfg := &cfgFile.Node
	if cfg.SnapshotDir == "" {
		cfg.SnapshotDir = DefaultSnapshotDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logx.Info("CONFIG", fmt.Sprintf("Loaded node config: persistence=%s store=%s lookup=%v committee=%d",
		cfg.PersistenceDir, cfg.Store.Type, cfg.LookupNode, len(cfg.GenesisCommittee)))
	return cfg, nil
}

func (c *NodeConfig) Validate() error {
	if c.PersistenceDir == "" {
		return fmt.Errorf("persistence_dir cannot be empty")
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("invalid store config: %w", err)
	}
	for i, m := range c.GenesisCommittee {
		if _, err := types.PubKeyFromBase58(m.PubKey); err != nil {
			return fmt.Errorf("genesis_committee[%d]: %w", i, err)
		}
	}
	return nil
}

// Committee builds the genesis DS committee
func (c *NodeConfig) Committee() (*committee.Committee, error) {
	members := make([]types.Member, 0, len(c.GenesisCommittee))
	for i, m := range c.GenesisCommittee {
		key, err := types.PubKeyFromBase58(m.PubKey)
		if err != nil {
			return nil, fmt.Errorf("genesis_committee[%d]: %w", i, err)
		}
		members = append(members, types.Member{PubKey: key, Peer: types.Peer{IP: m.IP, Port: m.Port}})
	}
	return committee.New(members), nil
}

// LoadRecoveryConfig reads the [recovery] section of an .ini file
func LoadRecoveryConfig(path string) (*RecoveryConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	recoverySection := cfg.Section("recovery")
	recoveryCfg := &RecoveryConfig{
		NumFinalBlockPerPow:         DefaultNumFinalBlockPerPow,
		IncrDBDSNumsWithStateDeltas: DefaultIncrDBDSNumsWithStateDeltas,
	}
	err = recoverySection.MapTo(recoveryCfg)
	if err != nil {
		return nil, err
	}
	if err := recoveryCfg.Validate(); err != nil {
		return nil, err
	}
	return recoveryCfg, nil
}

func (c *RecoveryConfig) Validate() error {
	if c.NumFinalBlockPerPow == 0 {
		return fmt.Errorf("num_final_block_per_pow must be positive")
	}
	if c.IncrDBDSNumsWithStateDeltas == 0 {
		return fmt.Errorf("incrdb_dsnums_with_statedeltas must be positive")
	}
	return nil
}
