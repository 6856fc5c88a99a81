package cmd

import (
	"fmt"

	"github.com/mezonai/mmn-recovery/config"
	"github.com/mezonai/mmn-recovery/ledger"
	"github.com/mezonai/mmn-recovery/logx"
	"github.com/mezonai/mmn-recovery/retriever"
	"github.com/mezonai/mmn-recovery/store"
)

// recoveryNode bundles what every command opens: configs, stores, ledger and retriever
type recoveryNode struct {
	cfg         *config.NodeConfig
	recoveryCfg *config.RecoveryConfig
	blocks      *store.GenericBlockStorage
	accounts    *store.GenericAccountStore
	ledger      *ledger.Ledger
	retriever   *retriever.Retriever
}

func openNode() (*recoveryNode, error) {
	cfg, err := config.LoadNodeConfig(rootConfig.NodeConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load node config: %w", err)
	}
	recoveryCfg, err := config.LoadRecoveryConfig(rootConfig.RecoveryConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load recovery config: %w", err)
	}

	bs, as, err := store.CreateStore(&cfg.Store, cfg.PersistenceDir)
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}
	logx.Info("CMD", "Stores opened at ", cfg.PersistenceDir)

	comm, err := cfg.Committee()
	if err != nil {
		_ = bs.Close()
		return nil, err
	}

	l := ledger.NewLedger(as)
	opts := []retriever.Option{retriever.WithCommittee(comm)}
	if cfg.ArchiveDir != "" {
		opts = append(opts, retriever.WithArchive(retriever.NewFSArchive(cfg.ArchiveDir)))
	}
	r, err := retriever.New(retriever.Config{
		EpochLength:    recoveryCfg.NumFinalBlockPerPow,
		RetainedEpochs: recoveryCfg.IncrDBDSNumsWithStateDeltas,
		LookupNode:     cfg.LookupNode,
	}, bs, l, opts...)
	if err != nil {
		_ = bs.Close()
		return nil, err
	}

	return &recoveryNode{
		cfg:         cfg,
		recoveryCfg: recoveryCfg,
		blocks:      bs,
		accounts:    as,
		ledger:      l,
		retriever:   r,
	}, nil
}

func (n *recoveryNode) Close() {
	if err := n.blocks.Close(); err != nil {
		logx.Warn("CMD", "Closing stores failed: ", err)
	}
}
