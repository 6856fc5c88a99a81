package cmd

import (
	"errors"
	"net/http"

	"github.com/mezonai/mmn-recovery/logx"
	"github.com/mezonai/mmn-recovery/monitoring"
	"github.com/mezonai/mmn-recovery/retriever"
	"github.com/spf13/cobra"
)

type RecoverConfig struct {
	Trim          bool
	KeepOnFailure bool
}

var recoverConfig RecoverConfig

var recoverCmd = &cobra.Command{
	Use:   "recover [flags]",
	Short: "Rebuild chains and account state from persistent storage",
	Long: `This command replays the persisted tx blocks, state deltas and block links
and validates the recovered state against the last tx block.
On failure the storage is wiped so the node resyncs from its peers.
Examples:
  # Recover, dropping the blocks of an unfinished epoch
  recover --trim -c config/node.yml
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecover(cmd.Flags().Changed("trim"))
	},
}

func init() {
	rootCmd.AddCommand(recoverCmd)
	recoverCmd.Flags().BoolVar(&recoverConfig.Trim, "trim", false, "remove blocks of an incomplete epoch (defaults to trim_incompleted_blocks)")
	recoverCmd.Flags().BoolVar(&recoverConfig.KeepOnFailure, "keep-on-failure", false, "do not wipe storage when recovery fails")
}

func runRecover(trimSet bool) error {
	monitoring.InitMetrics()

	node, err := openNode()
	if err != nil {
		return err
	}
	defer node.Close()

	if node.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		monitoring.RegisterMetrics(mux)
		go func() {
			if err := http.ListenAndServe(node.cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logx.Error("METRICS", "Metrics server stopped: ", err)
			}
		}()
	}

	trim := node.recoveryCfg.TrimIncompletedBlocks
	if trimSet {
		trim = recoverConfig.Trim
	}

	err = node.retriever.Recover(trim)
	if err == nil {
		logx.Info("CMD", "Recovery succeeded")
		return nil
	}
	if retriever.IsFatal(err) {
		node.Close()
		logx.Fatal("CMD", "Unrecoverable failure: ", err)
		return err
	}
	if recoverConfig.KeepOnFailure {
		logx.Warn("CMD", "Recovery failed, storage kept as requested")
		return err
	}
	logx.Warn("CMD", "Recovery failed, wiping storage for a resync")
	node.retriever.CleanAll()
	return err
}
