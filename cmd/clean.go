package cmd

import (
	"github.com/mezonai/mmn-recovery/logx"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Reset every persistent collection",
	Long:  "Wipes blocks, block links, state deltas, metadata, tx bodies and account state so the node resyncs from its peers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := openNode()
		if err != nil {
			return err
		}
		defer node.Close()

		node.retriever.CleanAll()
		return nil
	},
}

var cleanTxBodiesCmd = &cobra.Command{
	Use:   "clean-txbodies",
	Short: "Remove tx bodies kept for blocks that never became final (lookup nodes)",
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := openNode()
		if err != nil {
			return err
		}
		defer node.Close()

		if err := node.retriever.CleanExtraTxBodies(); err != nil {
			return err
		}
		logx.Info("CMD", "Extra tx bodies cleaned")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(cleanTxBodiesCmd)
}
