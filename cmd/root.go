package cmd

import (
	"os"

	"github.com/mezonai/mmn-recovery/logx"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mmn-recovery",
	Short: "MMN node persistence recovery CLI",
	Long:  "Command line interface for rebuilding an MMN node's chains and account state from its persistent storage.",
}

type RootConfig struct {
	NodeConfigPath     string
	RecoveryConfigPath string
}

var rootConfig RootConfig

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootConfig.NodeConfigPath, "config", "c", "config/node.yml", "Path to node configuration file")
	rootCmd.PersistentFlags().StringVar(&rootConfig.RecoveryConfigPath, "recovery-config", "config/recovery.ini", "Path to recovery protocol constants")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
