// Package cmd holds the CLI surface.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "abayopt",
	Short: "Afterbay schedule optimizer",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.AddCommand(solveCmd, replayCmd, raftingCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }
