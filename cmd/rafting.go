package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pcwa-smotley/abayopt/config"
	"github.com/pcwa-smotley/abayopt/core/rafting"
)

var (
	raftingSetpoint float64
	raftingStart    string
	raftingEnd      string
)

var raftingCmd = &cobra.Command{
	Use:   "rafting",
	Short: "Check a proposed setpoint against the release windows",
	RunE:  runRafting,
}

func init() {
	raftingCmd.Flags().Float64Var(&raftingSetpoint, "setpoint", 0, "proposed setpoint in MW (required)")
	raftingCmd.Flags().StringVar(&raftingStart, "start", "", "RFC3339 start of the affected range (required)")
	raftingCmd.Flags().StringVar(&raftingEnd, "end", "", "RFC3339 end of the affected range (required)")
	_ = raftingCmd.MarkFlagRequired("setpoint")
	_ = raftingCmd.MarkFlagRequired("start")
	_ = raftingCmd.MarkFlagRequired("end")
}

func runRafting(cmd *cobra.Command, args []string) error {
	start, err := time.Parse(time.RFC3339, raftingStart)
	if err != nil {
		return fmt.Errorf("parse --start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, raftingEnd)
	if err != nil {
		return fmt.Errorf("parse --end: %w", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	policy, err := rafting.New(cfg.Rafting)
	if err != nil {
		return err
	}

	if c := policy.CheckConflict(raftingSetpoint, start, end); c != nil {
		return fmt.Errorf("conflict: %s", c.Error())
	}
	cmd.Printf("no conflict: %.2f MW clears all windows in range\n", raftingSetpoint)
	return nil
}
