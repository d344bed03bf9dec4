package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pcwa-smotley/abayopt/app"
	"github.com/pcwa-smotley/abayopt/config"
	"github.com/pcwa-smotley/abayopt/core/model"
	"github.com/pcwa-smotley/abayopt/core/schedule"
	"github.com/pcwa-smotley/abayopt/infra/logger"
)

var (
	solveHorizon    int
	solveOutfile    string
	solveHistorical string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Assemble inputs and solve the schedule",
	RunE:  runSolve,
}

func init() {
	solveCmd.Flags().IntVar(&solveHorizon, "horizon", 0, "horizon length in hours (default from config)")
	solveCmd.Flags().StringVarP(&solveOutfile, "outfile", "o", "", "write the schedule CSV to this path")
	solveCmd.Flags().StringVar(&solveHistorical, "historical-start", "", "replay a past window starting at this RFC3339 timestamp")
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var historical *time.Time
	if solveHistorical != "" {
		ts, err := time.Parse(time.RFC3339, solveHistorical)
		if err != nil {
			return fmt.Errorf("parse --historical-start: %w", err)
		}
		historical = &ts
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	rec, res, err := svc.SolveOnce(ctx, solveHorizon, historical)
	if err != nil {
		return err
	}

	log := logger.New("solve")
	switch res.Status {
	case model.StatusFallback:
		// Degraded, not failed: the schedule exists, exit code stays zero.
		log.Warnf("solver fell back to the heuristic: %s", res.Reason)
	case model.StatusInfeasible:
		log.Warnf("schedule is best-effort only: %s", res.Reason)
	default:
		log.Infof("run %s solved (objective %.1f)", rec.ID, res.Objective)
	}

	if solveOutfile != "" {
		if err := schedule.WriteCSVFile(solveOutfile, res.Rows); err != nil {
			return fmt.Errorf("write %s: %w", solveOutfile, err)
		}
		log.Infof("wrote %d rows to %s", len(res.Rows), solveOutfile)
	}
	return nil
}
