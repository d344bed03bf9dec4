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
	"github.com/pcwa-smotley/abayopt/core/schedule"
	"github.com/pcwa-smotley/abayopt/infra/logger"
)

var (
	replayFrom    string
	replayOutfile string
	replayForce   bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Recalculate the latest run from an edited hour",
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "hour-ending RFC3339 timestamp to replay from (required)")
	replayCmd.Flags().StringVarP(&replayOutfile, "outfile", "o", "", "write the recalculated CSV to this path")
	replayCmd.Flags().BoolVar(&replayForce, "force", false, "apply even when a rafting window conflicts")
	_ = replayCmd.MarkFlagRequired("from")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ts, err := time.Parse(time.RFC3339, replayFrom)
	if err != nil {
		return fmt.Errorf("parse --from: %w", err)
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

	rec, err := svc.LatestRun(ctx)
	if err != nil {
		return err
	}

	rows, conflict, err := svc.RecalcFrom(ctx, rec, ts, replayForce)
	if err != nil {
		return err
	}
	if conflict != nil {
		return fmt.Errorf("edit rejected: %s (rerun with --force to override)", conflict.Error())
	}

	log := logger.New("replay")
	log.Infof("recalculated run %s from %s", rec.ID, ts.Format(time.RFC3339))
	if replayOutfile != "" {
		if err := schedule.WriteCSVFile(replayOutfile, rows); err != nil {
			return fmt.Errorf("write %s: %w", replayOutfile, err)
		}
		log.Infof("wrote %d rows to %s", len(rows), replayOutfile)
	}
	return nil
}
