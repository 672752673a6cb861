package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bookscout/internal/automation"
	"bookscout/internal/export"
)

var automateWeekly bool

// automateCmd creates the "automate" subcommand for cron-driven runs.
func automateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automate",
		Short: "Run the scheduled maintenance tasks",
		Long: "Run the recurring pipeline: snapshot tracked books, re-mine seed\n" +
			"keywords, and re-score everything. The weekly run mines every seed\n" +
			"and exports the refreshed keyword report.",
		RunE: runAutomate,
	}

	cmd.Flags().BoolVar(&automateWeekly, "weekly", false, "run the weekly sequence instead of the daily one")

	return cmd
}

func runAutomate(cmd *cobra.Command, args []string) error {
	eng, cfg, logger, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	seeds, err := automation.NewSeedManager(cfg.Seeds.Path, logger)
	if err != nil {
		return fmt.Errorf("load seeds: %w", err)
	}

	var exportRun automation.ExportFunc
	if automateWeekly {
		exportRun = func() (int, error) {
			backend, err := export.NewBackend(cfg.Export, logger)
			if err != nil {
				return 0, err
			}
			n, err := export.New(eng.Store(), logger).Export(backend, cfg.Export.MinScore)
			if closeErr := backend.Close(); err == nil {
				err = closeErr
			}
			return n, err
		}
	}

	runner := automation.NewRunner(seeds, eng, eng.Tracker(), exportRun, logger)

	ctx, stop := interruptibleContext()
	defer stop()

	var summary *automation.Summary
	if automateWeekly {
		summary, err = runner.RunWeekly(ctx)
	} else {
		summary, err = runner.RunDaily(ctx)
	}
	if summary != nil {
		printSummary(summary, automateWeekly)
	}
	if err != nil {
		return fmt.Errorf("automate: %w", err)
	}
	return nil
}

func printSummary(s *automation.Summary, weekly bool) {
	kind := "Daily"
	if weekly {
		kind = "Weekly"
	}
	fmt.Printf("%s run complete in %s\n", kind, s.Elapsed.Round(time.Millisecond))
	fmt.Printf("  Snapshots:  %d taken", s.SnapshotsTaken)
	if s.SnapshotsFailed > 0 {
		fmt.Printf(", %d failed", s.SnapshotsFailed)
	}
	fmt.Println()
	fmt.Printf("  Mining:     %d seeds, %d new keywords\n", s.SeedsMined, s.NewKeywords)
	fmt.Printf("  Scoring:    %d keywords scored\n", s.KeywordsScored)
	if weekly {
		fmt.Printf("  Export:     %d rows written\n", s.RowsExported)
	}
}
