package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	mineDepth      int
	mineDepartment string
	mineShowAll    bool
)

// mineCmd creates the "mine" subcommand.
func mineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine [seed]",
		Short: "Mine autocomplete suggestions for a seed keyword",
		Long: "Mine the marketplace autocomplete endpoint for keyword suggestions.\n" +
			"Depth 1 queries the seed plus a-z suffixes; depth 2 re-expands every\n" +
			"discovered keyword the same way.",
		Args: cobra.ExactArgs(1),
		RunE: runMine,
	}

	cmd.Flags().IntVarP(&mineDepth, "depth", "d", 1, "mining depth (1 or 2)")
	cmd.Flags().StringVar(&mineDepartment, "department", "", "department: kindle, books, or all (default from config)")
	cmd.Flags().BoolVar(&mineShowAll, "all", false, "print every keyword, not just the top 20")

	return cmd
}

func runMine(cmd *cobra.Command, args []string) error {
	eng, cfg, logger, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	department := mineDepartment
	if department == "" {
		department = cfg.Prober.Department
	}

	ctx, stop := interruptibleContext()
	defer stop()

	progress := func(completed, total int) {
		fmt.Printf("\r  querying %d/%d...", completed, total)
	}

	result, err := eng.Mine(ctx, args[0], mineDepth, department, progress)
	fmt.Println()
	if err != nil && !errors.Is(err, ctx.Err()) {
		return fmt.Errorf("mine: %w", err)
	}
	if result == nil {
		return err
	}
	if result.TotalMined > 0 || err != nil {
		logger.Info("mining finished",
			"seed", result.Seed,
			"total", result.TotalMined,
			"new", result.NewCount,
			"interrupted", err != nil,
		)
	}

	fmt.Printf("\nMined %q (depth %d, %s department)\n", result.Seed, result.Depth, result.Department)
	fmt.Printf("  Keywords:  %d total, %d new, %d already known\n",
		result.TotalMined, result.NewCount, result.ExistingCount)
	if err != nil {
		fmt.Println("  Run interrupted; partial results were saved.")
	}

	limit := 20
	if mineShowAll || len(result.Keywords) < limit {
		limit = len(result.Keywords)
	}
	if limit > 0 {
		fmt.Println("\n  Pos  Keyword")
		for _, kw := range result.Keywords[:limit] {
			marker := " "
			if kw.IsNew {
				marker = "*"
			}
			fmt.Printf("  %3d %s %s\n", kw.Position, marker, kw.Keyword)
		}
		if !mineShowAll && len(result.Keywords) > limit {
			fmt.Printf("  ... and %d more (use --all)\n", len(result.Keywords)-limit)
		}
	}
	return nil
}
