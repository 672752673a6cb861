package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookscout/internal/prober"
)

var (
	probeTopN      int
	probeDelegated bool
)

// probeCmd creates the "probe" subcommand.
func probeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe [asin]",
		Short: "Find where a book ranks for the stored keywords",
		Long: "Probe marketplace search pages keyword by keyword and record the\n" +
			"book's organic position for each. Sponsored placements are skipped\n" +
			"when counting positions.",
		Args: cobra.ExactArgs(1),
		RunE: runProbe,
	}

	cmd.Flags().IntVarP(&probeTopN, "top", "t", 0, "probe only the top N keywords by score (0 = all active)")
	cmd.Flags().BoolVar(&probeDelegated, "dataforseo", false, "use the paid DataForSEO reverse lookup instead of scraping")

	return cmd
}

func runProbe(cmd *cobra.Command, args []string) error {
	eng, _, logger, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	method := prober.MethodScrape
	if probeDelegated {
		method = prober.MethodDelegated
	}

	ctx, stop := interruptibleContext()
	defer stop()

	progress := func(completed, total int) {
		fmt.Printf("\r  probing %d/%d...", completed, total)
	}

	result, err := eng.Probe(ctx, args[0], probeTopN, method, progress)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	logger.Info("probe finished",
		"asin", result.ASIN,
		"attempted", result.Attempted,
		"found", len(result.Rankings),
		"blocked", result.Blocked,
		"failed", result.Failed,
	)

	fmt.Printf("\nProbed %s: ranked for %d of %d keywords\n",
		result.ASIN, len(result.Rankings), result.Attempted)
	if result.Blocked > 0 {
		fmt.Printf("  Soft-blocked on %d keywords (cooled down and skipped)\n", result.Blocked)
	}
	if result.Failed > 0 {
		fmt.Printf("  %d keywords failed with transient errors\n", result.Failed)
	}
	if result.Cancelled {
		fmt.Println("  Run interrupted; partial results were saved.")
	}

	if len(result.Rankings) > 0 {
		fmt.Println("\n  Pos  Keyword")
		for _, r := range result.Rankings {
			fmt.Printf("  %3d  %s\n", r.Position, r.Keyword)
		}
	}

	if method == prober.MethodDelegated {
		if spend := eng.DataForSEO().EstimatedSpend(); spend > 0 {
			fmt.Printf("\n  Estimated API spend this run: $%.4f\n", spend)
		}
	}
	return nil
}
