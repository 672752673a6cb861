package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importCampaign string

// importAdsCmd creates the "import-ads" subcommand.
func importAdsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ads [report.csv]",
		Short: "Import an Amazon Ads search-term report",
		Long: "Import a search-term report CSV exported from the Amazon Ads console.\n" +
			"Metrics for matching keywords are merged into today's snapshot.",
		Args: cobra.ExactArgs(1),
		RunE: runImportAds,
	}

	cmd.Flags().StringVar(&importCampaign, "campaign", "", "only import rows whose campaign name contains this text")

	return cmd
}

func runImportAds(cmd *cobra.Command, args []string) error {
	eng, _, logger, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.Ads().ImportCSV(args[0], importCampaign)
	if err != nil {
		return fmt.Errorf("import ads: %w", err)
	}

	logger.Info("ads import finished",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"enriched", result.Enriched,
	)
	fmt.Printf("Imported %d search terms (%d skipped)\n", result.Imported, result.Skipped)
	fmt.Printf("Enriched %d keywords with ads metrics\n", result.Enriched)
	if result.Enriched > 0 {
		fmt.Println("Run `bookscout score -r` to fold the new signals into scores.")
	}
	return nil
}
