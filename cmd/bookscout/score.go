package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	scoreRecalculate bool
	keywordsLimit    int
)

// scoreCmd creates the "score" subcommand.
func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute composite scores for stored keywords",
		Long: "Score keywords from their latest signals: autocomplete position,\n" +
			"competition, demand proxy, and imported ads performance.",
		RunE: runScore,
	}

	cmd.Flags().BoolVarP(&scoreRecalculate, "recalculate", "r", false, "re-score every keyword, not just unscored ones")

	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	eng, _, logger, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	n, err := eng.ScoreAll(scoreRecalculate)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}
	logger.Info("scoring finished", "scored", n, "recalculate", scoreRecalculate)
	fmt.Printf("Scored %d keywords\n", n)
	return nil
}

// keywordsCmd creates the "keywords" subcommand listing top keywords.
func keywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "List the top keywords by score",
		RunE:  runKeywords,
	}

	cmd.Flags().IntVarP(&keywordsLimit, "limit", "n", 25, "number of keywords to show")

	return cmd
}

func runKeywords(cmd *cobra.Command, args []string) error {
	eng, _, _, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	keywords, err := eng.Store().TopKeywordsByScore(keywordsLimit)
	if err != nil {
		return fmt.Errorf("list keywords: %w", err)
	}
	total, err := eng.Store().KeywordCount()
	if err != nil {
		return fmt.Errorf("count keywords: %w", err)
	}

	if len(keywords) == 0 {
		fmt.Println("No keywords stored yet. Try: bookscout mine \"your seed phrase\"")
		return nil
	}

	fmt.Printf("Top %d of %d keywords\n\n", len(keywords), total)
	fmt.Println("  Score  Source        Keyword")
	for _, kw := range keywords {
		fmt.Printf("  %5.0f  %-12s  %s\n", kw.Score, kw.Source, kw.Text)
	}
	return nil
}
