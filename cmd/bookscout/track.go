package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bookscout/internal/tracker"
)

var (
	trackName string
	trackOwn  bool
)

// trackCmd creates the "track" command group for book tracking.
func trackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Track books and competitors",
	}

	add := &cobra.Command{
		Use:   "add [asin]",
		Short: "Start tracking a book by ASIN",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrackAdd,
	}
	add.Flags().StringVar(&trackName, "name", "", "display name (defaults to the scraped title)")
	add.Flags().BoolVar(&trackOwn, "own", false, "mark this as one of your own books")

	remove := &cobra.Command{
		Use:   "remove [asin]",
		Short: "Stop tracking a book",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrackRemove,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tracked books with their latest snapshot",
		RunE:  runTrackList,
	}

	snapshot := &cobra.Command{
		Use:   "snapshot [asin]",
		Short: "Snapshot sales rank and prices (all books when no ASIN given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTrackSnapshot,
	}

	compare := &cobra.Command{
		Use:   "compare [asin...]",
		Short: "Compare tracked books side by side",
		RunE:  runTrackCompare,
	}

	cmd.AddCommand(add, remove, list, snapshot, compare)
	return cmd
}

func runTrackAdd(cmd *cobra.Command, args []string) error {
	eng, _, _, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := interruptibleContext()
	defer stop()

	result, err := eng.Tracker().Add(ctx, args[0], trackName, trackOwn)
	if err != nil {
		return fmt.Errorf("track add: %w", err)
	}

	verb := "Updated"
	if result.IsNew {
		verb = "Now tracking"
	}
	fmt.Printf("%s %s", verb, result.Book.ASIN)
	if result.Book.Title != "" {
		fmt.Printf(" — %s", result.Book.Title)
	}
	fmt.Println()
	if result.Snapshot == nil {
		fmt.Println("  Initial scrape yielded no data; run `bookscout track snapshot` later.")
	} else if result.Snapshot.BSROverall != nil {
		fmt.Printf("  BSR #%d", *result.Snapshot.BSROverall)
		if result.Snapshot.EstimatedDailySales != nil {
			fmt.Printf("  (~%.1f sales/day)", *result.Snapshot.EstimatedDailySales)
		}
		fmt.Println()
	}
	return nil
}

func runTrackRemove(cmd *cobra.Command, args []string) error {
	eng, _, _, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	removed, err := eng.Tracker().Remove(args[0])
	if err != nil {
		return fmt.Errorf("track remove: %w", err)
	}
	if !removed {
		fmt.Printf("%s was not tracked\n", args[0])
		return nil
	}
	fmt.Printf("Stopped tracking %s\n", args[0])
	return nil
}

func runTrackList(cmd *cobra.Command, args []string) error {
	eng, _, _, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	books, err := eng.Tracker().List()
	if err != nil {
		return fmt.Errorf("track list: %w", err)
	}
	if len(books) == 0 {
		fmt.Println("No books tracked. Try: bookscout track add <asin>")
		return nil
	}

	printComparison(books)
	return nil
}

func runTrackSnapshot(cmd *cobra.Command, args []string) error {
	eng, _, logger, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	asin := ""
	if len(args) > 0 {
		asin = args[0]
	}

	ctx, stop := interruptibleContext()
	defer stop()

	outcomes, err := eng.Tracker().Snapshot(ctx, asin)
	if err != nil {
		return fmt.Errorf("track snapshot: %w", err)
	}

	var ok, failed int
	for _, o := range outcomes {
		name := o.Title
		if name == "" {
			name = o.ASIN
		}
		if o.Err != nil {
			failed++
			fmt.Printf("  %s: failed (%v)\n", name, o.Err)
			continue
		}
		ok++
		fmt.Printf("  %s: snapshot taken", name)
		if o.Snapshot.BSROverall != nil {
			fmt.Printf(", BSR #%d", *o.Snapshot.BSROverall)
		}
		fmt.Println()
		for _, c := range o.Changes {
			fmt.Printf("      %s: %.0f -> %.0f (%s)\n", c.Label, c.Old, c.New, c.Direction)
		}
	}

	logger.Info("snapshot run finished", "ok", ok, "failed", failed)
	fmt.Printf("\n%d snapshots taken", ok)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()
	return nil
}

func runTrackCompare(cmd *cobra.Command, args []string) error {
	eng, _, _, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	books, err := eng.Tracker().Compare(args)
	if err != nil {
		return fmt.Errorf("track compare: %w", err)
	}
	if len(books) == 0 {
		fmt.Println("Nothing to compare.")
		return nil
	}

	printComparison(books)
	return nil
}

func printComparison(books []tracker.TrackedBook) {
	fmt.Println("  ASIN        Own  BSR        Price    Reviews  Rating  Est. Sales/Day  Title")
	for _, tb := range books {
		own := " "
		if tb.Book.IsOwn {
			own = "*"
		}
		bsrCell, priceCell, reviewsCell, ratingCell, salesCell := "-", "-", "-", "-", "-"
		if s := tb.Latest; s != nil {
			if s.BSROverall != nil {
				bsrCell = fmt.Sprintf("#%d", *s.BSROverall)
			}
			if s.PriceKindle != nil {
				priceCell = fmt.Sprintf("$%.2f", *s.PriceKindle)
			} else if s.PricePaperback != nil {
				priceCell = fmt.Sprintf("$%.2f", *s.PricePaperback)
			}
			if s.ReviewCount != nil {
				reviewsCell = fmt.Sprintf("%d", *s.ReviewCount)
			}
			if s.AvgRating != nil {
				ratingCell = fmt.Sprintf("%.1f", *s.AvgRating)
			}
			if s.EstimatedDailySales != nil {
				salesCell = fmt.Sprintf("%.1f", *s.EstimatedDailySales)
			}
		}
		title := tb.Book.Title
		if len(title) > 40 {
			title = strings.TrimSpace(title[:37]) + "..."
		}
		fmt.Printf("  %-10s  %s    %-9s  %-7s  %-7s  %-6s  %-14s  %s\n",
			tb.Book.ASIN, own, bsrCell, priceCell, reviewsCell, ratingCell, salesCell, title)
	}
}
