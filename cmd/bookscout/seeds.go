package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookscout/internal/automation"
	"bookscout/internal/config"
)

var seedDepartment string

// seedsCmd creates the "seeds" command group for the re-mining list.
func seedsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seeds",
		Short: "Manage seed keywords for automated re-mining",
	}

	add := &cobra.Command{
		Use:   "add [keyword]",
		Short: "Add a seed keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openSeeds()
			if err != nil {
				return err
			}
			added, err := mgr.Add(args[0], seedDepartment)
			if err != nil {
				return err
			}
			if added {
				fmt.Printf("Added seed %q (%s)\n", args[0], seedDepartment)
			} else {
				fmt.Printf("Updated seed %q (%s)\n", args[0], seedDepartment)
			}
			return nil
		},
	}
	add.Flags().StringVar(&seedDepartment, "department", "kindle", "department: kindle, books, or all")

	remove := &cobra.Command{
		Use:   "remove [keyword]",
		Short: "Remove a seed keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openSeeds()
			if err != nil {
				return err
			}
			removed, err := mgr.Remove(args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Printf("Seed %q not found\n", args[0])
				return nil
			}
			fmt.Printf("Removed seed %q\n", args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List seed keywords",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openSeeds()
			if err != nil {
				return err
			}
			seeds := mgr.Seeds()
			if len(seeds) == 0 {
				fmt.Println("No seed keywords. Try: bookscout seeds add \"your seed phrase\"")
				return nil
			}
			fmt.Printf("%d seed keywords\n\n", len(seeds))
			fmt.Println("  Keyword                         Department  Mined  Last Mined")
			for _, s := range seeds {
				last := "never"
				if s.LastMined != nil {
					last = s.LastMined.Format("2006-01-02")
				}
				fmt.Printf("  %-30s  %-10s  %5d  %s\n", s.Keyword, s.Department, s.MineCount, last)
			}
			return nil
		},
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}

func openSeeds() (*automation.SeedManager, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return automation.NewSeedManager(cfg.Seeds.Path, setupLogger(cfg))
}
