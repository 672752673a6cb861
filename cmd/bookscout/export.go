package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookscout/internal/export"
)

var (
	exportFormat   string
	exportOutput   string
	exportMinScore float64
)

// exportCmd creates the "export" subcommand.
func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export scored keywords to CSV or JSONL",
		Long: "Write scored keywords to an ads-ready file, best score first.\n" +
			"A MongoDB mirror receives the same rows when configured.",
		RunE: runExport,
	}

	cmd.Flags().StringVarP(&exportFormat, "format", "f", "", "output format: csv or jsonl (default from config)")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file path (default from config)")
	cmd.Flags().Float64Var(&exportMinScore, "min-score", -1, "minimum score to include (default from config)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	eng, cfg, logger, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	exportCfg := cfg.Export
	if exportFormat != "" {
		exportCfg.Format = exportFormat
	}
	if exportOutput != "" {
		exportCfg.OutputPath = exportOutput
	}
	if exportMinScore >= 0 {
		exportCfg.MinScore = exportMinScore
	}

	backend, err := export.NewBackend(exportCfg, logger)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	n, err := export.New(eng.Store(), logger).Export(backend, exportCfg.MinScore)
	if closeErr := backend.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	fmt.Printf("Exported %d keywords (min score %.0f) to %s\n",
		n, exportCfg.MinScore, exportCfg.OutputPath)
	return nil
}
