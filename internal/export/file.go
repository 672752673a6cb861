package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"bookscout/internal/config"
)

var csvHeader = []string{
	"keyword", "category", "source", "score",
	"autocomplete_position", "competition_count", "estimated_volume",
	"suggested_bid", "impressions", "clicks", "orders",
}

// CSVBackend writes rows as a spreadsheet-friendly CSV file.
type CSVBackend struct {
	path   string
	file   *os.File
	writer *csv.Writer
	count  int
	logger *slog.Logger
}

func NewCSVBackend(outputPath string, logger *slog.Logger) (*CSVBackend, error) {
	f, err := createOutput(outputPath)
	if err != nil {
		return nil, err
	}
	return &CSVBackend{
		path:   outputPath,
		file:   f,
		writer: csv.NewWriter(f),
		logger: logger.With("component", "csv_export"),
	}, nil
}

func (b *CSVBackend) Name() string { return "csv" }

func (b *CSVBackend) Write(rows []Row) error {
	if err := b.writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Keyword,
			row.Category,
			row.Source,
			strconv.FormatFloat(row.Score, 'f', 1, 64),
			intCell(row.AutocompletePosition),
			intCell(row.CompetitionCount),
			intCell(row.EstimatedVolume),
			floatCell(row.SuggestedBid),
			intCell(row.Impressions),
			intCell(row.Clicks),
			intCell(row.Orders),
		}
		if err := b.writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
		b.count++
	}
	b.writer.Flush()
	return b.writer.Error()
}

func (b *CSVBackend) Close() error {
	b.writer.Flush()
	b.logger.Info("csv written", "path", b.path, "rows", b.count)
	return b.file.Close()
}

// JSONLBackend writes one JSON object per line.
type JSONLBackend struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	count  int
	logger *slog.Logger
}

func NewJSONLBackend(outputPath string, logger *slog.Logger) (*JSONLBackend, error) {
	f, err := createOutput(outputPath)
	if err != nil {
		return nil, err
	}
	return &JSONLBackend{
		path:   outputPath,
		file:   f,
		enc:    json.NewEncoder(f),
		logger: logger.With("component", "jsonl_export"),
	}, nil
}

func (b *JSONLBackend) Name() string { return "jsonl" }

func (b *JSONLBackend) Write(rows []Row) error {
	for _, row := range rows {
		if err := b.enc.Encode(row); err != nil {
			return fmt.Errorf("encode jsonl row: %w", err)
		}
		b.count++
	}
	return nil
}

func (b *JSONLBackend) Close() error {
	b.logger.Info("jsonl written", "path", b.path, "rows", b.count)
	return b.file.Close()
}

// MultiBackend fans rows out to several backends; the first error from
// each phase is reported, but every backend still sees the rows.
type MultiBackend struct {
	backends []Backend
	logger   *slog.Logger
}

func NewMultiBackend(backends []Backend, logger *slog.Logger) *MultiBackend {
	return &MultiBackend{backends: backends, logger: logger.With("component", "multi_export")}
}

func (b *MultiBackend) Name() string { return "multi" }

func (b *MultiBackend) Write(rows []Row) error {
	var first error
	for _, backend := range b.backends {
		if err := backend.Write(rows); err != nil {
			b.logger.Error("backend write failed", "backend", backend.Name(), "err", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (b *MultiBackend) Close() error {
	var first error
	for _, backend := range b.backends {
		if err := backend.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewBackend builds the configured backend: a CSV or JSONL file, with
// a MongoDB mirror fanned in when a URI is configured.
func NewBackend(cfg config.ExportConfig, logger *slog.Logger) (Backend, error) {
	var file Backend
	var err error
	switch cfg.Format {
	case "", "csv":
		file, err = NewCSVBackend(cfg.OutputPath, logger)
	case "jsonl":
		file, err = NewJSONLBackend(cfg.OutputPath, logger)
	default:
		return nil, fmt.Errorf("unsupported export format %q", cfg.Format)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MongoURI == "" {
		return file, nil
	}
	mirror, err := NewMongoBackend(cfg.MongoURI, cfg.MongoDB, cfg.MongoColl, logger)
	if err != nil {
		file.Close()
		return nil, err
	}
	return NewMultiBackend([]Backend{file, mirror}, logger), nil
}

func createOutput(outputPath string) (*os.File, error) {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
