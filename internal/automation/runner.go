package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bookscout/internal/miner"
	"bookscout/internal/tracker"
	"bookscout/internal/types"
)

// dailySeedLimit caps how many seeds the daily run re-mines; the
// weekly run mines all of them.
const dailySeedLimit = 5

// Pipeline is the slice of the engine the runner drives.
type Pipeline interface {
	Mine(ctx context.Context, seed string, depth int, department string, progress miner.ProgressFunc) (*types.MineResult, error)
	ScoreAll(recalculate bool) (int, error)
}

// Snapshotter takes sales-rank snapshots of tracked books. An empty
// ASIN means all of them.
type Snapshotter interface {
	Snapshot(ctx context.Context, asin string) ([]tracker.SnapshotOutcome, error)
}

// ExportFunc writes the current keyword report, returning row count.
type ExportFunc func() (int, error)

// Summary reports what a scheduled run accomplished.
type Summary struct {
	SnapshotsTaken  int
	SnapshotsFailed int
	SeedsMined      int
	NewKeywords     int
	TotalMined      int
	KeywordsScored  int
	RowsExported    int
	Elapsed         time.Duration
}

// Runner executes the daily and weekly task sequences. Individual
// step failures are logged and absorbed so one bad seed or book never
// aborts the whole run.
type Runner struct {
	seeds     *SeedManager
	pipeline  Pipeline
	snapshots Snapshotter
	export    ExportFunc
	logger    *slog.Logger
}

func NewRunner(seeds *SeedManager, pipeline Pipeline, snapshots Snapshotter, export ExportFunc, logger *slog.Logger) *Runner {
	return &Runner{
		seeds:     seeds,
		pipeline:  pipeline,
		snapshots: snapshots,
		export:    export,
		logger:    logger.With("component", "automation"),
	}
}

// RunDaily snapshots tracked books, re-mines the top seeds, and
// re-scores every keyword.
func (r *Runner) RunDaily(ctx context.Context) (*Summary, error) {
	start := time.Now()
	r.logger.Info("daily run starting")

	summary := &Summary{}
	r.takeSnapshots(ctx, summary)
	if err := r.remineSeeds(ctx, dailySeedLimit, summary); err != nil {
		return summary, err
	}
	r.scoreKeywords(summary)

	summary.Elapsed = time.Since(start)
	r.logger.Info("daily run complete",
		"snapshots", summary.SnapshotsTaken,
		"new_keywords", summary.NewKeywords,
		"scored", summary.KeywordsScored,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

// RunWeekly does the daily sequence over every seed, then exports the
// refreshed keyword report.
func (r *Runner) RunWeekly(ctx context.Context) (*Summary, error) {
	start := time.Now()
	r.logger.Info("weekly run starting")

	summary := &Summary{}
	r.takeSnapshots(ctx, summary)
	if err := r.remineSeeds(ctx, 0, summary); err != nil {
		return summary, err
	}
	r.scoreKeywords(summary)

	if r.export != nil {
		n, err := r.export()
		if err != nil {
			r.logger.Error("export failed", "err", err)
		} else {
			summary.RowsExported = n
		}
	}

	summary.Elapsed = time.Since(start)
	r.logger.Info("weekly run complete",
		"snapshots", summary.SnapshotsTaken,
		"new_keywords", summary.NewKeywords,
		"scored", summary.KeywordsScored,
		"exported", summary.RowsExported,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

func (r *Runner) takeSnapshots(ctx context.Context, summary *Summary) {
	outcomes, err := r.snapshots.Snapshot(ctx, "")
	if err != nil {
		r.logger.Error("snapshot run failed", "err", err)
		return
	}
	for _, o := range outcomes {
		if o.Err != nil {
			summary.SnapshotsFailed++
			continue
		}
		summary.SnapshotsTaken++
	}
}

// remineSeeds mines up to limit seeds at depth 1; limit 0 means all.
// Cancellation stops the loop; single-seed failures only log.
func (r *Runner) remineSeeds(ctx context.Context, limit int, summary *Summary) error {
	seeds := r.seeds.Seeds()
	if limit > 0 && len(seeds) > limit {
		seeds = seeds[:limit]
	}

	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("mining interrupted: %w", err)
		}
		result, err := r.pipeline.Mine(ctx, seed.Keyword, 1, seed.Department, nil)
		if err != nil {
			r.logger.Error("seed mining failed", "seed", seed.Keyword, "err", err)
			continue
		}
		summary.SeedsMined++
		summary.NewKeywords += result.NewCount
		summary.TotalMined += result.TotalMined
		if err := r.seeds.MarkMined(seed.Keyword); err != nil {
			r.logger.Warn("could not mark seed mined", "seed", seed.Keyword, "err", err)
		}
	}
	return nil
}

func (r *Runner) scoreKeywords(summary *Summary) {
	n, err := r.pipeline.ScoreAll(true)
	if err != nil {
		r.logger.Error("scoring failed", "err", err)
		return
	}
	summary.KeywordsScored = n
}
