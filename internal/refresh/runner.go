package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/metalake-labs/mdlh/internal/adapter"
	"github.com/metalake-labs/mdlh/pkg/meta"
)

// Options configures a refresh runner.
type Options struct {
	// EntityTables overrides DefaultEntityTables when non-empty.
	EntityTables []string
	// EdgeTables overrides DefaultEdgeTables when non-empty.
	EdgeTables []string
	// KeepSnapshots is how many retired snapshots to retain after a
	// successful promotion. Zero disables pruning.
	KeepSnapshots int
}

// Runner orchestrates refresh cycles. Runs are serialized with a mutex so a
// ticker firing during a slow extract cannot start an overlapping cycle.
type Runner struct {
	store  meta.Store
	source adapter.Adapter
	opts   Options
	logger *slog.Logger

	mu sync.Mutex
}

// NewRunner creates a runner over an opened store and a connected source.
func NewRunner(store meta.Store, source adapter.Adapter, opts Options, logger *slog.Logger) *Runner {
	return &Runner{
		store:  store,
		source: source,
		opts:   opts,
		logger: logger,
	}
}

// Run executes one refresh cycle and returns the promoted snapshot.
//
// The cycle is all-or-nothing: any failure marks the new snapshot failed,
// clears its partial relations, and leaves the previous current snapshot
// untouched. Readers either see the old snapshot or the fully built new one.
func (r *Runner) Run(ctx context.Context) (*meta.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	snap, err := r.store.CreateSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	run, err := r.store.CreateRun(snap.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	r.logger.Info("refresh started", "snapshot", snap.ID, "run", run.ID)

	promoted, err := r.build(ctx, snap.ID)
	if err != nil {
		r.logger.Error("refresh failed", "snapshot", snap.ID, "error", err)
		if failErr := r.store.FailSnapshot(snap.ID); failErr != nil {
			r.logger.Error("failed to mark snapshot failed", "snapshot", snap.ID, "error", failErr)
		}
		if runErr := r.store.CompleteRun(run.ID, meta.RunStatusFailed, err.Error()); runErr != nil {
			r.logger.Error("failed to record run failure", "run", run.ID, "error", runErr)
		}
		return nil, err
	}

	if err := r.store.CompleteRun(run.ID, meta.RunStatusCompleted, ""); err != nil {
		r.logger.Error("failed to record run completion", "run", run.ID, "error", err)
	}

	if r.opts.KeepSnapshots > 0 {
		pruned, err := r.store.PruneSnapshots(r.opts.KeepSnapshots)
		if err != nil {
			r.logger.Warn("failed to prune snapshots", "error", err)
		} else if pruned > 0 {
			r.logger.Debug("pruned old snapshots", "count", pruned)
		}
	}

	r.logger.Info("refresh completed",
		"snapshot", promoted.ID,
		"assets", promoted.AssetCount,
		"edges", promoted.EdgeCount,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return promoted, nil
}

func (r *Runner) build(ctx context.Context, snapshotID string) (*meta.Snapshot, error) {
	extractor := NewExtractor(r.source, r.logger)

	assets, err := extractor.ExtractAssets(ctx, r.opts.EntityTables)
	if err != nil {
		return nil, fmt.Errorf("extract assets: %w", err)
	}

	sources, err := extractor.ExtractRawEdges(ctx, r.opts.EdgeTables)
	if err != nil {
		return nil, fmt.Errorf("extract edges: %w", err)
	}

	raw := Aggregate(sources...)
	edges := Resolve(raw, assets)
	assets = FlagLineage(assets, edges)

	if err := r.store.InsertAssets(snapshotID, assets); err != nil {
		return nil, fmt.Errorf("persist assets: %w", err)
	}
	if err := r.store.InsertEdges(snapshotID, edges); err != nil {
		return nil, fmt.Errorf("persist edges: %w", err)
	}

	if err := r.store.PromoteSnapshot(snapshotID); err != nil {
		return nil, fmt.Errorf("promote snapshot: %w", err)
	}

	return r.store.GetSnapshot(snapshotID)
}

// RunEvery runs refresh cycles on a fixed interval until the context is
// cancelled. A failed cycle is logged and the ticker continues; the previous
// snapshot keeps serving reads.
func (r *Runner) RunEvery(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("periodic refresh enabled", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				r.logger.Error("periodic refresh cycle failed", "error", err)
			}
		}
	}
}
