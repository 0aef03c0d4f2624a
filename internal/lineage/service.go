// Package lineage answers bounded-depth lineage queries against the current
// snapshot. The edge graph is built once per snapshot and cached; a promoted
// snapshot is immutable, so the cache only turns over when the current
// pointer moves.
package lineage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/metalake-labs/mdlh/internal/graph"
	"github.com/metalake-labs/mdlh/pkg/meta"
)

// DefaultMaxDepth bounds a traversal when the caller does not pick a depth.
const DefaultMaxDepth = 5

// ErrNoSnapshot is returned when no refresh has ever completed, so there is
// no relation to query.
var ErrNoSnapshot = errors.New("no current snapshot: run a refresh first")

// Service resolves lineage queries over the current snapshot.
type Service struct {
	store  meta.Store
	logger *slog.Logger

	mu         sync.RWMutex
	snapshotID string
	cached     *graph.Graph
}

// NewService creates a lineage service over an opened store.
func NewService(store meta.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Lineage walks from startGUID in one direction up to maxDepth hops.
// maxDepth <= 0 selects DefaultMaxDepth. A start guid absent from the
// registry yields an empty result, not an error.
func (s *Service) Lineage(startGUID string, dir meta.Direction, maxDepth int) ([]meta.LineageHop, error) {
	if !dir.Valid() {
		return nil, fmt.Errorf("invalid direction %q (want %s or %s)",
			dir, meta.DirectionUpstream, meta.DirectionDownstream)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	snap, g, err := s.currentGraph()
	if err != nil {
		return nil, err
	}

	asset, err := s.store.GetAsset(snap.ID, startGUID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up start asset: %w", err)
	}
	if asset == nil {
		s.logger.Debug("lineage start guid not in registry", "guid", startGUID)
		return nil, nil
	}

	return g.Walk(startGUID, dir, maxDepth), nil
}

// Full returns upstream then downstream hops for a start asset in one call.
func (s *Service) Full(startGUID string, maxDepth int) ([]meta.LineageHop, error) {
	up, err := s.Lineage(startGUID, meta.DirectionUpstream, maxDepth)
	if err != nil {
		return nil, err
	}
	down, err := s.Lineage(startGUID, meta.DirectionDownstream, maxDepth)
	if err != nil {
		return nil, err
	}
	return append(up, down...), nil
}

// currentGraph returns the current snapshot and its cached edge graph,
// rebuilding the cache when the current pointer has moved.
func (s *Service) currentGraph() (*meta.Snapshot, *graph.Graph, error) {
	snap, err := s.store.CurrentSnapshot()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve current snapshot: %w", err)
	}
	if snap == nil {
		return nil, nil, ErrNoSnapshot
	}

	s.mu.RLock()
	if s.snapshotID == snap.ID && s.cached != nil {
		g := s.cached
		s.mu.RUnlock()
		return snap, g, nil
	}
	s.mu.RUnlock()

	edges, err := s.store.ListEdges(snap.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load edges: %w", err)
	}
	g := graph.Build(edges)
	s.logger.Debug("built lineage graph",
		"snapshot", snap.ID, "nodes", g.NodeCount(), "edges", g.EdgeCount())

	s.mu.Lock()
	s.snapshotID = snap.ID
	s.cached = g
	s.mu.Unlock()

	return snap, g, nil
}
