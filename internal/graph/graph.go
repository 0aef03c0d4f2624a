// Package graph provides the in-memory edge index and bounded breadth-first
// traversal used by lineage queries. The graph is built once per snapshot
// from the resolved edge relation and is immutable afterwards.
package graph

import (
	"sort"

	"github.com/metalake-labs/mdlh/pkg/meta"
)

// endpoint is one reachable neighbor together with its denormalized
// name/type, taken from the resolved edge that discovered it.
type endpoint struct {
	guid string
	name string
	typ  string
}

// Graph indexes resolved edges in both directions. out maps an input guid to
// the output endpoints it feeds; in maps an output guid to the input
// endpoints that feed it.
type Graph struct {
	out   map[string][]endpoint
	in    map[string][]endpoint
	edges int
}

// Build constructs a Graph from resolved edges. Edges with an empty input or
// output guid never reach this point (the aggregator drops them), but they
// are skipped here as well so a hand-built edge set cannot corrupt the index.
func Build(edges []meta.Edge) *Graph {
	g := &Graph{
		out: make(map[string][]endpoint),
		in:  make(map[string][]endpoint),
	}
	for _, e := range edges {
		if e.InputGUID == "" || e.OutputGUID == "" {
			continue
		}
		g.out[e.InputGUID] = append(g.out[e.InputGUID], endpoint{
			guid: e.OutputGUID,
			name: e.OutputName,
			typ:  e.OutputType,
		})
		g.in[e.OutputGUID] = append(g.in[e.OutputGUID], endpoint{
			guid: e.InputGUID,
			name: e.InputName,
			typ:  e.InputType,
		})
		g.edges++
	}
	return g
}

// HasNode reports whether guid appears on any edge, in either role.
func (g *Graph) HasNode(guid string) bool {
	if _, ok := g.out[guid]; ok {
		return true
	}
	_, ok := g.in[guid]
	return ok
}

// EdgeCount returns the number of indexed edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// NodeCount returns the number of distinct guids appearing on any edge.
func (g *Graph) NodeCount() int {
	seen := make(map[string]struct{}, len(g.out)+len(g.in))
	for id := range g.out {
		seen[id] = struct{}{}
	}
	for id := range g.in {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// Walk performs a breadth-first expansion from start in the given direction,
// bounded by maxDepth hops. The start node itself is not emitted; levels
// begin at 1. Each reachable guid is reported exactly once, at its minimum
// hop count: the visited set admits a node on first discovery only, which
// also guarantees termination on cyclic graphs. Output is ordered by
// (level, related guid). A start guid absent from the graph yields an empty
// result. maxDepth <= 0 yields an empty result.
func (g *Graph) Walk(start string, dir meta.Direction, maxDepth int) []meta.LineageHop {
	if maxDepth <= 0 || !g.HasNode(start) {
		return nil
	}

	adj := g.out
	if dir == meta.DirectionUpstream {
		adj = g.in
	}

	visited := map[string]bool{start: true}
	frontier := []string{start}

	var hops []meta.LineageHop
	for level := 1; level <= maxDepth && len(frontier) > 0; level++ {
		// Collect this level's discoveries before sorting, so the output
		// order is deterministic regardless of edge insertion order.
		var next []string
		var discovered []meta.LineageHop
		for _, id := range frontier {
			for _, ep := range adj[id] {
				if visited[ep.guid] {
					continue
				}
				visited[ep.guid] = true
				next = append(next, ep.guid)
				discovered = append(discovered, meta.LineageHop{
					StartGUID:   start,
					Direction:   dir,
					RelatedGUID: ep.guid,
					RelatedName: ep.name,
					RelatedType: ep.typ,
					Level:       level,
				})
			}
		}
		sort.Slice(discovered, func(i, j int) bool {
			return discovered[i].RelatedGUID < discovered[j].RelatedGUID
		})
		hops = append(hops, discovered...)
		sort.Strings(next)
		frontier = next
	}

	return hops
}
