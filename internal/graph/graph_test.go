package graph

import (
	"testing"

	"github.com/metalake-labs/mdlh/pkg/meta"
)

// edge builds a resolved edge with names derived from the guids.
func edge(process, input, output string) meta.Edge {
	return meta.Edge{
		ProcessGUID: process,
		InputGUID:   input,
		OutputGUID:  output,
		InputName:   "name-" + input,
		InputType:   "Table",
		OutputName:  "name-" + output,
		OutputType:  "Table",
	}
}

func TestBuild_SkipsEmptyEndpoints(t *testing.T) {
	g := Build([]meta.Edge{
		edge("p1", "a", "b"),
		{ProcessGUID: "p2", InputGUID: "", OutputGUID: "b"},
		{ProcessGUID: "p3", InputGUID: "a", OutputGUID: ""},
	})

	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", g.EdgeCount())
	}
	if g.NodeCount() != 2 {
		t.Errorf("expected 2 nodes, got %d", g.NodeCount())
	}
}

func TestWalk_UpstreamChain(t *testing.T) {
	// A -> B -> C
	g := Build([]meta.Edge{
		edge("p1", "A", "B"),
		edge("p2", "B", "C"),
	})

	hops := g.Walk("C", meta.DirectionUpstream, 5)
	if len(hops) != 2 {
		t.Fatalf("expected 2 hops, got %d: %+v", len(hops), hops)
	}

	if hops[0].RelatedGUID != "B" || hops[0].Level != 1 {
		t.Errorf("expected (B, level=1), got (%s, level=%d)", hops[0].RelatedGUID, hops[0].Level)
	}
	if hops[1].RelatedGUID != "A" || hops[1].Level != 2 {
		t.Errorf("expected (A, level=2), got (%s, level=%d)", hops[1].RelatedGUID, hops[1].Level)
	}
	if hops[0].RelatedName != "name-B" || hops[0].RelatedType != "Table" {
		t.Errorf("expected denormalized name/type, got %q/%q", hops[0].RelatedName, hops[0].RelatedType)
	}
}

func TestWalk_DownstreamDepthLimited(t *testing.T) {
	// A -> B -> C with depth 1: only B
	g := Build([]meta.Edge{
		edge("p1", "A", "B"),
		edge("p2", "B", "C"),
	})

	hops := g.Walk("A", meta.DirectionDownstream, 1)
	if len(hops) != 1 {
		t.Fatalf("expected 1 hop, got %d", len(hops))
	}
	if hops[0].RelatedGUID != "B" || hops[0].Level != 1 {
		t.Errorf("expected (B, level=1), got (%s, level=%d)", hops[0].RelatedGUID, hops[0].Level)
	}
}

func TestWalk_StartNotEmitted(t *testing.T) {
	g := Build([]meta.Edge{edge("p1", "A", "B")})

	for _, hop := range g.Walk("A", meta.DirectionDownstream, 5) {
		if hop.RelatedGUID == "A" {
			t.Error("start node must not appear in the traversal output")
		}
		if hop.Level < 1 {
			t.Errorf("levels begin at 1, got %d", hop.Level)
		}
	}
}

func TestWalk_CycleTerminates(t *testing.T) {
	// A -> B -> C -> A
	g := Build([]meta.Edge{
		edge("p1", "A", "B"),
		edge("p2", "B", "C"),
		edge("p3", "C", "A"),
	})

	hops := g.Walk("A", meta.DirectionDownstream, 100)
	if len(hops) != 2 {
		t.Fatalf("expected each node once, got %d hops: %+v", len(hops), hops)
	}

	seen := map[string]int{}
	for _, h := range hops {
		seen[h.RelatedGUID]++
	}
	if seen["B"] != 1 || seen["C"] != 1 {
		t.Errorf("expected B and C exactly once, got %v", seen)
	}
	if seen["A"] != 0 {
		t.Error("cycle must not re-emit the start node")
	}
}

func TestWalk_SelfLoopIgnored(t *testing.T) {
	g := Build([]meta.Edge{
		edge("p1", "A", "A"),
		edge("p2", "A", "B"),
	})

	hops := g.Walk("A", meta.DirectionDownstream, 5)
	if len(hops) != 1 || hops[0].RelatedGUID != "B" {
		t.Fatalf("expected only B, got %+v", hops)
	}
}

func TestWalk_MinimumLevelWins(t *testing.T) {
	// Diamond plus a shortcut: A -> B -> D, A -> C -> D, A -> D.
	// D is reachable at levels 1 and 2; it must be reported once, at 1.
	g := Build([]meta.Edge{
		edge("p1", "A", "B"),
		edge("p2", "A", "C"),
		edge("p3", "B", "D"),
		edge("p4", "C", "D"),
		edge("p5", "A", "D"),
	})

	hops := g.Walk("A", meta.DirectionDownstream, 5)
	levels := map[string]int{}
	count := map[string]int{}
	for _, h := range hops {
		levels[h.RelatedGUID] = h.Level
		count[h.RelatedGUID]++
	}

	if count["D"] != 1 {
		t.Errorf("expected D once, got %d", count["D"])
	}
	if levels["D"] != 1 {
		t.Errorf("expected D at minimum level 1, got %d", levels["D"])
	}
	if levels["B"] != 1 || levels["C"] != 1 {
		t.Errorf("expected B and C at level 1, got %v", levels)
	}
}

func TestWalk_StartAbsent(t *testing.T) {
	g := Build([]meta.Edge{edge("p1", "A", "B")})

	if hops := g.Walk("missing", meta.DirectionDownstream, 5); hops != nil {
		t.Errorf("expected empty result for unknown start, got %+v", hops)
	}
}

func TestWalk_DeterministicOrder(t *testing.T) {
	g := Build([]meta.Edge{
		edge("p1", "A", "z"),
		edge("p2", "A", "m"),
		edge("p3", "A", "b"),
	})

	hops := g.Walk("A", meta.DirectionDownstream, 1)
	want := []string{"b", "m", "z"}
	for i, h := range hops {
		if h.RelatedGUID != want[i] {
			t.Fatalf("expected order %v, got %+v", want, hops)
		}
	}
}

func TestWalk_ZeroDepth(t *testing.T) {
	g := Build([]meta.Edge{edge("p1", "A", "B")})

	if hops := g.Walk("A", meta.DirectionDownstream, 0); hops != nil {
		t.Errorf("expected empty result for depth 0, got %+v", hops)
	}
}
