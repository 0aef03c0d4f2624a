package refresh

import (
	"sort"

	"github.com/metalake-labs/mdlh/pkg/meta"
)

// Aggregate unions raw edges from all process-type sources into one relation.
// Set semantics: duplicate (process, input, output) triples collapse to one
// row no matter how many sources carry them. Rows with an empty input or
// output guid are dropped since they cannot participate in any path.
// Output is sorted by (process, input, output) so refreshes over unchanged
// sources produce identical relations.
func Aggregate(sources ...[]meta.RawEdge) []meta.RawEdge {
	type key struct {
		process, input, output string
	}
	seen := make(map[key]struct{})

	var edges []meta.RawEdge
	for _, source := range sources {
		for _, e := range source {
			if e.InputGUID == "" || e.OutputGUID == "" {
				continue
			}
			k := key{e.ProcessGUID, e.InputGUID, e.OutputGUID}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			edges = append(edges, e)
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.ProcessGUID != b.ProcessGUID {
			return a.ProcessGUID < b.ProcessGUID
		}
		if a.InputGUID != b.InputGUID {
			return a.InputGUID < b.InputGUID
		}
		return a.OutputGUID < b.OutputGUID
	})

	return edges
}

// Resolve joins aggregated edges against the asset registry to attach
// human-readable endpoint names and types. A dangling endpoint resolves to
// name = raw guid and type = "unknown", never to a dropped or null row.
func Resolve(raw []meta.RawEdge, assets []meta.Asset) []meta.Edge {
	byGUID := make(map[string]*meta.Asset, len(assets))
	for i := range assets {
		byGUID[assets[i].GUID] = &assets[i]
	}

	resolve := func(guid string) (name, typ string) {
		if a, ok := byGUID[guid]; ok {
			return a.Name, a.TypeName
		}
		return guid, meta.UnknownType
	}

	edges := make([]meta.Edge, 0, len(raw))
	for _, r := range raw {
		e := meta.Edge{
			ProcessGUID: r.ProcessGUID,
			InputGUID:   r.InputGUID,
			OutputGUID:  r.OutputGUID,
		}
		e.InputName, e.InputType = resolve(r.InputGUID)
		e.OutputName, e.OutputType = resolve(r.OutputGUID)
		edges = append(edges, e)
	}
	return edges
}

// FlagLineage sets HasLineage on every asset that appears as an edge
// endpoint. Operates in place and returns the slice for chaining.
func FlagLineage(assets []meta.Asset, edges []meta.Edge) []meta.Asset {
	endpoints := make(map[string]struct{}, len(edges)*2)
	for _, e := range edges {
		endpoints[e.InputGUID] = struct{}{}
		endpoints[e.OutputGUID] = struct{}{}
	}
	for i := range assets {
		_, ok := endpoints[assets[i].GUID]
		assets[i].HasLineage = ok
	}
	return assets
}
