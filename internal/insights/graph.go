package insights

import (
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/agentmemory/agentmemory/internal/store"
)

// depGraph wraps the two directed call/import graphs the insight engine
// derives connectivity from (§4.7: callerCount/importerCount/allConnections).
type depGraph struct {
	calls   graph.Graph[string, string]
	imports graph.Graph[string, string]

	// byName indexes every live row id by its bare symbol name, since calls
	// and imports CSVs reference symbols by name, not by the path-qualified
	// row id (§3 CodeChunk.calls/imports).
	byName map[string][]string
}

// idHash is the identity hash dominikbraun/graph needs for a string-keyed
// vertex type (mirrors the teacher pack's own `func(n *Node) string { return
// n.ID }` hash for its graph.Graph[string, *Node]).
func idHash(id string) string { return id }

func buildDepGraph(records []store.StoredCodeRecord) *depGraph {
	g := &depGraph{
		calls:   graph.New(idHash, graph.Directed()),
		imports: graph.New(idHash, graph.Directed()),
		byName:  make(map[string][]string),
	}
	for _, r := range records {
		_ = g.calls.AddVertex(r.ID)
		_ = g.imports.AddVertex(r.ID)
		g.byName[r.Symbol] = append(g.byName[r.Symbol], r.ID)
	}
	for _, r := range records {
		for _, name := range splitCSV(r.Calls) {
			for _, targetID := range g.byName[name] {
				if targetID == r.ID {
					continue
				}
				_ = g.calls.AddEdge(r.ID, targetID)
			}
		}
		for _, entry := range splitCSV(r.Imports) {
			name := entry
			if idx := strings.Index(entry, ":"); idx >= 0 {
				name = entry[:idx]
			}
			for _, targetID := range g.byName[name] {
				if targetID == r.ID {
					continue
				}
				_ = g.imports.AddEdge(r.ID, targetID)
			}
		}
	}
	return g
}

func splitCSV(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (g *depGraph) callerCount(id string) int {
	preds, err := g.calls.PredecessorMap()
	if err != nil {
		return 0
	}
	return len(preds[id])
}

func (g *depGraph) calleeCount(id string) int {
	adj, err := g.calls.AdjacencyMap()
	if err != nil {
		return 0
	}
	return len(adj[id])
}

func (g *depGraph) importerCount(id string) int {
	preds, err := g.imports.PredecessorMap()
	if err != nil {
		return 0
	}
	return len(preds[id])
}

func (g *depGraph) callers(id string) []string {
	preds, err := g.calls.PredecessorMap()
	if err != nil {
		return nil
	}
	return keysOf(preds[id])
}

func (g *depGraph) callees(id string) []string {
	adj, err := g.calls.AdjacencyMap()
	if err != nil {
		return nil
	}
	return keysOf(adj[id])
}

func (g *depGraph) importers(id string) []string {
	preds, err := g.imports.PredecessorMap()
	if err != nil {
		return nil
	}
	return keysOf(preds[id])
}

// importeeCount is id's own out-degree in the imports graph: how many
// existing symbols id imports. Used only to decide whether id is fully
// disconnected for dead-code purposes — it is not part of allConnections.
func (g *depGraph) importeeCount(id string) int {
	adj, err := g.imports.AdjacencyMap()
	if err != nil {
		return 0
	}
	return len(adj[id])
}

func keysOf[K comparable, V any](m map[K]V) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// crossDirectoryImportCount counts import edges whose source and target
// rows live in different two-level directory rollups.
func crossDirectoryImportCount(g *depGraph, byID map[string]store.StoredCodeRecord) int {
	adj, err := g.imports.AdjacencyMap()
	if err != nil {
		return 0
	}
	count := 0
	for from, targets := range adj {
		src, ok := byID[from]
		if !ok {
			continue
		}
		for to := range targets {
			dst, ok := byID[to]
			if !ok {
				continue
			}
			if directoryRollup(src.Path) != directoryRollup(dst.Path) {
				count++
			}
		}
	}
	return count
}
