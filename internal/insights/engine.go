package insights

import (
	"context"
	"sort"
	"sync"

	"github.com/agentmemory/agentmemory/internal/errs"
	"github.com/agentmemory/agentmemory/internal/store"
)

// Engine materializes CodeInsights lazily and caches it process-wide,
// invalidated on every successful code-store write (§4.7, §5: "Writes to
// code_symbols MUST invalidate the insights cache before returning").
type Engine struct {
	store *store.Store

	mu     sync.Mutex
	cached *CodeInsights
	dirty  bool
}

// NewEngine wires a store. The cache starts dirty so the first call
// materializes the report.
func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s, dirty: true}
}

// Invalidate marks the cached report stale. Call this after every
// successful code_symbols write.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dirty = true
	e.cached = nil
}

// GetCodeInsights returns the cached report, building it on first call or
// after an invalidation. Returns nil if no code_symbols rows exist
// (§6: "getCodeInsights() → CodeInsights | null").
func (e *Engine) GetCodeInsights(ctx context.Context) (*CodeInsights, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.dirty && e.cached != nil {
		return e.cached, nil
	}

	records, err := e.store.AllCodeRecords(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		e.dirty = false
		e.cached = nil
		return nil, nil
	}
	if len(records) > maxGraphRows {
		records = records[:maxGraphRows]
	}

	report := build(records)
	e.cached = report
	e.dirty = false
	return report, nil
}

// SymbolContext implements §6's symbolContext(name): definition plus
// callers/callees/importers, resolved by bare symbol name.
func (e *Engine) SymbolContext(ctx context.Context, name string) (*SymbolContext, error) {
	records, err := e.store.FindCodeBySymbol(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errs.New(errs.CodeNotFound, "symbol not found: "+name, nil)
	}

	all, err := e.store.AllCodeRecords(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > maxGraphRows {
		all = all[:maxGraphRows]
	}
	g := buildDepGraph(all)

	def := records[0]
	stat := &SymbolStat{
		ID:         def.ID,
		Path:       def.Path,
		Symbol:     def.Symbol,
		SymbolType: SymbolKind(def.SymbolType),
		Language:   def.Language,
	}
	return &SymbolContext{
		Definition: stat,
		Callers:    g.callers(def.ID),
		Callees:    g.callees(def.ID),
		Importers:  g.importers(def.ID),
	}, nil
}

func build(records []store.StoredCodeRecord) *CodeInsights {
	byID := make(map[string]store.StoredCodeRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	g := buildDepGraph(records)

	stats := make([]SymbolStat, len(records))
	files := map[string]bool{}
	langDist := map[string]int{}
	typeDist := map[string]int{}
	docCount := 0
	complexitySum := 0
	complexityDist := map[string]int{"1-5": 0, "6-10": 0, "11-20": 0, "21+": 0}

	for i, r := range records {
		callerCount := g.callerCount(r.ID)
		calleeCount := g.calleeCount(r.ID)
		importerCount := g.importerCount(r.ID)
		cyclo := cyclomaticComplexity(r.Body)
		cognitive := cognitiveComplexity(r.Body)
		doc := hasDoc(r.SymbolType, r.Symbol, r.Summary)

		stats[i] = SymbolStat{
			ID:               r.ID,
			Path:             r.Path,
			Symbol:           r.Symbol,
			SymbolType:       SymbolKind(r.SymbolType),
			Language:         r.Language,
			CallerCount:      callerCount,
			CalleeCount:      calleeCount,
			ImporterCount:    importerCount,
			TotalConnections: callerCount + calleeCount + importerCount,
			Cyclomatic:       cyclo,
			Cognitive:        cognitive,
			HasDoc:           doc,
			BodyLen:          len(r.Body),
		}

		files[r.Path] = true
		langDist[r.Language]++
		typeDist[r.SymbolType]++
		if doc {
			docCount++
		}
		complexitySum += cyclo
		complexityDist[complexityBucket(cyclo)]++
	}

	medianConnections := medianOf(connectionsOf(stats))

	var deadCode []string
	var godSymbols []string
	var highFanIn []string
	godThreshold := maxFloat(3*medianConnections, 5)
	fanInThreshold := maxFloat(0.3*float64(len(files)), 3)

	for _, s := range stats {
		// Dead: nothing calls it, nothing imports it, and it has no
		// outgoing edges of its own either — a fully disconnected node,
		// not merely an unreferenced one (a symbol that itself calls or
		// imports something is still reachable from program entry).
		isolated := s.CallerCount == 0 && s.ImporterCount == 0 && s.CalleeCount == 0 && g.importeeCount(s.ID) == 0
		if s.SymbolType != KindType && s.SymbolType != KindInterface && isolated {
			deadCode = append(deadCode, s.ID)
		}
		if float64(s.TotalConnections) >= godThreshold {
			godSymbols = append(godSymbols, s.ID)
		}
		if float64(s.ImporterCount) >= fanInThreshold {
			highFanIn = append(highFanIn, s.ID)
		}
	}

	report := &CodeInsights{
		TotalSymbols:             len(records),
		TotalFiles:               len(files),
		DistributionByLanguage:   langDist,
		DistributionBySymbolType: typeDist,
		HotFiles:                 topFilesByConnections(stats),
		MostConnected:            topSymbolsBy(stats, func(s SymbolStat) int { return s.TotalConnections }),
		TopComplexSymbols:        topSymbolsBy(stats, func(s SymbolStat) int { return s.Cyclomatic + s.Cognitive }),
		LargestSymbols:           topSymbolsBy(stats, func(s SymbolStat) int { return s.BodyLen }),
		ComplexityDistribution:   complexityDist,
		DeadCode:                 deadCode,
		DuplicateClusters:        findDuplicateClusters(records),
		DirectoryInsights:        directoryInsightsOf(stats),
		GodSymbols:               godSymbols,
		HighFanInSymbols:         highFanIn,
		CrossDirectoryImports:    crossDirectoryImportCount(g, byID),
		MedianConnections:        medianConnections,
		DocumentationCoverage:    ratio(docCount, len(records)),
		AvgComplexity:            float64(complexitySum) / float64(len(records)),
		AvgSymbolsPerFile:        float64(len(records)) / float64(len(files)),
	}
	return report
}

func connectionsOf(stats []SymbolStat) []float64 {
	out := make([]float64, len(stats))
	for i, s := range stats {
		out[i] = float64(s.TotalConnections)
	}
	return out
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func ratio(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

func topSymbolsBy(stats []SymbolStat, key func(SymbolStat) int) []SymbolCount {
	sorted := append([]SymbolStat(nil), stats...)
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i]) > key(sorted[j]) })
	n := topN
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]SymbolCount, n)
	for i := 0; i < n; i++ {
		out[i] = SymbolCount{Symbol: sorted[i].Symbol, Path: sorted[i].Path, Count: key(sorted[i])}
	}
	return out
}

func topFilesByConnections(stats []SymbolStat) []FileCount {
	perFile := map[string]int{}
	for _, s := range stats {
		perFile[s.Path] += s.TotalConnections
	}
	out := make([]FileCount, 0, len(perFile))
	for path, count := range perFile {
		out = append(out, FileCount{Path: path, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Path < out[j].Path
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

func directoryInsightsOf(stats []SymbolStat) []DirectoryInsight {
	type acc struct {
		count       int
		complexity  int
		connections int
	}
	perDir := map[string]*acc{}
	for _, s := range stats {
		dir := directoryRollup(s.Path)
		a, ok := perDir[dir]
		if !ok {
			a = &acc{}
			perDir[dir] = a
		}
		a.count++
		a.complexity += s.Cyclomatic
		a.connections += s.TotalConnections
	}
	out := make([]DirectoryInsight, 0, len(perDir))
	for dir, a := range perDir {
		out = append(out, DirectoryInsight{
			Directory:        dir,
			SymbolCount:      a.count,
			AvgComplexity:    float64(a.complexity) / float64(a.count),
			TotalConnections: a.connections,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Directory < out[j].Directory })
	return out
}
