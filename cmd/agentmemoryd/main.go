// Command agentmemoryd is a thin CLI over the agentmemory library: sync a
// workspace's checkpoints/code into its vector store, then search or
// inspect what was indexed. It exists only to exercise the library from a
// terminal; the TUI/HTTP/MCP adapter surfaces are out of scope here.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/agentmemory/agentmemory"
	"github.com/agentmemory/agentmemory/internal/logging"
	"github.com/agentmemory/agentmemory/internal/output"
	"github.com/agentmemory/agentmemory/internal/profiling"
	"github.com/agentmemory/agentmemory/internal/provider"
	"github.com/agentmemory/agentmemory/internal/scanner"
	"github.com/agentmemory/agentmemory/internal/search"
	synco "github.com/agentmemory/agentmemory/internal/sync"
	"github.com/agentmemory/agentmemory/internal/workspace"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "agentmemoryd:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	// --debug may appear anywhere before the subcommand; strip it out and
	// turn on file-based structured logging for the rest of the run.
	var debug bool
	rest := args[:0:0]
	for _, a := range args {
		if a == "--debug" {
			debug = true
			continue
		}
		rest = append(rest, a)
	}
	args = rest
	if len(args) == 0 {
		printUsage()
		return nil
	}
	if debug {
		cleanup, err := logging.SetupDefault()
		if err != nil {
			return err
		}
		defer cleanup()
	}

	root, err := os.Getwd()
	if err != nil {
		return err
	}

	switch args[0] {
	case "sync":
		return runSync(root, args[1:])
	case "search":
		return runSearch(root, args[1:])
	case "code-search":
		return runCodeSearch(root, args[1:])
	case "insights":
		return runInsights(root, args[1:])
	case "stats":
		return runStats(root, args[1:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command %q (try: sync, search, code-search, insights, stats)", args[0])
	}
}

func printUsage() {
	fmt.Println(`agentmemoryd — index and search an AI coding workspace's memory

Usage:
  agentmemoryd [--debug] sync [--code file...] [--all] [--cpuprofile path]
  agentmemoryd search [--top-k N] [--agent NAME] <query>
  agentmemoryd code-search [--top-k N] <query>
  agentmemoryd insights
  agentmemoryd stats [--code]`)
}

// openMemory wires a Memory against the current directory with the static,
// offline embedder/summarizer — agentmemoryd has no provider credentials of
// its own to configure.
func openMemory(root string) (*agentmemory.Memory, *workspace.Config, error) {
	cfg := workspace.New()
	embedder := provider.NewStaticEmbedder(cfg.Dimensions())
	summarizer := provider.NewChatSummarizer(nil)
	m, err := agentmemory.Open(root, cfg, embedder, summarizer, nil)
	if err != nil {
		return nil, nil, err
	}
	return m, cfg, nil
}

func runSync(root string, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	var codeFiles stringList
	fs.Var(&codeFiles, "code", "source file to re-index (repeatable)")
	all := fs.Bool("all", false, "auto-discover every indexable source file in the workspace")
	cpuProfile := fs.String("cpuprofile", "", "write a CPU profile to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *cpuProfile != "" {
		stop, err := profiling.NewProfiler().StartCPU(*cpuProfile)
		if err != nil {
			return err
		}
		defer stop()
	}

	if *all {
		discovered, err := discoverCodeFiles(root)
		if err != nil {
			return err
		}
		codeFiles = append(codeFiles, discovered...)
	}

	m, _, err := openMemory(root)
	if err != nil {
		return err
	}
	defer m.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out := output.New(os.Stdout)

	events := make(chan synco.Event, 16)
	done := make(chan struct{})
	go func() {
		for ev := range events {
			if ev.Progress != nil {
				out.Statusf("→", "%s: %s (%.0f%%)", ev.Step, ev.Message, *ev.Progress*100)
			} else {
				out.Statusf("→", "%s: %s", ev.Step, ev.Message)
			}
		}
		close(done)
	}()

	result, err := m.Sync(ctx, synco.Options{ChangedCodeFiles: codeFiles}, events)
	<-done
	if err != nil {
		return err
	}

	out.Successf("synced: %d new chunks, %d upserted checkpoints, %d files indexed, %d failed, took %s",
		result.NewSolutionChunks, result.UpsertedCheckpoints, result.CodeFilesIndexed, result.CodeFilesFailed, result.Duration)
	for _, w := range result.Warnings {
		out.Warning(w)
	}
	return nil
}

// discoverCodeFiles walks root with the scanner package and returns every
// file it classifies as source code, skipping anything gitignored or
// otherwise excluded. Used by "sync --all" so callers don't have to name
// every changed file by hand.
func discoverCodeFiles(root string) ([]string, error) {
	sc, err := scanner.New()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results, err := sc.Scan(ctx, &scanner.ScanOptions{
		RootDir:          root,
		RespectGitignore: true,
	})
	if err != nil {
		return nil, err
	}

	var files []string
	for r := range results {
		if r.Error != nil {
			continue
		}
		if r.File.ContentType == scanner.ContentTypeCode && !r.File.IsGenerated {
			files = append(files, r.File.Path)
		}
	}
	return files, nil
}

func runSearch(root string, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	topK := fs.Int("top-k", 10, "maximum results")
	agent := fs.String("agent", "", "filter by agent")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.Join(fs.Args(), " ")
	if query == "" {
		return fmt.Errorf("search requires a query")
	}

	m, cfg, err := openMemory(root)
	if err != nil {
		return err
	}
	defer m.Close()

	embedder := provider.NewStaticEmbedder(cfg.Dimensions())
	vector, err := embedder.Embed(context.Background(), query)
	if err != nil {
		return err
	}

	hits, err := m.SearchSolutions(context.Background(), vector, *topK, search.Filter{QueryText: query, Agent: *agent})
	if err != nil {
		return err
	}
	for _, h := range hits {
		fmt.Printf("%.4f  %s  %s\n", h.Score, h.Chunk.ID, firstLine(h.Chunk.Summary))
	}
	return nil
}

func runCodeSearch(root string, args []string) error {
	fs := flag.NewFlagSet("code-search", flag.ExitOnError)
	topK := fs.Int("top-k", 10, "maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.Join(fs.Args(), " ")
	if query == "" {
		return fmt.Errorf("code-search requires a query")
	}

	m, cfg, err := openMemory(root)
	if err != nil {
		return err
	}
	defer m.Close()

	embedder := provider.NewStaticEmbedder(cfg.Dimensions())
	vector, err := embedder.Embed(context.Background(), query)
	if err != nil {
		return err
	}

	hits, err := m.SearchCode(context.Background(), vector, *topK, search.Filter{QueryText: query})
	if err != nil {
		return err
	}
	for _, h := range hits {
		fmt.Printf("%.4f  %s:%s  %s\n", h.Score, h.Chunk.Path, h.Chunk.Symbol, firstLine(h.Chunk.Summary))
	}
	return nil
}

func runInsights(root string, _ []string) error {
	m, _, err := openMemory(root)
	if err != nil {
		return err
	}
	defer m.Close()

	report, err := m.GetCodeInsights(context.Background())
	if err != nil {
		return err
	}
	if report == nil {
		fmt.Println("no code indexed yet")
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runStats(root string, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	code := fs.Bool("code", false, "show code-table stats instead of solutions")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, _, err := openMemory(root)
	if err != nil {
		return err
	}
	defer m.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if *code {
		stats, err := m.GetCodeStats(context.Background())
		if err != nil {
			return err
		}
		return enc.Encode(stats)
	}
	stats, err := m.GetStats(context.Background())
	if err != nil {
		return err
	}
	return enc.Encode(stats)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// stringList implements flag.Value for a repeatable --code flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}
