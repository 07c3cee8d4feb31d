// Package workspace locates a project's agentmemory state directory and
// loads its typed configuration, mirroring the layout in spec §6:
//
//	.agentmemory/config.json
//	.agentmemory/vectors/
//	.agentmemory/cache/embeddings.json
//	.agentmemory/cache/search-results.json
//	.agentmemory/sync.lock
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StateDirName is the per-project state directory, relative to the workspace root.
const StateDirName = ".agentmemory"

// modelDimensions maps an embedding model name to its declared vector width (I3).
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"nomic-embed-text":       768,
	"qwen3-embedding:0.6b":   1024,
	"qwen3-embedding:8b":     4096,
	"all-minilm":             384,
	"static-256":             256,
}

// DimensionsFor returns the embedding width for a model name, or ok=false if unknown.
func DimensionsFor(model string) (int, bool) {
	d, ok := modelDimensions[model]
	return d, ok
}

// ProviderConfig records the embedding/summarizer provider and model names.
// Only EmbedModel is read (by Dimensions); the embedder and summarizer
// themselves are passed to agentmemory.Open by the caller.
type ProviderConfig struct {
	EmbedProvider     string `yaml:"embed_provider" json:"embed_provider"`
	EmbedModel        string `yaml:"embed_model" json:"embed_model"`
	SummarizeProvider string `yaml:"summarize_provider" json:"summarize_provider"`
	SummarizeModel    string `yaml:"summarize_model" json:"summarize_model"`
	BatchConcurrency  int    `yaml:"batch_concurrency" json:"batch_concurrency"`
}

// CheckpointsConfig configures checkpoint ingestion.
type CheckpointsConfig struct {
	BranchName    string `yaml:"branch_name" json:"branch_name"`
	MetadataDir   string `yaml:"metadata_dir" json:"metadata_dir"`
	LastIndexedID string `yaml:"last_indexed_id" json:"last_indexed_id"`
}

// SearchConfig holds search-related settings. DenylistedFiles is passed to
// the solution chunker by agentmemory.Open; RRFConstant and DedupThreshold
// are stored only, and the search engine uses its fixed
// search.RRFConstant and search.DedupCosineThreshold instead.
type SearchConfig struct {
	RRFConstant     int     `yaml:"rrf_constant" json:"rrf_constant"`
	DedupThreshold  float64 `yaml:"dedup_threshold" json:"dedup_threshold"`
	DenylistedFiles []string `yaml:"denylisted_files" json:"denylisted_files"`
}

// CacheConfig holds size/TTL settings for the embedding/search-result disk
// caches. The cache constructors do not read them; the limits in effect
// are the ones built into internal/cache.
type CacheConfig struct {
	EmbeddingCacheSize int `yaml:"embedding_cache_size" json:"embedding_cache_size"`
	SearchCacheSize    int `yaml:"search_cache_size" json:"search_cache_size"`
	SearchCacheTTLSecs int `yaml:"search_cache_ttl_secs" json:"search_cache_ttl_secs"`
}

// Config is the persisted per-workspace configuration (§2.1).
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Provider    ProviderConfig    `yaml:"provider" json:"provider"`
	Checkpoints CheckpointsConfig `yaml:"checkpoints" json:"checkpoints"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
}

// defaultDenylist filters obvious false-positive "file" mentions out of
// SolutionChunk.Metadata.FilesChanged (Q3 — kept configurable).
var defaultDenylist = []string{"node.js", "next.js", "vue.js", "nuxt.js", "express.js"}

// New returns a Config populated with sensible defaults.
func New() *Config {
	return &Config{
		Version: 1,
		Provider: ProviderConfig{
			EmbedProvider:     "static",
			EmbedModel:        "static-256",
			SummarizeProvider: "static",
			SummarizeModel:    "static",
			BatchConcurrency:  5,
		},
		Checkpoints: CheckpointsConfig{
			BranchName:  "checkpoints",
			MetadataDir: "metadata",
		},
		Search: SearchConfig{
			RRFConstant:     60,
			DedupThreshold:  0.95,
			DenylistedFiles: append([]string(nil), defaultDenylist...),
		},
		Cache: CacheConfig{
			EmbeddingCacheSize: 200,
			SearchCacheSize:    50,
			SearchCacheTTLSecs: 300,
		},
	}
}

// Dimensions returns the embedding dimension declared for the configured model (I3).
func (c *Config) Dimensions() int {
	if d, ok := DimensionsFor(c.Provider.EmbedModel); ok {
		return d
	}
	return 256
}

// StateDir returns the absolute path to the workspace's state directory.
func StateDir(root string) string {
	return filepath.Join(root, StateDirName)
}

// VectorsDir returns the directory holding vector+FTS table storage.
func VectorsDir(root string) string {
	return filepath.Join(StateDir(root), "vectors")
}

// CacheDir returns the directory holding the embedding/search caches.
func CacheDir(root string) string {
	return filepath.Join(StateDir(root), "cache")
}

// LockPath returns the sync lock file path.
func LockPath(root string) string {
	return filepath.Join(StateDir(root), "sync.lock")
}

// configPath returns the config.json path for a workspace root.
func configPath(root string) string {
	return filepath.Join(StateDir(root), "config.json")
}

// ErrNotInitialised indicates the workspace state directory has not been created.
type ErrNotInitialised struct{ Root string }

func (e *ErrNotInitialised) Error() string {
	return fmt.Sprintf("agentmemory: workspace not initialised at %s", e.Root)
}

// Load reads the workspace config, returning ErrNotInitialised if the state
// directory is absent. A `.agentmemory.yaml` file at the workspace root, if
// present, overrides fields in the persisted config (project-level tuning).
func Load(root string) (*Config, error) {
	path := configPath(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ErrNotInitialised{Root: root}
		}
		return nil, fmt.Errorf("agentmemory: reading config: %w", err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("agentmemory: parsing config: %w", err)
	}

	if overridePath := filepath.Join(root, ".agentmemory.yaml"); fileExists(overridePath) {
		if err := applyYAMLOverride(cfg, overridePath); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Init creates the workspace state directory and writes a default config if
// one does not already exist. Returns the effective config either way.
func Init(root string) (*Config, error) {
	if err := os.MkdirAll(StateDir(root), 0o755); err != nil {
		return nil, fmt.Errorf("agentmemory: creating state dir: %w", err)
	}
	if err := os.MkdirAll(VectorsDir(root), 0o755); err != nil {
		return nil, fmt.Errorf("agentmemory: creating vectors dir: %w", err)
	}
	if err := os.MkdirAll(CacheDir(root), 0o755); err != nil {
		return nil, fmt.Errorf("agentmemory: creating cache dir: %w", err)
	}

	if cfg, err := Load(root); err == nil {
		return cfg, nil
	}

	cfg := New()
	if err := Save(root, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists the config to config.json.
func Save(root string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("agentmemory: encoding config: %w", err)
	}
	if err := os.MkdirAll(StateDir(root), 0o755); err != nil {
		return fmt.Errorf("agentmemory: creating state dir: %w", err)
	}
	return os.WriteFile(configPath(root), data, 0o644)
}

func applyYAMLOverride(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("agentmemory: reading override config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("agentmemory: parsing override config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
