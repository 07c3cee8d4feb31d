package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// payload is the on-disk/in-commit JSON shape for a checkpoint, stored either
// as `checkpoint.json` inside a checkpoint-branch commit's tree, or as a
// standalone file under the local metadata directory.
type payload struct {
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"` // unix seconds
	Sessions  []sessionPayload `json:"sessions"`
}

type sessionPayload struct {
	Agent      string        `json:"agent"`
	Transcript []entryPayload `json:"transcript"`
	Prompts    string        `json:"prompts,omitempty"`
	Usage      struct {
		PromptTokens     int `json:"promptTokens"`
		CompletionTokens int `json:"completionTokens"`
	} `json:"usage"`
}

type entryPayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CheckpointFileName is the tree/file name a checkpoint payload is stored under.
const CheckpointFileName = "checkpoint.json"

// Parser produces ParsedCheckpoint records from a git repository's
// checkpoints branch and a local metadata directory.
type Parser struct {
	RepoPath    string
	BranchName  string
	MetadataDir string
}

// New creates a Parser rooted at repoPath.
func New(repoPath, branchName, metadataDir string) *Parser {
	return &Parser{RepoPath: repoPath, BranchName: branchName, MetadataDir: metadataDir}
}

// Parse returns every checkpoint from the branch and the local metadata
// directory, skipping any id present in known. A missing checkpoints branch
// yields an empty branch-derived sequence, not an error (§4.1).
func (p *Parser) Parse(known map[string]bool) ([]ParsedCheckpoint, error) {
	var out []ParsedCheckpoint

	fromBranch, err := p.parseBranch(known)
	if err != nil {
		return nil, err
	}
	out = append(out, fromBranch...)

	fromLocal, err := p.parseLocalMetadata(known)
	if err != nil {
		return nil, err
	}
	out = append(out, fromLocal...)

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (p *Parser) parseBranch(known map[string]bool) ([]ParsedCheckpoint, error) {
	repo, err := git.PlainOpen(p.RepoPath)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("agentmemory: opening repository: %w", err)
	}

	branchName := p.BranchName
	if branchName == "" {
		branchName = "checkpoints"
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branchName), true)
	if err != nil {
		// Missing branch is not an error — empty sequence (§4.1 failure semantics).
		slog.Debug("checkpoint_branch_missing", slog.String("branch", branchName))
		return nil, nil
	}

	commitIter, err := repo.Log(&git.LogOptions{From: ref.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("agentmemory: walking checkpoint branch: %w", err)
	}

	var out []ParsedCheckpoint
	err = commitIter.ForEach(func(c *object.Commit) error {
		id := c.Hash.String()
		if known[id] {
			return nil
		}
		cp, err := commitToCheckpoint(c)
		if err != nil {
			// Malformed entries are dropped and logged; parsing continues (§4.1).
			slog.Warn("checkpoint_commit_malformed", slog.String("commit", id), slog.String("error", err.Error()))
			return nil
		}
		if cp != nil {
			out = append(out, *cp)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("agentmemory: iterating checkpoint commits: %w", err)
	}
	return out, nil
}

func commitToCheckpoint(c *object.Commit) (*ParsedCheckpoint, error) {
	file, err := c.File(CheckpointFileName)
	if err != nil {
		return nil, fmt.Errorf("no %s in commit tree: %w", CheckpointFileName, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	var pl payload
	if err := json.Unmarshal(data, &pl); err != nil {
		return nil, fmt.Errorf("parsing checkpoint payload: %w", err)
	}
	if pl.ID == "" {
		pl.ID = c.Hash.String()
	}
	return payloadToCheckpoint(pl, c.Author.When.Unix())
}

// parseLocalMetadata reads every *.json file in MetadataDir as a local
// (uncommitted) checkpoint capture.
func (p *Parser) parseLocalMetadata(known map[string]bool) ([]ParsedCheckpoint, error) {
	if p.MetadataDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(p.MetadataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("agentmemory: reading metadata dir: %w", err)
	}

	var out []ParsedCheckpoint
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(p.MetadataDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("checkpoint_local_unreadable", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		var pl payload
		if err := json.Unmarshal(data, &pl); err != nil {
			slog.Warn("checkpoint_local_malformed", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		if pl.ID == "" {
			pl.ID = LocalIDPrefix + strings.TrimSuffix(entry.Name(), ".json")
		}
		if !IsLocal(pl.ID) {
			pl.ID = LocalIDPrefix + pl.ID
		}
		if known[pl.ID] {
			continue
		}
		cp, err := payloadToCheckpoint(pl, pl.Timestamp)
		if err != nil {
			slog.Warn("checkpoint_local_invalid", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		out = append(out, *cp)
	}
	return out, nil
}

func payloadToCheckpoint(pl payload, unixSeconds int64) (*ParsedCheckpoint, error) {
	cp := &ParsedCheckpoint{ID: pl.ID}
	cp.Timestamp = unixTime(unixSeconds)

	for i, sp := range pl.Sessions {
		s := Session{
			CheckpointID: pl.ID,
			SessionIndex: i,
			Agent:        sp.Agent,
			Prompts:      sp.Prompts,
		}
		s.Usage = TokenUsage{PromptTokens: sp.Usage.PromptTokens, CompletionTokens: sp.Usage.CompletionTokens}
		for _, ep := range sp.Transcript {
			s.Transcript = append(s.Transcript, Entry{Role: Role(ep.Role), Content: ep.Content})
		}
		cp.Sessions = append(cp.Sessions, s)
	}
	return cp, nil
}
