package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func writeCommit(t *testing.T, repo *git.Repository, dir, branch string, pl payload) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)

	head, err := repo.Head()
	if err == nil {
		require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: head.Name()}))
	}

	branchRef := plumbing.NewBranchReferenceName(branch)
	if _, err := repo.Reference(branchRef, true); err != nil {
		require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: branchRef, Create: true}))
	} else {
		require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: branchRef}))
	}

	data, err := json.Marshal(pl)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, CheckpointFileName), data, 0o644))

	_, err = wt.Add(CheckpointFileName)
	require.NoError(t, err)

	hash, err := wt.Commit("checkpoint", &git.CommitOptions{
		Author: &object.Signature{Name: "agent", Email: "agent@example.com", When: time.Unix(pl.Timestamp, 0)},
	})
	require.NoError(t, err)
	return hash
}

func TestParse_MissingBranchYieldsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("init", &git.CommitOptions{Author: &object.Signature{Name: "a", Email: "a@b.c", When: time.Now()}})
	require.NoError(t, err)

	p := New(dir, "checkpoints", "")
	out, err := p.Parse(nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestParse_BranchCommitsBecomeCheckpoints(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	pl := payload{
		Timestamp: time.Now().Unix(),
		Sessions: []sessionPayload{
			{
				Agent: "claude",
				Transcript: []entryPayload{
					{Role: "user", Content: "how does parseConfig work?"},
					{Role: "assistant", Content: "it reads yaml"},
				},
			},
		},
	}
	writeCommit(t, repo, dir, "checkpoints", pl)

	p := New(dir, "checkpoints", "")
	out, err := p.Parse(nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0].Sessions, 1)
	require.Len(t, out[0].Sessions[0].Transcript, 2)
}

func TestParse_KnownIDsAreSkipped(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	pl := payload{Timestamp: time.Now().Unix()}
	hash := writeCommit(t, repo, dir, "checkpoints", pl)

	p := New(dir, "checkpoints", "")
	out, err := p.Parse(map[string]bool{hash.String(): true})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestParse_LocalMetadataDirYieldsLocalPrefixedCheckpoints(t *testing.T) {
	root := t.TempDir()
	metaDir := filepath.Join(root, "metadata")
	require.NoError(t, os.MkdirAll(metaDir, 0o755))

	pl := payload{
		ID:        "abc",
		Timestamp: time.Now().Unix(),
		Sessions: []sessionPayload{{Agent: "codex", Prompts: "fix the bug"}},
	}
	data, err := json.Marshal(pl)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, "one.json"), data, 0o644))

	p := New(root, "checkpoints", metaDir)
	out, err := p.Parse(nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, IsLocal(out[0].ID))
	require.Equal(t, "fix the bug", out[0].Sessions[0].Prompts)
}

func TestContentHash_ChangesWithTranscriptContent(t *testing.T) {
	cp1 := ParsedCheckpoint{Sessions: []Session{{Transcript: []Entry{{Content: "a"}}}}}
	cp2 := ParsedCheckpoint{Sessions: []Session{{Transcript: []Entry{{Content: "b"}}}}}
	require.NotEqual(t, ContentHash(cp1), ContentHash(cp2))
	require.Len(t, ContentHash(cp1), 16)
}
