package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyEmbedder struct {
	failures int
	calls    int
	dims     int
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("transient provider error")
	}
	return make([]float32, f.dims), nil
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (f *flakyEmbedder) Dimensions() int   { return f.dims }
func (f *flakyEmbedder) ModelName() string { return "flaky" }

func TestRetryingEmbedder_SucceedsAfterTransientFailures(t *testing.T) {
	inner := &flakyEmbedder{failures: 2, dims: 8}
	r := NewRetryingEmbedder(inner)
	r.cfg.InitialDelay = 0
	r.cfg.MaxDelay = 0

	vec, err := r.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingEmbedder_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyEmbedder{failures: 100, dims: 8}
	r := NewRetryingEmbedder(inner)
	r.cfg.InitialDelay = 0
	r.cfg.MaxDelay = 0
	r.cfg.MaxRetries = 2

	_, err := r.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, 3, inner.calls) // initial + 2 retries
}

func TestStaticEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := NewStaticEmbedder(64)
	v1, err := e.Embed(context.Background(), "func parseConfig() error")
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "func parseConfig() error")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 64)

	var sumSq float64
	for _, x := range v1 {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSq, 1e-5)
}

func TestStaticEmbedder_EmptyTextYieldsZeroVector(t *testing.T) {
	e := NewStaticEmbedder(32)
	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Equal(t, float32(0), x)
	}
}

func TestChatSummarizer_FallsBackOnProviderError(t *testing.T) {
	s := NewChatSummarizer(func(ctx context.Context, systemPrompt, userContent string) (string, error) {
		return "", errors.New("provider unavailable")
	})
	digest, err := s.Summarize(context.Background(), "How does X work?", "It works by Y.", "+++ b/main.go\n")
	require.NoError(t, err)
	assert.Contains(t, digest, "How does X work?")
	assert.Contains(t, digest, "main.go")
}

func TestChatSummarizer_UsesProviderDigestWhenAvailable(t *testing.T) {
	s := NewChatSummarizer(func(ctx context.Context, systemPrompt, userContent string) (string, error) {
		return "TASK: explain. APPROACH: read code. SCOPE: one file.", nil
	})
	digest, err := s.Summarize(context.Background(), "explain", "done", "")
	require.NoError(t, err)
	assert.Equal(t, "TASK: explain. APPROACH: read code. SCOPE: one file.", digest)
}

func TestFallbackDigest_NoDiffYieldsLineOnly(t *testing.T) {
	digest := FallbackDigest("fix the bug", "fixed it", "")
	assert.Equal(t, "fix the bug", digest)
}
