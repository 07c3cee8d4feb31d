package provider

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures the bounded exponential backoff applied to every
// provider call (§4.4: "retried with bounded exponential backoff up to 3
// attempts").
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig matches §4.4's "up to 3 attempts".
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
}

// Retry runs fn with exponential backoff, honoring ctx cancellation between
// attempts.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(); err != nil {
			lastErr = err
			if attempt >= cfg.MaxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

// RetryingEmbedder wraps an Embedder so every call is retried per cfg.
type RetryingEmbedder struct {
	inner Embedder
	cfg   RetryConfig
}

// NewRetryingEmbedder wraps inner with DefaultRetryConfig.
func NewRetryingEmbedder(inner Embedder) *RetryingEmbedder {
	return &RetryingEmbedder{inner: inner, cfg: DefaultRetryConfig()}
}

func (r *RetryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := Retry(ctx, r.cfg, func() error {
		var innerErr error
		vec, innerErr = r.inner.Embed(ctx, text)
		return innerErr
	})
	return vec, err
}

func (r *RetryingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := Retry(ctx, r.cfg, func() error {
		var innerErr error
		vecs, innerErr = r.inner.EmbedBatch(ctx, texts)
		return innerErr
	})
	return vecs, err
}

func (r *RetryingEmbedder) Dimensions() int   { return r.inner.Dimensions() }
func (r *RetryingEmbedder) ModelName() string { return r.inner.ModelName() }

// RetryingSummarizer wraps a Summarizer so every call is retried per cfg.
type RetryingSummarizer struct {
	inner Summarizer
	cfg   RetryConfig
}

// NewRetryingSummarizer wraps inner with DefaultRetryConfig.
func NewRetryingSummarizer(inner Summarizer) *RetryingSummarizer {
	return &RetryingSummarizer{inner: inner, cfg: DefaultRetryConfig()}
}

func (r *RetryingSummarizer) Summarize(ctx context.Context, prompt, response, diff string) (string, error) {
	var out string
	err := Retry(ctx, r.cfg, func() error {
		var innerErr error
		out, innerErr = r.inner.Summarize(ctx, prompt, response, diff)
		return innerErr
	})
	return out, err
}
