// Package provider defines the embedding and summarization interfaces
// consumed by the sync pipeline, plus a retrying decorator bounding every
// provider call to 3 attempts of exponential backoff (§4.4).
package provider

import (
	"context"
)

// Embedder turns text into a fixed-width vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}

// Summarizer produces a natural-language digest of a solution chunk's
// prompt/response/diff before it is embedded.
type Summarizer interface {
	Summarize(ctx context.Context, prompt, response, diff string) (string, error)
}
