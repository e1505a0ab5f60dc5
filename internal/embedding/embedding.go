// Package embedding provides a pluggable interface for text embedding providers.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// ErrEmbeddingFailed marks any failure to produce an embedding, including
// timeouts and vectors of the wrong dimension.
var ErrEmbeddingFailed = errors.New("embedding failed")

// DefaultTimeout bounds a single Embed call.
const DefaultTimeout = 10 * time.Second

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// CosineSimilarity computes cosine similarity between two vectors.
// Mismatched, empty or zero-norm inputs score 0, never NaN.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}

// Normalize returns v scaled to unit length. Zero vectors are returned as is.
func Normalize(v Vector) Vector {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// WithTimeout derives a context bounded by d. d <= 0 means DefaultTimeout.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(parent, d)
}

// Embed calls e with a bounded timeout and checks the returned dimension.
// Every failure, including a deadline, wraps ErrEmbeddingFailed.
func Embed(ctx context.Context, e Embedder, text string, timeout time.Duration) (Vector, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: no embedder configured", ErrEmbeddingFailed)
	}
	ctx, cancel := WithTimeout(ctx, timeout)
	defer cancel()

	v, err := e.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, ErrEmbeddingFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	if err := checkDims(v, e.Dims()); err != nil {
		return nil, err
	}
	return v, nil
}

func checkDims(v Vector, want int) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", ErrEmbeddingFailed)
	}
	if want > 0 && len(v) != want {
		return fmt.Errorf("%w: got %d dimensions, want %d", ErrEmbeddingFailed, len(v), want)
	}
	return nil
}
