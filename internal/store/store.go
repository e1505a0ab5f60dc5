// Package store provides long-term vector memory: chunk persistence and
// cosine similarity search, backed by SQLite or an in-process index.
package store

import (
	"context"
	"sort"

	"github.com/rcliao/sat-tutor/internal/embedding"
	"github.com/rcliao/sat-tutor/internal/model"
)

// InsertParams holds parameters for storing a chunk.
type InsertParams struct {
	Text      string
	Embedding []float32
	SessionID string
}

// SessionStats holds per-session chunk counts.
type SessionStats struct {
	SessionID string `json:"session_id"`
	Count     int    `json:"count"`
}

// VectorStore defines the long-term memory interface.
type VectorStore interface {
	// Initialize creates the schema if needed. Safe to call repeatedly.
	Initialize(ctx context.Context) error

	// InsertChunk stores text with its embedding and returns the new id.
	InsertChunk(ctx context.Context, text string, embedding []float32) (int64, error)

	// Insert stores a chunk and returns it with id and timestamp assigned.
	Insert(ctx context.Context, p InsertParams) (*model.Chunk, error)

	// SearchSimilar returns up to limit chunks ordered by similarity
	// descending, ties broken by ascending id.
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]model.Match, error)

	// SearchText returns chunks whose text contains query, newest first.
	SearchText(ctx context.Context, query string, limit int) ([]model.Chunk, error)

	// DeleteChunk removes a chunk. Reports whether a row was removed.
	DeleteChunk(ctx context.Context, id int64) (bool, error)

	// GetChunk returns a chunk by id or ErrNotFound.
	GetChunk(ctx context.Context, id int64) (*model.Chunk, error)

	// Recent lists chunks newest first. limit <= 0 returns all; an empty
	// sessionID matches every session.
	Recent(ctx context.Context, limit int, sessionID string) ([]model.Chunk, error)

	// Sessions returns chunk counts grouped by session id.
	Sessions(ctx context.Context) ([]SessionStats, error)

	Count(ctx context.Context) (int, error)
	Dimension() int
	Close() error
}

// CalculateSimilarity is the cosine similarity used for ranking.
func CalculateSimilarity(v1, v2 []float32) float64 {
	return embedding.CosineSimilarity(v1, v2)
}

// sortMatches orders by similarity descending, then id ascending.
func sortMatches(matches []model.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ID < matches[j].ID
	})
}

func topN(matches []model.Match, limit int) []model.Match {
	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
