package store

import (
	"context"

	"github.com/rcliao/sat-tutor/internal/model"
)

// ExportAll returns every chunk with its embedding, oldest first,
// optionally filtered by session.
func ExportAll(ctx context.Context, s VectorStore, sessionID string) ([]model.Chunk, error) {
	chunks, err := s.Recent(ctx, 0, sessionID)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(chunks)-1; i < j; i, j = i+1, j-1 {
		chunks[i], chunks[j] = chunks[j], chunks[i]
	}
	return chunks, nil
}

// Import stores chunks from an export. Ids and timestamps are reassigned
// by the target store; order is preserved.
func Import(ctx context.Context, s VectorStore, chunks []model.Chunk) (int, error) {
	imported := 0
	for _, c := range chunks {
		_, err := s.Insert(ctx, InsertParams{
			Text:      c.Text,
			Embedding: c.Embedding,
			SessionID: c.SessionID,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
