package store

import (
	"context"
	"os"
)

// Stats holds store statistics.
type Stats struct {
	DBPath      string         `json:"db_path,omitempty"`
	DBSizeBytes int64          `json:"db_size_bytes"`
	Dimension   int            `json:"dimension"`
	TotalChunks int            `json:"total_chunks"`
	Sessions    []SessionStats `json:"sessions"`
}

// CollectStats returns statistics for s. dbPath may be empty for
// in-memory stores.
func CollectStats(ctx context.Context, s VectorStore, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath, Dimension: s.Dimension()}

	// DB file size
	if dbPath != "" {
		if info, err := os.Stat(dbPath); err == nil {
			st.DBSizeBytes = info.Size()
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		return st, err
	}
	st.TotalChunks = n

	sessions, err := s.Sessions(ctx)
	if err != nil {
		return st, err
	}
	st.Sessions = sessions
	return st, nil
}
