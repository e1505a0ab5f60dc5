package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/rcliao/sat-tutor/internal/model"
)

// MemStore implements VectorStore in process memory. Embeddings are indexed
// and scored by a chromem-go collection; equal scores are ordered by
// ascending id like SQLiteStore.
type MemStore struct {
	db  *chromem.DB
	col *chromem.Collection
	dim int

	mu     sync.RWMutex
	chunks map[int64]model.Chunk
	zero   map[int64]struct{} // zero-norm chunks, kept out of the index
	nextID int64
	closed bool
}

// NewMemStore creates an empty in-memory store for the given dimension.
func NewMemStore(dim int) (*MemStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidDimension, dim)
	}
	s := &MemStore{
		db:     chromem.NewDB(),
		dim:    dim,
		chunks: make(map[int64]model.Chunk),
		zero:   make(map[int64]struct{}),
	}
	if err := s.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MemStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.col != nil {
		return nil
	}
	col, err := s.db.GetOrCreateCollection("chunks", map[string]string{"dimension": strconv.Itoa(s.dim)}, nil)
	if err != nil {
		return ioErr("initialize", err)
	}
	s.col = col
	return nil
}

func (s *MemStore) InsertChunk(ctx context.Context, text string, embedding []float32) (int64, error) {
	c, err := s.Insert(ctx, InsertParams{Text: text, Embedding: embedding})
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

func (s *MemStore) Insert(ctx context.Context, p InsertParams) (*model.Chunk, error) {
	if len(p.Embedding) != s.dim {
		return nil, dimErr(len(p.Embedding), s.dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ioErr("insert", fmt.Errorf("store closed"))
	}

	id := s.nextID + 1
	c := model.Chunk{
		ID:        id,
		Text:      p.Text,
		Embedding: append([]float32(nil), p.Embedding...),
		SessionID: p.SessionID,
		Timestamp: time.Now().UTC(),
	}

	// chromem cannot normalise a zero vector; such chunks always score 0.
	if zeroNorm(p.Embedding) {
		s.zero[id] = struct{}{}
	} else {
		err := s.col.AddDocument(ctx, chromem.Document{
			ID:        docID(id),
			Content:   p.Text,
			Embedding: append([]float32(nil), p.Embedding...),
			Metadata:  map[string]string{"session_id": p.SessionID},
		})
		if err != nil {
			return nil, ioErr("insert", err)
		}
	}

	s.nextID = id
	s.chunks[id] = c
	out := c
	out.Embedding = append([]float32(nil), c.Embedding...)
	return &out, nil
}

func (s *MemStore) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]model.Match, error) {
	if limit <= 0 {
		return []model.Match{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ioErr("search", fmt.Errorf("store closed"))
	}

	if len(s.chunks) == 0 {
		return []model.Match{}, nil
	}

	// A query chromem cannot score (wrong length or zero norm) ranks every
	// chunk at 0, which is what the brute-force scan would produce.
	if len(embedding) != s.dim || zeroNorm(embedding) {
		matches := make([]model.Match, 0, len(s.chunks))
		for _, c := range s.chunks {
			matches = append(matches, s.match(c, 0))
		}
		return topN(matches, limit), nil
	}

	var results []chromem.Result
	if total := s.col.Count(); total > 0 {
		var err error
		results, err = s.queryWithTies(ctx, embedding, limit, total)
		if err != nil {
			return nil, ioErr("search", err)
		}
	}

	matches := make([]model.Match, 0, len(results)+len(s.zero))
	for id := range s.zero {
		matches = append(matches, s.match(s.chunks[id], 0))
	}
	for _, r := range results {
		id, err := strconv.ParseInt(r.ID, 10, 64)
		if err != nil {
			continue
		}
		c, ok := s.chunks[id]
		if !ok {
			continue
		}
		matches = append(matches, s.match(c, clamp(float64(r.Similarity))))
	}
	return topN(matches, limit), nil
}

// queryWithTies asks chromem for limit+1 results and widens the window
// while the last result still ties with the one at the cut-off, so the
// ascending-id tie-break sees every tied chunk.
func (s *MemStore) queryWithTies(ctx context.Context, q []float32, limit, total int) ([]chromem.Result, error) {
	n := min(limit+1, total)
	for {
		results, err := s.col.QueryEmbedding(ctx, q, n, nil, nil)
		if err != nil {
			return nil, err
		}
		if n == total || len(results) <= limit {
			return results, nil
		}
		if results[len(results)-1].Similarity != results[limit-1].Similarity {
			return results, nil
		}
		n = min(n*2, total)
	}
}

func (s *MemStore) match(c model.Chunk, similarity float64) model.Match {
	return model.Match{
		ID:         c.ID,
		Text:       c.Text,
		Similarity: similarity,
		SessionID:  c.SessionID,
		Timestamp:  c.Timestamp,
	}
}

func clamp(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return max(-1, min(1, x))
}

func (s *MemStore) SearchText(ctx context.Context, query string, limit int) ([]model.Chunk, error) {
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(query)
	all := s.sorted("")
	out := []model.Chunk{}
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Text), q) {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *MemStore) DeleteChunk(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[id]; !ok {
		return false, nil
	}
	if _, ok := s.zero[id]; ok {
		delete(s.zero, id)
	} else if err := s.col.Delete(ctx, nil, nil, docID(id)); err != nil {
		return false, ioErr("delete", err)
	}
	delete(s.chunks, id)
	return true, nil
}

func (s *MemStore) GetChunk(ctx context.Context, id int64) (*model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	c.Embedding = append([]float32(nil), c.Embedding...)
	return &c, nil
}

func (s *MemStore) Recent(ctx context.Context, limit int, sessionID string) ([]model.Chunk, error) {
	out := s.sorted(sessionID)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) Sessions(ctx context.Context) ([]SessionStats, error) {
	all := s.sorted("")
	counts := make(map[string]int)
	first := make(map[string]int64)
	for _, c := range all {
		counts[c.SessionID]++
		first[c.SessionID] = c.ID // all is newest first, so the last write wins
	}
	out := make([]SessionStats, 0, len(counts))
	for id, n := range counts {
		out = append(out, SessionStats{SessionID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return first[out[i].SessionID] < first[out[j].SessionID] })
	return out, nil
}

func (s *MemStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *MemStore) Dimension() int { return s.dim }

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// sorted returns copies of the chunks, newest first.
func (s *MemStore) sorted(sessionID string) []model.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		if sessionID != "" && c.SessionID != sessionID {
			continue
		}
		c.Embedding = append([]float32(nil), c.Embedding...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func docID(id int64) string { return strconv.FormatInt(id, 10) }

func zeroNorm(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
