package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/sat-tutor/internal/model"
)

// SQLiteStore implements VectorStore using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
	dim  int
	mu   sync.Mutex // serialises writers
}

// NewSQLiteStore opens or creates a SQLite database at the given path and
// initialises its schema for vectors of the given dimension.
func NewSQLiteStore(dbPath string, dim int) (*SQLiteStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidDimension, dim)
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ioErr("open", fmt.Errorf("create db dir: %w", err))
		}
		dsn = dbPath + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, ioErr("open", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{db: db, path: dbPath, dim: dim}
	if err := s.Initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Initialize creates the chunks and store_meta tables if they do not exist
// and records the dimension. An existing store with a different dimension
// is rejected.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		text       TEXT NOT NULL,
		embedding  BLOB NOT NULL,
		timestamp  TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_timestamp ON chunks(timestamp);
	CREATE INDEX IF NOT EXISTS idx_chunks_session ON chunks(session_id);

	CREATE TABLE IF NOT EXISTS store_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return ioErr("initialize", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ioErr("initialize", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO store_meta (key, value) VALUES ('dimension', ?)`,
		strconv.Itoa(s.dim))
	if err != nil {
		return ioErr("initialize", err)
	}

	var recorded string
	if err := tx.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = 'dimension'`).Scan(&recorded); err != nil {
		return ioErr("initialize", err)
	}
	if n, err := strconv.Atoi(recorded); err != nil || n != s.dim {
		return ioErr("initialize", fmt.Errorf("%w: store %s was created with dimension %s, configured %d",
			ErrInvalidDimension, s.path, recorded, s.dim))
	}

	return ioErr("initialize", tx.Commit())
}

func (s *SQLiteStore) InsertChunk(ctx context.Context, text string, embedding []float32) (int64, error) {
	c, err := s.Insert(ctx, InsertParams{Text: text, Embedding: embedding})
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, p InsertParams) (*model.Chunk, error) {
	if len(p.Embedding) != s.dim {
		return nil, dimErr(len(p.Embedding), s.dim)
	}
	blob, err := encodeVector(p.Embedding)
	if err != nil {
		return nil, fmt.Errorf("insert chunk: %w", err)
	}
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, ioErr("insert", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO chunks (text, embedding, timestamp, session_id) VALUES (?, ?, ?, ?)`,
		p.Text, blob, now.Format(time.RFC3339Nano), p.SessionID)
	if err != nil {
		return nil, ioErr("insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, ioErr("insert", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, ioErr("insert", err)
	}

	emb := make([]float32, len(p.Embedding))
	copy(emb, p.Embedding)
	return &model.Chunk{
		ID:        id,
		Text:      p.Text,
		Embedding: emb,
		SessionID: p.SessionID,
		Timestamp: now,
	}, nil
}

func (s *SQLiteStore) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]model.Match, error) {
	if limit <= 0 {
		return []model.Match{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, embedding, timestamp, session_id FROM chunks`)
	if err != nil {
		return nil, ioErr("search", err)
	}
	defer rows.Close()

	matches := []model.Match{}
	for rows.Next() {
		var (
			m    model.Match
			blob []byte
			ts   string
		)
		if err := rows.Scan(&m.ID, &m.Text, &blob, &ts, &m.SessionID); err != nil {
			return nil, ioErr("search", err)
		}
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		// Undecodable rows score 0 instead of failing the scan.
		if v, err := decodeVector(blob); err == nil {
			m.Similarity = CalculateSimilarity(embedding, v)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, ioErr("search", err)
	}

	return topN(matches, limit), nil
}

func (s *SQLiteStore) SearchText(ctx context.Context, query string, limit int) ([]model.Chunk, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, embedding, timestamp, session_id FROM chunks
		 WHERE text LIKE ? ESCAPE '\'
		 ORDER BY id DESC LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, ioErr("search text", err)
	}
	defer rows.Close()
	return collectChunks(rows, "search text")
}

func (s *SQLiteStore) DeleteChunk(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, id)
	if err != nil {
		return false, ioErr("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ioErr("delete", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) GetChunk(ctx context.Context, id int64) (*model.Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, embedding, timestamp, session_id FROM chunks WHERE id = ?`, id)
	c, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, ioErr("get", err)
	}
	return &c, nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int, sessionID string) ([]model.Chunk, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	where := "1 = 1"
	args := []interface{}{}
	if sessionID != "" {
		where = "session_id = ?"
		args = append(args, sessionID)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, embedding, timestamp, session_id FROM chunks
		 WHERE `+where+` ORDER BY id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, ioErr("recent", err)
	}
	defer rows.Close()
	return collectChunks(rows, "recent")
}

func (s *SQLiteStore) Sessions(ctx context.Context) ([]SessionStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*) FROM chunks
		GROUP BY session_id ORDER BY MIN(id)`)
	if err != nil {
		return nil, ioErr("sessions", err)
	}
	defer rows.Close()

	var out []SessionStats
	for rows.Next() {
		var st SessionStats
		if err := rows.Scan(&st.SessionID, &st.Count); err != nil {
			return nil, ioErr("sessions", err)
		}
		out = append(out, st)
	}
	return out, ioErr("sessions", rows.Err())
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, ioErr("count", err)
	}
	return n, nil
}

func (s *SQLiteStore) Dimension() int { return s.dim }

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Close() error {
	return ioErr("close", s.db.Close())
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row scanner) (model.Chunk, error) {
	var (
		c    model.Chunk
		blob []byte
		ts   string
	)
	if err := row.Scan(&c.ID, &c.Text, &blob, &ts, &c.SessionID); err != nil {
		return c, err
	}
	c.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	c.Embedding, _ = decodeVector(blob)
	return c, nil
}

func collectChunks(rows *sql.Rows, op string) ([]model.Chunk, error) {
	chunks := []model.Chunk{}
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, ioErr(op, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, ioErr(op, err)
	}
	return chunks, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
