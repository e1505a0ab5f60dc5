// Package memory implements the tutor's hybrid memory: a token-bounded
// short-term buffer of recent turns plus long-term vector recall.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/sat-tutor/internal/embedding"
	"github.com/rcliao/sat-tutor/internal/model"
	"github.com/rcliao/sat-tutor/internal/store"
	"github.com/rcliao/sat-tutor/internal/tokens"
)

// Defaults applied by New.
const (
	DefaultMaxTokens         = 40000
	DefaultModel             = "gpt-4o"
	DefaultMaxRelevantChunks = 3
	DefaultRetrieveLimit     = 5
)

// ErrInvalidRole is returned by AddMessage for roles other than
// system, user and assistant.
var ErrInvalidRole = errors.New("invalid message role")

// Config holds Manager settings. Zero values select the defaults.
type Config struct {
	MaxTokens          int
	ModelName          string
	SystemInstructions string
	EmbedTimeout       time.Duration
	Policy             PrunePolicy
	SessionID          string
	Counter            *tokens.Counter
	Logger             *slog.Logger
}

// Manager owns one session's short-term buffer and shares a VectorStore
// with other sessions. It is not safe for concurrent use; turns are
// expected to run one after another.
type Manager struct {
	shortTerm    []model.Message
	maxTokens    int
	counter      *tokens.Counter
	store        store.VectorStore
	embedder     embedding.Embedder
	policy       PrunePolicy
	instructions string
	sessionID    string
	embedTimeout time.Duration
	logger       *slog.Logger
}

// New creates a Manager backed by st and emb.
func New(st store.VectorStore, emb embedding.Embedder, cfg Config) (*Manager, error) {
	if st == nil {
		return nil, fmt.Errorf("memory: nil vector store")
	}
	if cfg.MaxTokens < 0 {
		return nil, fmt.Errorf("memory: max tokens must be positive, got %d", cfg.MaxTokens)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if emb != nil && emb.Dims() != st.Dimension() {
		return nil, fmt.Errorf("memory: embedder produces %d dimensions, store expects %d: %w",
			emb.Dims(), st.Dimension(), store.ErrInvalidDimension)
	}

	counter := cfg.Counter
	if counter == nil {
		name := cfg.ModelName
		if name == "" {
			name = DefaultModel
		}
		counter = tokens.NewCounter(name)
	}
	policy := cfg.Policy
	if policy == nil {
		policy = EvictPolicy{}
	}
	instructions := cfg.SystemInstructions
	if instructions == "" {
		instructions = DefaultSystemInstructions
	}
	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = newSessionID()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		maxTokens:    cfg.MaxTokens,
		counter:      counter,
		store:        st,
		embedder:     emb,
		policy:       policy,
		instructions: instructions,
		sessionID:    sessionID,
		embedTimeout: cfg.EmbedTimeout,
		logger:       logger.With("component", "memory", "session_id", sessionID),
	}, nil
}

func newSessionID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// AddMessage appends a turn, prunes the buffer to budget and, for user and
// assistant turns, persists "ROLE: content" to long-term memory. Embedding
// or store failures are logged and do not fail the call.
func (m *Manager) AddMessage(ctx context.Context, role model.Role, content string) error {
	if !model.ValidRoles[role] {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	msg := model.Message{Role: role, Content: content, Timestamp: time.Now()}
	m.shortTerm = append(m.shortTerm, msg)
	m.PruneShortTermMemory(ctx)

	if role != model.RoleSystem {
		m.storeInLongTerm(ctx, msg)
	}
	return nil
}

func (m *Manager) storeInLongTerm(ctx context.Context, msg model.Message) {
	text := msg.LongTermText()
	vec, err := embedding.Embed(ctx, m.embedder, text, m.embedTimeout)
	if err != nil {
		m.logger.Warn("embedding failed, message not persisted", "role", msg.Role, "error", err)
		return
	}
	c, err := m.store.Insert(ctx, store.InsertParams{Text: text, Embedding: vec, SessionID: m.sessionID})
	if err != nil {
		m.logger.Error("persist message", "role", msg.Role, "error", err)
		return
	}
	m.logger.Debug("persisted message", "role", msg.Role, "chunk_id", c.ID)
}

// ContextParams controls GetContextForPrompt. A nil Query means "use the
// latest user message". A nil MaxRelevantChunks means
// DefaultMaxRelevantChunks; zero or less skips retrieval.
type ContextParams struct {
	Query             *string
	MaxRelevantChunks *int
}

// GetContextForPrompt assembles the bundle for the next completion. It
// never fails: retrieval problems yield no relevant chunks and a Failed
// status on the bundle.
func (m *Manager) GetContextForPrompt(ctx context.Context, p ContextParams) model.ContextBundle {
	query := ""
	if p.Query != nil {
		query = *p.Query
	} else {
		query = m.latestUserContent()
	}

	limit := DefaultMaxRelevantChunks
	if p.MaxRelevantChunks != nil {
		limit = *p.MaxRelevantChunks
	}

	bundle := model.ContextBundle{
		SystemInstructions: m.instructions,
		ShortTermMemory:    m.ShortTerm(),
		RelevantChunks:     []string{},
		UserQuery:          query,
		Retrieval:          model.RetrievalSkipped,
	}
	if query == "" || limit <= 0 {
		return bundle
	}

	matches, err := m.RetrieveRelevant(ctx, query, limit)
	if err != nil {
		m.logger.Warn("retrieval failed, continuing without relevant context", "error", err)
		bundle.Retrieval = model.RetrievalFailed
		return bundle
	}
	if len(matches) == 0 {
		bundle.Retrieval = model.RetrievalEmpty
		return bundle
	}
	for _, mt := range matches {
		bundle.RelevantChunks = append(bundle.RelevantChunks, mt.Text)
	}
	bundle.Retrieval = model.RetrievalOK
	return bundle
}

func (m *Manager) latestUserContent() string {
	for i := len(m.shortTerm) - 1; i >= 0; i-- {
		if m.shortTerm[i].Role == model.RoleUser {
			return m.shortTerm[i].Content
		}
	}
	return ""
}

// RetrieveRelevant embeds query and returns the closest chunks with their
// scores. limit 0 means DefaultRetrieveLimit.
func (m *Manager) RetrieveRelevant(ctx context.Context, query string, limit int) ([]model.Match, error) {
	if limit == 0 {
		limit = DefaultRetrieveLimit
	}
	vec, err := embedding.Embed(ctx, m.embedder, query, m.embedTimeout)
	if err != nil {
		return nil, err
	}
	return m.store.SearchSimilar(ctx, vec, limit)
}

// PruneShortTermMemory brings the buffer within the token budget using the
// configured policy.
func (m *Manager) PruneShortTermMemory(ctx context.Context) {
	before := len(m.shortTerm)
	m.shortTerm = m.policy.Prune(ctx, m.shortTerm, m.counter.CountMessageTokens, m.maxTokens)
	if removed := before - len(m.shortTerm); removed > 0 {
		m.logger.Debug("pruned short-term memory",
			"policy", m.policy.Name(),
			"removed", removed,
			"tokens", m.ShortTermTokens(),
			"budget", m.maxTokens)
	}
}

// TokenCount counts tokens in text with the session's encoder.
func (m *Manager) TokenCount(text string) int { return m.counter.CountTokens(text) }

// ShortTerm returns a copy of the buffer, oldest first.
func (m *Manager) ShortTerm() []model.Message {
	out := make([]model.Message, len(m.shortTerm))
	copy(out, m.shortTerm)
	return out
}

// ShortTermTokens is the budgeted cost of the current buffer.
func (m *Manager) ShortTermTokens() int { return m.counter.CountMessageTokens(m.shortTerm) }

// MaxTokens returns the short-term budget.
func (m *Manager) MaxTokens() int { return m.maxTokens }

func (m *Manager) SessionID() string { return m.sessionID }

func (m *Manager) SystemInstructions() string { return m.instructions }

// Reset clears the short-term buffer. Long-term memory is untouched.
func (m *Manager) Reset() { m.shortTerm = nil }
