package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rcliao/sat-tutor/internal/model"
)

// Prune policy names accepted by ParsePolicy.
const (
	PolicyEvict     = "evict"
	PolicySummarize = "summarize"
)

// CostFunc returns the token cost of a message list.
type CostFunc func([]model.Message) int

// PrunePolicy trims a short-term buffer until cost(buffer) <= budget.
// Implementations must preserve the relative order of surviving messages
// and must always terminate within budget or with an empty buffer.
type PrunePolicy interface {
	Name() string
	Prune(ctx context.Context, msgs []model.Message, cost CostFunc, budget int) []model.Message
}

// EvictPolicy drops the oldest message first, sparing a leading system
// message while anything else remains.
type EvictPolicy struct{}

func (EvictPolicy) Name() string { return PolicyEvict }

func (EvictPolicy) Prune(ctx context.Context, msgs []model.Message, cost CostFunc, budget int) []model.Message {
	for len(msgs) > 0 && cost(msgs) > budget {
		if len(msgs) > 1 && msgs[0].Role == model.RoleSystem {
			msgs = slices.Delete(msgs, 1, 2)
		} else {
			msgs = slices.Delete(msgs, 0, 1)
		}
	}
	return msgs
}

// Summarizer condenses messages into a short text.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []model.Message) (string, error)
}

// SummaryPrefix starts the content of every summary message.
const SummaryPrefix = "SUMMARY: "

// SummarizePolicy replaces the older half of the conversation (after any
// leading system message) with one system-role summary, then falls back to
// eviction if the buffer is still over budget or summarising failed.
type SummarizePolicy struct {
	Summarizer Summarizer
	Logger     *slog.Logger
}

func (SummarizePolicy) Name() string { return PolicySummarize }

func (p SummarizePolicy) Prune(ctx context.Context, msgs []model.Message, cost CostFunc, budget int) []model.Message {
	if len(msgs) == 0 || cost(msgs) <= budget {
		return msgs
	}

	head := 0
	if msgs[0].Role == model.RoleSystem {
		head = 1
	}
	body := msgs[head:]
	cutoff := len(body) / 2

	if cutoff > 0 && p.Summarizer != nil {
		text, err := p.Summarizer.Summarize(ctx, body[:cutoff])
		if err != nil {
			p.logger().Warn("summarize failed, falling back to eviction", "error", err, "messages", cutoff)
		} else {
			if !strings.HasPrefix(text, SummaryPrefix) {
				text = SummaryPrefix + text
			}
			out := make([]model.Message, 0, head+1+len(body)-cutoff)
			out = append(out, msgs[:head]...)
			out = append(out, model.Message{Role: model.RoleSystem, Content: text, Timestamp: time.Now()})
			out = append(out, body[cutoff:]...)
			if cost(out) < cost(msgs) {
				msgs = out
			}
		}
	}

	return EvictPolicy{}.Prune(ctx, msgs, cost, budget)
}

func (p SummarizePolicy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// ParsePolicy returns the policy for name. s is used by the summarize
// policy; nil selects TruncatingSummarizer.
func ParsePolicy(name string, s Summarizer, logger *slog.Logger) (PrunePolicy, error) {
	switch name {
	case PolicyEvict, "":
		return EvictPolicy{}, nil
	case PolicySummarize:
		if s == nil {
			s = TruncatingSummarizer{}
		}
		return SummarizePolicy{Summarizer: s, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown prune policy %q", name)
	}
}

// TruncatingSummarizer joins "ROLE: <first 50 chars>..." for each message.
// It needs no network and never fails.
type TruncatingSummarizer struct {
	// Width is the number of characters kept per message. 0 means 50.
	Width int
}

func (t TruncatingSummarizer) Summarize(ctx context.Context, msgs []model.Message) (string, error) {
	if len(msgs) == 0 {
		return "", nil
	}
	width := t.Width
	if width <= 0 {
		width = 50
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		content := m.Content
		if r := []rune(content); len(r) > width {
			content = string(r[:width])
		}
		parts = append(parts, strings.ToUpper(string(m.Role))+": "+content+"...")
	}
	return SummaryPrefix + strings.Join(parts, " "), nil
}
