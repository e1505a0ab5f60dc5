// Package llm turns a context bundle into a tutor reply using the OpenAI
// chat completions API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/rcliao/sat-tutor/internal/model"
)

// Options configures a Provider. Zero values select the defaults.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64 // 0 means 0.7
	MaxTokens   int     // 0 means 1000
}

// Usage reports token usage for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Reply is the assistant's answer to one turn.
type Reply struct {
	Content      string `json:"content"`
	ResponseType string `json:"response_type"`
	Raw          string `json:"raw_response"`
	Usage        Usage  `json:"usage"`
}

// Provider generates tutor replies and conversation summaries.
type Provider struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewProvider creates a provider. An empty APIKey falls back to OPENAI_API_KEY.
func NewProvider(opts Options, reqOpts ...option.RequestOption) *Provider {
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 1000
	}

	options := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		options = append(options, option.WithBaseURL(opts.BaseURL))
	}
	options = append(options, reqOpts...)

	return &Provider{
		client:      openai.NewClient(options...),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}
}

// Model returns the chat model name.
func (p *Provider) Model() string { return p.model }

// Complete sends the bundle as one system message followed by the
// buffered user and assistant turns.
func (p *Provider) Complete(ctx context.Context, b model.ContextBundle) (Reply, error) {
	params := openai.ChatCompletionNewParams{
		Messages:    toParams(BuildMessages(b)),
		Model:       p.model,
		Temperature: openai.Float(p.temperature),
		MaxTokens:   openai.Int(int64(p.maxTokens)),
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Reply{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Reply{}, errors.New("chat completion: no choices in response")
	}

	content := completion.Choices[0].Message.Content
	reply := Reply{
		Content:      content,
		ResponseType: "text",
		Raw:          content,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	parseStructured(&reply)
	return reply, nil
}

// parseStructured unpacks replies shaped like {"content": ..., "response_type": ...}.
func parseStructured(r *Reply) {
	trimmed := strings.TrimSpace(r.Raw)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return
	}
	var parsed struct {
		Content      *string `json:"content"`
		ResponseType string  `json:"response_type"`
	}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return
	}
	if parsed.Content != nil {
		r.Content = *parsed.Content
	}
	if parsed.ResponseType != "" {
		r.ResponseType = parsed.ResponseType
	}
}

// Summarize condenses msgs with the chat model. It satisfies memory.Summarizer.
func (p *Provider) Summarize(ctx context.Context, msgs []model.Message) (string, error) {
	var sb strings.Builder
	sb.WriteString("Please summarize the following conversation concisely while preserving key information:\n\n")
	for _, m := range msgs {
		sb.WriteString(strings.ToUpper(string(m.Role)))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n\n")
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a helpful assistant that summarizes conversations."),
			openai.UserMessage(sb.String()),
		},
		Model:       p.model,
		Temperature: openai.Float(0.5),
		MaxTokens:   openai.Int(300),
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("summarize: no choices in response")
	}
	return completion.Choices[0].Message.Content, nil
}

// BuildMessages flattens a bundle into chat messages. The single system
// message holds the trimmed instructions, any other system turns from the
// buffer (conversation summaries) and the numbered relevant chunks; the
// user and assistant turns follow in order.
func BuildMessages(b model.ContextBundle) []model.Message {
	instructions := strings.TrimSpace(b.SystemInstructions)

	var sb strings.Builder
	sb.WriteString(instructions)
	turns := make([]model.Message, 0, len(b.ShortTermMemory))
	for _, m := range b.ShortTermMemory {
		if m.Role != model.RoleSystem {
			turns = append(turns, model.Message{Role: m.Role, Content: m.Content})
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" || content == instructions {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(content)
	}
	if len(b.RelevantChunks) > 0 {
		sb.WriteString("\n\nRelevant context from previous conversations:\n")
		for i, chunk := range b.RelevantChunks {
			fmt.Fprintf(&sb, "\n%d. %s\n", i+1, chunk)
		}
	}

	return append([]model.Message{{Role: model.RoleSystem, Content: sb.String()}}, turns...)
}

func toParams(msgs []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
