package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/sat-tutor/internal/model"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func fakeServer(t *testing.T, content string, got *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 42, "completion_tokens": 7, "total_tokens": 49},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBuildMessages(t *testing.T) {
	b := model.ContextBundle{
		SystemInstructions: "\n  You are a tutor.  \n",
		ShortTermMemory: []model.Message{
			{Role: model.RoleSystem, Content: "You are a tutor."},
			{Role: model.RoleUser, Content: "What is a suffix?"},
			{Role: model.RoleAssistant, Content: "An ending."},
		},
		RelevantChunks: []string{"USER: prefixes", "ASSISTANT: roots"},
	}

	msgs := BuildMessages(b)
	require.Len(t, msgs, 3)
	require.Equal(t, model.RoleSystem, msgs[0].Role)
	require.Equal(t,
		"You are a tutor.\n\nRelevant context from previous conversations:\n\n1. USER: prefixes\n\n2. ASSISTANT: roots\n",
		msgs[0].Content)
	require.Equal(t, model.RoleUser, msgs[1].Role)
	require.Equal(t, "An ending.", msgs[2].Content)
}

func TestBuildMessages_FoldsSummaryIntoSystem(t *testing.T) {
	b := model.ContextBundle{
		SystemInstructions: "tutor",
		ShortTermMemory: []model.Message{
			{Role: model.RoleSystem, Content: "tutor"},
			{Role: model.RoleSystem, Content: "SUMMARY: USER: we discussed bene..."},
			{Role: model.RoleUser, Content: "next"},
		},
		RelevantChunks: []string{"USER: bene"},
	}

	msgs := BuildMessages(b)
	require.Len(t, msgs, 2)
	require.Equal(t,
		"tutor\n\nSUMMARY: USER: we discussed bene...\n\nRelevant context from previous conversations:\n\n1. USER: bene\n",
		msgs[0].Content)
	require.Equal(t, model.Message{Role: model.RoleUser, Content: "next"}, msgs[1])
}

func TestComplete_SendsSummary(t *testing.T) {
	var got chatRequest
	srv := fakeServer(t, "Sure.", &got)

	p := NewProvider(Options{APIKey: "test", BaseURL: srv.URL}, option.WithMaxRetries(0))
	_, err := p.Complete(context.Background(), model.ContextBundle{
		SystemInstructions: "tutor",
		ShortTermMemory: []model.Message{
			{Role: model.RoleSystem, Content: "tutor"},
			{Role: model.RoleSystem, Content: "SUMMARY: USER: we discussed bene..."},
			{Role: model.RoleUser, Content: "next"},
		},
	})
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Contains(t, got.Messages[0].Content, "SUMMARY: USER: we discussed bene...")
	require.Equal(t, "next", got.Messages[1].Content)
}

func TestBuildMessages_NoChunks(t *testing.T) {
	msgs := BuildMessages(model.ContextBundle{SystemInstructions: "Tutor", RelevantChunks: []string{}})
	require.Len(t, msgs, 1)
	require.Equal(t, "Tutor", msgs[0].Content)
}

func TestComplete(t *testing.T) {
	var got chatRequest
	srv := fakeServer(t, "Bene means good.", &got)

	p := NewProvider(Options{APIKey: "test", BaseURL: srv.URL, Model: "gpt-4o-mini"}, option.WithMaxRetries(0))
	reply, err := p.Complete(context.Background(), model.ContextBundle{
		SystemInstructions: "Tutor",
		ShortTermMemory:    []model.Message{{Role: model.RoleUser, Content: "bene?"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Bene means good.", reply.Content)
	require.Equal(t, "text", reply.ResponseType)
	require.Equal(t, Usage{PromptTokens: 42, CompletionTokens: 7, TotalTokens: 49}, reply.Usage)

	require.Equal(t, "gpt-4o-mini", got.Model)
	require.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Equal(t, 1000, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Equal(t, "user", got.Messages[1].Role)
}

func TestComplete_StructuredReply(t *testing.T) {
	srv := fakeServer(t, `{"content": "Pick B.", "response_type": "question"}`, nil)

	p := NewProvider(Options{APIKey: "test", BaseURL: srv.URL}, option.WithMaxRetries(0))
	reply, err := p.Complete(context.Background(), model.ContextBundle{SystemInstructions: "Tutor"})
	require.NoError(t, err)
	require.Equal(t, "Pick B.", reply.Content)
	require.Equal(t, "question", reply.ResponseType)
	require.Contains(t, reply.Raw, "response_type")
}

func TestComplete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewProvider(Options{APIKey: "test", BaseURL: srv.URL}, option.WithMaxRetries(0))
	_, err := p.Complete(context.Background(), model.ContextBundle{SystemInstructions: "Tutor"})
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	var got chatRequest
	srv := fakeServer(t, "Student asked about bene.", &got)

	p := NewProvider(Options{APIKey: "test", BaseURL: srv.URL}, option.WithMaxRetries(0))
	s, err := p.Summarize(context.Background(), []model.Message{
		{Role: model.RoleUser, Content: "What does bene mean?"},
		{Role: model.RoleAssistant, Content: "Good."},
	})
	require.NoError(t, err)
	require.Equal(t, "Student asked about bene.", s)
	require.Len(t, got.Messages, 2)
	require.Contains(t, got.Messages[1].Content, "USER: What does bene mean?\n\nASSISTANT: Good.")
	require.Equal(t, 300, got.MaxTokens)
}
