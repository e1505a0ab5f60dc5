package tokens

import (
	"errors"
	"strings"
	"testing"

	"github.com/rcliao/sat-tutor/internal/model"
)

// wordEncoder yields one token per whitespace-separated word.
type wordEncoder struct{}

func (wordEncoder) Encode(text string) []int {
	return make([]int, len(strings.Fields(text)))
}

func TestCountTokens_Empty(t *testing.T) {
	c := NewCounter("gpt-4")
	if got := c.CountTokens(""); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestCountTokens_CL100K(t *testing.T) {
	c := NewCounter("gpt-4")
	if c.Encoding() != "cl100k_base" {
		t.Fatalf("expected cl100k_base, got %s", c.Encoding())
	}
	if got := c.CountTokens("hello world"); got != 2 {
		t.Errorf("expected 2 tokens, got %d", got)
	}
}

func TestCountTokens_Deterministic(t *testing.T) {
	c := NewCounter("gpt-4o")
	text := "The prefix bene- means good, as in benefit and benevolent."
	first := c.CountTokens(text)
	for i := 0; i < 5; i++ {
		if got := c.CountTokens(text); got != first {
			t.Fatalf("run %d: expected %d, got %d", i, first, got)
		}
	}
	if first == 0 {
		t.Error("expected non-zero count")
	}
}

func TestNewCounter_UnknownModelFallsBack(t *testing.T) {
	c := NewCounter("definitely-not-a-model")
	if c.Encoding() != DefaultEncoding {
		t.Errorf("expected %s, got %s", DefaultEncoding, c.Encoding())
	}
	if c.CountTokens("vocabulary") == 0 {
		t.Error("fallback encoder should still count tokens")
	}
}

func TestNewCounter_GPT4oUsesO200K(t *testing.T) {
	c := NewCounter("gpt-4o")
	if c.Encoding() != "o200k_base" {
		t.Fatalf("expected o200k_base for gpt-4o, got %s", c.Encoding())
	}
	if got := c.CountTokens("hello world"); got != 2 {
		t.Errorf("expected 2 tokens, got %d", got)
	}
}

type stubLoader struct {
	ranks map[string]int
	calls int
}

func (l *stubLoader) LoadTiktokenBpe(file string) (map[string]int, error) {
	l.calls++
	if l.ranks == nil {
		return nil, errors.New("not embedded")
	}
	return l.ranks, nil
}

func TestChainLoader(t *testing.T) {
	missing := &stubLoader{}
	remote := &stubLoader{ranks: map[string]int{"a": 0}}

	ranks, err := chainLoader{missing, remote}.LoadTiktokenBpe("https://example.test/o200k_base.tiktoken")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ranks["a"] != 0 || missing.calls != 1 || remote.calls != 1 {
		t.Errorf("expected fallthrough to second loader, got %v (calls %d, %d)", ranks, missing.calls, remote.calls)
	}

	first := &stubLoader{ranks: map[string]int{"b": 1}}
	unused := &stubLoader{ranks: map[string]int{"c": 2}}
	if _, err := (chainLoader{first, unused}).LoadTiktokenBpe("x.tiktoken"); err != nil || unused.calls != 0 {
		t.Errorf("expected first loader to win, err=%v unused calls=%d", err, unused.calls)
	}

	_, err = chainLoader{&stubLoader{}, &stubLoader{}}.LoadTiktokenBpe("https://example.test/none.tiktoken")
	if err == nil || !strings.Contains(err.Error(), "none.tiktoken") {
		t.Errorf("expected joined error naming the file, got %v", err)
	}
}

func TestEncodingForModel(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4o", "o200k_base"},
		{"gpt-4o-mini", "o200k_base"},
		{"gpt-4", "cl100k_base"},
		{"gpt-4-turbo", "cl100k_base"},
		{"gpt-3.5-turbo-0125", "cl100k_base"},
		{"text-embedding-3-small", "cl100k_base"},
		{"", DefaultEncoding},
		{"llama3", DefaultEncoding},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := EncodingForModel(tt.model); got != tt.want {
				t.Errorf("EncodingForModel(%q) = %s, want %s", tt.model, got, tt.want)
			}
		})
	}
}

func TestRegisterModel_CustomEncoder(t *testing.T) {
	Register("test-words", wordEncoder{})
	RegisterModel("tutor-test", "test-words")

	c := NewCounter("tutor-test-v1")
	if c.Encoding() != "test-words" {
		t.Fatalf("expected test-words, got %s", c.Encoding())
	}
	if got := c.CountTokens("prefix root suffix"); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

func TestCountMessageTokens(t *testing.T) {
	c := NewCounterWithEncoder("words", wordEncoder{})

	if got := c.CountMessageTokens(nil); got != 0 {
		t.Errorf("empty: expected 0, got %d", got)
	}

	msgs := []model.Message{
		{Role: model.RoleSystem, Content: "you are a tutor"},
		{Role: model.RoleUser, Content: "what does bene mean"},
	}
	// per message: 3 framing + 1 role word + 1 role field + content words
	want := (3 + 1 + 1 + 4) + (3 + 1 + 1 + 4) + 3
	if got := c.CountMessageTokens(msgs); got != want {
		t.Errorf("expected %d, got %d", want, got)
	}
}

func TestCountMessageTokens_IgnoresTimestamp(t *testing.T) {
	c := NewCounterWithEncoder("words", wordEncoder{})
	a := []model.Message{{Role: model.RoleUser, Content: "hi there"}}
	b := []model.Message{{Role: model.RoleUser, Content: "hi there"}}
	b[0].Timestamp = b[0].Timestamp.AddDate(5, 0, 0)
	if c.CountMessageTokens(a) != c.CountMessageTokens(b) {
		t.Error("timestamp must not affect the count")
	}
}

func TestCountMessageTokens_OverheadIsAdditive(t *testing.T) {
	c := NewCounter("gpt-4o")
	msgs := []model.Message{
		{Role: model.RoleSystem, Content: "You are an SAT tutor."},
		{Role: model.RoleUser, Content: "Can you help me understand prefixes?"},
		{Role: model.RoleAssistant, Content: ""},
		{Role: model.RoleAssistant, Content: "Prefixes are word parts added to the beginning of a word."},
	}
	sum := 0
	for _, m := range msgs {
		sum += c.CountTokens(m.Content)
	}
	if got := c.CountMessageTokens(msgs); got < sum {
		t.Errorf("message total %d below content sum %d", got, sum)
	}
}

func TestCharEstimator(t *testing.T) {
	e := CharEstimator{}
	if n := len(e.Encode("")); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
	if n := len(e.Encode("abcde")); n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
	if n := len(CharEstimator{CharsPerToken: 1}.Encode("abc")); n != 3 {
		t.Errorf("expected 3, got %d", n)
	}
}
