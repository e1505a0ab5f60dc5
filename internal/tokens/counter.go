// Package tokens counts tokens for text and chat messages.
package tokens

import "github.com/rcliao/sat-tutor/internal/model"

// Chat framing costs, shared by budget enforcement and reporting.
const (
	TokensPerMessage = 3 // <|start|>{role}\n ... <|end|>
	TokensPerRole    = 1
	ReplyPriming     = 3 // <|start|>assistant<|message|>
)

// Counter converts text and message lists into token counts.
type Counter struct {
	model    string
	encoding string
	enc      Encoder
}

// NewCounter creates a counter for the given model. Unknown models use
// DefaultEncoding.
func NewCounter(modelName string) *Counter {
	enc, name := Resolve(modelName)
	return &Counter{model: modelName, encoding: name, enc: enc}
}

// NewCounterWithEncoder creates a counter around an explicit encoder.
func NewCounterWithEncoder(encoding string, enc Encoder) *Counter {
	return &Counter{encoding: encoding, enc: enc}
}

// Model returns the model name the counter was created for.
func (c *Counter) Model() string { return c.model }

// Encoding returns the name of the encoding in use.
func (c *Counter) Encoding() string { return c.encoding }

// CountTokens returns the number of tokens in text.
func (c *Counter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text))
}

// CountMessageTokens returns the chat cost of messages: framing per message,
// the role and content values (timestamps are free), one token for the role
// field and the reply priming once.
func (c *Counter) CountMessageTokens(msgs []model.Message) int {
	if len(msgs) == 0 {
		return 0
	}
	total := 0
	for _, m := range msgs {
		total += TokensPerMessage
		total += c.CountTokens(string(m.Role)) + TokensPerRole
		total += c.CountTokens(m.Content)
	}
	return total + ReplyPriming
}
