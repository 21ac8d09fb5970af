// Package llm defines the model client contract for the assistant.
//
// The conversation core treats the language model as an opaque function:
// an ordered list of role-tagged messages goes in, a single message comes
// out. Implementations wrap a concrete provider (see OpenAIClient).
package llm

import (
	"context"
	"time"
)

// Role identifies the message sender.
type Role string

// Standard message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single conversation turn.
//
// Name carries the originating tool for RoleTool messages. The supervisor
// also sets it on its routing messages so they can be told apart from
// user-facing assistant replies.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Request configures a model completion call.
type Request struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// Response is the output of a completion call.
type Response struct {
	Content  string        `json:"content"`
	Model    string        `json:"model"`
	Usage    TokenUsage    `json:"usage"`
	Duration time.Duration `json:"duration"`
}

// TokenUsage tracks token consumption for one call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates usage from another call.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// Client is the opaque model interface consumed by the conversation core.
// Implementations must be safe for concurrent use.
type Client interface {
	// Generate produces a single completion for the given messages.
	// The context bounds the call; transport and quota failures are
	// returned as *Error so callers can inspect retryability.
	Generate(ctx context.Context, req Request) (*Response, error)
}
