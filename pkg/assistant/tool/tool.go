// Package tool contains the adapters the specialized agents invoke:
// market-data lookups (CoinGecko, Yahoo Finance), derived-series math,
// chart rendering, JSON export, and price-history persistence.
//
// Every adapter is a stateless request/response wrapper. Invoke returns a
// text result on success; adapter-level failures (bad ticker, provider
// outage, malformed data) come back as ordinary errors that the agent loop
// surfaces into the conversation rather than escalating.
package tool

import (
	"context"
	"encoding/json"
)

// Tool is one external capability exposed to an agent.
// Implementations must be safe for concurrent use.
type Tool interface {
	// Name is the identifier the model uses to invoke the tool.
	Name() string

	// Description tells the model what the tool does and what arguments
	// it takes. Rendered into the agent's system prompt.
	Description() string

	// Invoke runs the tool with JSON-encoded arguments and returns a
	// text result (often a JSON payload or a file path).
	Invoke(ctx context.Context, args json.RawMessage) (string, error)
}

// Bar is one day of price history in the normalized shape shared by both
// providers and the persistence layer. Field names follow the provider
// payloads the original data pipeline emitted.
type Bar struct {
	Date     string   `json:"Date"`
	Open     float64  `json:"Open"`
	High     float64  `json:"High"`
	Low      float64  `json:"Low"`
	Close    float64  `json:"Close"`
	AdjClose *float64 `json:"AdjClose,omitempty"`
	Volume   *int64   `json:"Volume"`
}

// funcTool adapts a closure into a Tool. Used by constructors in this
// package to keep each adapter's logic next to its argument schema.
type funcTool struct {
	name        string
	description string
	fn          func(ctx context.Context, args json.RawMessage) (string, error)
}

func (t *funcTool) Name() string        { return t.name }
func (t *funcTool) Description() string { return t.description }

func (t *funcTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	return t.fn(ctx, args)
}

// NewTool builds a Tool from a name, description, and invoke function.
func NewTool(name, description string, fn func(ctx context.Context, args json.RawMessage) (string, error)) Tool {
	return &funcTool{name: name, description: description, fn: fn}
}

// truncate limits free-text provider fields so tool results stay within a
// sane prompt budget.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
