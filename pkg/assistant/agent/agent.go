// Package agent implements tool-using sub-agents for the assistant.
//
// An agent owns a role prompt and a fixed tool set. When dispatched it
// runs a bounded tool loop: the model either proposes one tool call as a
// JSON envelope, whose result is fed back as a tool message, or answers
// in plain text, which ends the loop.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MattX76/finassist/pkg/assistant/llm"
	"github.com/MattX76/finassist/pkg/assistant/prompt"
	"github.com/MattX76/finassist/pkg/assistant/registry"
	"github.com/MattX76/finassist/pkg/assistant/tool"
)

// DefaultMaxToolTurns bounds the tool loop per dispatch.
const DefaultMaxToolTurns = 6

// systemTemplate frames the role prompt with the tool-call protocol.
const systemTemplate = `${role}

You can call tools. Available tools:
${tool_catalog}

To call a tool, respond with ONLY a JSON object on a single message:
{"tool": "<tool name>", "args": {<tool arguments>}}

Call at most one tool per message. When you have everything you need,
respond with the final answer for the user in plain text instead.`

// Option configures an Agent.
type Option func(*Agent)

// WithMaxToolTurns sets the tool-loop bound. Default: 6.
func WithMaxToolTurns(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxToolTurns = n
		}
	}
}

// WithModelName overrides the model name sent on the agent's requests.
func WithModelName(name string) Option {
	return func(a *Agent) { a.modelName = name }
}

// Agent is a specialized worker with a role prompt and a tool set.
// Safe for concurrent use after construction.
type Agent struct {
	name         string
	description  string
	systemPrompt string
	model        llm.Client
	modelName    string
	tools        *registry.Registry[string, tool.Tool]
	maxToolTurns int
}

// New creates an agent.
//
// Panics if name is empty, model is nil, or two tools share a name. The
// tool set is fixed for the agent's lifetime: what is absent here is
// structurally unreachable, not merely discouraged by prompt.
func New(name, description, rolePrompt string, model llm.Client, tools []tool.Tool, opts ...Option) *Agent {
	if name == "" {
		panic("agent: name cannot be empty")
	}
	if model == nil {
		panic("agent: model client cannot be nil")
	}

	reg := registry.New[string, tool.Tool]()
	var catalog strings.Builder
	for _, tl := range tools {
		if reg.Has(tl.Name()) {
			panic(fmt.Sprintf("agent: duplicate tool name: %s", tl.Name()))
		}
		reg.Register(tl.Name(), tl)
		fmt.Fprintf(&catalog, "- %s: %s\n", tl.Name(), tl.Description())
	}
	if catalog.Len() == 0 {
		catalog.WriteString("(none)\n")
	}

	expander := prompt.NewExpander(prompt.WithMissingAction(prompt.MissingError))
	a := &Agent{
		name:        name,
		description: description,
		systemPrompt: expander.MustExpand(systemTemplate, map[string]any{
			"role":         rolePrompt,
			"tool_catalog": strings.TrimRight(catalog.String(), "\n"),
		}),
		model:        model,
		tools:        reg,
		maxToolTurns: DefaultMaxToolTurns,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the agent's routing name.
func (a *Agent) Name() string { return a.name }

// Description returns the routing description.
func (a *Agent) Description() string { return a.description }

// Tools returns the registered tool names in lexical order.
func (a *Agent) Tools() []string {
	return registry.SortedKeys(a.tools)
}

// Respond runs the tool loop over the conversation so far and returns
// the agent's reply plus any successful tool outputs in order.
//
// Tool failures stay inside the loop: the error text is fed back to the
// model as the tool result so it can recover or report. Only model
// transport errors escape as the returned error.
func (a *Agent) Respond(ctx context.Context, history []llm.Message) (string, []string, error) {
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt})
	msgs = append(msgs, history...)

	var outputs []string
	for turn := 0; turn < a.maxToolTurns; turn++ {
		resp, err := a.model.Generate(ctx, llm.Request{Messages: msgs, Model: a.modelName})
		if err != nil {
			return "", outputs, err
		}

		call, ok := parseToolCall(resp.Content)
		if !ok {
			return strings.TrimSpace(resp.Content), outputs, nil
		}

		var content string
		if tl, exists := a.tools.Get(call.Tool); !exists {
			content = fmt.Sprintf("Error: no tool named %q is available to this agent", call.Tool)
		} else if out, err := tl.Invoke(ctx, call.Args); err != nil {
			content = "Error: " + err.Error()
		} else {
			content = out
			outputs = append(outputs, out)
		}

		msgs = append(msgs,
			llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
			llm.Message{Role: llm.RoleTool, Content: content, Name: call.Tool},
		)
	}

	return "I ran out of tool calls before finishing this request. Here is what I gathered so far.",
		outputs, nil
}

// toolCall is the JSON envelope the model uses to request a tool.
type toolCall struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

// parseToolCall extracts a tool-call envelope from model output. Models
// routinely wrap JSON in markdown fences, so those are stripped first.
// Plain-text output is not a tool call.
func parseToolCall(s string) (toolCall, bool) {
	cleaned := strings.TrimSpace(s)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	if !strings.HasPrefix(cleaned, "{") {
		return toolCall{}, false
	}

	var call toolCall
	if err := json.Unmarshal([]byte(cleaned), &call); err != nil || call.Tool == "" {
		return toolCall{}, false
	}
	if len(call.Args) == 0 {
		call.Args = json.RawMessage("{}")
	}
	return call, true
}
