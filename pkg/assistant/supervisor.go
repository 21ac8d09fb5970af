package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/MattX76/finassist/pkg/assistant/llm"
	"github.com/MattX76/finassist/pkg/assistant/prompt"
)

// routingTemplate is the supervisor's system prompt. ${agent_menu} is the
// registered-agent catalog, ${terminal} the terminal marker.
const routingTemplate = `You are the supervisor of a team of financial-data agents. Read the
conversation and decide who acts next.

Available agents:
${agent_menu}

Rules:
- Respond with exactly one agent name from the list, or ${terminal} when
  the conversation already contains a complete answer for the user.
- Respond with the name only. No explanation, no punctuation, no quotes.
- Route to ${terminal} as soon as the user's request has been answered.`

// buildRoutingPrompt renders the supervisor system prompt for a fixed set
// of agents. Called once at Build(); the variable set is static, so
// expansion cannot fail.
func buildRoutingPrompt(agents []Agent) string {
	var menu strings.Builder
	for _, a := range agents {
		fmt.Fprintf(&menu, "- %s: %s\n", a.Name(), a.Description())
	}

	expander := prompt.NewExpander(prompt.WithMissingAction(prompt.MissingError))
	return expander.MustExpand(routingTemplate, map[string]any{
		"agent_menu": strings.TrimRight(menu.String(), "\n"),
		"terminal":   NodeFinalAnswer,
	})
}

// renderTranscript flattens the conversation into role-tagged lines for
// the routing prompt. Tool messages carry the tool name.
func renderTranscript(messages []llm.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		switch {
		case msg.Role == llm.RoleTool && msg.Name != "":
			fmt.Fprintf(&b, "tool(%s): %s\n", msg.Name, msg.Content)
		case msg.Name != "" && msg.Name != supervisorMarker:
			fmt.Fprintf(&b, "%s(%s): %s\n", msg.Role, msg.Name, msg.Content)
		default:
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// runSupervisor executes the routing node: one model call over the full
// transcript, parsed into a Decision. The decision is recorded as a
// supervisor-tagged assistant message and Next is set to its target.
//
// An unusable decision does not dispatch anywhere: a diagnostic reply is
// appended instead and the turn is forced to the terminal node. The
// returned error reports that failure for metrics; it is already
// absorbed into the transcript.
func (a *Assistant) runSupervisor(ctx context.Context, st *State) error {
	req := llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: a.routingPrompt},
			{Role: llm.RoleUser, Content: renderTranscript(st.Messages)},
		},
		Model: a.modelName,
	}

	resp, err := a.callModel(ctx, req)
	if err != nil {
		st.Append(llm.Message{
			Role:    llm.RoleAssistant,
			Content: fmt.Sprintf("I could not reach the language model to route this request: %v", err),
		})
		st.Next = NodeFinalAnswer
		return err
	}

	decision, err := parseDecision(resp.Content, a.agentNames)
	if err != nil {
		st.Append(llm.Message{
			Role:    llm.RoleAssistant,
			Content: fmt.Sprintf("I could not route this request: %v. Please rephrase it.", err),
		})
		st.Next = NodeFinalAnswer
		return err
	}

	st.Append(llm.Message{
		Role:    llm.RoleAssistant,
		Content: decision.Target(),
		Name:    supervisorMarker,
	})
	st.Next = decision.Target()
	return nil
}
