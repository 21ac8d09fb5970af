package assistant

import (
	"strings"
)

// DecisionKind discriminates the routing decision variants.
type DecisionKind int

// Decision variants.
const (
	// DecisionAgent routes to a named agent node.
	DecisionAgent DecisionKind = iota
	// DecisionFinal ends the cycle at the terminal node.
	DecisionFinal
)

// Decision is a validated routing decision. Only decisions that name a
// registered agent or the terminal marker are ever constructed; anything
// else fails parsing.
type Decision struct {
	Kind  DecisionKind
	Agent string
}

// Target returns the node the decision routes to.
func (d Decision) Target() string {
	if d.Kind == DecisionFinal {
		return NodeFinalAnswer
	}
	return d.Agent
}

// parseDecision turns raw model output into a Decision. The model is told
// to answer with a bare node name, but in practice output arrives wrapped
// in whitespace, backticks, or quotes, so those are stripped before
// matching. Matching is exact against the terminal marker and the given
// agent names; anything else is a *RouteError.
func parseDecision(raw string, agents []string) (Decision, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Trim(cleaned, "`\"'")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return Decision{}, &RouteError{Decision: cleaned, Err: ErrEmptyDecision}
	}
	if cleaned == NodeFinalAnswer {
		return Decision{Kind: DecisionFinal}, nil
	}
	for _, name := range agents {
		if cleaned == name {
			return Decision{Kind: DecisionAgent, Agent: name}, nil
		}
	}
	return Decision{}, &RouteError{Decision: cleaned, Err: ErrUnknownDecision}
}
