package assistant

import (
	"github.com/MattX76/finassist/pkg/assistant/llm"
)

// Reserved node names. Agent names must not collide with these.
const (
	// NodeSupervisor is the routing node every cycle passes through.
	NodeSupervisor = "SUPERVISOR"

	// NodeFinalAnswer is the terminal marker: reaching it ends the turn.
	NodeFinalAnswer = "FINAL_ANSWER"
)

// supervisorMarker tags routing messages so final-answer extraction can
// tell them apart from user-facing replies.
const supervisorMarker = "supervisor"

// State is the conversation state that flows through the graph. It is
// serialized to JSON for checkpoints, so every field must round-trip.
//
// Messages is append-only: each node adds exactly one message per visit.
// Next names the node that should execute next.
type State struct {
	Messages []llm.Message `json:"messages"`
	Next     string        `json:"next"`
}

// Append adds a message to the transcript.
func (s *State) Append(msg llm.Message) {
	s.Messages = append(s.Messages, msg)
}

// LastAssistant returns the most recent assistant message that is not a
// supervisor routing decision, searching newest-first. The second return
// is false when no such message exists.
func (s *State) LastAssistant() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		msg := s.Messages[i]
		if msg.Role == llm.RoleAssistant && msg.Name != supervisorMarker {
			return msg.Content, true
		}
	}
	return "", false
}

// LastUser returns the most recent user message, if any.
func (s *State) LastUser() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == llm.RoleUser {
			return s.Messages[i].Content, true
		}
	}
	return "", false
}
