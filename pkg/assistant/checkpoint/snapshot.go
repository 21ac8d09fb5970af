package checkpoint

import (
	"encoding/json"
	"time"
)

// Version is the current snapshot format version.
// Increment when making breaking changes to the snapshot structure.
const Version = 1

// Snapshot is the persisted image of a conversation after one node
// execution. It contains everything needed to resume the session at the
// last completed node.
type Snapshot struct {
	// Metadata
	Version   int       `json:"version"`
	SessionID string    `json:"session_id"`
	Step      int       `json:"step"`
	Timestamp time.Time `json:"timestamp"`

	// Conversation state
	NodeID   string          `json:"node_id"`
	NextNode string          `json:"next_node"`
	State    json.RawMessage `json:"state"`
}

// New creates a snapshot for a session at a node.
// State must already be JSON-serialized.
func New(sessionID, nodeID string, step int, state []byte, nextNode string) *Snapshot {
	return &Snapshot{
		Version:   Version,
		SessionID: sessionID,
		Step:      step,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		NextNode:  nextNode,
		State:     state,
	}
}

// Marshal serializes a snapshot to JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal deserializes a snapshot from JSON.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// envelopeStep reads the step out of a serialized snapshot so stores can
// report it in Sessions() without decoding the full envelope.
// Non-envelope payloads report step 0.
func envelopeStep(data []byte) int {
	var meta struct {
		Step int `json:"step"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return 0
	}
	return meta.Step
}
