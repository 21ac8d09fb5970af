package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MattX76/finassist/pkg/assistant/checkpoint"
	"github.com/MattX76/finassist/pkg/assistant/llm"
	"github.com/MattX76/finassist/pkg/assistant/observability"
)

// Result is the outcome of one conversation turn.
type Result struct {
	// FinalText is the user-facing answer.
	FinalText string
	// Outputs carries auxiliary artifacts produced during the turn
	// (chart file paths, raw tool data) in production order.
	Outputs []string
}

// fallbackAnswer is returned when the turn terminates without any
// user-facing assistant reply in the transcript.
const fallbackAnswer = "I was unable to produce an answer for this request."

// Process runs one conversation turn: the utterance is appended to the
// session's transcript and the graph executes from the supervisor until
// the terminal node is reached.
//
// State is loaded from the checkpoint store (a fresh session is seeded
// with the routing instructions) and a snapshot is persisted after every
// node execution, so a crash mid-turn loses at most one node's work. A
// failed snapshot save aborts the turn with a *CheckpointError.
//
// Concurrent calls with the same session key are serialized; distinct
// keys run independently.
func (a *Assistant) Process(ctx context.Context, sessionKey, utterance string) (result Result, err error) {
	if ctx == nil {
		return Result{}, ErrNilContext
	}
	if sessionKey == "" {
		return Result{}, ErrSessionKeyRequired
	}

	unlock := a.lockSession(sessionKey)
	defer unlock()

	start := time.Now()
	observability.LogTurnStart(a.logger, sessionKey)

	turnCtx, turnSpan := a.spans.StartTurnSpan(ctx, sessionKey)
	defer func() {
		a.spans.EndSpanWithError(turnSpan, err)
	}()

	var nodeCount int
	result, nodeCount, err = a.runTurn(turnCtx, sessionKey, utterance)

	duration := time.Since(start)
	a.metrics.RecordTurn(ctx, err == nil, duration)
	if err != nil {
		lastNode := ""
		var nodeErr *NodeError
		if errors.As(err, &nodeErr) {
			lastNode = nodeErr.NodeID
		}
		observability.LogTurnError(a.logger, sessionKey, err, float64(duration.Milliseconds()), lastNode)
		return result, err
	}
	observability.LogTurnComplete(a.logger, sessionKey, float64(duration.Milliseconds()), nodeCount)
	return result, nil
}

// runTurn executes the node loop for one turn.
// Returns the result, the number of nodes executed, and any error.
func (a *Assistant) runTurn(ctx context.Context, sessionKey, utterance string) (Result, int, error) {
	st, step, err := a.loadState(sessionKey)
	if err != nil {
		return Result{}, 0, err
	}

	st.Append(llm.Message{Role: llm.RoleUser, Content: utterance})
	st.Next = NodeSupervisor

	var outputs []string
	nodeCount := 0
	for st.Next != NodeFinalAnswer {
		if nodeCount >= a.maxSteps {
			stepErr := &MaxStepsError{Max: a.maxSteps, LastNodeID: st.Next}
			observability.LogNodeError(a.logger, st.Next, stepErr)
			st.Append(llm.Message{
				Role:    llm.RoleAssistant,
				Content: fmt.Sprintf("I could not complete this request within %d steps. Please try a simpler request.", a.maxSteps),
			})
			st.Next = NodeFinalAnswer
			break
		}

		// Check for cancellation before executing the node.
		select {
		case <-ctx.Done():
			return Result{}, nodeCount, &NodeError{NodeID: st.Next, Op: "execute", Err: ctx.Err()}
		default:
		}

		current := st.Next
		nodeOutputs := a.runNode(ctx, sessionKey, current, st)
		outputs = append(outputs, nodeOutputs...)
		nodeCount++

		step++
		if err := a.persist(ctx, sessionKey, current, step, st); err != nil {
			return Result{}, nodeCount, err
		}
	}

	// Terminal snapshot: the turn is complete and resumable as-is.
	step++
	if err := a.persist(ctx, sessionKey, NodeFinalAnswer, step, st); err != nil {
		return Result{}, nodeCount, err
	}

	final, ok := st.LastAssistant()
	if !ok {
		final = fallbackAnswer
	}
	return Result{FinalText: final, Outputs: outputs}, nodeCount, nil
}

// runNode executes one node with logging, metrics, and tracing.
// Node-level failures never escape the loop — they become transcript
// messages — but they are still recorded against the node's metrics and
// span so failed executions stay visible.
func (a *Assistant) runNode(ctx context.Context, sessionKey, nodeID string, st *State) []string {
	observability.LogNodeStart(a.logger, nodeID)
	nodeCtx, span := a.spans.StartNodeSpan(ctx, nodeID)
	start := time.Now()

	var outputs []string
	var nodeErr error
	if nodeID == NodeSupervisor {
		nodeErr = a.runSupervisor(nodeCtx, st)
		observability.LogRoute(a.logger, sessionKey, st.Next)
	} else {
		outputs, nodeErr = a.runAgent(nodeCtx, nodeID, st)
	}

	duration := time.Since(start)
	a.metrics.RecordNodeExecution(nodeCtx, nodeID, duration, nodeErr)
	a.spans.EndSpanWithError(span, nodeErr)
	observability.LogNodeComplete(a.logger, nodeID, float64(duration.Milliseconds()))
	return outputs
}

// runAgent dispatches to a registered agent. The agent's reply (or its
// failure notice, after one retry on retryable errors) is appended as the
// node's message and control returns to the supervisor. The returned
// error reports the failure for metrics; it is already absorbed into the
// transcript.
func (a *Assistant) runAgent(ctx context.Context, name string, st *State) ([]string, error) {
	agent, ok := a.agents.Get(name)
	if !ok {
		// Unreachable after Build: decisions are validated against the
		// registered names before dispatch.
		st.Append(llm.Message{
			Role:    llm.RoleAssistant,
			Content: fmt.Sprintf("Internal error: no agent named %q is registered.", name),
		})
		st.Next = NodeFinalAnswer
		return nil, fmt.Errorf("no agent named %q is registered", name)
	}

	reply, outputs, err := agent.Respond(ctx, st.Messages)
	if err != nil && llm.IsRetryable(err) && ctx.Err() == nil {
		reply, outputs, err = agent.Respond(ctx, st.Messages)
	}
	if err != nil {
		observability.LogNodeError(a.logger, name, err)
		st.Append(llm.Message{
			Role:    llm.RoleAssistant,
			Content: fmt.Sprintf("The %s agent could not complete the request: %v", name, err),
			Name:    name,
		})
		st.Next = NodeSupervisor
		return outputs, err
	}

	st.Append(llm.Message{Role: llm.RoleAssistant, Content: reply, Name: name})
	st.Next = NodeSupervisor
	return outputs, nil
}

// loadState fetches the latest snapshot for a session, or seeds a fresh
// state whose first message carries the routing instructions.
func (a *Assistant) loadState(sessionKey string) (*State, int, error) {
	data, err := a.store.Load(sessionKey)
	if errors.Is(err, checkpoint.ErrNotFound) {
		st := &State{Next: NodeSupervisor}
		st.Append(llm.Message{Role: llm.RoleSystem, Content: a.routingPrompt})
		return st, 0, nil
	}
	if err != nil {
		return nil, 0, &CheckpointError{SessionID: sessionKey, Op: "load", Err: err}
	}

	snap, err := checkpoint.Unmarshal(data)
	if err != nil {
		return nil, 0, &CheckpointError{SessionID: sessionKey, Op: "decode", Err: err}
	}
	if snap.Version != checkpoint.Version {
		return nil, 0, &CheckpointError{
			SessionID: sessionKey,
			Op:        "decode",
			Err:       fmt.Errorf("unsupported snapshot version %d", snap.Version),
		}
	}

	var st State
	if err := json.Unmarshal(snap.State, &st); err != nil {
		return nil, 0, &CheckpointError{SessionID: sessionKey, Op: "decode", Err: err}
	}
	return &st, snap.Step, nil
}

// persist snapshots the state after a node execution.
func (a *Assistant) persist(ctx context.Context, sessionKey, nodeID string, step int, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return &CheckpointError{SessionID: sessionKey, Op: "serialize", Err: err}
	}

	snap := checkpoint.New(sessionKey, nodeID, step, raw, st.Next)
	data, err := snap.Marshal()
	if err != nil {
		return &CheckpointError{SessionID: sessionKey, Op: "serialize", Err: err}
	}

	if err := a.store.Save(sessionKey, data); err != nil {
		observability.LogCheckpointError(a.logger, sessionKey, "save", err)
		return &CheckpointError{SessionID: sessionKey, Op: "save", Err: err}
	}

	observability.LogCheckpoint(a.logger, sessionKey, nodeID, len(data))
	a.metrics.RecordCheckpoint(ctx, nodeID, int64(len(data)))
	return nil
}
