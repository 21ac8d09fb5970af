package assistant

import (
	"errors"
	"fmt"
)

// Sentinel errors for building an assistant.
var (
	// ErrNoModel indicates Build() was called without a model client.
	ErrNoModel = errors.New("model client not set")

	// ErrNoAgents indicates Build() was called with no registered agents.
	ErrNoAgents = errors.New("no agents registered")
)

// Sentinel errors for processing.
var (
	// ErrNilContext indicates Process() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrSessionKeyRequired indicates Process() was called with an empty session key.
	ErrSessionKeyRequired = errors.New("session key required")

	// ErrMaxSteps indicates a turn exceeded the configured step bound.
	ErrMaxSteps = errors.New("exceeded maximum steps")

	// ErrEmptyDecision indicates the supervisor produced an empty routing decision.
	ErrEmptyDecision = errors.New("empty routing decision")

	// ErrUnknownDecision indicates the supervisor named a target that is not registered.
	ErrUnknownDecision = errors.New("unknown routing target")
)

// NodeError wraps an error with node context.
type NodeError struct {
	// NodeID is the node that failed.
	NodeID string
	// Op is the operation that failed (e.g. "execute", "model").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// RouteError describes an unusable supervisor decision.
type RouteError struct {
	// Decision is the raw text the model produced, after trimming.
	Decision string
	// Err is ErrEmptyDecision or ErrUnknownDecision.
	Err error
}

// Error implements the error interface.
func (e *RouteError) Error() string {
	return fmt.Sprintf("routing decision %q: %v", e.Decision, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RouteError) Unwrap() error {
	return e.Err
}

// CheckpointError wraps errors from checkpoint operations. Persistence is
// load-bearing: a failed save aborts the turn.
type CheckpointError struct {
	// SessionID is the session whose state could not be persisted or loaded.
	SessionID string
	// Op is the operation that failed ("save", "load", "serialize", "decode").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s for session %s: %v", e.Op, e.SessionID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// MaxStepsError provides context when the step bound is exceeded.
type MaxStepsError struct {
	// Max is the configured step bound.
	Max int
	// LastNodeID is the node that would have executed next.
	LastNodeID string
}

// Error implements the error interface.
func (e *MaxStepsError) Error() string {
	return fmt.Sprintf("exceeded maximum steps (%d) at node %s", e.Max, e.LastNodeID)
}

// Unwrap returns ErrMaxSteps for errors.Is support.
func (e *MaxStepsError) Unwrap() error {
	return ErrMaxSteps
}
