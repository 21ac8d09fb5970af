package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MattX76/finassist/pkg/assistant/checkpoint"
	"github.com/MattX76/finassist/pkg/assistant/llm"
)

// loadSessionState decodes the latest snapshot for a session.
func loadSessionState(t *testing.T, store checkpoint.Store, sessionKey string) (*checkpoint.Snapshot, *State) {
	t.Helper()
	data, err := store.Load(sessionKey)
	require.NoError(t, err)

	snap, err := checkpoint.Unmarshal(data)
	require.NoError(t, err)

	var st State
	require.NoError(t, json.Unmarshal(snap.State, &st))
	return snap, &st
}

// TestProcess_Validation tests argument checking.
func TestProcess_Validation(t *testing.T) {
	asst, err := New().
		WithModel(&scriptModel{}).
		AddAgent(&scriptAgent{name: "a", desc: "d"}).
		Build()
	require.NoError(t, err)

	//nolint:staticcheck // deliberate nil context
	_, err = asst.Process(nil, "sess", "hi")
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = asst.Process(context.Background(), "", "hi")
	assert.ErrorIs(t, err, ErrSessionKeyRequired)
}

// TestProcess_AssetInfoFlow tests a full supervisor->agent->terminal turn.
func TestProcess_AssetInfoFlow(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	model := &scriptModel{responses: []string{"asset_info_agent", NodeFinalAnswer}}
	agent := &scriptAgent{
		name:    "asset_info_agent",
		desc:    "Looks up asset metadata.",
		reply:   "Bitcoin is the first decentralized cryptocurrency, launched 2009-01-03.",
		outputs: []string{`{"name":"Bitcoin"}`},
	}

	asst, err := New().
		WithModel(model).
		AddAgent(agent).
		WithCheckpointStore(store).
		Build()
	require.NoError(t, err)

	result, err := asst.Process(context.Background(), "sess-a", "What is bitcoin?")
	require.NoError(t, err)

	assert.Equal(t, agent.reply, result.FinalText)
	assert.Equal(t, []string{`{"name":"Bitcoin"}`}, result.Outputs)
	assert.Equal(t, 1, agent.callCount())

	// Supervisor, agent, supervisor, terminal: one snapshot each.
	assert.Equal(t, 4, store.Saves())

	snap, st := loadSessionState(t, store, "sess-a")
	assert.Equal(t, NodeFinalAnswer, snap.NodeID)
	assert.Equal(t, NodeFinalAnswer, snap.NextNode)

	// Fresh sessions are seeded with the routing instructions.
	require.NotEmpty(t, st.Messages)
	assert.Equal(t, llm.RoleSystem, st.Messages[0].Role)
	assert.Contains(t, st.Messages[0].Content, "asset_info_agent")
}

// TestProcess_ChainsAgentsInOneTurn tests one utterance can route through
// two agents in sequence, each seeing the other's work in the transcript,
// before terminating.
func TestProcess_ChainsAgentsInOneTurn(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	model := &scriptModel{responses: []string{
		"historical_data_agent",
		"analysis_visualization_agent",
		NodeFinalAnswer,
	}}
	history := &scriptAgent{
		name:    "historical_data_agent",
		desc:    "Fetches price history.",
		reply:   "Fetched 90 days of BTC-USD daily closes.",
		outputs: []string{`{"ticker":"BTC-USD","rows":90}`},
	}
	analysis := &scriptAgent{
		name:    "analysis_visualization_agent",
		desc:    "Charts and returns.",
		reply:   "Here is the closing-price chart for BTC-USD.",
		outputs: []string{"/tmp/charts/chart_BTC-USD_Close.png"},
	}

	asst, err := New().
		WithModel(model).
		AddAgent(history).
		AddAgent(analysis).
		WithCheckpointStore(store).
		Build()
	require.NoError(t, err)

	result, err := asst.Process(context.Background(), "sess-chain", "Chart BTC-USD over the last 90 days")
	require.NoError(t, err)

	assert.Equal(t, analysis.reply, result.FinalText)
	assert.Equal(t, 1, history.callCount())
	assert.Equal(t, 1, analysis.callCount())

	// Outputs accumulate in production order: history first, then chart.
	assert.Equal(t, []string{
		`{"ticker":"BTC-USD","rows":90}`,
		"/tmp/charts/chart_BTC-USD_Close.png",
	}, result.Outputs)

	// The second routing call saw only the history agent's reply; the
	// third saw both, which pins the dispatch order.
	require.Len(t, model.requests, 3)
	second := model.requests[1].Messages[1].Content
	assert.Contains(t, second, history.reply)
	assert.NotContains(t, second, analysis.reply)
	third := model.requests[2].Messages[1].Content
	assert.Contains(t, third, history.reply)
	assert.Contains(t, third, analysis.reply)

	// Supervisor, agent, supervisor, agent, supervisor, terminal.
	assert.Equal(t, 6, store.Saves())
}

// TestProcess_AgentResetsNext tests agents always hand control back to
// the supervisor before the next routing decision.
func TestProcess_AgentResetsNext(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	model := &scriptModel{responses: []string{"echo_agent", NodeFinalAnswer}}

	asst, err := New().
		WithModel(model).
		AddAgent(&scriptAgent{name: "echo_agent", desc: "echoes", reply: "done"}).
		WithCheckpointStore(store).
		Build()
	require.NoError(t, err)

	_, err = asst.Process(context.Background(), "sess-next", "go")
	require.NoError(t, err)

	// The snapshot taken right after the agent ran must point back at
	// the supervisor. It is the second save; replay from history.
	sessions, err := store.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	// Latest snapshot is terminal; the agent's own snapshot recorded
	// NextNode supervisor, which the routing request order confirms:
	// the second model call saw the agent's reply in the transcript.
	require.Equal(t, 2, model.calls)
	secondTranscript := model.requests[1].Messages[1].Content
	assert.Contains(t, secondTranscript, "assistant(echo_agent): done")
}

// TestProcess_InvalidDecisionSkipsAgents tests a bogus routing decision
// terminates with a diagnostic and never dispatches.
func TestProcess_InvalidDecisionSkipsAgents(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	model := &scriptModel{responses: []string{"definitely_not_an_agent"}}
	agent := &scriptAgent{name: "asset_info_agent", desc: "info", reply: "unused"}

	asst, err := New().
		WithModel(model).
		AddAgent(agent).
		WithCheckpointStore(store).
		Build()
	require.NoError(t, err)

	result, err := asst.Process(context.Background(), "sess-c", "hi")
	require.NoError(t, err)

	assert.Contains(t, result.FinalText, "could not route")
	assert.Contains(t, result.FinalText, "definitely_not_an_agent")
	assert.Zero(t, agent.callCount())
	assert.Equal(t, 2, store.Saves()) // supervisor + terminal
}

// TestProcess_TerminatesUnderAdversarialRouting tests the step bound ends
// a turn whose supervisor never routes to the terminal.
func TestProcess_TerminatesUnderAdversarialRouting(t *testing.T) {
	agent := &scriptAgent{name: "echo_agent", desc: "echoes", reply: "again"}
	asst, err := New().
		WithModel(&loopModel{target: "echo_agent"}).
		AddAgent(agent).
		WithMaxSteps(5).
		Build()
	require.NoError(t, err)

	result, err := asst.Process(context.Background(), "sess-loop", "go")
	require.NoError(t, err)

	assert.Contains(t, result.FinalText, "within 5 steps")
	assert.LessOrEqual(t, agent.callCount(), 3)
}

// TestProcess_AgentRetryOnRetryable tests one retry with identical input.
func TestProcess_AgentRetryOnRetryable(t *testing.T) {
	transient := llm.NewError("generate", errors.New("status 503"), true)
	agent := &scriptAgent{
		name:  "echo_agent",
		desc:  "echoes",
		reply: "recovered",
		errs:  []error{transient},
	}

	asst, err := New().
		WithModel(&scriptModel{responses: []string{"echo_agent", NodeFinalAnswer}}).
		AddAgent(agent).
		Build()
	require.NoError(t, err)

	result, err := asst.Process(context.Background(), "sess-retry", "go")
	require.NoError(t, err)

	assert.Equal(t, "recovered", result.FinalText)
	assert.Equal(t, 2, agent.callCount())
}

// TestProcess_AgentFailureSurfacesAsMessage tests a persistent agent
// failure becomes transcript content, not a Process error.
func TestProcess_AgentFailureSurfacesAsMessage(t *testing.T) {
	boom := errors.New("ticker not found")
	agent := &scriptAgent{
		name: "echo_agent",
		desc: "echoes",
		errs: []error{boom, boom},
	}

	asst, err := New().
		WithModel(&scriptModel{responses: []string{"echo_agent", NodeFinalAnswer}}).
		AddAgent(agent).
		Build()
	require.NoError(t, err)

	result, err := asst.Process(context.Background(), "sess-fail", "go")
	require.NoError(t, err)

	assert.Contains(t, result.FinalText, "echo_agent agent could not complete")
	assert.Contains(t, result.FinalText, "ticker not found")
	assert.Equal(t, 1, agent.callCount(), "non-retryable errors get no retry")
}

// TestProcess_AgentFailureRecordedInMetrics tests a node whose agent
// failed is recorded as a failed execution even though the failure only
// surfaces as transcript content.
func TestProcess_AgentFailureRecordedInMetrics(t *testing.T) {
	boom := errors.New("provider outage")
	metrics := &captureMetrics{}
	agent := &scriptAgent{name: "echo_agent", desc: "echoes", errs: []error{boom}}

	asst, err := New().
		WithModel(&scriptModel{responses: []string{"echo_agent", NodeFinalAnswer}}).
		AddAgent(agent).
		WithMetrics(metrics).
		Build()
	require.NoError(t, err)

	_, err = asst.Process(context.Background(), "sess-metrics", "go")
	require.NoError(t, err)

	agentErrs := metrics.nodeErrors("echo_agent")
	require.Len(t, agentErrs, 1)
	assert.ErrorIs(t, agentErrs[0], boom)

	for _, supErr := range metrics.nodeErrors(NodeSupervisor) {
		assert.NoError(t, supErr)
	}
}

// TestProcess_InvalidDecisionRecordedInMetrics tests a bogus routing
// decision counts as a failed supervisor execution.
func TestProcess_InvalidDecisionRecordedInMetrics(t *testing.T) {
	metrics := &captureMetrics{}
	asst, err := New().
		WithModel(&scriptModel{responses: []string{"definitely_not_an_agent"}}).
		AddAgent(&scriptAgent{name: "echo_agent", desc: "echoes", reply: "x"}).
		WithMetrics(metrics).
		Build()
	require.NoError(t, err)

	_, err = asst.Process(context.Background(), "sess-badroute", "hi")
	require.NoError(t, err)

	supErrs := metrics.nodeErrors(NodeSupervisor)
	require.Len(t, supErrs, 1)
	var routeErr *RouteError
	assert.ErrorAs(t, supErrs[0], &routeErr)
}

// TestProcess_CheckpointSaveFailureAborts tests persistence is load-bearing.
func TestProcess_CheckpointSaveFailureAborts(t *testing.T) {
	store := &failingStore{
		MemoryStore: checkpoint.NewMemoryStore(),
		failAfter:   1,
		err:         errors.New("disk full"),
	}

	asst, err := New().
		WithModel(&scriptModel{responses: []string{"echo_agent", NodeFinalAnswer}}).
		AddAgent(&scriptAgent{name: "echo_agent", desc: "echoes", reply: "done"}).
		WithCheckpointStore(store).
		Build()
	require.NoError(t, err)

	_, err = asst.Process(context.Background(), "sess-disk", "go")
	require.Error(t, err)

	var cpErr *CheckpointError
	require.True(t, errors.As(err, &cpErr))
	assert.Equal(t, "save", cpErr.Op)
	assert.Equal(t, "sess-disk", cpErr.SessionID)
}

// TestProcess_ResumesAcrossTurns tests a second turn continues the stored
// conversation instead of starting over.
func TestProcess_ResumesAcrossTurns(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	model := &scriptModel{responses: []string{
		"asset_info_agent", NodeFinalAnswer, // turn 1
		NodeFinalAnswer, // turn 2: already answered
	}}
	agent := &scriptAgent{name: "asset_info_agent", desc: "info", reply: "Bitcoin launched in 2009."}

	asst, err := New().
		WithModel(model).
		AddAgent(agent).
		WithCheckpointStore(store).
		Build()
	require.NoError(t, err)

	first, err := asst.Process(context.Background(), "sess-r", "When did bitcoin launch?")
	require.NoError(t, err)
	assert.Equal(t, "Bitcoin launched in 2009.", first.FinalText)

	second, err := asst.Process(context.Background(), "sess-r", "thanks")
	require.NoError(t, err)
	assert.Equal(t, "Bitcoin launched in 2009.", second.FinalText)

	_, st := loadSessionState(t, store, "sess-r")
	var users []string
	for _, msg := range st.Messages {
		if msg.Role == llm.RoleUser {
			users = append(users, msg.Content)
		}
	}
	assert.Equal(t, []string{"When did bitcoin launch?", "thanks"}, users)
}

// TestProcess_SessionsAreIsolated tests distinct keys never share state.
func TestProcess_SessionsAreIsolated(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	asst, err := New().
		WithModel(&scriptModel{responses: []string{NodeFinalAnswer, NodeFinalAnswer}}).
		AddAgent(&scriptAgent{name: "echo_agent", desc: "echoes", reply: "x"}).
		WithCheckpointStore(store).
		Build()
	require.NoError(t, err)

	_, err = asst.Process(context.Background(), "sess-1", "alpha")
	require.NoError(t, err)
	_, err = asst.Process(context.Background(), "sess-2", "beta")
	require.NoError(t, err)

	_, st1 := loadSessionState(t, store, "sess-1")
	_, st2 := loadSessionState(t, store, "sess-2")

	u1, _ := st1.LastUser()
	u2, _ := st2.LastUser()
	assert.Equal(t, "alpha", u1)
	assert.Equal(t, "beta", u2)
}

// TestProcess_FallbackAnswer tests the fixed notice when no user-facing
// reply exists at the terminal.
func TestProcess_FallbackAnswer(t *testing.T) {
	asst, err := New().
		WithModel(&scriptModel{responses: []string{NodeFinalAnswer}}).
		AddAgent(&scriptAgent{name: "echo_agent", desc: "echoes", reply: "x"}).
		Build()
	require.NoError(t, err)

	result, err := asst.Process(context.Background(), "sess-empty", "hello?")
	require.NoError(t, err)
	assert.Equal(t, fallbackAnswer, result.FinalText)
}
