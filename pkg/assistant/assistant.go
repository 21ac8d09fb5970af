package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MattX76/finassist/pkg/assistant/checkpoint"
	"github.com/MattX76/finassist/pkg/assistant/llm"
	"github.com/MattX76/finassist/pkg/assistant/observability"
	"github.com/MattX76/finassist/pkg/assistant/registry"
)

// Agent is a specialized worker the supervisor can dispatch to. Each
// agent answers from the shared transcript, typically by driving its own
// tools, and returns one user-facing reply.
//
// Implementations must be safe for concurrent use; see the agent package
// for the tool-loop implementation.
type Agent interface {
	// Name is the routing target the supervisor uses. Stable, unique,
	// no whitespace.
	Name() string

	// Description tells the supervisor what the agent can do. It is
	// rendered verbatim into the routing prompt.
	Description() string

	// Respond produces the agent's reply to the conversation so far.
	// Outputs carries auxiliary artifacts (file paths, raw data) produced
	// along the way, in order.
	Respond(ctx context.Context, history []llm.Message) (reply string, outputs []string, err error)
}

// Builder assembles an Assistant. Use New, chain the With/Add methods,
// then call Build to get an immutable Assistant.
//
// Builder is NOT safe for concurrent use; construct from one goroutine.
type Builder struct {
	model     llm.Client
	modelName string
	agents    []Agent
	store     checkpoint.Store
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	maxSteps  int
}

// New creates a Builder with defaults: in-memory checkpoints, no-op
// metrics and tracing, a 25-step bound per turn.
func New() *Builder {
	return &Builder{
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
		maxSteps: 25,
	}
}

// WithModel sets the model client used by the supervisor.
func (b *Builder) WithModel(c llm.Client) *Builder {
	b.model = c
	return b
}

// WithModelName overrides the model name sent on supervisor requests.
func (b *Builder) WithModelName(name string) *Builder {
	b.modelName = name
	return b
}

// AddAgent registers an agent as a routing target.
//
// Panics if:
//   - a is nil
//   - the agent name is empty or contains whitespace
//   - the name is a reserved node name (case-insensitive)
//   - the name is already registered
func (b *Builder) AddAgent(a Agent) *Builder {
	if a == nil {
		panic("assistant: agent cannot be nil")
	}
	name := a.Name()
	if name == "" {
		panic("assistant: agent name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\n\r") {
		panic("assistant: agent name cannot contain whitespace")
	}
	upper := strings.ToUpper(name)
	if upper == NodeSupervisor || upper == NodeFinalAnswer {
		panic(fmt.Sprintf("assistant: agent name %q is reserved", name))
	}
	for _, existing := range b.agents {
		if existing.Name() == name {
			panic(fmt.Sprintf("assistant: duplicate agent name: %s", name))
		}
	}
	b.agents = append(b.agents, a)
	return b
}

// WithCheckpointStore sets the durable session store.
// Default: an in-memory store.
func (b *Builder) WithCheckpointStore(s checkpoint.Store) *Builder {
	b.store = s
	return b
}

// WithLogger sets the structured logger. A nil logger disables logging.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetrics sets the metrics recorder. Default: no-op.
func (b *Builder) WithMetrics(m observability.MetricsRecorder) *Builder {
	if m != nil {
		b.metrics = m
	}
	return b
}

// WithSpans sets the trace span manager. Default: no-op.
func (b *Builder) WithSpans(s observability.SpanManager) *Builder {
	if s != nil {
		b.spans = s
	}
	return b
}

// WithMaxSteps bounds node executions per turn. Default: 25.
func (b *Builder) WithMaxSteps(n int) *Builder {
	if n > 0 {
		b.maxSteps = n
	}
	return b
}

// Build validates the configuration and returns an immutable Assistant.
//
// Returns ErrNoModel when no model client is set and ErrNoAgents when no
// agent is registered.
func (b *Builder) Build() (*Assistant, error) {
	if b.model == nil {
		return nil, ErrNoModel
	}
	if len(b.agents) == 0 {
		return nil, ErrNoAgents
	}

	store := b.store
	if store == nil {
		store = checkpoint.NewMemoryStore()
	}

	agents := registry.New[string, Agent]()
	names := make([]string, 0, len(b.agents))
	for _, a := range b.agents {
		agents.Register(a.Name(), a)
		names = append(names, a.Name())
	}

	return &Assistant{
		model:         b.model,
		modelName:     b.modelName,
		agents:        agents,
		agentNames:    names,
		routingPrompt: buildRoutingPrompt(b.agents),
		store:         store,
		logger:        b.logger,
		metrics:       b.metrics,
		spans:         b.spans,
		maxSteps:      b.maxSteps,
	}, nil
}

// Assistant is the compiled conversation graph: a supervisor routing over
// a fixed set of agents, with per-node durable checkpoints. Safe for
// concurrent use; concurrent turns on the same session key are serialized.
type Assistant struct {
	model         llm.Client
	modelName     string
	agents        *registry.Registry[string, Agent]
	agentNames    []string
	routingPrompt string
	store         checkpoint.Store
	logger        *slog.Logger
	metrics       observability.MetricsRecorder
	spans         observability.SpanManager
	maxSteps      int

	sessionLocks sync.Map // session key -> *sync.Mutex
}

// Agents returns the registered agent names in registration order.
func (a *Assistant) Agents() []string {
	names := make([]string, len(a.agentNames))
	copy(names, a.agentNames)
	return names
}

// lockSession serializes turns per session key. Returns the unlock func.
func (a *Assistant) lockSession(key string) func() {
	muIface, _ := a.sessionLocks.LoadOrStore(key, &sync.Mutex{})
	mu := muIface.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// callModel invokes the model once, retrying a single time on retryable
// transport errors. Every attempt is recorded as a model-call metric.
func (a *Assistant) callModel(ctx context.Context, req llm.Request) (*llm.Response, error) {
	start := time.Now()
	resp, err := a.model.Generate(ctx, req)
	a.metrics.RecordModelCall(ctx, req.Model, time.Since(start), err)
	if err == nil || !llm.IsRetryable(err) || ctx.Err() != nil {
		return resp, err
	}

	start = time.Now()
	resp, err = a.model.Generate(ctx, req)
	a.metrics.RecordModelCall(ctx, req.Model, time.Since(start), err)
	return resp, err
}
