package assistant

import (
	"context"
	"sync"
	"time"

	"github.com/MattX76/finassist/pkg/assistant/checkpoint"
	"github.com/MattX76/finassist/pkg/assistant/llm"
	"github.com/MattX76/finassist/pkg/assistant/observability"
)

// scriptModel replays canned completions in order. Once the script is
// exhausted it keeps answering with the terminal marker so routing loops
// always wind down.
type scriptModel struct {
	mu        sync.Mutex
	responses []string
	calls     int
	requests  []llm.Request
}

func (m *scriptModel) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	content := NodeFinalAnswer
	if m.calls < len(m.responses) {
		content = m.responses[m.calls]
	}
	m.calls++
	return &llm.Response{Content: content}, nil
}

// loopModel always routes to the same target.
type loopModel struct {
	target string
}

func (m *loopModel) Generate(context.Context, llm.Request) (*llm.Response, error) {
	return &llm.Response{Content: m.target}, nil
}

// scriptAgent is an Agent with a fixed reply and an optional error script
// consumed on successive calls.
type scriptAgent struct {
	name    string
	desc    string
	reply   string
	outputs []string

	mu    sync.Mutex
	errs  []error
	calls int
}

func (a *scriptAgent) Name() string        { return a.name }
func (a *scriptAgent) Description() string { return a.desc }

func (a *scriptAgent) Respond(context.Context, []llm.Message) (string, []string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.calls
	a.calls++
	if idx < len(a.errs) && a.errs[idx] != nil {
		return "", nil, a.errs[idx]
	}
	return a.reply, a.outputs, nil
}

func (a *scriptAgent) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// captureMetrics records node-execution outcomes per node id.
type captureMetrics struct {
	observability.NoopMetrics

	mu       sync.Mutex
	nodeErrs map[string][]error
}

func (m *captureMetrics) RecordNodeExecution(_ context.Context, nodeID string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nodeErrs == nil {
		m.nodeErrs = make(map[string][]error)
	}
	m.nodeErrs[nodeID] = append(m.nodeErrs[nodeID], err)
}

func (m *captureMetrics) nodeErrors(nodeID string) []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nodeErrs[nodeID]
}

// failingStore wraps a MemoryStore and fails Save after a given number of
// successful saves.
type failingStore struct {
	*checkpoint.MemoryStore
	failAfter int
	err       error
}

func (s *failingStore) Save(sessionID string, data []byte) error {
	if s.MemoryStore.Saves() >= s.failAfter {
		return s.err
	}
	return s.MemoryStore.Save(sessionID, data)
}
