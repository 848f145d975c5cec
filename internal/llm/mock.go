package llm

import (
	"context"
	"sync"
)

// Mock is a scriptable Client for tests. Responses are returned in FIFO
// order; when the script is exhausted it falls back to Fallback.
type Mock struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     []MockCall

	// Fallback is returned once the scripted responses run out.
	Fallback string
}

// MockCall records a single invocation for assertions.
type MockCall struct {
	Kind     string // "chat" or "generate"
	Messages []Message
	Prompt   string
	System   string
	Opts     Options
}

// NewMock creates an empty mock that answers every call with Fallback.
func NewMock() *Mock {
	return &Mock{Fallback: "..."}
}

// Enqueue appends a scripted response.
func (m *Mock) Enqueue(response string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, response)
	m.errs = append(m.errs, nil)
	return m
}

// EnqueueError appends a scripted failure.
func (m *Mock) EnqueueError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, "")
	m.errs = append(m.errs, err)
	return m
}

// Calls returns a copy of the recorded invocations.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *Mock) next() (string, error) {
	if len(m.responses) == 0 {
		return m.Fallback, nil
	}
	response, err := m.responses[0], m.errs[0]
	m.responses = m.responses[1:]
	m.errs = m.errs[1:]
	return response, err
}

func (m *Mock) Chat(ctx context.Context, messages []Message, system string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Kind: "chat", Messages: append([]Message(nil), messages...), System: system, Opts: opts})
	return m.next()
}

func (m *Mock) Generate(ctx context.Context, prompt string, system string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Kind: "generate", Prompt: prompt, System: system, Opts: opts})
	return m.next()
}

func (m *Mock) Model() string {
	return "mock"
}
