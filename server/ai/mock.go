package ai

import (
	"context"
	"sync"
)

// MockCompletionService is a mock implementation of CompletionService for testing.
type MockCompletionService struct {
	mu sync.Mutex

	// CompleteFunc allows customizing the completion behavior per test.
	CompleteFunc func(ctx context.Context, messages []Message, opts Options) (string, error)

	// Calls records every invocation for assertions.
	Calls []MockCall
}

// MockCall captures the arguments of one Complete invocation.
type MockCall struct {
	Messages []Message
	Opts     Options
}

// NewMockCompletionService creates a mock that always returns the given text.
func NewMockCompletionService(text string) *MockCompletionService {
	return &MockCompletionService{
		CompleteFunc: func(ctx context.Context, messages []Message, opts Options) (string, error) {
			return text, nil
		},
	}
}

// Complete implements CompletionService.
func (m *MockCompletionService) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Messages: messages, Opts: opts})
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages, opts)
	}
	return "", nil
}

// CallCount returns the number of recorded invocations.
func (m *MockCompletionService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Ensure MockCompletionService implements CompletionService.
var _ CompletionService = (*MockCompletionService)(nil)
