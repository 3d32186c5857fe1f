package assessment

import (
	"context"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/memory"
)

// MockAnalyzer is a mock implementation of Analyzer for testing.
type MockAnalyzer struct {
	// AnalyzeFunc allows customizing behavior per test.
	AnalyzeFunc func(ctx context.Context, utterance string, mem *memory.SessionMemory) *Assessment

	// CallCount tracks invocations.
	CallCount int
}

// Analyze implements Analyzer.
func (m *MockAnalyzer) Analyze(ctx context.Context, utterance string, mem *memory.SessionMemory) *Assessment {
	m.CallCount++
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, utterance, mem)
	}
	return Default()
}

// Ensure MockAnalyzer implements Analyzer.
var _ Analyzer = (*MockAnalyzer)(nil)
