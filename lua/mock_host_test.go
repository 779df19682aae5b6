package lua

// MockHost implements Host for testing.
type MockHost struct {
	// Captured calls
	PrintCalls []string
	ErrorCalls []string
}

func NewMockHost() *MockHost {
	return &MockHost{}
}

func (m *MockHost) Print(text string) {
	m.PrintCalls = append(m.PrintCalls, text)
}

func (m *MockHost) OnError(msg string) {
	m.ErrorCalls = append(m.ErrorCalls, msg)
}

// DrainPrintCalls returns and clears captured prints.
func (m *MockHost) DrainPrintCalls() []string {
	calls := m.PrintCalls
	m.PrintCalls = nil
	return calls
}
