package testutil

import "github.com/Norgate-AV/txmon/internal/interfaces"

// MockProcessInspector implements interfaces.ProcessInspector for testing
type MockProcessInspector struct {
	Processes map[uint32]interfaces.ProcessInfo
	Err       error
	Calls     []uint32
}

func NewMockProcessInspector() *MockProcessInspector {
	return &MockProcessInspector{Processes: make(map[uint32]interfaces.ProcessInfo)}
}

func (m *MockProcessInspector) Inspect(pid uint32) (interfaces.ProcessInfo, error) {
	m.Calls = append(m.Calls, pid)

	if m.Err != nil {
		return interfaces.ProcessInfo{}, m.Err
	}

	return m.Processes[pid], nil
}

func (m *MockProcessInspector) WithProcess(info interfaces.ProcessInfo) *MockProcessInspector {
	m.Processes[info.Pid] = info
	return m
}
