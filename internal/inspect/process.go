package inspect

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/Norgate-AV/txmon/internal/interfaces"
)

// ProcessTable looks processes up in the OS process table
type ProcessTable struct{}

func NewProcessTable() *ProcessTable {
	return &ProcessTable{}
}

// Inspect returns the name, executable and start time of pid. Fields the OS
// will not reveal are left empty.
func (ProcessTable) Inspect(pid uint32) (interfaces.ProcessInfo, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return interfaces.ProcessInfo{}, fmt.Errorf("process %d: %w", pid, err)
	}

	info := interfaces.ProcessInfo{Pid: pid}

	if info.Name, err = p.Name(); err != nil {
		return info, fmt.Errorf("process %d name: %w", pid, err)
	}

	// Needs the same integrity level as the target
	info.Executable, _ = p.Exe()

	if created, err := p.CreateTime(); err == nil {
		info.StartedAt = startTime(created)
	}

	return info, nil
}
