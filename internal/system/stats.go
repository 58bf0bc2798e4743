package system

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// MemStats is a snapshot for the performance report.
type MemStats struct {
	ProcessRSS    uint64
	SystemTotal   uint64
	SystemUsedPct float64
}

// MemoryReport samples process and system memory.
func MemoryReport() (MemStats, error) {
	var s MemStats

	vm, err := mem.VirtualMemory()
	if err != nil {
		return s, err
	}
	s.SystemTotal = vm.Total
	s.SystemUsedPct = vm.UsedPercent

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return s, err
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return s, err
	}
	s.ProcessRSS = info.RSS
	return s, nil
}

func (s MemStats) String() string {
	return fmt.Sprintf("RSS %s | System %s (%.1f%% used)", FormatBytes(s.ProcessRSS), FormatBytes(s.SystemTotal), s.SystemUsedPct)
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
