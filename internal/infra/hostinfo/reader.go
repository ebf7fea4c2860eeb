package hostinfo

import (
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/ports"
)

// Reader reads host facts through gopsutil. Individual lookups that fail leave
// their fields empty; Describe only errors when nothing could be read.
type Reader struct{}

func New() *Reader { return &Reader{} }

var _ ports.HostDescriber = (*Reader)(nil)

func (r *Reader) Describe() (domain.HostInfo, error) {
	var out domain.HostInfo
	var firstErr error
	ok := false

	if hi, err := host.Info(); err == nil {
		out.Hostname = hi.Hostname
		out.OS = hi.OS
		out.Platform = hi.Platform
		out.KernelVersion = hi.KernelVersion
		ok = true
	} else {
		firstErr = err
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		out.CPUModel = infos[0].ModelName
		ok = true
	} else if firstErr == nil {
		firstErr = err
	}

	if n, err := cpu.Counts(true); err == nil {
		out.CPUCores = n
		ok = true
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		out.MemoryBytes = vm.Total
		ok = true
	} else if firstErr == nil {
		firstErr = err
	}

	if !ok {
		return domain.HostInfo{}, &domain.OpError{
			Op:   "hostinfo.describe",
			Kind: domain.KindExecution,
			Err:  firstErr,
		}
	}
	return out, nil
}
