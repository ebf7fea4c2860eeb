package procrunner

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

type peakSampler struct {
	done chan struct{}
	wg   sync.WaitGroup

	mu   sync.Mutex
	peak uint64
}

func startSampler(pid int, interval time.Duration) *peakSampler {
	s := &peakSampler{done: make(chan struct{})}
	proc := &process.Process{Pid: int32(pid)}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.sample(proc)
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.sample(proc)
			}
		}
	}()
	return s
}

func (s *peakSampler) sample(proc *process.Process) {
	mi, err := proc.MemoryInfo()
	if err != nil || mi == nil {
		return
	}
	s.mu.Lock()
	if mi.RSS > s.peak {
		s.peak = mi.RSS
	}
	s.mu.Unlock()
}

// stop ends sampling and returns the largest RSS observed.
func (s *peakSampler) stop() uint64 {
	close(s.done)
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}
