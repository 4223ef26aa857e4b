// Package procstats samples resource usage of the running server process.
package procstats

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

type Stats struct {
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"startedAt"`
	Uptime     string    `json:"uptime"`
	RSSBytes   uint64    `json:"rssBytes"`
	CPUPercent float64   `json:"cpuPercent"`
	Threads    int32     `json:"threads"`
	Goroutines int       `json:"goroutines"`
}

type Sampler struct {
	proc *process.Process
}

// NewSampler attaches to the current process.
func NewSampler() (*Sampler, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("attaching to pid %d: %w", os.Getpid(), err)
	}
	return &Sampler{proc: p}, nil
}

// Sample reads current usage. CPU percent is averaged over the process
// lifetime.
func (s *Sampler) Sample() (Stats, error) {
	st := Stats{
		PID:        int(s.proc.Pid),
		Goroutines: runtime.NumGoroutine(),
	}

	mem, err := s.proc.MemoryInfo()
	if err != nil {
		return st, fmt.Errorf("memory info: %w", err)
	}
	st.RSSBytes = mem.RSS

	if created, err := s.proc.CreateTime(); err == nil {
		st.StartedAt = time.UnixMilli(created)
		st.Uptime = time.Since(st.StartedAt).Round(time.Second).String()
	}
	if cpu, err := s.proc.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	if threads, err := s.proc.NumThreads(); err == nil {
		st.Threads = threads
	}
	return st, nil
}
