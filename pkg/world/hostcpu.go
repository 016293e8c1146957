package world

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// HostCPU maps real wall-clock consumption onto a per-invocation
// millisecond budget for daemon mode. The invocation loop calls Reset at
// the top of each tick.
type HostCPU struct {
	limitMs float64
	start   time.Time
}

// NewHostCPU creates an accessor with the given per-tick budget in
// milliseconds.
func NewHostCPU(limitMs float64) *HostCPU {
	return &HostCPU{limitMs: limitMs, start: time.Now()}
}

// Reset marks the start of a new invocation.
func (h *HostCPU) Reset() { h.start = time.Now() }

// Used returns milliseconds elapsed since the last Reset.
func (h *HostCPU) Used() float64 {
	return float64(time.Since(h.start)) / float64(time.Millisecond)
}

// Limit returns the per-tick allowance in milliseconds.
func (h *HostCPU) Limit() float64 { return h.limitMs }

// Bucket samples current system idle headroom and scales it to the
// conventional 0..10000 range. A sampling failure reports a full bucket
// so the kernel never aborts on accounting noise.
func (h *HostCPU) Bucket() float64 {
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return 10000
	}
	idle := 100 - percents[0]
	if idle < 0 {
		idle = 0
	}
	return idle * 100
}
