package kernel

import "github.com/hiveworks/swarmkernel/pkg/world"

// Config holds the two budget thresholds. The soft margin is advisory:
// long-running processes consult Remaining to decide whether to keep
// iterating their own sub-units. The emergency threshold is enforced
// unconditionally by the kernel between processes, because a process that
// ignores its soft margin must not blow the externally enforced limit.
type Config struct {
	EmergencyThreshold float64
	SoftMargin         float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		EmergencyThreshold: 0.9,
		SoftMargin:         0.8,
	}
}

// normalized fills zero values with defaults so a partially populated
// Config behaves sensibly.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.EmergencyThreshold <= 0 {
		c.EmergencyThreshold = d.EmergencyThreshold
	}
	if c.SoftMargin <= 0 {
		c.SoftMargin = d.SoftMargin
	}
	return c
}

// BudgetMonitor tracks CPU consumption for one invocation against the
// two-tier threshold. It is invocation-scoped and discarded after Run
// returns.
type BudgetMonitor struct {
	cpu   world.CPU
	cfg   Config
	start float64
	limit float64
}

// NewBudgetMonitor creates a monitor over the snapshot's CPU accessor.
func NewBudgetMonitor(cpu world.CPU, cfg Config) *BudgetMonitor {
	return &BudgetMonitor{cpu: cpu, cfg: cfg.normalized(), limit: cpu.Limit()}
}

// Begin captures the starting CPU usage.
func (b *BudgetMonitor) Begin() { b.start = b.cpu.Used() }

// Used returns CPU consumed since Begin.
func (b *BudgetMonitor) Used() float64 { return b.cpu.Used() - b.start }

// Limit returns the hard per-invocation allowance.
func (b *BudgetMonitor) Limit() float64 { return b.limit }

// Remaining returns the advisory headroom under the soft margin. A
// process may keep iterating its own sub-units while this is positive.
func (b *BudgetMonitor) Remaining() float64 {
	return b.limit*b.cfg.SoftMargin - b.Used()
}

// ShouldAbort reports whether consumption has crossed the hard emergency
// threshold. The kernel checks this between processes and skips the
// remaining queue once it trips.
func (b *BudgetMonitor) ShouldAbort() bool {
	return b.Used() >= b.limit*b.cfg.EmergencyThreshold
}
