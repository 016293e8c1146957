package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hiveworks/swarmkernel/pkg/world"
)

func TestBudgetMonitor_Remaining(t *testing.T) {
	cpu := world.NewSimCPU(10, 10000)
	b := NewBudgetMonitor(cpu, DefaultConfig())
	b.Begin()

	// Soft headroom starts at limit*softMargin.
	require.InDelta(t, 8.0, b.Remaining(), 1e-9)

	cpu.Consume(3)
	require.InDelta(t, 5.0, b.Remaining(), 1e-9)
	require.InDelta(t, 3.0, b.Used(), 1e-9)

	cpu.Consume(6)
	require.Negative(t, b.Remaining())
}

func TestBudgetMonitor_BeginCapturesBaseline(t *testing.T) {
	cpu := world.NewSimCPU(10, 10000)
	cpu.SetUsed(4) // consumption before this invocation started

	b := NewBudgetMonitor(cpu, DefaultConfig())
	b.Begin()

	require.InDelta(t, 0.0, b.Used(), 1e-9)
	cpu.Consume(2)
	require.InDelta(t, 2.0, b.Used(), 1e-9)
}

func TestBudgetMonitor_ShouldAbort(t *testing.T) {
	cpu := world.NewSimCPU(10, 10000)
	b := NewBudgetMonitor(cpu, Config{EmergencyThreshold: 0.9, SoftMargin: 0.8})
	b.Begin()

	cpu.SetUsed(8.9)
	require.False(t, b.ShouldAbort())

	cpu.SetUsed(9.0)
	require.True(t, b.ShouldAbort(), "threshold is inclusive")

	cpu.SetUsed(9.5)
	require.True(t, b.ShouldAbort())
}

func TestBudgetMonitor_ZeroConfigUsesDefaults(t *testing.T) {
	cpu := world.NewSimCPU(100, 10000)
	b := NewBudgetMonitor(cpu, Config{})
	b.Begin()

	cpu.SetUsed(89)
	require.False(t, b.ShouldAbort())
	cpu.SetUsed(90)
	require.True(t, b.ShouldAbort())
}
