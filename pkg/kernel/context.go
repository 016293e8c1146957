package kernel

import (
	"github.com/hiveworks/swarmkernel/pkg/store"
	"github.com/hiveworks/swarmkernel/pkg/world"
)

// Logger is the logging capability handed to processes. The default is a
// no-op; hosts plug in a real implementation.
type Logger interface {
	Log(message string)
	Warn(message string)
	Error(message string)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Log(string)   {}
func (NopLogger) Warn(string)  {}
func (NopLogger) Error(string) {}

// Metrics is the metrics capability handed to processes. The default is a
// no-op; hosts plug in a real recorder.
type Metrics interface {
	Record(name string, value float64)
	Begin(name string)
	End(name string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) Record(string, float64) {}
func (NopMetrics) Begin(string)           {}
func (NopMetrics) End(string)             {}

// Context is the per-invocation composite handed to every process. The
// snapshot and store pass through by reference, no defensive copies: the
// snapshot is read-only for the invocation, and the store is the one
// resource processes both read and write, in priority order.
type Context struct {
	Snapshot world.Snapshot
	Store    *store.Tree
	Log      Logger
	Metrics  Metrics

	caps   *CapabilitySet
	budget *BudgetMonitor
}

// buildContext assembles a fresh context. Contexts are created every
// invocation and never cached.
func buildContext(snap world.Snapshot, st *store.Tree, caps *CapabilitySet, budget *BudgetMonitor, log Logger, metrics Metrics) *Context {
	return &Context{
		Snapshot: snap,
		Store:    st,
		Log:      log,
		Metrics:  metrics,
		caps:     caps,
		budget:   budget,
	}
}

// Budget exposes the invocation's budget monitor so processes can consult
// the advisory soft margin for their own looping decisions.
func (c *Context) Budget() *BudgetMonitor { return c.budget }

// Capability resolves a merged protocol method by name, returning
// ProtocolResolutionError when no protocol exports it.
func (c *Context) Capability(name string) (Capability, error) {
	return c.caps.Require(name)
}

// Capabilities returns the merged capability set.
func (c *Context) Capabilities() *CapabilitySet { return c.caps }
