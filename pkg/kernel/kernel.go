// Package kernel implements the tick-bounded cooperative scheduler: a
// single synchronous pass through the registered processes per invocation,
// in priority order, under a two-tier CPU budget, with per-process fault
// isolation. Invocations are serialized by the host and never overlap, so
// the kernel holds no locks around the run loop.
package kernel

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/hiveworks/swarmkernel/pkg/store"
	"github.com/hiveworks/swarmkernel/pkg/world"
)

// SkipReasonBudget is the reason recorded for processes skipped after the
// emergency threshold tripped.
const SkipReasonBudget = "budget"

// SkippedProcess is one queue entry the kernel did not run.
type SkippedProcess struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// FailedProcess is one process whose invocation faulted.
type FailedProcess struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// RunSummary reports one invocation: what executed, what was skipped, what
// failed, total CPU consumed, and whether the run was aborted. Callers are
// expected to inspect Failed and Aborted every invocation; faults inside
// the loop never escape Run as errors.
type RunSummary struct {
	ID       string           `json:"id"`
	Tick     uint64           `json:"tick"`
	Executed []string         `json:"executed"`
	Skipped  []SkippedProcess `json:"skipped"`
	Failed   []FailedProcess  `json:"failed"`
	TotalCPU float64          `json:"total_cpu"`
	Aborted  bool             `json:"aborted"`
}

// ProcessFunc adapts a plain function to the Process interface.
type ProcessFunc func(rc *Context) error

func (f ProcessFunc) Run(rc *Context) error { return f(rc) }

// Kernel is the orchestrator. Descriptors are registered once before the
// first invocation; Run drives one tick.
type Kernel struct {
	cfg        Config
	processes  *ProcessRegistry
	protocols  *ProtocolRegistry
	composer   *Composer
	singletons *gocache.Cache
	caps       *CapabilitySet
	log        Logger
	metrics    Metrics
}

// Option configures a Kernel at construction.
type Option func(*Kernel)

// WithConfig overrides the budget thresholds.
func WithConfig(cfg Config) Option {
	return func(k *Kernel) { k.cfg = cfg.normalized() }
}

// WithLogger plugs in the logger capability.
func WithLogger(log Logger) Option {
	return func(k *Kernel) { k.log = log }
}

// WithMetrics plugs in the metrics capability.
func WithMetrics(m Metrics) Option {
	return func(k *Kernel) { k.metrics = m }
}

// New creates a kernel with empty registries and no-op capabilities.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		cfg:        DefaultConfig(),
		processes:  NewProcessRegistry(),
		protocols:  NewProtocolRegistry(),
		composer:   NewComposer(),
		singletons: gocache.New(gocache.NoExpiration, 0),
		log:        NopLogger{},
		metrics:    NopMetrics{},
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// RegisterProcess declares a unit of work. Fails with DuplicateNameError
// if the name exists. Registration is append-only after startup.
func (k *Kernel) RegisterProcess(name string, priority int, singleton bool, factory ProcessFactory) error {
	return k.processes.Register(name, priority, singleton, factory)
}

// RegisterProtocol declares a shared capability bundle, with the same
// duplicate-name contract as RegisterProcess.
func (k *Kernel) RegisterProtocol(name string, factory ProtocolFactory) error {
	if err := k.protocols.Register(name, factory); err != nil {
		return err
	}
	// New protocol invalidates the cached composition.
	k.caps = nil
	return nil
}

// Descriptors returns the registered processes in execution order.
func (k *Kernel) Descriptors() []*ProcessDescriptor {
	return k.processes.ResolveAll()
}

// Run performs one invocation against the given snapshot and store.
//
// It returns an error only for composition-class faults, which are a
// startup bug, not a per-tick condition. Everything that happens inside
// the per-process loop is absorbed into the summary: a faulting process is
// recorded in Failed and the loop continues, a tripped emergency threshold
// marks the rest of the queue Skipped and sets Aborted.
func (k *Kernel) Run(snap world.Snapshot, st *store.Tree) (*RunSummary, error) {
	caps, err := k.capabilities()
	if err != nil {
		return nil, err
	}

	budget := NewBudgetMonitor(snap.CPU(), k.cfg)
	budget.Begin()

	ctx := buildContext(snap, st, caps, budget, k.log, k.metrics)

	descriptors := k.processes.ResolveAll()
	summary := &RunSummary{
		ID:       uuid.NewString(),
		Tick:     snap.Tick(),
		Executed: make([]string, 0, len(descriptors)),
	}

	for i, d := range descriptors {
		if budget.ShouldAbort() {
			k.abortRemaining(summary, descriptors[i:])
			break
		}

		inst := k.instance(d)
		if inst == nil {
			summary.Failed = append(summary.Failed, FailedProcess{
				Name:  d.Name,
				Error: "factory returned nil process",
			})
			continue
		}

		before := snap.CPU().Used()
		k.metrics.Begin("process_" + d.Name)
		runErr := k.invoke(inst, ctx)
		k.metrics.End("process_" + d.Name)
		k.metrics.Record("process_cpu_"+d.Name, snap.CPU().Used()-before)

		if runErr != nil {
			summary.Failed = append(summary.Failed, FailedProcess{
				Name:  d.Name,
				Error: runErr.Error(),
			})
			if errors.Is(runErr, ErrResourceExhausted) {
				k.log.Error(fmt.Sprintf("process %s exhausted resources, aborting tick: %v", d.Name, runErr))
				k.abortRemaining(summary, descriptors[i+1:])
				break
			}
			// Isolation invariant: one process's fault never blocks the rest.
			k.log.Error(fmt.Sprintf("process %s failed: %v", d.Name, runErr))
			continue
		}

		summary.Executed = append(summary.Executed, d.Name)
	}

	summary.TotalCPU = budget.Used()
	k.metrics.Record("tick_cpu", summary.TotalCPU)
	return summary, nil
}

// capabilities returns the cached composition, building it on first use.
// A ProtocolCollisionError propagates to the caller of Run.
func (k *Kernel) capabilities() (*CapabilitySet, error) {
	if k.caps != nil {
		return k.caps, nil
	}
	caps, err := k.composer.Compose(k.protocols.All())
	if err != nil {
		return nil, err
	}
	k.caps = caps
	return caps, nil
}

// instance reuses the singleton process instance or constructs a fresh
// one. Singletons are cached lazily; the cache may be discarded by the
// host at any time, in which case the factory simply runs again.
func (k *Kernel) instance(d *ProcessDescriptor) Process {
	if !d.Singleton {
		return d.Factory()
	}
	if v, ok := k.singletons.Get(d.Name); ok {
		return v.(Process)
	}
	inst := d.Factory()
	if inst != nil {
		k.singletons.Set(d.Name, inst, gocache.NoExpiration)
	}
	return inst
}

// invoke runs one process with panic containment. A panic carrying
// ErrResourceExhausted keeps its identity so the caller can escalate.
func (k *Kernel) invoke(p Process, rc *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				if errors.Is(e, ErrResourceExhausted) {
					err = e
					return
				}
				err = fmt.Errorf("process panic: %w", e)
				return
			}
			err = fmt.Errorf("process panic: %v", r)
		}
	}()
	return p.Run(rc)
}

func (k *Kernel) abortRemaining(summary *RunSummary, rest []*ProcessDescriptor) {
	summary.Aborted = true
	for _, d := range rest {
		summary.Skipped = append(summary.Skipped, SkippedProcess{
			Name:   d.Name,
			Reason: SkipReasonBudget,
		})
		k.log.Warn(fmt.Sprintf("process %s skipped: budget", d.Name))
	}
}
