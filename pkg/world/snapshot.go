// Package world defines the read-only view of the outside world that the
// kernel hands to every process: the tick counter, the CPU accessor the
// budget monitor reads, and the live entities visible this invocation.
package world

// CPU exposes the host's CPU accounting for the current invocation.
type CPU interface {
	// Used returns CPU consumed so far in this invocation, in the same
	// unit as Limit (the simulator uses abstract units, the host uses
	// milliseconds).
	Used() float64
	// Limit returns the hard per-invocation allowance.
	Limit() float64
	// Bucket returns the secondary soft capacity indicator: accumulated
	// headroom that processes may consult before starting optional work.
	Bucket() float64
}

// Entity is one live object in the world snapshot.
type Entity struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"`
	Energy float64 `json:"energy"`
}

// Snapshot is the per-invocation world view. It is conceptually read-only
// for the duration of one invocation; the kernel passes it through by
// reference without copying.
type Snapshot interface {
	Tick() uint64
	CPU() CPU
	Entities() map[string]Entity
}

// TickSnapshot is the plain Snapshot implementation used by both the
// simulator and the daemon host loop.
type TickSnapshot struct {
	tick     uint64
	cpu      CPU
	entities map[string]Entity
}

// NewSnapshot builds a snapshot for one invocation. The entity map is
// shared by reference, matching the no-copy contract.
func NewSnapshot(tick uint64, cpu CPU, entities map[string]Entity) *TickSnapshot {
	if entities == nil {
		entities = map[string]Entity{}
	}
	return &TickSnapshot{tick: tick, cpu: cpu, entities: entities}
}

func (s *TickSnapshot) Tick() uint64                 { return s.tick }
func (s *TickSnapshot) CPU() CPU                     { return s.cpu }
func (s *TickSnapshot) Entities() map[string]Entity { return s.entities }
