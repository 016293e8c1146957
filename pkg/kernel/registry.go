package kernel

import "sort"

// Process is one registered unit of work. Run must complete within the
// same call stack; no goroutine it starts may outlive the invocation.
type Process interface {
	Run(rc *Context) error
}

// ProcessFactory constructs a process instance. Singleton processes are
// constructed lazily on first use and reused; non-singleton processes are
// constructed fresh every invocation and discarded.
type ProcessFactory func() Process

// ProcessDescriptor is the static registration record for one process.
type ProcessDescriptor struct {
	Name      string         `json:"name"`
	Priority  int            `json:"priority"`
	Singleton bool           `json:"singleton"`
	Factory   ProcessFactory `json:"-"`

	seq int // registration order, tie-break for equal priorities
}

// ProcessRegistry is the append-only catalog of declared processes.
type ProcessRegistry struct {
	byName map[string]*ProcessDescriptor
	order  []*ProcessDescriptor
}

// NewProcessRegistry creates an empty registry.
func NewProcessRegistry() *ProcessRegistry {
	return &ProcessRegistry{byName: make(map[string]*ProcessDescriptor)}
}

// Register appends a descriptor. A duplicate name fails with
// DuplicateNameError and leaves the registry unchanged.
func (r *ProcessRegistry) Register(name string, priority int, singleton bool, factory ProcessFactory) error {
	if _, exists := r.byName[name]; exists {
		return &DuplicateNameError{Kind: "process", Name: name}
	}
	d := &ProcessDescriptor{
		Name:      name,
		Priority:  priority,
		Singleton: singleton,
		Factory:   factory,
		seq:       len(r.order),
	}
	r.byName[name] = d
	r.order = append(r.order, d)
	return nil
}

// ResolveAll returns descriptors sorted by priority descending, ties
// broken by registration order. The sort is stable so identical
// registrations always resolve to the identical sequence.
func (r *ProcessRegistry) ResolveAll() []*ProcessDescriptor {
	sorted := make([]*ProcessDescriptor, len(r.order))
	copy(sorted, r.order)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].seq < sorted[j].seq
	})
	return sorted
}

// Len returns the number of registered processes.
func (r *ProcessRegistry) Len() int { return len(r.order) }

// Capability is one named method a protocol exposes to all processes.
// Concrete values are typed functions; processes assert the signature
// they declared a dependency on.
type Capability any

// Protocol is a registered capability bundle shared by all processes.
type Protocol interface {
	// Exports returns the capabilities this protocol contributes to the
	// merged set, keyed by method name.
	Exports() map[string]Capability
}

// ProtocolFactory constructs a protocol instance. Protocol instances are
// singletons: constructed once by the composer and reused until the host
// discards global state.
type ProtocolFactory func() Protocol

// ProtocolDescriptor is the static registration record for one protocol.
type ProtocolDescriptor struct {
	Name    string          `json:"name"`
	Factory ProtocolFactory `json:"-"`

	seq int
}

// ProtocolRegistry is the append-only catalog of declared protocols.
type ProtocolRegistry struct {
	byName map[string]*ProtocolDescriptor
	order  []*ProtocolDescriptor
}

// NewProtocolRegistry creates an empty registry.
func NewProtocolRegistry() *ProtocolRegistry {
	return &ProtocolRegistry{byName: make(map[string]*ProtocolDescriptor)}
}

// Register appends a descriptor, with the same duplicate-name contract as
// process registration.
func (r *ProtocolRegistry) Register(name string, factory ProtocolFactory) error {
	if _, exists := r.byName[name]; exists {
		return &DuplicateNameError{Kind: "protocol", Name: name}
	}
	d := &ProtocolDescriptor{Name: name, Factory: factory, seq: len(r.order)}
	r.byName[name] = d
	r.order = append(r.order, d)
	return nil
}

// All returns descriptors in registration order.
func (r *ProtocolRegistry) All() []*ProtocolDescriptor {
	out := make([]*ProtocolDescriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered protocols.
func (r *ProtocolRegistry) Len() int { return len(r.order) }
