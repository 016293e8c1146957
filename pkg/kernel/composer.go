package kernel

import (
	"sort"

	gocache "github.com/patrickmn/go-cache"
)

// CapabilitySet is the merged namespace of every registered protocol's
// exports. It is built once at composition time and shared by reference
// with every execution context.
type CapabilitySet struct {
	caps   map[string]Capability
	owners map[string]string // capability name -> protocol name
}

// Lookup returns the capability registered under name.
func (cs *CapabilitySet) Lookup(name string) (Capability, bool) {
	c, ok := cs.caps[name]
	return c, ok
}

// Require is Lookup with the packaging-fault contract: a missing
// capability returns ProtocolResolutionError for the caller to surface.
func (cs *CapabilitySet) Require(name string) (Capability, error) {
	c, ok := cs.caps[name]
	if !ok {
		return nil, &ProtocolResolutionError{Capability: name}
	}
	return c, nil
}

// Owner returns the protocol that exported a capability.
func (cs *CapabilitySet) Owner(name string) (string, bool) {
	o, ok := cs.owners[name]
	return o, ok
}

// Names returns all capability names, sorted for stable output.
func (cs *CapabilitySet) Names() []string {
	names := make([]string, 0, len(cs.caps))
	for n := range cs.caps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of merged capabilities.
func (cs *CapabilitySet) Len() int { return len(cs.caps) }

// Composer instantiates protocols and merges their exports. Instances are
// cached without expiration so protocol state survives across invocations,
// but the cache may vanish with the rest of global state; composition
// simply rebuilds it.
type Composer struct {
	instances *gocache.Cache
}

// NewComposer creates a composer with an empty instance cache.
func NewComposer() *Composer {
	return &Composer{instances: gocache.New(gocache.NoExpiration, 0)}
}

// Compose builds (or reuses) an instance per descriptor and merges the
// exported capabilities into one set. Two protocols exporting the same
// method name fail immediately with ProtocolCollisionError naming both;
// silent override could mask a missing capability at runtime.
func (c *Composer) Compose(descriptors []*ProtocolDescriptor) (*CapabilitySet, error) {
	cs := &CapabilitySet{
		caps:   make(map[string]Capability),
		owners: make(map[string]string),
	}
	for _, d := range descriptors {
		inst := c.instance(d)
		for name, capability := range inst.Exports() {
			if first, taken := cs.owners[name]; taken {
				return nil, &ProtocolCollisionError{
					Capability: name,
					First:      first,
					Second:     d.Name,
				}
			}
			cs.caps[name] = capability
			cs.owners[name] = d.Name
		}
	}
	return cs, nil
}

func (c *Composer) instance(d *ProtocolDescriptor) Protocol {
	if v, ok := c.instances.Get(d.Name); ok {
		return v.(Protocol)
	}
	inst := d.Factory()
	c.instances.Set(d.Name, inst, gocache.NoExpiration)
	return inst
}
