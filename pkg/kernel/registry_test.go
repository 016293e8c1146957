package kernel

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestProcessRegistry_DuplicateName(t *testing.T) {
	r := NewProcessRegistry()
	factory := func() Process { return ProcessFunc(func(*Context) error { return nil }) }

	require.NoError(t, r.Register("harvest", 100, false, factory))

	err := r.Register("harvest", 50, true, factory)
	var dup *DuplicateNameError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "process", dup.Kind)
	require.Equal(t, "harvest", dup.Name)

	// Failed registration leaves the registry unchanged.
	require.Equal(t, 1, r.Len())
	require.Equal(t, 100, r.ResolveAll()[0].Priority)
}

func TestProtocolRegistry_DuplicateName(t *testing.T) {
	r := NewProtocolRegistry()
	factory := func() Protocol { return staticProtocol{} }

	require.NoError(t, r.Register("messaging", factory))
	err := r.Register("messaging", factory)

	var dup *DuplicateNameError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "protocol", dup.Kind)
	require.Equal(t, 1, r.Len())
}

func TestProcessRegistry_ResolveAllOrder(t *testing.T) {
	r := NewProcessRegistry()
	factory := func() Process { return ProcessFunc(func(*Context) error { return nil }) }

	require.NoError(t, r.Register("low", 10, false, factory))
	require.NoError(t, r.Register("high", 100, false, factory))
	require.NoError(t, r.Register("mid-a", 50, false, factory))
	require.NoError(t, r.Register("mid-b", 50, false, factory))

	var names []string
	for _, d := range r.ResolveAll() {
		names = append(names, d.Name)
	}
	// Descending priority, registration order breaking the 50/50 tie.
	require.Equal(t, []string{"high", "mid-a", "mid-b", "low"}, names)
}

func TestProperty_ResolveAllDescendingStable(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := NewProcessRegistry()
		factory := func() Process { return ProcessFunc(func(*Context) error { return nil }) }

		count := rapid.IntRange(1, 50).Draw(rt, "count")
		priorities := make(map[string]int, count)
		for i := 0; i < count; i++ {
			name := fmt.Sprintf("proc-%d", i)
			priorities[name] = rapid.IntRange(-100, 100).Draw(rt, "priority")
			require.NoError(rt, r.Register(name, priorities[name], false, factory))
		}

		resolved := r.ResolveAll()
		require.Len(rt, resolved, count)

		for i := 1; i < len(resolved); i++ {
			prev, cur := resolved[i-1], resolved[i]
			require.GreaterOrEqual(rt, prev.Priority, cur.Priority,
				"priorities must be non-increasing")
			if prev.Priority == cur.Priority {
				require.Less(rt, prev.seq, cur.seq,
					"ties must preserve registration order")
			}
		}
	})
}

type staticProtocol struct {
	exports map[string]Capability
}

func (p staticProtocol) Exports() map[string]Capability { return p.exports }
