package colony

import (
	"fmt"
	"sort"

	"github.com/hiveworks/swarmkernel/pkg/kernel"
	"github.com/hiveworks/swarmkernel/pkg/world"
)

// HarvestProcess sweeps the visible entities and tallies their energy
// into the store. It checks the advisory headroom between entities and
// stops early when the soft margin is gone, leaving the remainder for
// the next tick.
type HarvestProcess struct{}

func (HarvestProcess) Run(rc *kernel.Context) error {
	entities := rc.Snapshot.Entities()
	ids := make([]string, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var total float64
	swept := 0
	for _, id := range ids {
		if rc.Budget().Remaining() <= 0 {
			rc.Log.Warn(fmt.Sprintf("harvest stopping early after %d of %d entities", swept, len(ids)))
			break
		}
		total += entities[id].Energy
		swept++
	}

	if err := rc.Store.Set(total, "harvest", "energy"); err != nil {
		return err
	}
	return rc.Store.Set(swept, "harvest", "swept")
}

// ReportProcess reads what higher-priority processes wrote this tick and
// emits one summary line. It runs at low priority so it always observes
// the finished values.
type ReportProcess struct{}

func (ReportProcess) Run(rc *kernel.Context) error {
	energy, _ := rc.Store.GetFloat("harvest", "energy")
	swept, _ := rc.Store.GetFloat("harvest", "swept")
	rc.Log.Log(fmt.Sprintf("tick %d: swept %.0f entities, %.1f energy, %.2f cpu used",
		rc.Snapshot.Tick(), swept, energy, rc.Budget().Used()))
	rc.Metrics.Record("harvested_energy", energy)
	return nil
}

// UpkeepProcess is a singleton that counts its own invocations. The count
// is mirrored into the store so it survives host restarts even though the
// instance itself may not.
type UpkeepProcess struct {
	invocations int
}

func (p *UpkeepProcess) Run(rc *kernel.Context) error {
	if p.invocations == 0 {
		// Instance may be fresh after a host reset; resume from the store.
		if saved, ok := rc.Store.GetFloat("upkeep", "invocations"); ok {
			p.invocations = int(saved)
		}
	}
	p.invocations++
	return rc.Store.Set(p.invocations, "upkeep", "invocations")
}

// CourierProcess exercises the messaging capability: it drains its own
// mailbox, logs anything received, and posts a status line for the next
// tick's courier.
type CourierProcess struct{}

func (CourierProcess) Run(rc *kernel.Context) error {
	send, err := rc.Capability("sendMessage")
	if err != nil {
		return err
	}
	drain, err := rc.Capability("drainMessages")
	if err != nil {
		return err
	}

	for _, msg := range drain.(func(string) []string)("courier") {
		rc.Log.Log("courier received: " + msg)
	}
	send.(func(string, string))("courier", fmt.Sprintf("tick %d complete", rc.Snapshot.Tick()))
	return nil
}

// ScenarioProcess is the configurable process the simulator builds from a
// scenario file: it burns a fixed CPU cost and optionally fails at one
// specific tick.
type ScenarioProcess struct {
	Cost       float64
	FailAtTick uint64
}

func (p ScenarioProcess) Run(rc *kernel.Context) error {
	if sim, ok := rc.Snapshot.CPU().(*world.SimCPU); ok {
		sim.Consume(p.Cost)
	}
	if p.FailAtTick != 0 && rc.Snapshot.Tick() == p.FailAtTick {
		return fmt.Errorf("injected failure at tick %d", p.FailAtTick)
	}
	return nil
}

// RegisterDemo wires the standard demo colony into a kernel: harvest,
// courier, upkeep, and report, plus the demo protocols.
func RegisterDemo(k *kernel.Kernel) error {
	if err := RegisterProtocols(k); err != nil {
		return err
	}
	if err := k.RegisterProcess("harvest", 100, false, func() kernel.Process {
		return HarvestProcess{}
	}); err != nil {
		return err
	}
	if err := k.RegisterProcess("courier", 50, false, func() kernel.Process {
		return CourierProcess{}
	}); err != nil {
		return err
	}
	if err := k.RegisterProcess("upkeep", 20, true, func() kernel.Process {
		return &UpkeepProcess{}
	}); err != nil {
		return err
	}
	return k.RegisterProcess("report", 10, false, func() kernel.Process {
		return ReportProcess{}
	})
}
