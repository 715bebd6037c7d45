package netw

import (
	"github.com/skanders/thermoflow/internal/charline"
)

// BusComponent is implemented by components that can feed an energy bus
// (turbomachines via shaft power, heat exchangers via heat flow).
type BusComponent interface {
	Component

	// EnergyFlow returns the component's power or heat in SI units;
	// negative values leave the process (e.g. turbine shaft power).
	EnergyFlow() float64

	// BusConns lists the connections whose variables the energy flow
	// depends on, for derivative assembly.
	BusConns() []*Connection
}

// BusEntry couples one component to a bus with an efficiency
// characteristic over the load ratio.
type BusEntry struct {
	Comp BusComponent
	Char *charline.Line
	// Base decides the reference side of the efficiency: "component"
	// multiplies the energy flow by the characteristic, "bus" divides.
	Base string
	// PRef is the design energy flow the load ratio refers to.
	PRef float64
}

// Value returns the entry's contribution to the bus total.
func (e *BusEntry) Value() float64 {
	energy := e.Comp.EnergyFlow()
	load := 1.0
	if e.PRef != 0 {
		load = energy / e.PRef
	}
	eta := 1.0
	if e.Char != nil {
		eta = e.Char.Evaluate(load)
	}
	if e.Base == "bus" {
		return energy / eta
	}
	return energy * eta
}

// Bus sums energy flows of several components, e.g. all turbomachines on
// one shaft or the total heat input of a plant. Specifying the total power
// adds one equation to the system.
type Bus struct {
	Label   string
	P       Param
	Entries []*BusEntry
}

// NewBus creates an empty bus.
func NewBus(label string) *Bus {
	return &Bus{Label: label}
}

// SetP specifies the bus total in SI units (W).
func (b *Bus) SetP(v float64) {
	b.P.Val = v
	b.P.SI = v
	b.P.Set = true
}

// Add registers a component on the bus. A nil characteristic means a
// constant efficiency of one; base defaults to "component".
func (b *Bus) Add(comp BusComponent, char *charline.Line, base string) {
	if base == "" {
		base = "component"
	}
	b.Entries = append(b.Entries, &BusEntry{Comp: comp, Char: char, Base: base})
}

// Total sums all entry contributions at the current state.
func (b *Bus) Total() float64 {
	sum := 0.0
	for _, e := range b.Entries {
		sum += e.Value()
	}
	return sum
}
