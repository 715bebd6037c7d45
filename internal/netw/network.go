package netw

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/skanders/thermoflow/internal/fluid"
)

// Network is the container for components, connections and busses, and
// the entry point for solving.
type Network struct {
	Fluids []string
	Units  UnitSystem

	// generic variable ranges in SI units, used to stabilize early
	// iterations
	MRange [2]float64
	PRange [2]float64
	HRange [2]float64

	conns       []*Connection
	connByLabel map[string]*Connection
	comps       []Component
	compByLabel map[string]Component
	busses      []*Bus
	busByLabel  map[string]*Bus

	checked bool
	mode    string
	iter    int

	fluidIndex  map[string]int
	numConnVars int
	numVars     int
	numCompVars int
	numCompEq   int
	numConnEq   int
	numBusEq    int

	compVars []*CompVar

	// Report of the most recent solve.
	Report *Report
}

// New creates a network over the given fluid list. Every fluid must be
// known to the property backend.
func New(fluids []string) (*Network, error) {
	if len(fluids) == 0 {
		return nil, fmt.Errorf("netw: network needs at least one fluid")
	}
	idx := make(map[string]int, len(fluids))
	for i, f := range fluids {
		if !fluid.IsRegistered(f) {
			return nil, fmt.Errorf("%w: %s", fluid.ErrUnknownFluid, f)
		}
		if _, dup := idx[f]; dup {
			return nil, fmt.Errorf("netw: fluid %s listed twice", f)
		}
		idx[f] = i
	}
	return &Network{
		Fluids:      fluids,
		Units:       DefaultUnits(),
		MRange:      [2]float64{0.004, 5000},
		PRange:      [2]float64{2e3, 3e8},
		HRange:      [2]float64{1e3, 7e6},
		connByLabel: map[string]*Connection{},
		compByLabel: map[string]Component{},
		busByLabel:  map[string]*Bus{},
		fluidIndex:  idx,
	}, nil
}

// SetRange adjusts a generic value range; prop is "m", "p" or "h", values
// in the given unit (empty for the network default).
func (nw *Network) SetRange(prop string, min, max float64, unit string) error {
	lo, err := nw.Units.ToSI(prop, min, unit)
	if err != nil {
		return err
	}
	hi, err := nw.Units.ToSI(prop, max, unit)
	if err != nil {
		return err
	}
	if lo >= hi {
		return fmt.Errorf("netw: invalid %s range [%g, %g]", prop, lo, hi)
	}
	switch prop {
	case "m":
		nw.MRange = [2]float64{lo, hi}
	case "p":
		nw.PRange = [2]float64{lo, hi}
	case "h":
		nw.HRange = [2]float64{lo, hi}
	default:
		return fmt.Errorf("netw: no range for property %q", prop)
	}
	return nil
}

// AddConns registers connections. Labels must be unique and any specified
// composition may only name fluids from the network's fluid list.
func (nw *Network) AddConns(conns ...*Connection) error {
	for _, c := range conns {
		if c == nil {
			return fmt.Errorf("netw: nil connection")
		}
		if _, dup := nw.connByLabel[c.Label]; dup {
			return fmt.Errorf("%w: connection %s", ErrDuplicateLabel, c.Label)
		}
		for name := range c.Fluid.Val {
			if _, ok := nw.fluidIndex[name]; !ok {
				return fmt.Errorf("%w: %s on connection %s", ErrUnknownFluid, name, c.Label)
			}
		}
		c.goodStart = false
		nw.conns = append(nw.conns, c)
		nw.connByLabel[c.Label] = c
		log.Debug("added connection", "label", c.Label)
		nw.checked = false
	}
	return nil
}

// DelConns removes connections again.
func (nw *Network) DelConns(conns ...*Connection) {
	for _, c := range conns {
		if _, ok := nw.connByLabel[c.Label]; !ok {
			continue
		}
		delete(nw.connByLabel, c.Label)
		for i, cc := range nw.conns {
			if cc == c {
				nw.conns = append(nw.conns[:i], nw.conns[i+1:]...)
				break
			}
		}
		log.Debug("deleted connection", "label", c.Label)
		nw.checked = false
	}
}

// AddBusses registers energy busses; labels must be unique.
func (nw *Network) AddBusses(busses ...*Bus) error {
	for _, b := range busses {
		if _, dup := nw.busByLabel[b.Label]; dup {
			return fmt.Errorf("%w: bus %s", ErrDuplicateLabel, b.Label)
		}
		nw.busses = append(nw.busses, b)
		nw.busByLabel[b.Label] = b
		log.Debug("added bus", "label", b.Label)
	}
	return nil
}

// DelBusses removes busses again.
func (nw *Network) DelBusses(busses ...*Bus) {
	for _, b := range busses {
		if _, ok := nw.busByLabel[b.Label]; !ok {
			continue
		}
		delete(nw.busByLabel, b.Label)
		for i, bb := range nw.busses {
			if bb == b {
				nw.busses = append(nw.busses[:i], nw.busses[i+1:]...)
				break
			}
		}
	}
}

// Conns returns the registered connections in insertion order.
func (nw *Network) Conns() []*Connection { return nw.conns }

// Conn resolves a connection by label.
func (nw *Network) Conn(label string) (*Connection, bool) {
	c, ok := nw.connByLabel[label]
	return c, ok
}

// Comps returns the components gathered by the topology check.
func (nw *Network) Comps() []Component { return nw.comps }

// Comp resolves a component by label.
func (nw *Network) Comp(label string) (Component, bool) {
	c, ok := nw.compByLabel[label]
	return c, ok
}

// Busses returns the registered busses.
func (nw *Network) Busses() []*Bus { return nw.busses }

// Mode returns the active solve mode.
func (nw *Network) Mode() string { return nw.mode }

// CheckTopology gathers the component set from the connections and
// verifies every inlet and outlet is bound exactly once.
func (nw *Network) CheckTopology() error {
	nw.comps = nw.comps[:0]
	nw.compByLabel = map[string]Component{}

	seen := map[Component]bool{}
	for _, c := range nw.conns {
		for _, comp := range []Component{c.Source, c.Target} {
			if comp == nil {
				return fmt.Errorf("%w: connection %s has an unbound end", ErrTopology, c.Label)
			}
			if seen[comp] {
				continue
			}
			if other, dup := nw.compByLabel[comp.Label()]; dup && other != comp {
				return fmt.Errorf("%w: component %s", ErrDuplicateLabel, comp.Label())
			}
			seen[comp] = true
			nw.comps = append(nw.comps, comp)
			nw.compByLabel[comp.Label()] = comp
		}
	}

	for i, c := range nw.conns {
		c.loc = i
	}

	for _, comp := range nw.comps {
		inl, err := nw.bindSlots(comp, comp.Inlets(), false)
		if err != nil {
			return err
		}
		outl, err := nw.bindSlots(comp, comp.Outlets(), true)
		if err != nil {
			return err
		}
		comp.AttachConnections(inl, outl)
	}

	nw.checked = true
	log.Info("network check successful", "components", len(nw.comps), "connections", len(nw.conns))
	return nil
}

func (nw *Network) bindSlots(comp Component, slots []string, outgoing bool) ([]*Connection, error) {
	bound := make([]*Connection, len(slots))
	for i, slot := range slots {
		var match *Connection
		for _, c := range nw.conns {
			hit := (!outgoing && c.Target == comp && c.TargetID == slot) ||
				(outgoing && c.Source == comp && c.SourceID == slot)
			if !hit {
				continue
			}
			if match != nil {
				side := "inlet"
				if outgoing {
					side = "outlet"
				}
				return nil, fmt.Errorf("%w: %s %s of %s bound by %s and %s",
					ErrTopology, side, slot, comp.Label(), match.Label, c.Label)
			}
			match = c
		}
		if match == nil {
			side := "incoming"
			if outgoing {
				side = "outgoing"
			}
			return nil, fmt.Errorf("%w: %s is missing an %s connection at %s",
				ErrTopology, comp.Label(), side, slot)
		}
		bound[i] = match
	}
	return bound, nil
}
