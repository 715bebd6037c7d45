package netw

import (
	"fmt"

	"github.com/skanders/thermoflow/internal/fluid"
)

// Param is the data container for one connection or component property:
// the user-facing value with its unit, the SI value the solver works on,
// and the specification flags.
type Param struct {
	Val    float64
	Unit   string
	SI     float64
	Set    bool
	Ref    *Ref
	Val0   float64 // starting value in display units
	Design float64 // SI value captured from the design calculation
}

// Ref specifies a property relative to another connection:
// val = other.val * Factor + Delta (Delta in SI units).
type Ref struct {
	Conn   *Connection
	Factor float64
	Delta  float64
}

// Composition is the fluid mass-fraction vector of a connection.
type Composition struct {
	Val     map[string]float64
	Val0    map[string]float64
	Set     map[string]bool
	Balance bool
}

func newComposition() Composition {
	return Composition{
		Val:  map[string]float64{},
		Val0: map[string]float64{},
		Set:  map[string]bool{},
	}
}

// Connection links a source component outlet to a target component inlet
// and carries the fluid state between them.
type Connection struct {
	Label    string
	Source   Component
	SourceID string
	Target   Component
	TargetID string

	M    Param
	P    Param
	H    Param
	T    Param
	X    Param // vapor quality
	V    Param // volumetric flow
	TdBP Param // temperature difference to boiling point

	// result-only quantities
	Vol Param // specific volume
	S   Param // entropy

	Fluid Composition

	// state hint for starting value generation: "l" or "g"
	State    string
	StateSet bool

	loc       int // position in the network's connection list
	goodStart bool
}

// NewConnection joins an outlet of source to an inlet of target. The label
// defaults to "source:outID_target:inID".
func NewConnection(source Component, outID string, target Component, inID string) *Connection {
	return &Connection{
		Label:    fmt.Sprintf("%s:%s_%s:%s", source.Label(), outID, target.Label(), inID),
		Source:   source,
		SourceID: outID,
		Target:   target,
		TargetID: inID,
		Fluid:    newComposition(),
	}
}

// WithLabel overrides the generated connection label.
func (c *Connection) WithLabel(label string) *Connection {
	c.Label = label
	return c
}

// SetM specifies the mass flow in display units.
func (c *Connection) SetM(v float64) { c.M.Val = v; c.M.Set = true }

// SetP specifies the pressure in display units.
func (c *Connection) SetP(v float64) { c.P.Val = v; c.P.Set = true }

// SetH specifies the enthalpy in display units.
func (c *Connection) SetH(v float64) { c.H.Val = v; c.H.Set = true }

// SetT specifies the temperature in display units.
func (c *Connection) SetT(v float64) { c.T.Val = v; c.T.Set = true }

// SetX specifies the vapor quality (pure condensable fluids only).
func (c *Connection) SetX(v float64) { c.X.Val = v; c.X.Set = true }

// SetV specifies the volumetric flow.
func (c *Connection) SetV(v float64) { c.V.Val = v; c.V.Set = true }

// SetTdBP specifies superheating (positive) or subcooling (negative)
// relative to the boiling point.
func (c *Connection) SetTdBP(v float64) { c.TdBP.Val = v; c.TdBP.Set = true }

// SetState hints the phase for starting value generation: "l" or "g".
func (c *Connection) SetState(state string) { c.State = state; c.StateSet = true }

// SetFluid specifies mass fractions. Fractions are validated against the
// network fluid list when the connection is added.
func (c *Connection) SetFluid(comp map[string]float64) {
	for name, x := range comp {
		c.Fluid.Val[name] = x
		c.Fluid.Set[name] = true
	}
}

// SetFluidBalance adds the closing condition sum(x) = 1 as an equation.
func (c *Connection) SetFluidBalance() { c.Fluid.Balance = true }

// SetRef specifies prop ("m", "p", "h" or "T") relative to another
// connection: val = other * factor + delta, delta in SI units.
func (c *Connection) SetRef(prop string, other *Connection, factor, delta float64) error {
	ref := &Ref{Conn: other, Factor: factor, Delta: delta}
	switch prop {
	case "m":
		c.M.Ref = ref
	case "p":
		c.P.Ref = ref
	case "h":
		c.H.Ref = ref
	case "T":
		c.T.Ref = ref
	default:
		return fmt.Errorf("netw: cannot reference property %q", prop)
	}
	return nil
}

// Flow returns the connection's state vector for property calls.
func (c *Connection) Flow() fluid.Flow {
	return fluid.Flow{M: c.M.SI, P: c.P.SI, H: c.H.SI, Fluid: c.Fluid.Val}
}

// Loc returns the connection's index in the network.
func (c *Connection) Loc() int { return c.loc }

func (c *Connection) prop(name string) *Param {
	switch name {
	case "m":
		return &c.M
	case "p":
		return &c.P
	case "h":
		return &c.H
	case "T":
		return &c.T
	case "x":
		return &c.X
	case "v":
		return &c.V
	case "Td_bp":
		return &c.TdBP
	}
	return nil
}
