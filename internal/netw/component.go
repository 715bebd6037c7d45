package netw

import (
	"math"
)

// Variable indices within a connection's column block.
const (
	VarM = 0
	VarP = 1
	VarH = 2
	// fluid mass fractions follow at 3 + fluidIndex
)

// Component is a physical unit model in the network. Implementations live
// in the comps package; the network only needs the equation surface.
type Component interface {
	Label() string
	TypeName() string

	// Inlets and Outlets name the connection slots, e.g. ["in1", "in2"].
	Inlets() []string
	Outlets() []string

	// AttachConnections binds the network's connections to the slots, in
	// slot order. Called during the topology check.
	AttachConnections(inl, outl []*Connection)

	// Preprocess resolves characteristics, captures design values and
	// counts this component's equations for the current solve mode.
	Preprocess(nw *Network) error

	NumEq() int

	// Vars returns the component's custom system variables, if any.
	Vars() []*CompVar

	// Equations writes residuals and partial derivatives for all of the
	// component's equations into the system.
	Equations(sys *System)

	// ConvergenceCheck may nudge badly placed variable values during the
	// first iterations.
	ConvergenceCheck(nw *Network)

	// CalcParameters fills unset parameters from the converged state.
	CalcParameters(nw *Network)
}

// StartingValuer provides generic starting values for adjacent
// connections; key is "p" or "h", values in SI units. A return of zero
// means no opinion.
type StartingValuer interface {
	InitSource(c *Connection, key string) float64
	InitTarget(c *Connection, key string) float64
}

// PlottingDatar exposes diagram-ready data after postprocessing, keyed by
// series name.
type PlottingDatar interface {
	PlottingData() map[string][]float64
}

// CompositionChanger marks components whose outlet composition differs
// from the inlet composition, stopping fluid propagation.
type CompositionChanger interface {
	ChangesComposition() bool
}

// CompVar is a component parameter promoted to a system variable, e.g. a
// valve pressure-loss coefficient left open. The value is clamped to
// [Min, Max] after every Newton step.
type CompVar struct {
	Name     string
	Val      float64
	Min, Max float64

	col int
}

// Col returns the variable's global column in the jacobian.
func (v *CompVar) Col() int { return v.col }

// Clamp keeps the value inside its bounds and reports whether clamping
// occurred.
func (v *CompVar) Clamp() bool {
	if v.Val < v.Min {
		v.Val = v.Min
		return true
	}
	if v.Val > v.Max {
		v.Val = v.Max
		return true
	}
	return false
}

// System is the assembled equation system of one Newton iteration.
// Components and connection equations append rows; the buffers persist
// across iterations so static rows written once stay in place.
type System struct {
	nw *Network

	Residual  []float64
	Jacobian  [][]float64
	Increment []float64

	row       int
	iter      int
	alwaysAll bool
}

func newSystem(nw *Network, n int) *System {
	jac := make([][]float64, n)
	for i := range jac {
		jac[i] = make([]float64, n)
	}
	return &System{
		nw:        nw,
		Residual:  make([]float64, n),
		Jacobian:  jac,
		Increment: make([]float64, n),
	}
}

// Iter returns the current Newton iteration, starting at 0.
func (s *System) Iter() int { return s.iter }

// Mode returns the network solve mode.
func (s *System) Mode() string { return s.nw.mode }

// Fluids returns the network fluid list.
func (s *System) Fluids() []string { return s.nw.Fluids }

// MixtureVars reports whether fluid fractions are system variables.
func (s *System) MixtureVars() bool { return s.nw.numConnVars > 3 }

func (s *System) col(c *Connection, varIdx int) int {
	return c.loc*s.nw.numConnVars + varIdx
}

// FluidCol returns the column of a fluid fraction variable.
func (s *System) FluidCol(c *Connection, name string) int {
	return s.col(c, 3+s.nw.fluidIndex[name])
}

// AddEq appends an equation with an eagerly computed residual and returns
// its row for derivative placement.
func (s *System) AddEq(res float64) int {
	row := s.row
	s.Residual[row] = res
	s.row++
	return row
}

// AddEqLazy appends an equation whose residual is only recomputed when it
// was not already near zero, every other iteration, or always when the
// solver runs with AlwaysAllEquations. Use for residuals that need fluid
// property lookups.
func (s *System) AddEqLazy(fn func() float64) int {
	row := s.row
	if s.alwaysAll || s.iter%2 == 0 || math.Abs(s.Residual[row]) > epsSq {
		s.Residual[row] = fn()
	}
	s.row++
	return row
}

// SkipEq advances past a static row written in an earlier iteration.
func (s *System) SkipEq() int {
	row := s.row
	s.row++
	return row
}

// SetDeriv places a partial derivative for a primary connection variable.
func (s *System) SetDeriv(row int, c *Connection, varIdx int, val float64) {
	s.Jacobian[row][s.col(c, varIdx)] = val
}

// SetFluidDeriv places a partial derivative for a fluid fraction variable.
func (s *System) SetFluidDeriv(row int, c *Connection, name string, val float64) {
	s.Jacobian[row][s.FluidCol(c, name)] = val
}

// SetVarDeriv places a partial derivative for a component variable.
func (s *System) SetVarDeriv(row int, v *CompVar, val float64) {
	s.Jacobian[row][v.col] = val
}

// Filtered reports whether the variable barely moved last iteration, so
// an expensive derivative can be left at its previous value.
func (s *System) Filtered(c *Connection, varIdx int) bool {
	if s.iter == 0 {
		return false
	}
	return math.Abs(s.Increment[s.col(c, varIdx)]) < epsSq
}

// NumericDeriv computes d(fn)/d(var) by central difference, perturbing the
// SI value of a primary connection variable in place.
func (s *System) NumericDeriv(row int, fn func() float64, c *Connection, varIdx int) {
	var target *float64
	switch varIdx {
	case VarM:
		target = &c.M.SI
	case VarP:
		target = &c.P.SI
	case VarH:
		target = &c.H.SI
	default:
		return
	}
	d := numStep(*target)
	orig := *target
	*target = orig + d
	up := fn()
	*target = orig - d
	lo := fn()
	*target = orig
	s.Jacobian[row][s.col(c, varIdx)] = (up - lo) / (2 * d)
}

// NumericFluidDeriv computes d(fn)/dx for every network fluid on c.
func (s *System) NumericFluidDeriv(row int, fn func() float64, c *Connection) {
	if !s.MixtureVars() {
		return
	}
	const d = 1e-5
	for _, name := range s.nw.Fluids {
		orig := c.Fluid.Val[name]
		c.Fluid.Val[name] = orig + d
		up := fn()
		c.Fluid.Val[name] = orig - d
		lo := fn()
		c.Fluid.Val[name] = orig
		s.Jacobian[row][s.FluidCol(c, name)] = (up - lo) / (2 * d)
	}
}

// NumericVarDeriv computes d(fn)/d(var) for a component variable.
func (s *System) NumericVarDeriv(row int, fn func() float64, v *CompVar) {
	d := numStep(v.Val)
	orig := v.Val
	v.Val = orig + d
	up := fn()
	v.Val = orig - d
	lo := fn()
	v.Val = orig
	s.Jacobian[row][v.col] = (up - lo) / (2 * d)
}

func numStep(v float64) float64 {
	return math.Max(math.Abs(v)*1e-4, 1e-5)
}
