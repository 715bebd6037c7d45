// Package comps implements the component models of the network: turbo
// machinery, heat exchangers, valves and flow nodes. Each component
// contributes equations to the global system via its Equations method.
package comps

import (
	"fmt"
	"math"

	"github.com/skanders/thermoflow/internal/charline"
	"github.com/skanders/thermoflow/internal/fluid"
	"github.com/skanders/thermoflow/internal/netw"
)

// Param is a component parameter. It can be specified by the user (adding
// an equation), promoted to a system variable with bounds, or left open as
// a pure result.
type Param struct {
	Val    float64
	Set    bool
	IsVar  bool
	Min    float64
	Max    float64
	Design float64

	cv *netw.CompVar
}

// Specify fixes the parameter, activating its equation.
func (p *Param) Specify(v float64) { p.Val = v; p.Set = true }

// Unset releases the specification again.
func (p *Param) Unset() { p.Set = false }

// MakeVar promotes the parameter to a system variable with a starting
// value and clamp bounds. The equation stays active while the solver finds
// the value.
func (p *Param) MakeVar(start, min, max float64) {
	p.IsVar = true
	p.Val = start
	p.Min = min
	p.Max = max
}

func (p *Param) active() bool { return p.Set || p.IsVar }

func (p *Param) value() float64 {
	if p.IsVar && p.cv != nil {
		return p.cv.Val
	}
	return p.Val
}

// CharParam couples a parameter equation to a characteristic line.
type CharParam struct {
	Line *charline.Line
	Set  bool
}

// Specify activates the characteristic; a nil line picks the registered
// default for the component type.
func (p *CharParam) Specify(line *charline.Line) { p.Line = line; p.Set = true }

// base carries the state shared by all component models.
type base struct {
	label     string
	inl, outl []*netw.Connection

	numEq int
	vars  []*netw.CompVar

	design    []string
	offdesign []string
}

func (b *base) Label() string { return b.label }

func (b *base) AttachConnections(inl, outl []*netw.Connection) {
	b.inl = inl
	b.outl = outl
}

func (b *base) NumEq() int             { return b.numEq }
func (b *base) Vars() []*netw.CompVar  { return b.vars }
func (b *base) ConvergenceCheck(*netw.Network) {}

// SetDesignParams declares which parameters hold in design mode and which
// replace them in offdesign mode. Offdesign parameters are switched on
// with their design values.
func (b *base) SetDesignParams(design, offdesign []string) {
	b.design = design
	b.offdesign = offdesign
}

// applyMode flips design/offdesign parameter sets and rebuilds the
// variable list. Components call it first in Preprocess.
func (b *base) applyMode(nw *netw.Network, params map[string]*Param, chars map[string]*CharParam) error {
	b.numEq = 0
	b.vars = b.vars[:0]

	if nw.Mode() == "offdesign" {
		for _, name := range b.design {
			if p, ok := params[name]; ok {
				p.Set = false
			}
		}
		for _, name := range b.offdesign {
			if p, ok := params[name]; ok {
				p.Set = true
				if p.Design != 0 {
					p.Val = p.Design
				}
			} else if c, ok := chars[name]; ok {
				c.Set = true
			} else {
				return fmt.Errorf("comps: %s has no offdesign parameter %q", b.label, name)
			}
		}
	}

	for name, p := range params {
		if !p.IsVar {
			continue
		}
		if p.cv == nil {
			p.cv = &netw.CompVar{Name: b.label + ":" + name, Val: p.Val, Min: p.Min, Max: p.Max}
		}
		b.vars = append(b.vars, p.cv)
	}
	return nil
}

// resolveChar fills a characteristic from the registered defaults when the
// user set it without a curve.
func resolveChar(c *CharParam, defaultName string) error {
	if !c.Set || c.Line != nil {
		return nil
	}
	line, err := charline.Default(defaultName)
	if err != nil {
		return err
	}
	c.Line = line
	return nil
}

// mass balance over all inlets and outlets, one equation
func (b *base) massFlowEq(sys *netw.System) {
	res := 0.0
	for _, c := range b.inl {
		res += c.M.SI
	}
	for _, c := range b.outl {
		res -= c.M.SI
	}
	row := sys.AddEq(res)
	for _, c := range b.inl {
		sys.SetDeriv(row, c, netw.VarM, 1)
	}
	for _, c := range b.outl {
		sys.SetDeriv(row, c, netw.VarM, -1)
	}
}

// composition identity between paired inlets and outlets, one equation per
// fluid and pair; skipped entirely for single-fluid networks
func (b *base) fluidIdentityEqs(sys *netw.System) {
	if !sys.MixtureVars() {
		return
	}
	for i := range b.inl {
		in, out := b.inl[i], b.outl[i]
		for _, f := range sys.Fluids() {
			row := sys.AddEq(in.Fluid.Val[f] - out.Fluid.Val[f])
			sys.SetFluidDeriv(row, in, f, 1)
			sys.SetFluidDeriv(row, out, f, -1)
		}
	}
}

func (b *base) countMassFluid(nw *netw.Network) int {
	n := 1
	if len(nw.Fluids) > 1 {
		n += len(nw.Fluids) * len(b.inl)
	}
	return n
}

// per-stream mass balance for components with separated streams
func (b *base) massFlowPairEqs(sys *netw.System) {
	for i := range b.inl {
		row := sys.AddEq(b.inl[i].M.SI - b.outl[i].M.SI)
		sys.SetDeriv(row, b.inl[i], netw.VarM, 1)
		sys.SetDeriv(row, b.outl[i], netw.VarM, -1)
	}
}

func (b *base) countMassFluidPairs(nw *netw.Network) int {
	n := len(b.inl)
	if len(nw.Fluids) > 1 {
		n += len(nw.Fluids) * len(b.inl)
	}
	return n
}

// pressure ratio equation: p_in * pr - p_out = 0
func prEq(sys *netw.System, pr *Param, in, out *netw.Connection) {
	row := sys.AddEq(in.P.SI*pr.value() - out.P.SI)
	sys.SetDeriv(row, in, netw.VarP, pr.value())
	sys.SetDeriv(row, out, netw.VarP, -1)
	if pr.IsVar {
		sys.SetVarDeriv(row, pr.cv, in.P.SI)
	}
}

// dimensionless pressure-loss coefficient:
// zeta - (p_in - p_out) * pi^2 / (8 * m * |m| * v_mean) = 0
func zetaEq(sys *netw.System, zeta *Param, in, out *netw.Connection) {
	fn := func() float64 {
		vm := (fluid.VMixPH(in.Flow(), in.T.SI) + fluid.VMixPH(out.Flow(), out.T.SI)) / 2
		m := in.M.SI
		return zeta.value() - (in.P.SI-out.P.SI)*math.Pi*math.Pi/(8*m*math.Abs(m)*vm)
	}
	row := sys.AddEqLazy(fn)
	sys.NumericDeriv(row, fn, in, netw.VarM)
	for _, c := range []*netw.Connection{in, out} {
		if !sys.Filtered(c, netw.VarP) {
			sys.NumericDeriv(row, fn, c, netw.VarP)
		}
		if !sys.Filtered(c, netw.VarH) {
			sys.NumericDeriv(row, fn, c, netw.VarH)
		}
	}
	if zeta.IsVar {
		sys.SetVarDeriv(row, zeta.cv, 1)
	}
}

// zetaValue evaluates the loss coefficient at the current state.
func zetaValue(in, out *netw.Connection) float64 {
	vm := (fluid.VMixPH(in.Flow(), in.T.SI) + fluid.VMixPH(out.Flow(), out.T.SI)) / 2
	m := in.M.SI
	return (in.P.SI - out.P.SI) * math.Pi * math.Pi / (8 * m * math.Abs(m) * vm)
}

// isentropicEnthalpy returns the outlet enthalpy of an ideal adiabatic
// expansion or compression of flow to pOut, inverting s(p, h) by Newton
// iteration.
func isentropicEnthalpy(flow fluid.Flow, pOut float64) float64 {
	sIn := fluid.SMixPH(flow, 0)
	out := flow
	out.P = pOut
	h := flow.H
	for i := 0; i < 60; i++ {
		out.H = h
		res := fluid.SMixPH(out, 0) - sIn
		if math.Abs(res) < 1e-9 {
			break
		}
		d := math.Max(math.Abs(h)*1e-5, 1.0)
		up, lo := out, out
		up.H = h + d
		lo.H = h - d
		slope := (fluid.SMixPH(up, 0) - fluid.SMixPH(lo, 0)) / (2 * d)
		if slope == 0 {
			break
		}
		h -= res / slope
	}
	return h
}

// lmtd returns the log mean of two temperature differences, nudging the
// values apart from zero and from each other to keep the logarithm finite.
func lmtd(ttdU, ttdL float64) float64 {
	if ttdU < 0.01 {
		ttdU = 0.01
	}
	if ttdL < 0.02 {
		ttdL = 0.02
	}
	if ttdU == ttdL {
		return ttdU
	}
	return (ttdU - ttdL) / math.Log(ttdU/ttdL)
}

// designValue prefers the value captured at the design point and falls
// back to the current value for design-mode solves.
func designValue(p *Param) float64 {
	if p.Design != 0 {
		return p.Design
	}
	return p.Val
}

func designMassFlow(c *netw.Connection) float64 {
	if c.M.Design != 0 {
		return c.M.Design
	}
	return c.M.SI
}
