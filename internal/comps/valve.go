package comps

import (
	"github.com/skanders/thermoflow/internal/netw"
)

// Valve throttles the flow at constant enthalpy. The pressure drop can be
// fixed through pr or through the dimensionless loss coefficient zeta;
// leaving zeta a variable lets the solver size the valve.
type Valve struct {
	base

	Pr   Param
	Zeta Param
}

// NewValve creates a valve with slots "in1" and "out1".
func NewValve(label string) *Valve {
	return &Valve{base: base{label: label}}
}

func (v *Valve) TypeName() string  { return "valve" }
func (v *Valve) Inlets() []string  { return []string{"in1"} }
func (v *Valve) Outlets() []string { return []string{"out1"} }

func (v *Valve) params() map[string]*Param {
	return map[string]*Param{"pr": &v.Pr, "zeta": &v.Zeta}
}

func (v *Valve) Preprocess(nw *netw.Network) error {
	if err := v.applyMode(nw, v.params(), nil); err != nil {
		return err
	}
	v.numEq = v.countMassFluid(nw) + 1 // isenthalpic
	for _, p := range v.params() {
		if p.active() {
			v.numEq++
		}
	}
	return nil
}

func (v *Valve) Equations(sys *netw.System) {
	in, out := v.inl[0], v.outl[0]

	v.massFlowEq(sys)
	v.fluidIdentityEqs(sys)

	row := sys.AddEq(in.H.SI - out.H.SI)
	sys.SetDeriv(row, in, netw.VarH, 1)
	sys.SetDeriv(row, out, netw.VarH, -1)

	if v.Pr.active() {
		prEq(sys, &v.Pr, in, out)
	}
	if v.Zeta.active() {
		zetaEq(sys, &v.Zeta, in, out)
	}
}

func (v *Valve) ConvergenceCheck(*netw.Network) {
	in, out := v.inl[0], v.outl[0]
	if !out.P.Set && out.P.SI >= in.P.SI {
		out.P.SI = in.P.SI * 0.9
	}
}

func (v *Valve) InitSource(_ *netw.Connection, key string) float64 {
	switch key {
	case "p":
		return 4e5
	case "h":
		return 5e5
	}
	return 0
}

func (v *Valve) InitTarget(_ *netw.Connection, key string) float64 {
	switch key {
	case "p":
		return 5e5
	case "h":
		return 5e5
	}
	return 0
}

func (v *Valve) CalcParameters(nw *netw.Network) {
	in, out := v.inl[0], v.outl[0]
	pr := out.P.SI / in.P.SI
	if !v.Pr.Set {
		v.Pr.Val = pr
	}
	if !v.Zeta.Set && !v.Zeta.IsVar {
		v.Zeta.Val = zetaValue(in, out)
	} else if v.Zeta.IsVar {
		v.Zeta.Val = v.Zeta.cv.Val
	}
	if nw.Mode() == "design" {
		v.Pr.Design = pr
		v.Zeta.Design = v.Zeta.Val
	}
}

func (v *Valve) ResultParameters() map[string]float64 {
	return map[string]float64{"pr": v.Pr.Val, "zeta": v.Zeta.Val}
}
