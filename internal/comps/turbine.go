package comps

import (
	"math"

	"github.com/skanders/thermoflow/internal/fluid"
	"github.com/skanders/thermoflow/internal/netw"
)

// Turbine expands the flow, extracting shaft power. Offdesign behavior
// covers an isentropic-efficiency characteristic over the mass flow and
// Stodola's cone law for the swallowing capacity.
type Turbine struct {
	base

	P    Param // shaft power, negative leaving the process
	Pr   Param // outlet over inlet pressure
	EtaS Param // isentropic efficiency
	Cone Param // flag parameter, cone law equation when set

	EtaSChar CharParam
}

// NewTurbine creates a turbine with slots "in1" and "out1".
func NewTurbine(label string) *Turbine {
	return &Turbine{base: base{label: label}}
}

func (t *Turbine) TypeName() string  { return "turbine" }
func (t *Turbine) Inlets() []string  { return []string{"in1"} }
func (t *Turbine) Outlets() []string { return []string{"out1"} }

func (t *Turbine) params() map[string]*Param {
	return map[string]*Param{"P": &t.P, "pr": &t.Pr, "eta_s": &t.EtaS, "cone": &t.Cone}
}

func (t *Turbine) Preprocess(nw *netw.Network) error {
	if err := t.applyMode(nw, t.params(), map[string]*CharParam{"eta_s_char": &t.EtaSChar}); err != nil {
		return err
	}
	if err := resolveChar(&t.EtaSChar, "turbine eta_s"); err != nil {
		return err
	}
	t.numEq = t.countMassFluid(nw)
	for _, p := range t.params() {
		if p.active() {
			t.numEq++
		}
	}
	if t.EtaSChar.Set {
		t.numEq++
	}
	return nil
}

func (t *Turbine) Equations(sys *netw.System) {
	in, out := t.inl[0], t.outl[0]

	t.massFlowEq(sys)
	t.fluidIdentityEqs(sys)

	if t.P.active() {
		row := sys.AddEq(in.M.SI*(out.H.SI-in.H.SI) - t.P.value())
		sys.SetDeriv(row, in, netw.VarM, out.H.SI-in.H.SI)
		sys.SetDeriv(row, in, netw.VarH, -in.M.SI)
		sys.SetDeriv(row, out, netw.VarH, in.M.SI)
		if t.P.IsVar {
			sys.SetVarDeriv(row, t.P.cv, -1)
		}
	}
	if t.Pr.active() {
		prEq(sys, &t.Pr, in, out)
	}
	if t.EtaS.active() {
		t.etaSEq(sys, t.EtaS.value())
	}
	if t.EtaSChar.Set {
		eta := designValue(&t.EtaS) * t.EtaSChar.Line.Evaluate(in.M.SI/designMassFlow(in))
		t.etaSEq(sys, eta)
	}
	if t.Cone.active() {
		t.coneEq(sys)
	}
}

// -(h_out - h_in) + eta_s * (h_s(p_out) - h_in) = 0
func (t *Turbine) etaSEq(sys *netw.System, eta float64) {
	in, out := t.inl[0], t.outl[0]
	fn := func() float64 {
		hs := isentropicEnthalpy(in.Flow(), out.P.SI)
		return -(out.H.SI - in.H.SI) + eta*(hs-in.H.SI)
	}
	row := sys.AddEqLazy(fn)
	if !sys.Filtered(in, netw.VarP) {
		sys.NumericDeriv(row, fn, in, netw.VarP)
	}
	if !sys.Filtered(out, netw.VarP) {
		sys.NumericDeriv(row, fn, out, netw.VarP)
	}
	sys.NumericDeriv(row, fn, in, netw.VarH)
	sys.SetDeriv(row, out, netw.VarH, -1)
}

// Stodola cone law relative to the design point.
func (t *Turbine) coneEq(sys *netw.System) {
	in, out := t.inl[0], t.outl[0]
	pD, hD := in.P.Design, in.H.Design
	mD := designMassFlow(in)
	prD := out.P.Design / pD
	fn := func() float64 {
		vD := fluid.VMixPH(fluid.Flow{M: mD, P: pD, H: hD, Fluid: in.Fluid.Val}, 0)
		v := fluid.VMixPH(in.Flow(), in.T.SI)
		num := 1 - math.Pow(out.P.SI/in.P.SI, 2)
		den := 1 - math.Pow(prD, 2)
		return mD*(in.P.SI/pD)*math.Sqrt(pD*vD/(in.P.SI*v))*math.Sqrt(num/den) - in.M.SI
	}
	row := sys.AddEqLazy(fn)
	sys.SetDeriv(row, in, netw.VarM, -1)
	if !sys.Filtered(in, netw.VarP) {
		sys.NumericDeriv(row, fn, in, netw.VarP)
	}
	if !sys.Filtered(out, netw.VarP) {
		sys.NumericDeriv(row, fn, out, netw.VarP)
	}
	if !sys.Filtered(in, netw.VarH) {
		sys.NumericDeriv(row, fn, in, netw.VarH)
	}
}

// ConvergenceCheck keeps the expansion pointing downhill during the first
// iterations.
func (t *Turbine) ConvergenceCheck(*netw.Network) {
	in, out := t.inl[0], t.outl[0]
	if !out.P.Set && out.P.SI >= in.P.SI {
		out.P.SI = in.P.SI / 2
	}
	if !out.H.Set && out.H.SI >= in.H.SI {
		out.H.SI = in.H.SI * 0.9
	}
}

// InitSource hints starting values for the outgoing connection.
func (t *Turbine) InitSource(_ *netw.Connection, key string) float64 {
	switch key {
	case "p":
		return 0.5e5
	case "h":
		return 1.5e6
	}
	return 0
}

// InitTarget hints starting values for the incoming connection.
func (t *Turbine) InitTarget(_ *netw.Connection, key string) float64 {
	switch key {
	case "p":
		return 2.5e6
	case "h":
		return 2.0e6
	}
	return 0
}

func (t *Turbine) CalcParameters(nw *netw.Network) {
	in, out := t.inl[0], t.outl[0]
	power := in.M.SI * (out.H.SI - in.H.SI)
	pr := out.P.SI / in.P.SI
	hs := isentropicEnthalpy(in.Flow(), out.P.SI)
	eta := (out.H.SI - in.H.SI) / (hs - in.H.SI)

	if !t.P.Set {
		t.P.Val = power
	}
	if !t.Pr.Set {
		t.Pr.Val = pr
	}
	if !t.EtaS.Set {
		t.EtaS.Val = eta
	}
	if nw.Mode() == "design" {
		t.P.Design = power
		t.Pr.Design = pr
		t.EtaS.Design = eta
	}
}

func (t *Turbine) ResultParameters() map[string]float64 {
	return map[string]float64{"P": t.P.Val, "pr": t.Pr.Val, "eta_s": t.EtaS.Val}
}

// EnergyFlow returns the shaft power for bus accounting.
func (t *Turbine) EnergyFlow() float64 {
	return t.inl[0].M.SI * (t.outl[0].H.SI - t.inl[0].H.SI)
}

func (t *Turbine) BusConns() []*netw.Connection {
	return []*netw.Connection{t.inl[0], t.outl[0]}
}
