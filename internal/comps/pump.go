package comps

import (
	"github.com/skanders/thermoflow/internal/fluid"
	"github.com/skanders/thermoflow/internal/netw"
)

// Pump raises the pressure of a liquid flow. The offdesign efficiency
// characteristic runs over the volumetric flow ratio.
type Pump struct {
	base

	P    Param
	Pr   Param
	EtaS Param

	EtaSChar CharParam
}

// NewPump creates a pump with slots "in1" and "out1".
func NewPump(label string) *Pump {
	return &Pump{base: base{label: label}}
}

func (p *Pump) TypeName() string  { return "pump" }
func (p *Pump) Inlets() []string  { return []string{"in1"} }
func (p *Pump) Outlets() []string { return []string{"out1"} }

func (p *Pump) params() map[string]*Param {
	return map[string]*Param{"P": &p.P, "pr": &p.Pr, "eta_s": &p.EtaS}
}

func (p *Pump) Preprocess(nw *netw.Network) error {
	if err := p.applyMode(nw, p.params(), map[string]*CharParam{"eta_s_char": &p.EtaSChar}); err != nil {
		return err
	}
	if err := resolveChar(&p.EtaSChar, "pump eta_s"); err != nil {
		return err
	}
	p.numEq = p.countMassFluid(nw)
	for _, pp := range p.params() {
		if pp.active() {
			p.numEq++
		}
	}
	if p.EtaSChar.Set {
		p.numEq++
	}
	return nil
}

func (p *Pump) Equations(sys *netw.System) {
	in, out := p.inl[0], p.outl[0]

	p.massFlowEq(sys)
	p.fluidIdentityEqs(sys)

	if p.P.active() {
		row := sys.AddEq(in.M.SI*(out.H.SI-in.H.SI) - p.P.value())
		sys.SetDeriv(row, in, netw.VarM, out.H.SI-in.H.SI)
		sys.SetDeriv(row, in, netw.VarH, -in.M.SI)
		sys.SetDeriv(row, out, netw.VarH, in.M.SI)
		if p.P.IsVar {
			sys.SetVarDeriv(row, p.P.cv, -1)
		}
	}
	if p.Pr.active() {
		prEq(sys, &p.Pr, in, out)
	}
	if p.EtaS.active() {
		compressionEtaSEq(sys, in, out, p.EtaS.value())
	}
	if p.EtaSChar.Set {
		vDesign := designMassFlow(in) * fluid.VMixPH(
			fluid.Flow{P: in.P.Design, H: in.H.Design, Fluid: in.Fluid.Val}, 0)
		v := in.M.SI * fluid.VMixPH(in.Flow(), in.T.SI)
		eta := designValue(&p.EtaS) * p.EtaSChar.Line.Evaluate(v/vDesign)
		compressionEtaSEq(sys, in, out, eta)
	}
}

func (p *Pump) ConvergenceCheck(*netw.Network) {
	in, out := p.inl[0], p.outl[0]
	if !out.P.Set && out.P.SI <= in.P.SI {
		out.P.SI = in.P.SI * 2
	}
	if !out.H.Set && out.H.SI <= in.H.SI {
		out.H.SI = in.H.SI + 1e3
	}
}

func (p *Pump) InitSource(_ *netw.Connection, key string) float64 {
	switch key {
	case "p":
		return 10e5
	case "h":
		return 3e5
	}
	return 0
}

func (p *Pump) InitTarget(_ *netw.Connection, key string) float64 {
	switch key {
	case "p":
		return 1e5
	case "h":
		return 2.9e5
	}
	return 0
}

func (p *Pump) CalcParameters(nw *netw.Network) {
	in, out := p.inl[0], p.outl[0]
	power := in.M.SI * (out.H.SI - in.H.SI)
	pr := out.P.SI / in.P.SI
	hs := isentropicEnthalpy(in.Flow(), out.P.SI)
	eta := (hs - in.H.SI) / (out.H.SI - in.H.SI)

	if !p.P.Set {
		p.P.Val = power
	}
	if !p.Pr.Set {
		p.Pr.Val = pr
	}
	if !p.EtaS.Set {
		p.EtaS.Val = eta
	}
	if nw.Mode() == "design" {
		p.P.Design = power
		p.Pr.Design = pr
		p.EtaS.Design = eta
	}
}

func (p *Pump) ResultParameters() map[string]float64 {
	return map[string]float64{"P": p.P.Val, "pr": p.Pr.Val, "eta_s": p.EtaS.Val}
}

func (p *Pump) EnergyFlow() float64 {
	return p.inl[0].M.SI * (p.outl[0].H.SI - p.inl[0].H.SI)
}

func (p *Pump) BusConns() []*netw.Connection {
	return []*netw.Connection{p.inl[0], p.outl[0]}
}
