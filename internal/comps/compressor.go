package comps

import (
	"github.com/skanders/thermoflow/internal/netw"
)

// Compressor raises the pressure of a gas flow, consuming shaft power.
type Compressor struct {
	base

	P    Param
	Pr   Param
	EtaS Param

	EtaSChar CharParam
}

// NewCompressor creates a compressor with slots "in1" and "out1".
func NewCompressor(label string) *Compressor {
	return &Compressor{base: base{label: label}}
}

func (cp *Compressor) TypeName() string  { return "compressor" }
func (cp *Compressor) Inlets() []string  { return []string{"in1"} }
func (cp *Compressor) Outlets() []string { return []string{"out1"} }

func (cp *Compressor) params() map[string]*Param {
	return map[string]*Param{"P": &cp.P, "pr": &cp.Pr, "eta_s": &cp.EtaS}
}

func (cp *Compressor) Preprocess(nw *netw.Network) error {
	if err := cp.applyMode(nw, cp.params(), map[string]*CharParam{"eta_s_char": &cp.EtaSChar}); err != nil {
		return err
	}
	if err := resolveChar(&cp.EtaSChar, "compressor eta_s"); err != nil {
		return err
	}
	cp.numEq = cp.countMassFluid(nw)
	for _, p := range cp.params() {
		if p.active() {
			cp.numEq++
		}
	}
	if cp.EtaSChar.Set {
		cp.numEq++
	}
	return nil
}

func (cp *Compressor) Equations(sys *netw.System) {
	in, out := cp.inl[0], cp.outl[0]

	cp.massFlowEq(sys)
	cp.fluidIdentityEqs(sys)

	if cp.P.active() {
		row := sys.AddEq(in.M.SI*(out.H.SI-in.H.SI) - cp.P.value())
		sys.SetDeriv(row, in, netw.VarM, out.H.SI-in.H.SI)
		sys.SetDeriv(row, in, netw.VarH, -in.M.SI)
		sys.SetDeriv(row, out, netw.VarH, in.M.SI)
		if cp.P.IsVar {
			sys.SetVarDeriv(row, cp.P.cv, -1)
		}
	}
	if cp.Pr.active() {
		prEq(sys, &cp.Pr, in, out)
	}
	if cp.EtaS.active() {
		compressionEtaSEq(sys, in, out, cp.EtaS.value())
	}
	if cp.EtaSChar.Set {
		eta := designValue(&cp.EtaS) * cp.EtaSChar.Line.Evaluate(in.M.SI/designMassFlow(in))
		compressionEtaSEq(sys, in, out, eta)
	}
}

// (h_s(p_out) - h_in) - eta_s * (h_out - h_in) = 0, shared by compressor
// and pump
func compressionEtaSEq(sys *netw.System, in, out *netw.Connection, eta float64) {
	fn := func() float64 {
		hs := isentropicEnthalpy(in.Flow(), out.P.SI)
		return (hs - in.H.SI) - eta*(out.H.SI-in.H.SI)
	}
	row := sys.AddEqLazy(fn)
	if !sys.Filtered(in, netw.VarP) {
		sys.NumericDeriv(row, fn, in, netw.VarP)
	}
	if !sys.Filtered(out, netw.VarP) {
		sys.NumericDeriv(row, fn, out, netw.VarP)
	}
	sys.NumericDeriv(row, fn, in, netw.VarH)
	sys.SetDeriv(row, out, netw.VarH, -eta)
}

func (cp *Compressor) ConvergenceCheck(*netw.Network) {
	in, out := cp.inl[0], cp.outl[0]
	if !out.P.Set && out.P.SI <= in.P.SI {
		out.P.SI = in.P.SI * 2
	}
	if !out.H.Set && out.H.SI <= in.H.SI {
		out.H.SI = in.H.SI * 1.1
	}
}

func (cp *Compressor) InitSource(_ *netw.Connection, key string) float64 {
	switch key {
	case "p":
		return 10e5
	case "h":
		return 6e5
	}
	return 0
}

func (cp *Compressor) InitTarget(_ *netw.Connection, key string) float64 {
	switch key {
	case "p":
		return 1e5
	case "h":
		return 4e5
	}
	return 0
}

func (cp *Compressor) CalcParameters(nw *netw.Network) {
	in, out := cp.inl[0], cp.outl[0]
	power := in.M.SI * (out.H.SI - in.H.SI)
	pr := out.P.SI / in.P.SI
	hs := isentropicEnthalpy(in.Flow(), out.P.SI)
	eta := (hs - in.H.SI) / (out.H.SI - in.H.SI)

	if !cp.P.Set {
		cp.P.Val = power
	}
	if !cp.Pr.Set {
		cp.Pr.Val = pr
	}
	if !cp.EtaS.Set {
		cp.EtaS.Val = eta
	}
	if nw.Mode() == "design" {
		cp.P.Design = power
		cp.Pr.Design = pr
		cp.EtaS.Design = eta
	}
}

func (cp *Compressor) ResultParameters() map[string]float64 {
	return map[string]float64{"P": cp.P.Val, "pr": cp.Pr.Val, "eta_s": cp.EtaS.Val}
}

func (cp *Compressor) EnergyFlow() float64 {
	return cp.inl[0].M.SI * (cp.outl[0].H.SI - cp.inl[0].H.SI)
}

func (cp *Compressor) BusConns() []*netw.Connection {
	return []*netw.Connection{cp.inl[0], cp.outl[0]}
}
