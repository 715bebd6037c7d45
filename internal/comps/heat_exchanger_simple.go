package comps

import (
	"fmt"

	"github.com/skanders/thermoflow/internal/fluid"
	"github.com/skanders/thermoflow/internal/netw"
)

// SimpleHeatExchanger transfers heat between one stream and a fixed
// ambient, e.g. a heat sink to the surroundings or a fired heater. The kA
// equation couples the duty to the log mean temperature difference against
// the ambient temperature.
type SimpleHeatExchanger struct {
	base

	Q    Param
	Pr   Param
	Zeta Param
	KA   Param
	Tamb Param // ambient temperature in K; data for the kA equation

	KAChar CharParam
}

// NewSimpleHeatExchanger creates the component with slots "in1"/"out1".
func NewSimpleHeatExchanger(label string) *SimpleHeatExchanger {
	return &SimpleHeatExchanger{base: base{label: label}}
}

func (h *SimpleHeatExchanger) TypeName() string  { return "simple heat exchanger" }
func (h *SimpleHeatExchanger) Inlets() []string  { return []string{"in1"} }
func (h *SimpleHeatExchanger) Outlets() []string { return []string{"out1"} }

func (h *SimpleHeatExchanger) params() map[string]*Param {
	return map[string]*Param{"Q": &h.Q, "pr": &h.Pr, "zeta": &h.Zeta, "kA": &h.KA}
}

func (h *SimpleHeatExchanger) Preprocess(nw *netw.Network) error {
	if err := h.applyMode(nw, h.params(), map[string]*CharParam{"kA_char": &h.KAChar}); err != nil {
		return err
	}
	if err := resolveChar(&h.KAChar, "heat exchanger kA"); err != nil {
		return err
	}
	if (h.KA.active() || h.KAChar.Set) && !h.Tamb.Set {
		return fmt.Errorf("comps: %s needs the ambient temperature Tamb for the kA equation", h.label)
	}
	h.numEq = h.countMassFluid(nw)
	for _, p := range h.params() {
		if p.active() {
			h.numEq++
		}
	}
	if h.KAChar.Set {
		h.numEq++
	}
	return nil
}

func (h *SimpleHeatExchanger) Equations(sys *netw.System) {
	in, out := h.inl[0], h.outl[0]

	h.massFlowEq(sys)
	h.fluidIdentityEqs(sys)

	if h.Q.active() {
		row := sys.AddEq(in.M.SI*(out.H.SI-in.H.SI) - h.Q.value())
		sys.SetDeriv(row, in, netw.VarM, out.H.SI-in.H.SI)
		sys.SetDeriv(row, in, netw.VarH, -in.M.SI)
		sys.SetDeriv(row, out, netw.VarH, in.M.SI)
		if h.Q.IsVar {
			sys.SetVarDeriv(row, h.Q.cv, -1)
		}
	}
	if h.Pr.active() {
		prEq(sys, &h.Pr, in, out)
	}
	if h.Zeta.active() {
		zetaEq(sys, &h.Zeta, in, out)
	}
	if h.KA.active() {
		h.kaEq(sys, h.KA.value())
	}
	if h.KAChar.Set {
		ka := designValue(&h.KA) * h.KAChar.Line.Evaluate(in.M.SI/designMassFlow(in))
		h.kaEq(sys, ka)
	}
}

// m*(h_out - h_in) + kA * td_log = 0 with the ambient as the second stream
func (h *SimpleHeatExchanger) kaEq(sys *netw.System, ka float64) {
	in, out := h.inl[0], h.outl[0]
	fn := func() float64 {
		tIn := fluid.TMixPH(in.Flow(), in.T.SI)
		tOut := fluid.TMixPH(out.Flow(), out.T.SI)
		ttdU := tIn - h.Tamb.Val
		ttdL := tOut - h.Tamb.Val
		if ttdU < 0 && ttdL < 0 {
			// heated stream: differences flip sign
			ttdU, ttdL = -ttdU, -ttdL
			return in.M.SI*(out.H.SI-in.H.SI) - ka*lmtd(ttdU, ttdL)
		}
		return in.M.SI*(out.H.SI-in.H.SI) + ka*lmtd(ttdU, ttdL)
	}
	row := sys.AddEqLazy(fn)
	sys.NumericDeriv(row, fn, in, netw.VarM)
	for _, c := range []*netw.Connection{in, out} {
		if !sys.Filtered(c, netw.VarP) {
			sys.NumericDeriv(row, fn, c, netw.VarP)
		}
		sys.NumericDeriv(row, fn, c, netw.VarH)
	}
}

func (h *SimpleHeatExchanger) CalcParameters(nw *netw.Network) {
	in, out := h.inl[0], h.outl[0]
	q := in.M.SI * (out.H.SI - in.H.SI)
	pr := out.P.SI / in.P.SI
	if !h.Q.Set {
		h.Q.Val = q
	}
	if !h.Pr.Set {
		h.Pr.Val = pr
	}
	if !h.Zeta.Set {
		h.Zeta.Val = zetaValue(in, out)
	}
	if !h.KA.Set && h.Tamb.Set {
		tIn := fluid.TMixPH(in.Flow(), in.T.SI)
		tOut := fluid.TMixPH(out.Flow(), out.T.SI)
		td := lmtd(tIn-h.Tamb.Val, tOut-h.Tamb.Val)
		if td != 0 {
			h.KA.Val = -q / td
		}
	}
	if nw.Mode() == "design" {
		h.Q.Design = q
		h.Pr.Design = pr
		h.KA.Design = h.KA.Val
	}
}

func (h *SimpleHeatExchanger) ResultParameters() map[string]float64 {
	return map[string]float64{"Q": h.Q.Val, "pr": h.Pr.Val, "zeta": h.Zeta.Val, "kA": h.KA.Val}
}

// EnergyFlow returns the duty for bus accounting, e.g. total heat input.
func (h *SimpleHeatExchanger) EnergyFlow() float64 {
	return h.inl[0].M.SI * (h.outl[0].H.SI - h.inl[0].H.SI)
}

func (h *SimpleHeatExchanger) BusConns() []*netw.Connection {
	return []*netw.Connection{h.inl[0], h.outl[0]}
}
