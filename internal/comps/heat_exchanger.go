package comps

import (
	"math"

	"github.com/skanders/thermoflow/internal/fluid"
	"github.com/skanders/thermoflow/internal/netw"
)

// HeatExchanger is a counterflow heat exchanger with a hot stream
// (in1/out1) and a cold stream (in2/out2). The streams stay separated;
// the energy balance couples them.
type HeatExchanger struct {
	base

	Q    Param
	KA   Param
	TtdU Param // upper terminal temperature difference
	TtdL Param // lower terminal temperature difference

	Pr1   Param
	Pr2   Param
	Zeta1 Param
	Zeta2 Param

	// per-stream kA correction characteristics over the mass flow ratio,
	// combined as 2/(1/f1 + 1/f2)
	KAChar1 CharParam
	KAChar2 CharParam

	kaCharActive bool

	// condenser variant: default characteristic name and saturation
	// temperature as the hot-side reference
	charName    string
	satHotInlet bool
}

// NewHeatExchanger creates the component with slots "in1"/"in2" and
// "out1"/"out2".
func NewHeatExchanger(label string) *HeatExchanger {
	return &HeatExchanger{base: base{label: label}}
}

func (h *HeatExchanger) TypeName() string  { return "heat exchanger" }
func (h *HeatExchanger) Inlets() []string  { return []string{"in1", "in2"} }
func (h *HeatExchanger) Outlets() []string { return []string{"out1", "out2"} }

func (h *HeatExchanger) params() map[string]*Param {
	return map[string]*Param{
		"Q": &h.Q, "kA": &h.KA, "ttd_u": &h.TtdU, "ttd_l": &h.TtdL,
		"pr1": &h.Pr1, "pr2": &h.Pr2, "zeta1": &h.Zeta1, "zeta2": &h.Zeta2,
	}
}

// SetKAChar activates the offdesign kA characteristic; nil lines pick the
// registered default for both streams.
func (h *HeatExchanger) SetKAChar(hot, cold *CharParam) {
	if hot != nil {
		h.KAChar1 = *hot
	}
	if cold != nil {
		h.KAChar2 = *cold
	}
	h.kaCharActive = true
}

func (h *HeatExchanger) charDefault() string {
	if h.charName != "" {
		return h.charName
	}
	return "heat exchanger kA"
}

func (h *HeatExchanger) preprocess(nw *netw.Network, extraEq int) error {
	chars := map[string]*CharParam{"kA_char": {}}
	if err := h.applyMode(nw, h.params(), chars); err != nil {
		return err
	}
	if chars["kA_char"].Set {
		h.kaCharActive = true
	}
	if h.kaCharActive {
		h.KAChar1.Set = true
		h.KAChar2.Set = true
		if err := resolveChar(&h.KAChar1, h.charDefault()); err != nil {
			return err
		}
		if err := resolveChar(&h.KAChar2, h.charDefault()); err != nil {
			return err
		}
	}
	h.numEq = h.countMassFluidPairs(nw) + 1 + extraEq // energy balance
	for _, p := range h.params() {
		if p.active() {
			h.numEq++
		}
	}
	if h.kaCharActive {
		h.numEq++
	}
	return nil
}

func (h *HeatExchanger) Preprocess(nw *netw.Network) error { return h.preprocess(nw, 0) }

// hotInletTemp is the hot-side reference for the terminal temperature
// differences; the condenser measures against the saturation temperature.
func (h *HeatExchanger) hotInletTemp() float64 {
	in1 := h.inl[0]
	if h.satHotInlet {
		if ts, err := fluid.TBoilP(in1.Flow()); err == nil {
			return ts
		}
	}
	return fluid.TMixPH(in1.Flow(), in1.T.SI)
}

func (h *HeatExchanger) tdLog() float64 {
	out1, in2, out2 := h.outl[0], h.inl[1], h.outl[1]
	tI1 := h.hotInletTemp()
	tO1 := fluid.TMixPH(out1.Flow(), out1.T.SI)
	tI2 := fluid.TMixPH(in2.Flow(), in2.T.SI)
	tO2 := fluid.TMixPH(out2.Flow(), out2.T.SI)
	return lmtd(tI1-tO2, tO1-tI2)
}

func (h *HeatExchanger) Equations(sys *netw.System) { h.writeEquations(sys) }

func (h *HeatExchanger) writeEquations(sys *netw.System) {
	in1, in2 := h.inl[0], h.inl[1]
	out1, out2 := h.outl[0], h.outl[1]

	h.massFlowPairEqs(sys)
	h.fluidIdentityEqs(sys)

	// energy balance across both streams
	row := sys.AddEq(in1.M.SI*(out1.H.SI-in1.H.SI) + in2.M.SI*(out2.H.SI-in2.H.SI))
	sys.SetDeriv(row, in1, netw.VarM, out1.H.SI-in1.H.SI)
	sys.SetDeriv(row, in2, netw.VarM, out2.H.SI-in2.H.SI)
	sys.SetDeriv(row, in1, netw.VarH, -in1.M.SI)
	sys.SetDeriv(row, out1, netw.VarH, in1.M.SI)
	sys.SetDeriv(row, in2, netw.VarH, -in2.M.SI)
	sys.SetDeriv(row, out2, netw.VarH, in2.M.SI)

	if h.Q.active() {
		row := sys.AddEq(in1.M.SI*(out1.H.SI-in1.H.SI) - h.Q.value())
		sys.SetDeriv(row, in1, netw.VarM, out1.H.SI-in1.H.SI)
		sys.SetDeriv(row, in1, netw.VarH, -in1.M.SI)
		sys.SetDeriv(row, out1, netw.VarH, in1.M.SI)
		if h.Q.IsVar {
			sys.SetVarDeriv(row, h.Q.cv, -1)
		}
	}
	if h.KA.active() {
		h.kaEq(sys, func() float64 { return h.KA.value() })
	}
	if h.kaCharActive {
		h.kaEq(sys, func() float64 {
			f1 := h.KAChar1.Line.Evaluate(in1.M.SI / designMassFlow(in1))
			f2 := h.KAChar2.Line.Evaluate(in2.M.SI / designMassFlow(in2))
			return designValue(&h.KA) * 2 / (1/f1 + 1/f2)
		})
	}
	if h.TtdU.active() {
		h.ttdUEq(sys)
	}
	if h.TtdL.active() {
		h.ttdLEq(sys)
	}
	if h.Pr1.active() {
		prEq(sys, &h.Pr1, in1, out1)
	}
	if h.Pr2.active() {
		prEq(sys, &h.Pr2, in2, out2)
	}
	if h.Zeta1.active() {
		zetaEq(sys, &h.Zeta1, in1, out1)
	}
	if h.Zeta2.active() {
		zetaEq(sys, &h.Zeta2, in2, out2)
	}
}

// m1*(h_out1 - h_in1) + kA * td_log = 0
func (h *HeatExchanger) kaEq(sys *netw.System, ka func() float64) {
	in1, out1 := h.inl[0], h.outl[0]
	fn := func() float64 {
		return in1.M.SI*(out1.H.SI-in1.H.SI) + ka()*h.tdLog()
	}
	row := sys.AddEqLazy(fn)
	for _, c := range []*netw.Connection{h.inl[0], h.inl[1]} {
		sys.NumericDeriv(row, fn, c, netw.VarM)
	}
	for _, c := range []*netw.Connection{h.inl[0], h.outl[0], h.inl[1], h.outl[1]} {
		if !sys.Filtered(c, netw.VarP) {
			sys.NumericDeriv(row, fn, c, netw.VarP)
		}
		sys.NumericDeriv(row, fn, c, netw.VarH)
	}
}

// ttd_u - (T_hot_in - T_cold_out) = 0
func (h *HeatExchanger) ttdUEq(sys *netw.System) {
	out2 := h.outl[1]
	fn := func() float64 {
		return h.TtdU.value() - (h.hotInletTemp() - fluid.TMixPH(out2.Flow(), out2.T.SI))
	}
	row := sys.AddEqLazy(fn)
	for _, c := range []*netw.Connection{h.inl[0], out2} {
		if !sys.Filtered(c, netw.VarP) {
			sys.NumericDeriv(row, fn, c, netw.VarP)
		}
		sys.NumericDeriv(row, fn, c, netw.VarH)
	}
	if h.TtdU.IsVar {
		sys.SetVarDeriv(row, h.TtdU.cv, 1)
	}
}

// ttd_l - (T_hot_out - T_cold_in) = 0
func (h *HeatExchanger) ttdLEq(sys *netw.System) {
	out1, in2 := h.outl[0], h.inl[1]
	fn := func() float64 {
		return h.TtdL.value() - (fluid.TMixPH(out1.Flow(), out1.T.SI) - fluid.TMixPH(in2.Flow(), in2.T.SI))
	}
	row := sys.AddEqLazy(fn)
	for _, c := range []*netw.Connection{out1, in2} {
		if !sys.Filtered(c, netw.VarP) {
			sys.NumericDeriv(row, fn, c, netw.VarP)
		}
		sys.NumericDeriv(row, fn, c, netw.VarH)
	}
	if h.TtdL.IsVar {
		sys.SetVarDeriv(row, h.TtdL.cv, 1)
	}
}

// ConvergenceCheck keeps the hot stream cooling and the cold stream
// heating during the first iterations.
func (h *HeatExchanger) ConvergenceCheck(*netw.Network) {
	in1, out1 := h.inl[0], h.outl[0]
	in2, out2 := h.inl[1], h.outl[1]
	if !out1.H.Set && out1.H.SI >= in1.H.SI {
		out1.H.SI = in1.H.SI * 0.98
	}
	if !out2.H.Set && out2.H.SI <= in2.H.SI {
		out2.H.SI = in2.H.SI * 1.02
	}
}

func (h *HeatExchanger) InitSource(c *netw.Connection, key string) float64 {
	if key != "h" {
		return 0
	}
	if c == h.outl[0] {
		return 3e5
	}
	return 5e5
}

func (h *HeatExchanger) InitTarget(c *netw.Connection, key string) float64 {
	if key != "h" {
		return 0
	}
	if c == h.inl[0] {
		return 5e5
	}
	return 3e5
}

func (h *HeatExchanger) CalcParameters(nw *netw.Network) {
	in1, out1 := h.inl[0], h.outl[0]
	in2, out2 := h.inl[1], h.outl[1]
	q := in1.M.SI * (out1.H.SI - in1.H.SI)
	ttdU := h.hotInletTemp() - fluid.TMixPH(out2.Flow(), out2.T.SI)
	ttdL := fluid.TMixPH(out1.Flow(), out1.T.SI) - fluid.TMixPH(in2.Flow(), in2.T.SI)

	if !h.Q.Set {
		h.Q.Val = q
	}
	if !h.TtdU.Set {
		h.TtdU.Val = ttdU
	}
	if !h.TtdL.Set {
		h.TtdL.Val = ttdL
	}
	if !h.KA.Set {
		td := h.tdLog()
		if td != 0 {
			h.KA.Val = math.Abs(q) / td
		}
	}
	if !h.Pr1.Set {
		h.Pr1.Val = out1.P.SI / in1.P.SI
	}
	if !h.Pr2.Set {
		h.Pr2.Val = out2.P.SI / in2.P.SI
	}
	if nw.Mode() == "design" {
		h.Q.Design = q
		h.KA.Design = h.KA.Val
		h.TtdU.Design = ttdU
		h.TtdL.Design = ttdL
	}
}

func (h *HeatExchanger) ResultParameters() map[string]float64 {
	return map[string]float64{
		"Q": h.Q.Val, "kA": h.KA.Val, "ttd_u": h.TtdU.Val, "ttd_l": h.TtdL.Val,
		"pr1": h.Pr1.Val, "pr2": h.Pr2.Val,
	}
}

// EnergyFlow returns the transferred heat for bus accounting.
func (h *HeatExchanger) EnergyFlow() float64 {
	return h.inl[0].M.SI * (h.outl[0].H.SI - h.inl[0].H.SI)
}

func (h *HeatExchanger) BusConns() []*netw.Connection {
	return []*netw.Connection{h.inl[0], h.outl[0]}
}

// PlottingData exposes the terminal temperature profile for diagrams.
func (h *HeatExchanger) PlottingData() map[string][]float64 {
	out1, in2, out2 := h.outl[0], h.inl[1], h.outl[1]
	return map[string][]float64{
		"T_hot":  {h.hotInletTemp(), fluid.TMixPH(out1.Flow(), out1.T.SI)},
		"T_cold": {fluid.TMixPH(out2.Flow(), out2.T.SI), fluid.TMixPH(in2.Flow(), in2.T.SI)},
	}
}
