package comps

import (
	"math"
	"testing"

	"github.com/skanders/thermoflow/internal/fluid"
	"github.com/skanders/thermoflow/internal/netw"
)

func chainNetwork(t *testing.T, fluids []string, mid netw.Component) (*netw.Network, *netw.Connection, *netw.Connection) {
	t.Helper()
	nw, err := netw.New(fluids)
	if err != nil {
		t.Fatal(err)
	}
	src := NewSource("src")
	snk := NewSink("snk")
	c1 := netw.NewConnection(src, "out1", mid, "in1")
	c2 := netw.NewConnection(mid, "out1", snk, "in1")
	if err := nw.AddConns(c1, c2); err != nil {
		t.Fatal(err)
	}
	if err := nw.CheckTopology(); err != nil {
		t.Fatal(err)
	}
	return nw, c1, c2
}

func TestEquationCounts(t *testing.T) {
	tests := []struct {
		name   string
		fluids []string
		setup  func() netw.Component
		want   int
	}{
		{
			"bare valve", []string{"water"},
			func() netw.Component { return NewValve("v") },
			2, // mass + isenthalpic
		},
		{
			"valve with pr and zeta", []string{"water"},
			func() netw.Component {
				v := NewValve("v")
				v.Pr.Specify(0.9)
				v.Zeta.MakeVar(100, 0, 1e9)
				return v
			},
			4,
		},
		{
			"valve in a mixture network", []string{"air", "CO2"},
			func() netw.Component { return NewValve("v") },
			4, // mass + 2 fluid identities + isenthalpic
		},
		{
			"turbine with eta_s and pr", []string{"air"},
			func() netw.Component {
				tb := NewTurbine("t")
				tb.EtaS.Specify(0.9)
				tb.Pr.Specify(0.1)
				return tb
			},
			3,
		},
		{
			"simple heat exchanger with duty", []string{"water"},
			func() netw.Component {
				h := NewSimpleHeatExchanger("h")
				h.Q.Specify(1e5)
				h.Pr.Specify(1)
				return h
			},
			3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := tt.setup()
			nw, _, _ := chainNetwork(t, tt.fluids, comp)
			if err := comp.Preprocess(nw); err != nil {
				t.Fatal(err)
			}
			if got := comp.NumEq(); got != tt.want {
				t.Fatalf("NumEq = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHeatExchangerEquationCount(t *testing.T) {
	nw, err := netw.New([]string{"water"})
	if err != nil {
		t.Fatal(err)
	}
	hx := NewHeatExchanger("hx")
	hx.TtdU.Specify(10)
	hx.Pr1.Specify(1)
	hx.Pr2.Specify(1)

	srcH := NewSource("hot src")
	snkH := NewSink("hot snk")
	srcC := NewSource("cold src")
	snkC := NewSink("cold snk")
	conns := []*netw.Connection{
		netw.NewConnection(srcH, "out1", hx, "in1"),
		netw.NewConnection(hx, "out1", snkH, "in1"),
		netw.NewConnection(srcC, "out1", hx, "in2"),
		netw.NewConnection(hx, "out2", snkC, "in1"),
	}
	if err := nw.AddConns(conns...); err != nil {
		t.Fatal(err)
	}
	if err := nw.CheckTopology(); err != nil {
		t.Fatal(err)
	}
	if err := hx.Preprocess(nw); err != nil {
		t.Fatal(err)
	}
	// 2 mass + energy balance + ttd_u + pr1 + pr2
	if got := hx.NumEq(); got != 6 {
		t.Fatalf("NumEq = %d, want 6", got)
	}
}

func TestSimpleHeatExchangerNeedsAmbient(t *testing.T) {
	h := NewSimpleHeatExchanger("h")
	h.KA.Specify(5000)
	nw, _, _ := chainNetwork(t, []string{"water"}, h)

	if err := h.Preprocess(nw); err == nil {
		t.Fatal("expected error for an active kA equation without Tamb")
	}
	h.Tamb.Specify(293.15)
	if err := h.Preprocess(nw); err != nil {
		t.Fatal(err)
	}
}

func TestSeparatorNeedsMixture(t *testing.T) {
	nw, err := netw.New([]string{"water"})
	if err != nil {
		t.Fatal(err)
	}
	sp := NewSeparator("sep", 2)
	src := NewSource("src")
	s1 := NewSink("s1")
	s2 := NewSink("s2")
	conns := []*netw.Connection{
		netw.NewConnection(src, "out1", sp, "in1"),
		netw.NewConnection(sp, "out1", s1, "in1"),
		netw.NewConnection(sp, "out2", s2, "in1"),
	}
	if err := nw.AddConns(conns...); err != nil {
		t.Fatal(err)
	}
	if err := nw.CheckTopology(); err != nil {
		t.Fatal(err)
	}
	if err := sp.Preprocess(nw); err == nil {
		t.Fatal("expected error for separator in single-fluid network")
	}
}

func TestSetParam(t *testing.T) {
	tb := NewTurbine("t")
	if err := tb.SetParam("eta_s", 0.85); err != nil {
		t.Fatal(err)
	}
	if !tb.EtaS.Set || tb.EtaS.Val != 0.85 {
		t.Fatalf("eta_s not applied: set=%v val=%g", tb.EtaS.Set, tb.EtaS.Val)
	}
	if err := tb.SetParam("volume", 1); err == nil {
		t.Fatal("expected error for unknown parameter")
	}
	if err := tb.SetChar("kA_char", nil); err == nil {
		t.Fatal("expected error for unknown characteristic")
	}
}

func TestIsentropicEnthalpyPreservesEntropy(t *testing.T) {
	flow := fluid.Flow{
		M: 1, P: 10e5, H: fluid.HMixPT(fluid.Flow{P: 10e5, Fluid: map[string]float64{"air": 1}}, 773.15),
		Fluid: map[string]float64{"air": 1},
	}
	sIn := fluid.SMixPH(flow, 0)

	hs := isentropicEnthalpy(flow, 1e5)
	out := flow
	out.P = 1e5
	out.H = hs
	sOut := fluid.SMixPH(out, 0)

	if math.Abs(sOut-sIn) > 1e-4*math.Abs(sIn) {
		t.Fatalf("entropy drifted: %g -> %g", sIn, sOut)
	}
	if hs >= flow.H {
		t.Fatalf("isentropic expansion must lower enthalpy: %g -> %g", flow.H, hs)
	}
}

func TestLMTDGuards(t *testing.T) {
	tests := []struct {
		name       string
		ttdU, ttdL float64
		want       float64
		tol        float64
	}{
		{"equal differences", 10, 10, 10, 1e-12},
		{"standard case", 20, 10, 10 / math.Log(2), 1e-9},
		{"zero upper nudged", 0, 10, (0.01 - 10) / math.Log(0.01/10), 1e-6},
		{"negative lower nudged", 15, -3, (15 - 0.02) / math.Log(15/0.02), 1e-6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lmtd(tt.ttdU, tt.ttdL)
			if math.Abs(got-tt.want) > tt.tol {
				t.Fatalf("lmtd(%g, %g) = %g, want %g", tt.ttdU, tt.ttdL, got, tt.want)
			}
			if got <= 0 {
				t.Fatalf("lmtd must stay positive, got %g", got)
			}
		})
	}
}

func TestOffdesignParameterSwitch(t *testing.T) {
	tb := NewTurbine("t")
	tb.EtaS.Specify(0.9)
	tb.SetDesignParams([]string{"eta_s"}, []string{"eta_s_char", "cone"})

	nw, _, _ := chainNetwork(t, []string{"air"}, tb)
	if err := nw.Solve("offdesign", initOnlyOptions()); err == nil {
		// initialisation may fail on degrees of freedom; the parameter
		// switch is what this test checks
		t.Log("offdesign initialisation succeeded")
	}

	if tb.EtaS.Set {
		t.Fatal("design parameter eta_s still set in offdesign mode")
	}
	if !tb.EtaSChar.Set {
		t.Fatal("offdesign characteristic not activated")
	}
	if !tb.Cone.Set {
		t.Fatal("cone law not activated")
	}
}

func initOnlyOptions() netw.SolveOptions {
	opts := netw.DefaultSolveOptions()
	opts.InitOnly = true
	opts.IterInfo = false
	return opts
}

func TestMergeSlotNames(t *testing.T) {
	m := NewMerge("m", 3)
	in := m.Inlets()
	if len(in) != 3 || in[0] != "in1" || in[2] != "in3" {
		t.Fatalf("unexpected inlet slots %v", in)
	}
	s := NewSplitter("s", 2)
	out := s.Outlets()
	if len(out) != 2 || out[1] != "out2" {
		t.Fatalf("unexpected outlet slots %v", out)
	}
}
