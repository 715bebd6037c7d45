package netw_test

import (
	"errors"
	"math"
	"testing"

	"github.com/skanders/thermoflow/internal/comps"
	"github.com/skanders/thermoflow/internal/fluid"
	"github.com/skanders/thermoflow/internal/netw"
)

func TestNewValidatesFluids(t *testing.T) {
	tests := []struct {
		name    string
		fluids  []string
		wantErr error
	}{
		{"known single", []string{"water"}, nil},
		{"known mixture", []string{"air", "CO2"}, nil},
		{"unknown", []string{"unobtanium"}, fluid.ErrUnknownFluid},
		{"mixed known and unknown", []string{"water", "R134a"}, fluid.ErrUnknownFluid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := netw.New(tt.fluids)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddConnsRejectsForeignFluid(t *testing.T) {
	nw, err := netw.New([]string{"air", "CO2"})
	if err != nil {
		t.Fatal(err)
	}
	src := comps.NewSource("src")
	snk := comps.NewSink("snk")
	c := netw.NewConnection(src, "out1", snk, "in1")
	c.SetFluid(map[string]float64{"CH4": 1})

	err = nw.AddConns(c)
	if !errors.Is(err, netw.ErrUnknownFluid) {
		t.Fatalf("got %v, want ErrUnknownFluid", err)
	}
}

func TestAddConnsDuplicateLabel(t *testing.T) {
	nw, _ := netw.New([]string{"water"})
	src := comps.NewSource("src")
	snk := comps.NewSink("snk")
	c1 := netw.NewConnection(src, "out1", snk, "in1").WithLabel("c")
	c2 := netw.NewConnection(src, "out1", snk, "in1").WithLabel("c")
	if err := nw.AddConns(c1); err != nil {
		t.Fatal(err)
	}
	if err := nw.AddConns(c2); !errors.Is(err, netw.ErrDuplicateLabel) {
		t.Fatalf("got %v, want ErrDuplicateLabel", err)
	}
}

func TestCheckTopology(t *testing.T) {
	t.Run("valid chain", func(t *testing.T) {
		nw, _ := netw.New([]string{"water"})
		src := comps.NewSource("src")
		vl := comps.NewValve("valve")
		snk := comps.NewSink("snk")
		c1 := netw.NewConnection(src, "out1", vl, "in1")
		c2 := netw.NewConnection(vl, "out1", snk, "in1")
		if err := nw.AddConns(c1, c2); err != nil {
			t.Fatal(err)
		}
		if err := nw.CheckTopology(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(nw.Comps()) != 3 {
			t.Fatalf("got %d components, want 3", len(nw.Comps()))
		}
	})

	t.Run("missing inlet", func(t *testing.T) {
		nw, _ := netw.New([]string{"water"})
		src := comps.NewSource("src")
		vl := comps.NewValve("valve")
		c1 := netw.NewConnection(src, "out1", vl, "in1")
		if err := nw.AddConns(c1); err != nil {
			t.Fatal(err)
		}
		if err := nw.CheckTopology(); !errors.Is(err, netw.ErrTopology) {
			t.Fatalf("got %v, want ErrTopology", err)
		}
	})

	t.Run("outlet bound twice", func(t *testing.T) {
		nw, _ := netw.New([]string{"water"})
		src := comps.NewSource("src")
		s1 := comps.NewSink("s1")
		s2 := comps.NewSink("s2")
		c1 := netw.NewConnection(src, "out1", s1, "in1")
		c2 := netw.NewConnection(src, "out1", s2, "in1")
		if err := nw.AddConns(c1, c2); err != nil {
			t.Fatal(err)
		}
		if err := nw.CheckTopology(); !errors.Is(err, netw.ErrTopology) {
			t.Fatalf("got %v, want ErrTopology", err)
		}
	})
}

func TestDegreesOfFreedom(t *testing.T) {
	build := func() (*netw.Network, *netw.Connection, *netw.Connection) {
		nw, _ := netw.New([]string{"water"})
		src := comps.NewSource("src")
		vl := comps.NewValve("valve")
		snk := comps.NewSink("snk")
		c1 := netw.NewConnection(src, "out1", vl, "in1")
		c2 := netw.NewConnection(vl, "out1", snk, "in1")
		if err := nw.AddConns(c1, c2); err != nil {
			t.Fatal(err)
		}
		return nw, c1, c2
	}
	opts := netw.DefaultSolveOptions()
	opts.InitOnly = true
	opts.IterInfo = false

	t.Run("underdetermined", func(t *testing.T) {
		nw, c1, _ := build()
		// valve contributes 2 equations, so 4 of 6 are covered
		c1.SetM(1)
		c1.SetP(5)
		if err := nw.Solve("design", opts); !errors.Is(err, netw.ErrUnderdetermined) {
			t.Fatalf("got %v, want ErrUnderdetermined", err)
		}
	})

	t.Run("overdetermined", func(t *testing.T) {
		nw, c1, c2 := build()
		c1.SetM(1)
		c1.SetP(5)
		c1.SetT(25)
		c2.SetP(4)
		c2.SetH(105)
		if err := nw.Solve("design", opts); !errors.Is(err, netw.ErrOverdetermined) {
			t.Fatalf("got %v, want ErrOverdetermined", err)
		}
	})

	t.Run("square", func(t *testing.T) {
		nw, c1, c2 := build()
		c1.SetM(1)
		c1.SetP(5)
		c1.SetT(25)
		c2.SetP(4)
		if err := nw.Solve("design", opts); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestSolveRejectsUnknownMode(t *testing.T) {
	nw, _ := netw.New([]string{"water"})
	err := nw.Solve("transient", netw.DefaultSolveOptions())
	if !errors.Is(err, netw.ErrUnknownMode) {
		t.Fatalf("got %v, want ErrUnknownMode", err)
	}
}

func TestUnitConversionRoundTrip(t *testing.T) {
	u := netw.DefaultUnits()
	tests := []struct {
		prop, unit string
		val        float64
	}{
		{"p", "bar", 12.5},
		{"p", "psi", 250},
		{"p", "atm", 3},
		{"h", "kJ/kg", 2800},
		{"m", "t/h", 36},
		{"T", "C", 150},
		{"T", "F", 212},
		{"Td_bp", "C", -5},
		{"v", "m3/h", 7200},
	}
	for _, tt := range tests {
		t.Run(tt.prop+"/"+tt.unit, func(t *testing.T) {
			si, err := u.ToSI(tt.prop, tt.val, tt.unit)
			if err != nil {
				t.Fatal(err)
			}
			back, err := u.FromSI(tt.prop, si, tt.unit)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(back-tt.val) > 1e-9*math.Max(1, math.Abs(tt.val)) {
				t.Fatalf("round trip %g -> %g -> %g", tt.val, si, back)
			}
		})
	}
}

func TestTemperatureDifferenceHasNoOffset(t *testing.T) {
	u := netw.DefaultUnits()
	si, err := u.ToSI("Td_bp", 10, "C")
	if err != nil {
		t.Fatal(err)
	}
	if si != 10 {
		t.Fatalf("Td_bp 10 C = %g K difference, want 10", si)
	}
}

func TestSaveProvidesDesignPoint(t *testing.T) {
	build := func() (*netw.Network, *netw.Connection, *netw.Connection) {
		nw, _ := netw.New([]string{"water"})
		src := comps.NewSource("src")
		vl := comps.NewValve("valve")
		snk := comps.NewSink("snk")
		vl.Pr.Specify(0.8)
		c1 := netw.NewConnection(src, "out1", vl, "in1").WithLabel("feed")
		c2 := netw.NewConnection(vl, "out1", snk, "in1").WithLabel("drain")
		c1.SetM(2)
		c1.SetP(5)
		c1.SetT(25)
		c1.SetFluid(map[string]float64{"water": 1})
		if err := nw.AddConns(c1, c2); err != nil {
			t.Fatal(err)
		}
		return nw, c1, c2
	}

	opts := netw.DefaultSolveOptions()
	opts.IterInfo = false

	nw, _, _ := build()
	if err := nw.Solve("design", opts); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := nw.Save(dir); err != nil {
		t.Fatal(err)
	}

	nw2, c1, c2 := build()
	opts.InitOnly = true
	opts.DesignPath = dir
	if err := nw2.Solve("offdesign", opts); err != nil {
		t.Fatal(err)
	}
	if math.Abs(c1.M.Design-2) > 1e-9 {
		t.Fatalf("c1 design mass flow = %g, want 2", c1.M.Design)
	}
	if math.Abs(c2.P.Design-4e5) > 1 {
		t.Fatalf("c2 design pressure = %g, want 4e5", c2.P.Design)
	}
}

func TestBusTotal(t *testing.T) {
	nw, _ := netw.New([]string{"air"})
	src := comps.NewSource("src")
	tb := comps.NewTurbine("turbine")
	snk := comps.NewSink("snk")
	c1 := netw.NewConnection(src, "out1", tb, "in1")
	c2 := netw.NewConnection(tb, "out1", snk, "in1")
	if err := nw.AddConns(c1, c2); err != nil {
		t.Fatal(err)
	}
	if err := nw.CheckTopology(); err != nil {
		t.Fatal(err)
	}

	c1.M.SI = 2
	c1.H.SI = 1e6
	c2.H.SI = 0.8e6

	bus := netw.NewBus("power")
	bus.Add(tb, nil, "component")
	if err := nw.AddBusses(bus); err != nil {
		t.Fatal(err)
	}

	want := 2 * (0.8e6 - 1e6)
	if got := bus.Total(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("bus total = %g, want %g", got, want)
	}
}
