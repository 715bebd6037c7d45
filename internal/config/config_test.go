package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const rankineCase = `
name: throttle
fluids: [water]
units:
  pressure: bar
  temperature: C
  enthalpy: kJ/kg
  mass_flow: kg/s
components:
  - label: feed
    type: source
  - label: throttle
    type: valve
    params:
      pr: 0.8
  - label: drain
    type: sink
connections:
  - source: feed
    out: out1
    target: throttle
    in: in1
    label: hot feed
    m: 1
    p: 5
    T: 25
    fluid: {water: 1}
  - source: throttle
    out: out1
    target: drain
    in: in1
solver:
  mode: design
  max_iter: 30
`

func writeCase(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "case.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndBuild(t *testing.T) {
	c, err := Load(writeCase(t, rankineCase))
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "throttle" {
		t.Fatalf("name = %q", c.Name)
	}

	nw, err := c.Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(nw.Conns()) != 2 {
		t.Fatalf("got %d connections, want 2", len(nw.Conns()))
	}
	conn, ok := nw.Conn("hot feed")
	if !ok {
		t.Fatal("labeled connection missing")
	}
	if !conn.M.Set || conn.M.Val != 1 {
		t.Fatalf("mass flow spec not applied: set=%v val=%g", conn.M.Set, conn.M.Val)
	}
	if !conn.Fluid.Set["water"] {
		t.Fatal("fluid spec not applied")
	}

	opts := c.Solver.Options()
	if opts.MaxIter != 30 {
		t.Fatalf("max_iter = %d, want 30", opts.MaxIter)
	}
	if opts.MinIter != 4 {
		t.Fatalf("min_iter default = %d, want 4", opts.MinIter)
	}
}

func TestValueSpecForms(t *testing.T) {
	body := strings.Replace(rankineCase, "p: 5", "p: {value: 500, unit: kPa}", 1)
	c, err := Load(writeCase(t, body))
	if err != nil {
		t.Fatal(err)
	}
	nw, err := c.Build()
	if err != nil {
		t.Fatal(err)
	}
	conn, _ := nw.Conn("hot feed")
	if conn.P.Val != 500 || conn.P.Unit != "kPa" {
		t.Fatalf("value spec with unit not applied: %g %q", conn.P.Val, conn.P.Unit)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mangle  func(string) string
		wantSub string
	}{
		{
			"unknown component type",
			func(s string) string { return strings.Replace(s, "type: valve", "type: reactor", 1) },
			"unknown component type",
		},
		{
			"unknown connection source",
			func(s string) string { return strings.Replace(s, "source: feed", "source: boiler", 1) },
			"unknown source",
		},
		{
			"unknown solver mode",
			func(s string) string { return strings.Replace(s, "mode: design", "mode: transient", 1) },
			"unknown solver mode",
		},
		{
			"no fluids",
			func(s string) string { return strings.Replace(s, "fluids: [water]", "fluids: []", 1) },
			"at least one fluid",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeCase(t, tt.mangle(rankineCase)))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestBuildRejectsUnknownParam(t *testing.T) {
	body := strings.Replace(rankineCase, "pr: 0.8", "lift: 0.8", 1)
	c, err := Load(writeCase(t, body))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Build(); err == nil {
		t.Fatal("expected error for unknown parameter")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	c, err := Load(writeCase(t, rankineCase))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := c.Save(path); err != nil {
		t.Fatal(err)
	}
	c2, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(c2.Components) != len(c.Components) || len(c2.Connections) != len(c.Connections) {
		t.Fatal("case changed across save/load")
	}
}

func TestComponentTypes(t *testing.T) {
	types := ComponentTypes()
	want := map[string]bool{"turbine": false, "condenser": false, "separator": false}
	for _, n := range types {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, seen := range want {
		if !seen {
			t.Fatalf("registry is missing %q", n)
		}
	}
}
