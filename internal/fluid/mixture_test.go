package fluid

import (
	"math"
	"testing"
)

func flueGas() Flow {
	return Flow{
		M: 1.0, P: 1e5, H: 0,
		Fluid: map[string]float64{"N2": 0.75, "O2": 0.05, "CO2": 0.15, "water": 0.05},
	}
}

func TestSingleFluid(t *testing.T) {
	tests := []struct {
		name string
		comp map[string]float64
		want string
	}{
		{"pure", map[string]float64{"water": 1.0}, "water"},
		{"pure with zeros", map[string]float64{"water": 1.0, "air": 0.0}, "water"},
		{"mixture", map[string]float64{"N2": 0.7, "O2": 0.3}, ""},
		{"trace below eps", map[string]float64{"N2": 0.99999, "O2": 1e-6}, "N2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SingleFluid(tt.comp); got != tt.want {
				t.Errorf("SingleFluid() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMixtureTemperatureRoundTrip(t *testing.T) {
	ClearMemory()
	flow := flueGas()
	for _, T := range []float64{300, 500, 900} {
		flow.H = HMixPT(flow, T)
		got := TMixPH(flow, T-50)
		if math.Abs(got-T) > 1e-3 {
			t.Errorf("TMixPH at %v K: got %v", T, got)
		}
	}
}

func TestMixtureTemperatureDerivatives(t *testing.T) {
	flow := flueGas()
	flow.H = HMixPT(flow, 600)

	// dT/dh must be close to 1/cp of the mixture
	dTdh := DTMixPDh(flow, 600)
	cp := (HMixPT(flow, 600.5) - HMixPT(flow, 599.5))
	if math.Abs(dTdh-1/cp) > 1e-6 {
		t.Errorf("dT/dh = %v, want about %v", dTdh, 1/cp)
	}

	// ideal-gas enthalpy is pressure independent
	dTdp := DTMixDpH(flow, 600)
	if math.Abs(dTdp) > 1e-9 {
		t.Errorf("dT/dp = %v, want about 0 for ideal gases", dTdp)
	}
}

func TestMixtureEnthalpyPressureIndependent(t *testing.T) {
	// the water share must stay on its vapor branch even when the total
	// pressure moves its saturation point above the mixture temperature
	flow := flueGas()
	atLow := HMixPT(flow, 450)
	flow.P = 5e6
	atHigh := HMixPT(flow, 450)
	if math.Abs(atHigh-atLow) > 1e-9 {
		t.Errorf("mixture enthalpy depends on pressure: %v vs %v", atLow, atHigh)
	}
}

func TestMixtureVolume(t *testing.T) {
	flow := Flow{P: 1e5, Fluid: map[string]float64{"N2": 0.5, "O2": 0.5}}
	flow.H = HMixPT(flow, 300)
	v := VMixPH(flow, 300)
	want := 0.5*296.80*300/1e5 + 0.5*259.84*300/1e5
	if math.Abs(v-want) > 1e-9 {
		t.Errorf("v = %v, want %v", v, want)
	}
}

func TestBoilingPointPureOnly(t *testing.T) {
	if _, err := TBoilP(flueGas()); err == nil {
		t.Error("expected error for mixture boiling point")
	}

	flow := Flow{P: 101325, Fluid: map[string]float64{"water": 1.0}}
	Ts, err := TBoilP(flow)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(Ts-373.15) > 0.5 {
		t.Errorf("boiling point = %v, want about 373.15", Ts)
	}
}

func TestMemoToggle(t *testing.T) {
	SetMemorise(false)
	defer SetMemorise(true)

	flow := flueGas()
	flow.H = HMixPT(flow, 400)
	a := TMixPH(flow, 400)
	b := TMixPH(flow, 400)
	if math.Abs(a-b) > 1e-12 {
		t.Errorf("uncached lookups disagree: %v vs %v", a, b)
	}
}
