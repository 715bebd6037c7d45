package fluid

import (
	"errors"
	"math"
	"testing"
)

func TestLookupUnknownFluid(t *testing.T) {
	_, err := Lookup("unobtainium")
	if err == nil {
		t.Fatal("expected error for unknown fluid")
	}
	if !errors.Is(err, ErrUnknownFluid) {
		t.Errorf("expected ErrUnknownFluid, got %v", err)
	}
}

func TestGasRoundTrip(t *testing.T) {
	tests := []struct {
		fluid string
		p     float64
		T     float64
	}{
		{"air", 1e5, 300},
		{"air", 10e5, 600},
		{"N2", 2e5, 400},
		{"CO2", 5e5, 500},
		{"CH4", 1e5, 350},
	}

	for _, tt := range tests {
		t.Run(tt.fluid, func(t *testing.T) {
			f, err := Lookup(tt.fluid)
			if err != nil {
				t.Fatal(err)
			}
			h := f.mdl.HPT(tt.p, tt.T)
			T := f.mdl.TPH(tt.p, h)
			if math.Abs(T-tt.T) > 1e-6 {
				t.Errorf("T(p, h(p, %v)) = %v, want %v", tt.T, T, tt.T)
			}
		})
	}
}

func TestGasSpecificVolume(t *testing.T) {
	f, err := Lookup("air")
	if err != nil {
		t.Fatal(err)
	}
	h := f.mdl.HPT(1e5, 300)
	v := f.mdl.VPH(1e5, h)
	want := 287.12 * 300 / 1e5
	if math.Abs(v-want) > 1e-9 {
		t.Errorf("v = %v, want %v", v, want)
	}
}

func TestWaterSaturation(t *testing.T) {
	f, err := Lookup("water")
	if err != nil {
		t.Fatal(err)
	}
	Ts, err := f.mdl.TSat(101325)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(Ts-373.15) > 0.5 {
		t.Errorf("Tsat(1 atm) = %v, want 373.15 +- 0.5", Ts)
	}
}

func TestWaterQualityEnthalpy(t *testing.T) {
	f, err := Lookup("water")
	if err != nil {
		t.Fatal(err)
	}
	p := 101325.0

	h0, err := f.mdl.HPQ(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	h1, err := f.mdl.HPQ(p, 1)
	if err != nil {
		t.Fatal(err)
	}
	if h1 <= h0 {
		t.Fatalf("saturated vapor enthalpy %v not above liquid %v", h1, h0)
	}

	hfg := h1 - h0
	if math.Abs(hfg-2.257e6) > 0.1e6 {
		t.Errorf("hfg = %v, want about 2.26e6", hfg)
	}

	q, err := f.mdl.QPH(p, h0+0.25*hfg)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(q-0.25) > 1e-9 {
		t.Errorf("quality = %v, want 0.25", q)
	}
}

func TestWaterPhaseTemperature(t *testing.T) {
	f, err := Lookup("water")
	if err != nil {
		t.Fatal(err)
	}
	p := 101325.0
	Ts, _ := f.mdl.TSat(p)

	// inside the dome the temperature sticks to saturation
	hmid, _ := f.mdl.HPQ(p, 0.5)
	if T := f.mdl.TPH(p, hmid); math.Abs(T-Ts) > 1e-9 {
		t.Errorf("two-phase T = %v, want %v", T, Ts)
	}

	// subcooled liquid
	if T := f.mdl.TPH(p, 4186*20); math.Abs(T-(TRef+20)) > 1e-9 {
		t.Errorf("liquid T = %v, want %v", T, TRef+20)
	}
}

func TestGasNoSaturationCurve(t *testing.T) {
	f, err := Lookup("air")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.mdl.TSat(1e5); !errors.Is(err, ErrNotCondensable) {
		t.Errorf("expected ErrNotCondensable, got %v", err)
	}
}
