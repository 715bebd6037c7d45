package fluid

import (
	"math"
)

// Eps is the smallest mass fraction considered part of a mixture.
const Eps = 1e-4

// Flow is the state vector carried by a connection: mass flow, pressure,
// enthalpy and the fluid composition as mass fractions.
type Flow struct {
	M     float64
	P     float64
	H     float64
	Fluid map[string]float64
}

// SingleFluid returns the fluid name if the composition effectively
// contains one fluid only, otherwise the empty string.
func SingleFluid(comp map[string]float64) string {
	name := ""
	n := 0
	for f, x := range comp {
		if x > Eps {
			name = f
			n++
		}
	}
	if n == 1 {
		return name
	}
	return ""
}

// TMixPH returns the temperature of the flow. For mixtures the mixture
// enthalpy is inverted by Newton iteration starting from T0; pass 0 to use
// a generic guess.
func TMixPH(flow Flow, T0 float64) float64 {
	if fl := SingleFluid(flow.Fluid); fl != "" {
		f, err := Lookup(fl)
		if err != nil {
			return math.NaN()
		}
		return f.mdl.TPH(flow.P, flow.H)
	}
	if v, ok := defaultMemo.get(flow); ok {
		return v
	}
	if T0 <= 0 || math.IsNaN(T0) {
		T0 = 300.0
	}
	T := T0
	for i := 0; i < 80; i++ {
		res := HMixPT(flow, T) - flow.H
		if math.Abs(res) < 1e-6 {
			break
		}
		cp := (HMixPT(flow, T+0.5) - HMixPT(flow, T-0.5))
		if cp == 0 {
			break
		}
		T -= res / cp
	}
	defaultMemo.put(flow, T)
	return T
}

// Mixture members evaluate on the gas branch: a condensable component in
// a mixture counts as superheated vapor, keeping the ideal-mixture
// enthalpy independent of the total pressure.

func memberHPT(f *Fluid, p, T float64) float64 {
	if w, ok := f.mdl.(twoPhase); ok {
		return w.vaporHPT(T)
	}
	return f.mdl.HPT(p, T)
}

func memberVPT(f *Fluid, p, T float64) float64 {
	if w, ok := f.mdl.(twoPhase); ok {
		return w.vaporVPT(p, T)
	}
	return f.mdl.VPH(p, f.mdl.HPT(p, T))
}

func memberSPT(f *Fluid, p, T float64) float64 {
	if w, ok := f.mdl.(twoPhase); ok {
		return w.vaporSPT(p, T)
	}
	return f.mdl.SPH(p, f.mdl.HPT(p, T))
}

// HMixPT returns the mixture enthalpy at pressure and temperature.
func HMixPT(flow Flow, T float64) float64 {
	if fl := SingleFluid(flow.Fluid); fl != "" {
		f, err := Lookup(fl)
		if err != nil {
			return math.NaN()
		}
		return f.mdl.HPT(flow.P, T)
	}
	h := 0.0
	for name, x := range flow.Fluid {
		if x <= 0 {
			continue
		}
		f, err := Lookup(name)
		if err != nil {
			return math.NaN()
		}
		h += x * memberHPT(f, flow.P, T)
	}
	return h
}

// VMixPH returns the mixture specific volume.
func VMixPH(flow Flow, T0 float64) float64 {
	if fl := SingleFluid(flow.Fluid); fl != "" {
		f, err := Lookup(fl)
		if err != nil {
			return math.NaN()
		}
		return f.mdl.VPH(flow.P, flow.H)
	}
	T := TMixPH(flow, T0)
	v := 0.0
	for name, x := range flow.Fluid {
		if x <= 0 {
			continue
		}
		f, _ := Lookup(name)
		v += x * memberVPT(f, flow.P, T)
	}
	return v
}

// SMixPH returns the mixture entropy. Entropy of mixing is neglected.
func SMixPH(flow Flow, T0 float64) float64 {
	if fl := SingleFluid(flow.Fluid); fl != "" {
		f, err := Lookup(fl)
		if err != nil {
			return math.NaN()
		}
		return f.mdl.SPH(flow.P, flow.H)
	}
	T := TMixPH(flow, T0)
	s := 0.0
	for name, x := range flow.Fluid {
		if x <= 0 {
			continue
		}
		f, _ := Lookup(name)
		s += x * memberSPT(f, flow.P, T)
	}
	return s
}

// HMixPQ returns the enthalpy at the given vapor quality. Pure condensable
// fluids only.
func HMixPQ(flow Flow, q float64) (float64, error) {
	fl := SingleFluid(flow.Fluid)
	if fl == "" {
		return 0, ErrNotCondensable
	}
	f, err := Lookup(fl)
	if err != nil {
		return 0, err
	}
	return f.mdl.HPQ(flow.P, q)
}

// QPH returns the vapor quality of a pure condensable fluid.
func QPH(p, h float64, name string) (float64, error) {
	f, err := Lookup(name)
	if err != nil {
		return 0, err
	}
	return f.mdl.QPH(p, h)
}

// TBoilP returns the boiling-point temperature at the flow's pressure.
func TBoilP(flow Flow) (float64, error) {
	fl := SingleFluid(flow.Fluid)
	if fl == "" {
		return 0, ErrNotCondensable
	}
	f, err := Lookup(fl)
	if err != nil {
		return 0, err
	}
	return f.mdl.TSat(flow.P)
}

// Numeric partial derivatives of the mixture properties. Step sizes follow
// the magnitude of the perturbed quantity.

func dp(p float64) float64 { return math.Max(1.0, p*1e-4) }
func dh(h float64) float64 { return math.Max(1.0, math.Abs(h)*1e-4) }

// DTMixDpH is dT/dp at constant enthalpy.
func DTMixDpH(flow Flow, T0 float64) float64 {
	d := dp(flow.P)
	up, lo := flow, flow
	up.P += d
	lo.P -= d
	return (TMixPH(up, T0) - TMixPH(lo, T0)) / (2 * d)
}

// DTMixPDh is dT/dh at constant pressure.
func DTMixPDh(flow Flow, T0 float64) float64 {
	d := dh(flow.H)
	up, lo := flow, flow
	up.H += d
	lo.H -= d
	return (TMixPH(up, T0) - TMixPH(lo, T0)) / (2 * d)
}

// DTMixPHDFluid is dT/dx_i for every fluid of the mixture, ordered by the
// given fluid list.
func DTMixPHDFluid(flow Flow, T0 float64, fluids []string) []float64 {
	const d = 1e-5
	deriv := make([]float64, len(fluids))
	for i, name := range fluids {
		up := cloneFlow(flow)
		lo := cloneFlow(flow)
		up.Fluid[name] += d
		lo.Fluid[name] -= d
		deriv[i] = (TMixPH(up, T0) - TMixPH(lo, T0)) / (2 * d)
	}
	return deriv
}

// DVMixDpH is dv/dp at constant enthalpy.
func DVMixDpH(flow Flow, T0 float64) float64 {
	d := dp(flow.P)
	up, lo := flow, flow
	up.P += d
	lo.P -= d
	return (VMixPH(up, T0) - VMixPH(lo, T0)) / (2 * d)
}

// DVMixPDh is dv/dh at constant pressure.
func DVMixPDh(flow Flow, T0 float64) float64 {
	d := dh(flow.H)
	up, lo := flow, flow
	up.H += d
	lo.H -= d
	return (VMixPH(up, T0) - VMixPH(lo, T0)) / (2 * d)
}

// DHMixDpQ is dh/dp along an isoline of vapor quality.
func DHMixDpQ(flow Flow, q float64) float64 {
	d := dp(flow.P)
	up, lo := flow, flow
	up.P += d
	lo.P -= d
	hu, err := HMixPQ(up, q)
	if err != nil {
		return math.NaN()
	}
	hl, err := HMixPQ(lo, q)
	if err != nil {
		return math.NaN()
	}
	return (hu - hl) / (2 * d)
}

// DTBoilDp is the slope of the saturation curve in T over p.
func DTBoilDp(flow Flow) float64 {
	d := dp(flow.P)
	up, lo := flow, flow
	up.P += d
	lo.P -= d
	tu, err := TBoilP(up)
	if err != nil {
		return math.NaN()
	}
	tl, err := TBoilP(lo)
	if err != nil {
		return math.NaN()
	}
	return (tu - tl) / (2 * d)
}

func cloneFlow(flow Flow) Flow {
	c := flow
	c.Fluid = make(map[string]float64, len(flow.Fluid))
	for k, v := range flow.Fluid {
		c.Fluid[k] = v
	}
	return c
}
