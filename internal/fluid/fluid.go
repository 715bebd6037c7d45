package fluid

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Reference state for enthalpy and entropy: liquid water / gas at 0 deg C, 1 bar.
const (
	TRef = 273.15
	PRef = 1e5
)

// ErrUnknownFluid is returned when a composition or property request names
// a fluid that has not been registered.
var ErrUnknownFluid = errors.New("fluid: unknown fluid")

// ErrNotCondensable is returned for saturation-curve requests on fluids
// without a two-phase region in their model.
var ErrNotCondensable = errors.New("fluid: no saturation data for fluid")

// Range limits the validity region of a fluid's property model.
type Range struct {
	PMin, PMax float64
	TMin, TMax float64
}

type model interface {
	HPT(p, T float64) float64
	TPH(p, h float64) float64
	VPH(p, h float64) float64
	SPH(p, h float64) float64
	HPQ(p, q float64) (float64, error)
	QPH(p, h float64) (float64, error)
	TSat(p float64) (float64, error)
}

// Fluid couples a registered name with its property model and validity range.
type Fluid struct {
	Name  string
	Valid Range
	mdl   model
}

var registry = map[string]*Fluid{}

func register(name string, valid Range, m model) {
	registry[name] = &Fluid{Name: name, Valid: valid, mdl: m}
}

// Lookup resolves a fluid by name.
func Lookup(name string) (*Fluid, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFluid, name)
	}
	return f, nil
}

// IsRegistered reports whether name resolves to a known fluid.
func IsRegistered(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns all registered fluid names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// gas is an ideal gas with cp(T) = c0 + c1*T + c2*T^2 + c3*T^3 in J/(kg K).
type gas struct {
	R  float64
	cp [4]float64
}

func (g gas) cpT(T float64) float64 {
	return g.cp[0] + T*(g.cp[1]+T*(g.cp[2]+T*g.cp[3]))
}

func (g gas) HPT(_, T float64) float64 {
	h := func(T float64) float64 {
		return g.cp[0]*T + g.cp[1]/2*T*T + g.cp[2]/3*T*T*T + g.cp[3]/4*T*T*T*T
	}
	return h(T) - h(TRef)
}

func (g gas) TPH(_, h float64) float64 {
	T := TRef + h/g.cp[0]
	for i := 0; i < 50; i++ {
		res := g.HPT(0, T) - h
		if math.Abs(res) < 1e-9 {
			break
		}
		T -= res / g.cpT(T)
	}
	return T
}

func (g gas) VPH(p, h float64) float64 { return g.R * g.TPH(p, h) / p }

func (g gas) SPH(p, h float64) float64 {
	T := g.TPH(p, h)
	s := g.cp[0]*math.Log(T/TRef) + g.cp[1]*(T-TRef) +
		g.cp[2]/2*(T*T-TRef*TRef) + g.cp[3]/3*(T*T*T-TRef*TRef*TRef)
	return s - g.R*math.Log(p/PRef)
}

func (g gas) HPQ(float64, float64) (float64, error) { return 0, ErrNotCondensable }
func (g gas) QPH(float64, float64) (float64, error) { return 0, ErrNotCondensable }
func (g gas) TSat(float64) (float64, error)         { return 0, ErrNotCondensable }

// twoPhase models a condensable fluid: incompressible liquid, ideal-gas
// vapor and an Antoine saturation curve with a Watson correlation for the
// enthalpy of vaporization.
type twoPhase struct {
	R          float64
	cpl, cpv   float64
	vl         float64 // liquid specific volume
	antA       float64 // Antoine constants, p in mmHg, T in deg C
	antB, antC float64
	hfg0       float64 // heat of vaporization at the normal boiling point
	TBoil      float64
	TCrit      float64
}

const mmHg = 133.322

func (w twoPhase) psat(T float64) float64 {
	return mmHg * math.Pow(10, w.antA-w.antB/(w.antC+T-273.15))
}

func (w twoPhase) TSat(p float64) (float64, error) {
	if p <= 0 {
		return 0, fmt.Errorf("fluid: saturation pressure must be positive, got %g", p)
	}
	return w.antB/(w.antA-math.Log10(p/mmHg)) - w.antC + 273.15, nil
}

func (w twoPhase) hfg(T float64) float64 {
	if T >= w.TCrit {
		return 0
	}
	return w.hfg0 * math.Pow((w.TCrit-T)/(w.TCrit-w.TBoil), 0.38)
}

func (w twoPhase) hf(T float64) float64 { return w.cpl * (T - TRef) }

func (w twoPhase) HPT(p, T float64) float64 {
	Ts, _ := w.TSat(p)
	if T < Ts {
		return w.hf(T)
	}
	return w.hf(Ts) + w.hfg(Ts) + w.cpv*(T-Ts)
}

func (w twoPhase) TPH(p, h float64) float64 {
	Ts, _ := w.TSat(p)
	hfp := w.hf(Ts)
	hgp := hfp + w.hfg(Ts)
	switch {
	case h < hfp:
		return TRef + h/w.cpl
	case h > hgp:
		return Ts + (h-hgp)/w.cpv
	default:
		return Ts
	}
}

func (w twoPhase) VPH(p, h float64) float64 {
	Ts, _ := w.TSat(p)
	hfp := w.hf(Ts)
	hgp := hfp + w.hfg(Ts)
	switch {
	case h < hfp:
		return w.vl
	case h > hgp:
		return w.R * w.TPH(p, h) / p
	default:
		q := (h - hfp) / (hgp - hfp)
		return w.vl + q*(w.R*Ts/p-w.vl)
	}
}

func (w twoPhase) SPH(p, h float64) float64 {
	Ts, _ := w.TSat(p)
	hfp := w.hf(Ts)
	hgp := hfp + w.hfg(Ts)
	sf := func(T float64) float64 { return w.cpl * math.Log(T/TRef) }
	switch {
	case h < hfp:
		return sf(w.TPH(p, h))
	case h > hgp:
		T := w.TPH(p, h)
		return sf(Ts) + w.hfg(Ts)/Ts + w.cpv*math.Log(T/Ts)
	default:
		q := (h - hfp) / (hgp - hfp)
		return sf(Ts) + q*w.hfg(Ts)/Ts
	}
}

// In mixtures a condensable component is treated as superheated vapor on
// its ideal-gas branch, referenced at the normal boiling point. Evaluating
// it against the total pressure would pull the whole mixture onto the
// component's two-phase surface and make the mixture enthalpy pressure
// dependent.

func (w twoPhase) vaporHPT(T float64) float64 {
	return w.hf(w.TBoil) + w.hfg0 + w.cpv*(T-w.TBoil)
}

func (w twoPhase) vaporVPT(p, T float64) float64 { return w.R * T / p }

func (w twoPhase) vaporSPT(p, T float64) float64 {
	return w.cpl*math.Log(w.TBoil/TRef) + w.hfg0/w.TBoil +
		w.cpv*math.Log(T/w.TBoil) - w.R*math.Log(p/PRef)
}

func (w twoPhase) HPQ(p, q float64) (float64, error) {
	Ts, err := w.TSat(p)
	if err != nil {
		return 0, err
	}
	return w.hf(Ts) + q*w.hfg(Ts), nil
}

func (w twoPhase) QPH(p, h float64) (float64, error) {
	Ts, err := w.TSat(p)
	if err != nil {
		return 0, err
	}
	q := (h - w.hf(Ts)) / w.hfg(Ts)
	return math.Min(1, math.Max(0, q)), nil
}

// Polynomial fits in mass units, roughly valid for 250 K to 1500 K.
func init() {
	gasRange := Range{PMin: 1e3, PMax: 5e7, TMin: 100, TMax: 2000}

	register("air", gasRange, gas{R: 287.12, cp: [4]float64{1023.0, -0.1760, 4.10e-4, -1.50e-7}})
	register("N2", gasRange, gas{R: 296.80, cp: [4]float64{1075.0, -0.2500, 5.90e-4, -1.80e-7}})
	register("O2", gasRange, gas{R: 259.84, cp: [4]float64{834.0, 0.2930, -1.50e-4, 3.00e-8}})
	register("CO2", gasRange, gas{R: 188.92, cp: [4]float64{520.0, 1.2500, -6.00e-4, 1.20e-7}})
	register("CH4", gasRange, gas{R: 518.28, cp: [4]float64{1250.0, 3.2500, 6.00e-4, 0}})
	register("H2", gasRange, gas{R: 4124.2, cp: [4]float64{13550.0, 2.8800, -1.00e-3, 0}})
	register("Ar", gasRange, gas{R: 208.13, cp: [4]float64{520.3, 0, 0, 0}})

	register("water", Range{PMin: 6.1e2, PMax: 2.2e7, TMin: 273.16, TMax: 1200}, twoPhase{
		R: 461.5, cpl: 4186, cpv: 1902, vl: 1.0 / 958.0,
		antA: 8.07131, antB: 1730.63, antC: 233.426,
		hfg0: 2.257e6, TBoil: 373.15, TCrit: 647.1,
	})
	register("ethanol", Range{PMin: 1e3, PMax: 6.1e6, TMin: 159.0, TMax: 800}, twoPhase{
		R: 180.48, cpl: 2440, cpv: 1430, vl: 1.0 / 789.0,
		antA: 8.20417, antB: 1642.89, antC: 230.300,
		hfg0: 8.46e5, TBoil: 351.4, TCrit: 514.0,
	})
}
