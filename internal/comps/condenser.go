package comps

import (
	"github.com/skanders/thermoflow/internal/fluid"
	"github.com/skanders/thermoflow/internal/netw"
)

// Condenser is a heat exchanger whose hot stream leaves as saturated
// liquid; the saturation condition replaces one specification on the hot
// side. Terminal temperature differences refer to the saturation
// temperature at the hot inlet pressure.
type Condenser struct {
	HeatExchanger
}

// NewCondenser creates the component with slots "in1"/"in2" and
// "out1"/"out2"; in1 carries the condensing stream.
func NewCondenser(label string) *Condenser {
	c := &Condenser{HeatExchanger{base: base{label: label}}}
	c.charName = "condenser kA"
	c.satHotInlet = true
	return c
}

func (c *Condenser) TypeName() string { return "condenser" }

func (c *Condenser) Preprocess(nw *netw.Network) error {
	// saturated liquid outlet adds one equation
	return c.preprocess(nw, 1)
}

func (c *Condenser) Equations(sys *netw.System) {
	c.writeEquations(sys)

	out1 := c.outl[0]
	fn := func() float64 {
		h, err := fluid.HMixPQ(out1.Flow(), 0)
		if err != nil {
			return 0
		}
		return out1.H.SI - h
	}
	row := sys.AddEqLazy(fn)
	if !sys.Filtered(out1, netw.VarP) {
		sys.SetDeriv(row, out1, netw.VarP, -fluid.DHMixDpQ(out1.Flow(), 0))
	}
	sys.SetDeriv(row, out1, netw.VarH, 1)
}

// ConvergenceCheck pulls the hot outlet towards the liquid side of the
// dome.
func (c *Condenser) ConvergenceCheck(nw *netw.Network) {
	c.HeatExchanger.ConvergenceCheck(nw)
	out1 := c.outl[0]
	if out1.H.Set {
		return
	}
	if h, err := fluid.HMixPQ(out1.Flow(), 0); err == nil && out1.H.SI > h {
		out1.H.SI = h * 0.999
	}
}
