package comps

import (
	"fmt"

	"github.com/skanders/thermoflow/internal/fluid"
	"github.com/skanders/thermoflow/internal/netw"
)

// Separator splits one stream into outlets of differing composition,
// e.g. an ideal drying or gas separation step. The outlet compositions are
// typically specified on the connections; fluid-wise mass balances and
// outlet temperature equality close the system.
type Separator struct {
	base
	num int
}

// NewSeparator creates a separator with inlet "in1" and num outlets
// "out1".."outN".
func NewSeparator(label string, num int) *Separator {
	if num < 2 {
		num = 2
	}
	return &Separator{base: base{label: label}, num: num}
}

func (s *Separator) TypeName() string { return "separator" }
func (s *Separator) Inlets() []string { return []string{"in1"} }

func (s *Separator) Outlets() []string {
	slots := make([]string, s.num)
	for i := range slots {
		slots[i] = fmt.Sprintf("out%d", i+1)
	}
	return slots
}

// ChangesComposition stops composition propagation across the node.
func (s *Separator) ChangesComposition() bool { return true }

func (s *Separator) Preprocess(nw *netw.Network) error {
	if len(nw.Fluids) < 2 {
		return fmt.Errorf("comps: separator %s needs a mixture network", s.label)
	}
	s.numEq = 1 + len(nw.Fluids) + 2*s.num // mass, fluid balances, T and p per outlet
	return nil
}

func (s *Separator) Equations(sys *netw.System) {
	in := s.inl[0]

	s.massFlowEq(sys)

	// fluid-wise mass balance over all outlets
	for _, f := range sys.Fluids() {
		res := in.M.SI * in.Fluid.Val[f]
		row := sys.AddEq(0)
		sys.SetDeriv(row, in, netw.VarM, in.Fluid.Val[f])
		sys.SetFluidDeriv(row, in, f, in.M.SI)
		for _, out := range s.outl {
			res -= out.M.SI * out.Fluid.Val[f]
			sys.SetDeriv(row, out, netw.VarM, -out.Fluid.Val[f])
			sys.SetFluidDeriv(row, out, f, -out.M.SI)
		}
		sys.Residual[row] = res
	}

	// outlet temperatures equal the inlet temperature
	for _, out := range s.outl {
		out := out
		fn := func() float64 {
			return fluid.TMixPH(in.Flow(), in.T.SI) - fluid.TMixPH(out.Flow(), out.T.SI)
		}
		row := sys.AddEqLazy(fn)
		for _, c := range []*netw.Connection{in, out} {
			if !sys.Filtered(c, netw.VarP) {
				sys.NumericDeriv(row, fn, c, netw.VarP)
			}
			sys.NumericDeriv(row, fn, c, netw.VarH)
		}
		sys.NumericFluidDeriv(row, fn, in)
		sys.NumericFluidDeriv(row, fn, out)
	}

	// pressure equality
	for _, out := range s.outl {
		row := sys.AddEq(in.P.SI - out.P.SI)
		sys.SetDeriv(row, in, netw.VarP, 1)
		sys.SetDeriv(row, out, netw.VarP, -1)
	}
}

func (s *Separator) ConvergenceCheck(*netw.Network) {
	for _, c := range s.outl {
		if !c.M.Set && c.M.SI <= 0 {
			c.M.SI = 0.01
		}
	}
}

func (s *Separator) CalcParameters(*netw.Network) {}
