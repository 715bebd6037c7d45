package comps

import (
	"fmt"

	"github.com/skanders/thermoflow/internal/netw"
)

// Splitter divides one stream into several with identical state and
// composition.
type Splitter struct {
	base
	num int
}

// NewSplitter creates a splitter with inlet "in1" and num outlets
// "out1".."outN".
func NewSplitter(label string, num int) *Splitter {
	if num < 2 {
		num = 2
	}
	return &Splitter{base: base{label: label}, num: num}
}

func (s *Splitter) TypeName() string { return "splitter" }
func (s *Splitter) Inlets() []string { return []string{"in1"} }

func (s *Splitter) Outlets() []string {
	slots := make([]string, s.num)
	for i := range slots {
		slots[i] = fmt.Sprintf("out%d", i+1)
	}
	return slots
}

func (s *Splitter) Preprocess(nw *netw.Network) error {
	s.numEq = 1 + 2*s.num // mass, pressure and enthalpy identity per outlet
	if len(nw.Fluids) > 1 {
		s.numEq += len(nw.Fluids) * s.num
	}
	return nil
}

func (s *Splitter) Equations(sys *netw.System) {
	in := s.inl[0]

	s.massFlowEq(sys)

	for _, out := range s.outl {
		if sys.MixtureVars() {
			for _, f := range sys.Fluids() {
				row := sys.AddEq(in.Fluid.Val[f] - out.Fluid.Val[f])
				sys.SetFluidDeriv(row, in, f, 1)
				sys.SetFluidDeriv(row, out, f, -1)
			}
		}
		row := sys.AddEq(in.P.SI - out.P.SI)
		sys.SetDeriv(row, in, netw.VarP, 1)
		sys.SetDeriv(row, out, netw.VarP, -1)

		row = sys.AddEq(in.H.SI - out.H.SI)
		sys.SetDeriv(row, in, netw.VarH, 1)
		sys.SetDeriv(row, out, netw.VarH, -1)
	}
}

func (s *Splitter) CalcParameters(*netw.Network) {}
