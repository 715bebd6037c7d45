package comps

import (
	"fmt"

	"github.com/skanders/thermoflow/internal/netw"
)

// Merge joins several streams into one, mixing their compositions. All
// pressures are equal across the node.
type Merge struct {
	base
	num int
}

// NewMerge creates a merge with num inlets "in1".."inN" and outlet "out1".
func NewMerge(label string, num int) *Merge {
	if num < 2 {
		num = 2
	}
	return &Merge{base: base{label: label}, num: num}
}

func (m *Merge) TypeName() string { return "merge" }

func (m *Merge) Inlets() []string {
	slots := make([]string, m.num)
	for i := range slots {
		slots[i] = fmt.Sprintf("in%d", i+1)
	}
	return slots
}

func (m *Merge) Outlets() []string { return []string{"out1"} }

// ChangesComposition stops composition propagation across the node.
func (m *Merge) ChangesComposition() bool { return true }

func (m *Merge) Preprocess(nw *netw.Network) error {
	m.numEq = 2 + m.num // mass, energy, pressure per inlet
	if len(nw.Fluids) > 1 {
		m.numEq += len(nw.Fluids)
	}
	return nil
}

func (m *Merge) Equations(sys *netw.System) {
	out := m.outl[0]

	m.massFlowEq(sys)

	// fluid-wise mass balance
	if sys.MixtureVars() {
		for _, f := range sys.Fluids() {
			res := -out.M.SI * out.Fluid.Val[f]
			row := sys.AddEq(0)
			for _, in := range m.inl {
				res += in.M.SI * in.Fluid.Val[f]
				sys.SetDeriv(row, in, netw.VarM, in.Fluid.Val[f])
				sys.SetFluidDeriv(row, in, f, in.M.SI)
			}
			sys.SetDeriv(row, out, netw.VarM, -out.Fluid.Val[f])
			sys.SetFluidDeriv(row, out, f, -out.M.SI)
			sys.Residual[row] = res
		}
	}

	// energy balance
	res := -out.M.SI * out.H.SI
	row := sys.AddEq(0)
	for _, in := range m.inl {
		res += in.M.SI * in.H.SI
		sys.SetDeriv(row, in, netw.VarM, in.H.SI)
		sys.SetDeriv(row, in, netw.VarH, in.M.SI)
	}
	sys.SetDeriv(row, out, netw.VarM, -out.H.SI)
	sys.SetDeriv(row, out, netw.VarH, -out.M.SI)
	sys.Residual[row] = res

	// pressure equality
	for _, in := range m.inl {
		row := sys.AddEq(in.P.SI - out.P.SI)
		sys.SetDeriv(row, in, netw.VarP, 1)
		sys.SetDeriv(row, out, netw.VarP, -1)
	}
}

// ConvergenceCheck keeps all streams flowing forward; a merge with a
// backwards inlet produces nonsense mixing states.
func (m *Merge) ConvergenceCheck(*netw.Network) {
	for _, c := range m.inl {
		if !c.M.Set && c.M.SI <= 0 {
			c.M.SI = 0.01
		}
	}
	for _, c := range m.outl {
		if !c.M.Set && c.M.SI <= 0 {
			c.M.SI = 0.01
		}
	}
}

func (m *Merge) CalcParameters(*netw.Network) {}
