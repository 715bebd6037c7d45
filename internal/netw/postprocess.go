package netw

import (
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/skanders/thermoflow/internal/fluid"
)

// postprocess derives all secondary quantities from the converged primary
// variables and lets the components fill their unset parameters.
func (nw *Network) postprocess() {
	for _, c := range nw.conns {
		flow := c.Flow()

		c.T.SI = fluid.TMixPH(flow, c.T.SI)
		c.Vol.SI = fluid.VMixPH(flow, c.T.SI)
		c.V.SI = c.Vol.SI * c.M.SI
		c.S.SI = fluid.SMixPH(flow, c.T.SI)
		if math.IsNaN(c.T.SI) || math.IsNaN(c.Vol.SI) {
			log.Warn("could not evaluate fluid properties at the converged state",
				"connection", c.Label)
		}

		if single := fluid.SingleFluid(c.Fluid.Val); single != "" {
			if q, err := fluid.QPH(c.P.SI, c.H.SI, single); err == nil {
				c.X.SI = q
			} else {
				c.X.SI = math.NaN()
			}
		} else {
			c.X.SI = math.NaN()
		}

		for _, prop := range []string{"m", "p", "h", "T", "v"} {
			p := c.prop(prop)
			if v, err := nw.Units.FromSI(prop, p.SI, p.Unit); err == nil {
				p.Val = v
			}
			p.Val0 = p.Val
		}
		c.X.Val = c.X.SI
		for f, x := range c.Fluid.Val {
			c.Fluid.Val0[f] = x
		}

		if nw.mode == "design" {
			c.M.Design = c.M.SI
			c.P.Design = c.P.SI
			c.H.Design = c.H.SI
		}
		c.goodStart = true
	}

	for _, cp := range nw.comps {
		cp.CalcParameters(nw)
	}

	for _, b := range nw.busses {
		total := b.Total()
		if !b.P.Set {
			b.P.SI = total
			b.P.Val = total
		}
		if nw.mode == "design" {
			for _, e := range b.Entries {
				e.PRef = e.Comp.EnergyFlow()
			}
		}
	}
}

var (
	resultHeaderStyle = lipgloss.NewStyle().Bold(true)
	resultSetStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	resultTitleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// PrintResults writes the connection and bus result tables to stdout.
// With colored output, user-specified values are highlighted.
func (nw *Network) PrintResults(colored bool) {
	paint := func(s string, style lipgloss.Style) string {
		if !colored {
			return s
		}
		return style.Render(s)
	}

	fmt.Println(paint("Connections", resultTitleStyle))
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\n", paint(fmt.Sprintf("label\tm (%s)\tp (%s)\th (%s)\tT (%s)",
		nw.Units.Unit("m"), nw.Units.Unit("p"), nw.Units.Unit("h"), nw.Units.Unit("T")), resultHeaderStyle))
	for _, c := range nw.conns {
		cell := func(p *Param) string {
			s := fmt.Sprintf("%.4g", p.Val)
			if p.Set {
				return paint(s, resultSetStyle)
			}
			return s
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.Label, cell(&c.M), cell(&c.P), cell(&c.H), cell(&c.T))
	}
	w.Flush()

	nw.printComponentResults(paint)

	if len(nw.busses) > 0 {
		fmt.Println()
		fmt.Println(paint("Busses", resultTitleStyle))
		w = tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintf(w, "%s\n", paint("label\tcomponent\tvalue (W)", resultHeaderStyle))
		for _, b := range nw.busses {
			for _, e := range b.Entries {
				fmt.Fprintf(w, "%s\t%s\t%.4g\n", b.Label, e.Comp.Label(), e.Value())
			}
			total := fmt.Sprintf("%.4g", b.Total())
			if b.P.Set {
				total = paint(total, resultSetStyle)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", b.Label, "total", total)
		}
		w.Flush()
	}
}

// printComponentResults groups parameter tables by component type, one
// table per type with the union of reported parameters as columns.
func (nw *Network) printComponentResults(paint func(string, lipgloss.Style) string) {
	type reporter interface {
		ResultParameters() map[string]float64
	}

	byType := map[string][]Component{}
	var types []string
	for _, cp := range nw.comps {
		if _, ok := cp.(reporter); !ok {
			continue
		}
		if _, seen := byType[cp.TypeName()]; !seen {
			types = append(types, cp.TypeName())
		}
		byType[cp.TypeName()] = append(byType[cp.TypeName()], cp)
	}
	sort.Strings(types)

	for _, tn := range types {
		cols := map[string]bool{}
		for _, cp := range byType[tn] {
			for k := range cp.(reporter).ResultParameters() {
				cols[k] = true
			}
		}
		if len(cols) == 0 {
			continue
		}
		names := make([]string, 0, len(cols))
		for k := range cols {
			names = append(names, k)
		}
		sort.Strings(names)

		fmt.Println()
		fmt.Println(paint(tn, resultTitleStyle))
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		head := "label"
		for _, n := range names {
			head += "\t" + n
		}
		fmt.Fprintf(w, "%s\n", paint(head, resultHeaderStyle))
		for _, cp := range byType[tn] {
			params := cp.(reporter).ResultParameters()
			line := cp.Label()
			for _, n := range names {
				if v, ok := params[n]; ok {
					line += fmt.Sprintf("\t%.4g", v)
				} else {
					line += "\t-"
				}
			}
			fmt.Fprintln(w, line)
		}
		w.Flush()
	}
}
