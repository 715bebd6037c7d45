package netw

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"

	"github.com/skanders/thermoflow/internal/fluid"
)

// generic SI starting values when neither the user nor the adjacent
// components have an opinion
const (
	defaultM0 = 1.0
	defaultP0 = 1e5
	defaultH0 = 3e5
)

func (nw *Network) initialise(opts SolveOptions) error {
	if !nw.checked {
		if err := nw.CheckTopology(); err != nil {
			return err
		}
	}

	if !opts.InitPrevious {
		for _, c := range nw.conns {
			c.goodStart = false
			c.M.Val0, c.P.Val0, c.H.Val0 = 0, 0, 0
		}
	}

	if err := nw.initSetProperties(); err != nil {
		return err
	}

	if opts.DesignPath != "" {
		if err := nw.loadDesign(opts.DesignPath); err != nil {
			return err
		}
	}

	nw.numConnVars = 3
	if len(nw.Fluids) > 1 {
		nw.numConnVars += len(nw.Fluids)
	}

	nw.initFluids()

	if opts.InitPath != "" {
		if err := nw.loadInit(opts.InitPath); err != nil {
			return err
		}
	}

	nw.initProperties()

	// component preprocessing: equation counts, characteristic binding,
	// custom variable columns
	nw.numCompEq = 0
	nw.numCompVars = 0
	nw.compVars = nw.compVars[:0]
	for _, cp := range nw.comps {
		if err := cp.Preprocess(nw); err != nil {
			return fmt.Errorf("component %s: %w", cp.Label(), err)
		}
		nw.numCompEq += cp.NumEq()
		for _, v := range cp.Vars() {
			nw.compVars = append(nw.compVars, v)
			nw.numCompVars++
		}
	}

	nw.numConnEq = 0
	for _, c := range nw.conns {
		nw.numConnEq += nw.countConnEquations(c)
	}

	nw.numBusEq = 0
	for _, b := range nw.busses {
		if b.P.Set {
			nw.numBusEq++
		}
		for _, e := range b.Entries {
			if e.PRef == 0 && nw.mode == "offdesign" {
				e.PRef = e.Comp.EnergyFlow()
			}
		}
	}

	nw.numVars = nw.numConnVars*len(nw.conns) + nw.numCompVars
	for i, v := range nw.compVars {
		v.col = nw.numConnVars*len(nw.conns) + i
	}

	total := nw.numCompEq + nw.numConnEq + nw.numBusEq
	log.Debug("equation count",
		"component", nw.numCompEq, "connection", nw.numConnEq,
		"bus", nw.numBusEq, "variables", nw.numVars)
	if total < nw.numVars {
		return fmt.Errorf("%w: %d equations for %d variables", ErrUnderdetermined, total, nw.numVars)
	}
	if total > nw.numVars {
		return fmt.Errorf("%w: %d equations for %d variables", ErrOverdetermined, total, nw.numVars)
	}
	return nil
}

// initSetProperties converts user-specified values into SI.
func (nw *Network) initSetProperties() error {
	for _, c := range nw.conns {
		for _, prop := range []string{"m", "p", "h", "T", "v", "Td_bp"} {
			p := c.prop(prop)
			if !p.Set {
				continue
			}
			si, err := nw.Units.ToSI(prop, p.Val, p.Unit)
			if err != nil {
				return fmt.Errorf("connection %s: %w", c.Label, err)
			}
			p.SI = si
		}
		if c.X.Set {
			if c.X.Val < 0 || c.X.Val > 1 {
				return fmt.Errorf("netw: vapor quality on %s must be in [0, 1], got %g", c.Label, c.X.Val)
			}
			c.X.SI = c.X.Val
		}
	}
	return nil
}

// initFluids completes composition vectors and propagates set compositions
// through the graph.
func (nw *Network) initFluids() {
	for _, c := range nw.conns {
		for _, f := range nw.Fluids {
			if _, ok := c.Fluid.Val[f]; !ok {
				c.Fluid.Val[f] = 0
			}
		}
	}

	if len(nw.Fluids) == 1 {
		f := nw.Fluids[0]
		for _, c := range nw.conns {
			c.Fluid.Val[f] = 1
		}
		return
	}

	// push known compositions through pass-through components until the
	// picture stops changing
	for range nw.comps {
		changed := false
		for _, cp := range nw.comps {
			if cc, ok := cp.(CompositionChanger); ok && cc.ChangesComposition() {
				continue
			}
			attached := nw.attachedConns(cp)
			var src *Connection
			for _, c := range attached {
				if compSum(c.Fluid.Val) > fluid.Eps {
					src = c
					break
				}
			}
			if src == nil {
				continue
			}
			for _, c := range attached {
				if c == src || compSum(c.Fluid.Val) > fluid.Eps {
					continue
				}
				for f, x := range src.Fluid.Val {
					if !c.Fluid.Set[f] {
						c.Fluid.Val[f] = x
					}
				}
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	// equal distribution as a last resort starting composition
	for _, c := range nw.conns {
		if compSum(c.Fluid.Val) < fluid.Eps {
			for _, f := range nw.Fluids {
				if !c.Fluid.Set[f] {
					c.Fluid.Val[f] = 1.0 / float64(len(nw.Fluids))
				}
			}
		}
		for f, x := range c.Fluid.Val {
			c.Fluid.Val0[f] = x
		}
	}
	log.Debug("fluid initialisation done")
}

func compSum(comp map[string]float64) float64 {
	sum := 0.0
	for _, x := range comp {
		sum += x
	}
	return sum
}

func (nw *Network) attachedConns(cp Component) []*Connection {
	var out []*Connection
	for _, c := range nw.conns {
		if c.Source == cp || c.Target == cp {
			out = append(out, c)
		}
	}
	return out
}

// initProperties fills starting values for the primary variables and
// precalculates enthalpy at points of given temperature, quality or
// boiling point distance.
func (nw *Network) initProperties() {
	for _, c := range nw.conns {
		for _, prop := range []string{"m", "p", "h"} {
			p := c.prop(prop)
			if p.Set {
				continue
			}
			if c.goodStart && p.SI > 0 {
				continue
			}
			if p.Val0 != 0 {
				si, err := nw.Units.ToSI(prop, p.Val0, p.Unit)
				if err == nil {
					p.SI = si
					continue
				}
			}
			p.SI = nw.startingValue(c, prop)
		}
	}

	for _, c := range nw.conns {
		if !c.goodStart {
			for _, prop := range []string{"m", "p", "h"} {
				p := c.prop(prop)
				if p.Ref != nil && !p.Set {
					p.SI = p.Ref.Conn.prop(prop).SI*p.Ref.Factor + p.Ref.Delta
				}
			}
			nw.precalcEnthalpy(c)
		}
		nw.applyStateHint(c)
	}
	log.Debug("generic fluid property specification complete")
}

func (nw *Network) startingValue(c *Connection, prop string) float64 {
	if prop == "m" {
		return defaultM0
	}
	sum, n := 0.0, 0
	if sv, ok := c.Source.(StartingValuer); ok {
		if v := sv.InitSource(c, prop); v > 0 {
			sum += v
			n++
		}
	}
	if sv, ok := c.Target.(StartingValuer); ok {
		if v := sv.InitTarget(c, prop); v > 0 {
			sum += v
			n++
		}
	}
	if n > 0 {
		return sum / float64(n)
	}
	if prop == "p" {
		return defaultP0
	}
	return defaultH0
}

func (nw *Network) precalcEnthalpy(c *Connection) {
	if c.H.Set {
		return
	}
	flow := c.Flow()
	switch {
	case c.T.Set:
		c.H.SI = fluid.HMixPT(flow, c.T.SI)
	case c.X.Set:
		if h, err := fluid.HMixPQ(flow, c.X.SI); err == nil {
			c.H.SI = h
		}
	case c.TdBP.Set:
		if Ts, err := fluid.TBoilP(flow); err == nil {
			c.H.SI = fluid.HMixPT(flow, Ts+c.TdBP.SI)
		}
	}
	if math.IsNaN(c.H.SI) || c.H.SI == 0 {
		c.H.SI = defaultH0
	}
}

// applyStateHint pushes the starting enthalpy to the hinted side of the
// two phase dome.
func (nw *Network) applyStateHint(c *Connection) {
	if c.H.Set || (!c.StateSet && !c.TdBP.Set) {
		return
	}
	flow := c.Flow()
	gas := c.State == "g" || (c.TdBP.Set && c.TdBP.SI > 0)
	liquid := c.State == "l" || (c.TdBP.Set && c.TdBP.SI < 0)
	if gas {
		if h, err := fluid.HMixPQ(flow, 1); err == nil && c.H.SI < h {
			c.H.SI = h * 1.001
		}
	} else if liquid {
		if h, err := fluid.HMixPQ(flow, 0); err == nil && c.H.SI > h {
			c.H.SI = h * 0.999
		}
	}
}

func (nw *Network) countConnEquations(c *Connection) int {
	n := 0
	for _, p := range []*Param{&c.M, &c.P, &c.H, &c.T, &c.X, &c.V, &c.TdBP} {
		if p.Set {
			n++
		}
	}
	for _, p := range []*Param{&c.M, &c.P, &c.H, &c.T} {
		if p.Ref != nil {
			n++
		}
	}
	if len(nw.Fluids) > 1 {
		for _, set := range c.Fluid.Set {
			if set {
				n++
			}
		}
		if c.Fluid.Balance {
			n++
		}
	}
	return n
}
