package config

import (
	"fmt"

	"github.com/skanders/thermoflow/internal/charline"
	"github.com/skanders/thermoflow/internal/comps"
	"github.com/skanders/thermoflow/internal/netw"
)

// registry maps case-file type names onto component constructors.
var registry = map[string]func(label string, num int) netw.Component{
	"source":                func(l string, _ int) netw.Component { return comps.NewSource(l) },
	"sink":                  func(l string, _ int) netw.Component { return comps.NewSink(l) },
	"turbine":               func(l string, _ int) netw.Component { return comps.NewTurbine(l) },
	"compressor":            func(l string, _ int) netw.Component { return comps.NewCompressor(l) },
	"pump":                  func(l string, _ int) netw.Component { return comps.NewPump(l) },
	"valve":                 func(l string, _ int) netw.Component { return comps.NewValve(l) },
	"simple heat exchanger": func(l string, _ int) netw.Component { return comps.NewSimpleHeatExchanger(l) },
	"heat exchanger":        func(l string, _ int) netw.Component { return comps.NewHeatExchanger(l) },
	"condenser":             func(l string, _ int) netw.Component { return comps.NewCondenser(l) },
	"merge":                 func(l string, n int) netw.Component { return comps.NewMerge(l, n) },
	"splitter":              func(l string, n int) netw.Component { return comps.NewSplitter(l, n) },
	"separator":             func(l string, n int) netw.Component { return comps.NewSeparator(l, n) },
}

// ComponentTypes lists the registered case-file type names.
func ComponentTypes() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}

// Build constructs the network described by the case.
func (c *Case) Build() (*netw.Network, error) {
	nw, err := netw.New(c.Fluids)
	if err != nil {
		return nil, err
	}
	if c.Units.Pressure != "" {
		nw.Units.Pressure = c.Units.Pressure
	}
	if c.Units.Temperature != "" {
		nw.Units.Temperature = c.Units.Temperature
	}
	if c.Units.Enthalpy != "" {
		nw.Units.Enthalpy = c.Units.Enthalpy
	}
	if c.Units.MassFlow != "" {
		nw.Units.MassFlow = c.Units.MassFlow
	}
	for prop, rng := range c.Ranges {
		if err := nw.SetRange(prop, rng[0], rng[1], ""); err != nil {
			return nil, err
		}
	}

	chars, err := c.buildChars()
	if err != nil {
		return nil, err
	}

	components := map[string]netw.Component{}
	for _, cs := range c.Components {
		comp := registry[cs.Type](cs.Label, cs.Num)
		if err := applySpec(comp, cs, chars); err != nil {
			return nil, err
		}
		components[cs.Label] = comp
	}

	connByLabel := map[string]*netw.Connection{}
	conns := make([]*netw.Connection, 0, len(c.Connections))
	for i, cn := range c.Connections {
		conn := netw.NewConnection(components[cn.Source], cn.Out, components[cn.Target], cn.In)
		if cn.Label != "" {
			conn.WithLabel(cn.Label)
		}
		if err := applyConnSpec(conn, cn); err != nil {
			return nil, fmt.Errorf("connection %d (%s): %w", i, conn.Label, err)
		}
		conns = append(conns, conn)
		connByLabel[conn.Label] = conn
	}
	// references resolve after all connections exist
	for i, cn := range c.Connections {
		for _, r := range cn.Refs {
			other, ok := connByLabel[r.Conn]
			if !ok {
				return nil, fmt.Errorf("connection %d references unknown connection %q", i, r.Conn)
			}
			factor := r.Factor
			if factor == 0 {
				factor = 1
			}
			if err := conns[i].SetRef(r.Prop, other, factor, r.Delta); err != nil {
				return nil, err
			}
		}
	}
	if err := nw.AddConns(conns...); err != nil {
		return nil, err
	}

	for _, bs := range c.Busses {
		bus := netw.NewBus(bs.Label)
		if bs.P != nil {
			bus.SetP(*bs.P)
		}
		for _, e := range bs.Entries {
			bc, ok := components[e.Component].(netw.BusComponent)
			if !ok {
				return nil, fmt.Errorf("config: component %s cannot feed a bus", e.Component)
			}
			var line *charline.Line
			if e.Char != "" {
				line, err = resolveCharName(e.Char, chars)
				if err != nil {
					return nil, err
				}
			}
			bus.Add(bc, line, e.Base)
		}
		if err := nw.AddBusses(bus); err != nil {
			return nil, err
		}
	}
	return nw, nil
}

func (c *Case) buildChars() (map[string]*charline.Line, error) {
	chars := map[string]*charline.Line{}
	for name, spec := range c.Characteristics {
		line, err := charline.NewLine(spec.X, spec.Y)
		if err != nil {
			return nil, fmt.Errorf("config: characteristic %q: %w", name, err)
		}
		chars[name] = line
	}
	return chars, nil
}

func resolveCharName(name string, chars map[string]*charline.Line) (*charline.Line, error) {
	if line, ok := chars[name]; ok {
		return line, nil
	}
	line, err := charline.Default(name)
	if err != nil {
		return nil, fmt.Errorf("config: unknown characteristic %q", name)
	}
	return line, nil
}

func applySpec(comp netw.Component, cs CompSpec, chars map[string]*charline.Line) error {
	for name, val := range cs.Params {
		ps, ok := comp.(comps.ParamSetter)
		if !ok {
			return fmt.Errorf("config: %s takes no parameters", cs.Label)
		}
		if err := ps.SetParam(name, val); err != nil {
			return err
		}
	}
	for slot, name := range cs.Chars {
		chs, ok := comp.(comps.CharSetter)
		if !ok {
			return fmt.Errorf("config: %s takes no characteristics", cs.Label)
		}
		var line *charline.Line
		if name != "" && name != "default" {
			var err error
			line, err = resolveCharName(name, chars)
			if err != nil {
				return err
			}
		}
		if err := chs.SetChar(slot, line); err != nil {
			return err
		}
	}
	for name, v := range cs.Vars {
		vs, ok := comp.(comps.VarSetter)
		if !ok {
			return fmt.Errorf("config: %s takes no variables", cs.Label)
		}
		if err := vs.SetVar(name, v.Start, v.Min, v.Max); err != nil {
			return err
		}
	}
	if len(cs.Design) > 0 || len(cs.Offdesign) > 0 {
		type designer interface{ SetDesignParams(design, offdesign []string) }
		d, ok := comp.(designer)
		if !ok {
			return fmt.Errorf("config: %s has no design/offdesign switching", cs.Label)
		}
		d.SetDesignParams(cs.Design, cs.Offdesign)
	}
	return nil
}

func applyConnSpec(conn *netw.Connection, cn ConnSpec) error {
	setOne := func(v *ValueSpec, set func(float64), p *netw.Param) {
		if v == nil {
			return
		}
		set(v.Value)
		p.Unit = v.Unit
	}
	setOne(cn.M, conn.SetM, &conn.M)
	setOne(cn.P, conn.SetP, &conn.P)
	setOne(cn.H, conn.SetH, &conn.H)
	setOne(cn.T, conn.SetT, &conn.T)
	setOne(cn.X, conn.SetX, &conn.X)
	setOne(cn.V, conn.SetV, &conn.V)
	setOne(cn.TdBP, conn.SetTdBP, &conn.TdBP)

	if len(cn.Fluid) > 0 {
		conn.SetFluid(cn.Fluid)
	}
	if cn.Balance {
		conn.SetFluidBalance()
	}
	if cn.State != "" {
		if cn.State != "l" && cn.State != "g" {
			return fmt.Errorf("state hint must be \"l\" or \"g\", got %q", cn.State)
		}
		conn.SetState(cn.State)
	}
	return nil
}
