package comps

import (
	"fmt"

	"github.com/skanders/thermoflow/internal/charline"
)

// ParamSetter lets case files address component parameters by name.
type ParamSetter interface {
	SetParam(name string, value float64) error
}

// CharSetter lets case files attach characteristic lines by name; a nil
// line activates the registered default curve.
type CharSetter interface {
	SetChar(name string, line *charline.Line) error
}

// VarSetter promotes a parameter to a bounded system variable.
type VarSetter interface {
	SetVar(name string, start, min, max float64) error
}

func setNamed(params map[string]*Param, typeName, name string, v float64) error {
	p, ok := params[name]
	if !ok {
		return fmt.Errorf("comps: %s has no parameter %q", typeName, name)
	}
	p.Specify(v)
	return nil
}

func makeNamedVar(params map[string]*Param, typeName, name string, start, min, max float64) error {
	p, ok := params[name]
	if !ok {
		return fmt.Errorf("comps: %s has no parameter %q", typeName, name)
	}
	p.MakeVar(start, min, max)
	return nil
}

func (t *Turbine) SetParam(name string, v float64) error {
	return setNamed(t.params(), t.TypeName(), name, v)
}

func (t *Turbine) SetChar(name string, line *charline.Line) error {
	if name != "eta_s_char" {
		return fmt.Errorf("comps: turbine has no characteristic %q", name)
	}
	t.EtaSChar.Specify(line)
	return nil
}

func (cp *Compressor) SetParam(name string, v float64) error {
	return setNamed(cp.params(), cp.TypeName(), name, v)
}

func (cp *Compressor) SetChar(name string, line *charline.Line) error {
	if name != "eta_s_char" {
		return fmt.Errorf("comps: compressor has no characteristic %q", name)
	}
	cp.EtaSChar.Specify(line)
	return nil
}

func (p *Pump) SetParam(name string, v float64) error {
	return setNamed(p.params(), p.TypeName(), name, v)
}

func (p *Pump) SetChar(name string, line *charline.Line) error {
	if name != "eta_s_char" {
		return fmt.Errorf("comps: pump has no characteristic %q", name)
	}
	p.EtaSChar.Specify(line)
	return nil
}

func (v *Valve) SetParam(name string, val float64) error {
	return setNamed(v.params(), v.TypeName(), name, val)
}

func (v *Valve) SetVar(name string, start, min, max float64) error {
	return makeNamedVar(v.params(), v.TypeName(), name, start, min, max)
}

func (t *Turbine) SetVar(name string, start, min, max float64) error {
	return makeNamedVar(t.params(), t.TypeName(), name, start, min, max)
}

func (cp *Compressor) SetVar(name string, start, min, max float64) error {
	return makeNamedVar(cp.params(), cp.TypeName(), name, start, min, max)
}

func (p *Pump) SetVar(name string, start, min, max float64) error {
	return makeNamedVar(p.params(), p.TypeName(), name, start, min, max)
}

func (h *SimpleHeatExchanger) SetVar(name string, start, min, max float64) error {
	return makeNamedVar(h.params(), h.TypeName(), name, start, min, max)
}

func (h *HeatExchanger) SetVar(name string, start, min, max float64) error {
	return makeNamedVar(h.params(), h.TypeName(), name, start, min, max)
}

func (h *SimpleHeatExchanger) SetParam(name string, v float64) error {
	if name == "Tamb" {
		h.Tamb.Specify(v)
		return nil
	}
	return setNamed(h.params(), h.TypeName(), name, v)
}

func (h *SimpleHeatExchanger) SetChar(name string, line *charline.Line) error {
	if name != "kA_char" {
		return fmt.Errorf("comps: simple heat exchanger has no characteristic %q", name)
	}
	h.KAChar.Specify(line)
	return nil
}

func (h *HeatExchanger) SetParam(name string, v float64) error {
	return setNamed(h.params(), h.TypeName(), name, v)
}

func (h *HeatExchanger) SetChar(name string, line *charline.Line) error {
	switch name {
	case "kA_char":
		h.SetKAChar(&CharParam{Line: line, Set: true}, &CharParam{Line: line, Set: true})
	case "kA_char1":
		h.SetKAChar(&CharParam{Line: line, Set: true}, nil)
	case "kA_char2":
		h.SetKAChar(nil, &CharParam{Line: line, Set: true})
	default:
		return fmt.Errorf("comps: heat exchanger has no characteristic %q", name)
	}
	return nil
}
