// Package config reads and writes YAML case files describing a complete
// network: fluids, components, connections, busses and solver options.
package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/skanders/thermoflow/internal/netw"
)

// Case is the YAML representation of a network setup.
type Case struct {
	Name   string          `yaml:"name"`
	Fluids []string        `yaml:"fluids"`
	Units  netw.UnitSystem `yaml:"units"`

	Ranges map[string][2]float64 `yaml:"ranges,omitempty"`

	Characteristics map[string]CharSpec `yaml:"characteristics,omitempty"`
	Components      []CompSpec          `yaml:"components"`
	Connections     []ConnSpec          `yaml:"connections"`
	Busses          []BusSpec           `yaml:"busses,omitempty"`

	Solver SolverSpec `yaml:"solver"`
}

// CharSpec is a custom characteristic line shipped with the case.
type CharSpec struct {
	X []float64 `yaml:"x"`
	Y []float64 `yaml:"y"`
}

// CompSpec describes one component instance.
type CompSpec struct {
	Label string `yaml:"label"`
	Type  string `yaml:"type"`
	// Num is the inlet count of a merge or the outlet count of a
	// splitter/separator.
	Num int `yaml:"num,omitempty"`

	Params map[string]float64 `yaml:"params,omitempty"`
	// Chars maps characteristic slots to curve names: a key from
	// Characteristics, a registered default name, or "default".
	Chars map[string]string  `yaml:"chars,omitempty"`
	Vars  map[string]VarSpec `yaml:"vars,omitempty"`

	Design    []string `yaml:"design,omitempty"`
	Offdesign []string `yaml:"offdesign,omitempty"`
}

// VarSpec promotes a parameter to a bounded system variable.
type VarSpec struct {
	Start float64 `yaml:"start"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
}

// ValueSpec is a property specification with an optional unit; plain
// scalars use the case's unit system.
type ValueSpec struct {
	Value float64 `yaml:"value"`
	Unit  string  `yaml:"unit,omitempty"`
}

// UnmarshalYAML accepts either a bare number or a {value, unit} mapping.
func (v *ValueSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&v.Value)
	}
	type plain ValueSpec
	return node.Decode((*plain)(v))
}

// RefSpec specifies a property relative to another connection.
type RefSpec struct {
	Prop   string  `yaml:"prop"`
	Conn   string  `yaml:"conn"`
	Factor float64 `yaml:"factor"`
	Delta  float64 `yaml:"delta"`
}

// ConnSpec describes one connection with its specifications.
type ConnSpec struct {
	Label  string `yaml:"label,omitempty"`
	Source string `yaml:"source"`
	Out    string `yaml:"out"`
	Target string `yaml:"target"`
	In     string `yaml:"in"`

	M    *ValueSpec `yaml:"m,omitempty"`
	P    *ValueSpec `yaml:"p,omitempty"`
	H    *ValueSpec `yaml:"h,omitempty"`
	T    *ValueSpec `yaml:"T,omitempty"`
	X    *ValueSpec `yaml:"x,omitempty"`
	V    *ValueSpec `yaml:"v,omitempty"`
	TdBP *ValueSpec `yaml:"Td_bp,omitempty"`

	Fluid   map[string]float64 `yaml:"fluid,omitempty"`
	Balance bool               `yaml:"balance,omitempty"`
	State   string             `yaml:"state,omitempty"`

	Refs []RefSpec `yaml:"refs,omitempty"`
}

// BusSpec describes an energy bus.
type BusSpec struct {
	Label   string         `yaml:"label"`
	P       *float64       `yaml:"p,omitempty"`
	Entries []BusEntrySpec `yaml:"entries"`
}

// BusEntrySpec couples one component to the bus.
type BusEntrySpec struct {
	Component string `yaml:"component"`
	Char      string `yaml:"char,omitempty"`
	Base      string `yaml:"base,omitempty"`
}

// SolverSpec maps onto netw.SolveOptions.
type SolverSpec struct {
	Mode               string `yaml:"mode"`
	MaxIter            int    `yaml:"max_iter"`
	MinIter            int    `yaml:"min_iter"`
	AlwaysAllEquations *bool  `yaml:"always_all_equations,omitempty"`
	UseCUDA            bool   `yaml:"use_cuda,omitempty"`
	InitPath           string `yaml:"init_path,omitempty"`
	DesignPath         string `yaml:"design_path,omitempty"`
	IterInfo           *bool  `yaml:"iter_info,omitempty"`
}

// DefaultSolverOptions returns the solver defaults used when the case file
// leaves options out.
func DefaultSolverOptions() netw.SolveOptions { return netw.DefaultSolveOptions() }

// Options merges the configured solver settings over the defaults.
func (s SolverSpec) Options() netw.SolveOptions {
	opts := netw.DefaultSolveOptions()
	if s.MaxIter > 0 {
		opts.MaxIter = s.MaxIter
	}
	if s.MinIter > 0 {
		opts.MinIter = s.MinIter
	}
	if s.AlwaysAllEquations != nil {
		opts.AlwaysAllEquations = *s.AlwaysAllEquations
	}
	if s.IterInfo != nil {
		opts.IterInfo = *s.IterInfo
	}
	opts.UseCUDA = s.UseCUDA
	opts.InitPath = s.InitPath
	opts.DesignPath = s.DesignPath
	return opts
}

// Mode returns the solve mode, defaulting to design.
func (s SolverSpec) SolveMode() string {
	if s.Mode == "" {
		return "design"
	}
	return s.Mode
}

// Load reads and validates a case file.
func Load(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading case file")
	}
	var c Case
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "parsing case file")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the case as YAML.
func (c *Case) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding case")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "writing case file")
}

// Validate checks the case for structural problems before building.
func (c *Case) Validate() error {
	if len(c.Fluids) == 0 {
		return fmt.Errorf("config: case needs at least one fluid")
	}
	if len(c.Components) == 0 {
		return fmt.Errorf("config: case has no components")
	}
	labels := map[string]bool{}
	for _, cs := range c.Components {
		if cs.Label == "" {
			return fmt.Errorf("config: component without label")
		}
		if labels[cs.Label] {
			return fmt.Errorf("config: duplicate component label %q", cs.Label)
		}
		labels[cs.Label] = true
		if _, ok := registry[cs.Type]; !ok {
			return fmt.Errorf("config: unknown component type %q for %s", cs.Type, cs.Label)
		}
	}
	for i, cn := range c.Connections {
		if !labels[cn.Source] {
			return fmt.Errorf("config: connection %d references unknown source %q", i, cn.Source)
		}
		if !labels[cn.Target] {
			return fmt.Errorf("config: connection %d references unknown target %q", i, cn.Target)
		}
	}
	for _, b := range c.Busses {
		for _, e := range b.Entries {
			if !labels[e.Component] {
				return fmt.Errorf("config: bus %s references unknown component %q", b.Label, e.Component)
			}
		}
	}
	switch c.Solver.Mode {
	case "", "design", "offdesign":
	default:
		return fmt.Errorf("config: unknown solver mode %q", c.Solver.Mode)
	}
	return nil
}
