package netw

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// networkFile is the YAML snapshot of the network frame.
type networkFile struct {
	Fluids []string   `yaml:"fluids"`
	Mode   string     `yaml:"mode"`
	Units  UnitSystem `yaml:"units"`
}

const (
	networkFileName = "network.yaml"
	connFileName    = "connections.csv"
)

// Save writes the solved state to dir: the network frame as YAML and all
// connection states as CSV. A directory written after a design calculation
// serves as DesignPath or InitPath for later solves.
func (nw *Network) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating save directory")
	}

	frame := networkFile{Fluids: nw.Fluids, Mode: nw.mode, Units: nw.Units}
	buf, err := yaml.Marshal(frame)
	if err != nil {
		return errors.Wrap(err, "encoding network frame")
	}
	if err := os.WriteFile(filepath.Join(dir, networkFileName), buf, 0o644); err != nil {
		return errors.Wrap(err, "writing network frame")
	}

	f, err := os.Create(filepath.Join(dir, connFileName))
	if err != nil {
		return errors.Wrap(err, "creating connection table")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"label", "m", "p", "h"}
	header = append(header, nw.Fluids...)
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "writing connection table")
	}
	for _, c := range nw.conns {
		rec := []string{
			c.Label,
			strconv.FormatFloat(c.M.SI, 'g', -1, 64),
			strconv.FormatFloat(c.P.SI, 'g', -1, 64),
			strconv.FormatFloat(c.H.SI, 'g', -1, 64),
		}
		for _, name := range nw.Fluids {
			rec = append(rec, strconv.FormatFloat(c.Fluid.Val[name], 'g', -1, 64))
		}
		if err := w.Write(rec); err != nil {
			return errors.Wrap(err, "writing connection table")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "writing connection table")
	}
	log.Info("saved network state", "dir", dir)
	return nil
}

type connState struct {
	m, p, h float64
	fluid   map[string]float64
}

func readConnStates(dir string) (map[string]connState, error) {
	f, err := os.Open(filepath.Join(dir, connFileName))
	if err != nil {
		return nil, errors.Wrap(err, "opening connection table")
	}
	defer f.Close()

	r := csv.NewReader(f)
	recs, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading connection table")
	}
	if len(recs) < 1 || len(recs[0]) < 4 {
		return nil, errors.Errorf("connection table in %s is malformed", dir)
	}

	fluids := recs[0][4:]
	states := make(map[string]connState, len(recs)-1)
	for _, rec := range recs[1:] {
		if len(rec) != len(recs[0]) {
			return nil, errors.Errorf("connection record for %q has %d fields, want %d",
				rec[0], len(rec), len(recs[0]))
		}
		vals := make([]float64, len(rec)-1)
		for i, s := range rec[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing connection record for %q", rec[0])
			}
			vals[i] = v
		}
		st := connState{m: vals[0], p: vals[1], h: vals[2], fluid: map[string]float64{}}
		for i, name := range fluids {
			st.fluid[name] = vals[3+i]
		}
		states[rec[0]] = st
	}
	return states, nil
}

// loadInit seeds the starting values from a previously saved state.
// Connections missing from the file keep their generic starting values.
func (nw *Network) loadInit(dir string) error {
	states, err := readConnStates(dir)
	if err != nil {
		return fmt.Errorf("init values: %w", err)
	}
	hits := 0
	for _, c := range nw.conns {
		st, ok := states[c.Label]
		if !ok {
			continue
		}
		if !c.M.Set {
			c.M.SI = st.m
		}
		if !c.P.Set {
			c.P.SI = st.p
		}
		if !c.H.Set {
			c.H.SI = st.h
		}
		for name, x := range st.fluid {
			if !c.Fluid.Set[name] {
				if _, known := nw.fluidIndex[name]; known {
					c.Fluid.Val[name] = x
				}
			}
		}
		c.goodStart = true
		hits++
	}
	log.Info("loaded initial values", "dir", dir, "connections", hits)
	return nil
}

// loadDesign reads the design point for an offdesign calculation. Every
// connection must be present in the design state.
func (nw *Network) loadDesign(dir string) error {
	states, err := readConnStates(dir)
	if err != nil {
		return fmt.Errorf("design point: %w", err)
	}
	for _, c := range nw.conns {
		st, ok := states[c.Label]
		if !ok {
			return errors.Errorf("design point in %s has no state for connection %q", dir, c.Label)
		}
		c.M.Design = st.m
		c.P.Design = st.p
		c.H.Design = st.h
	}
	log.Info("loaded design point", "dir", dir)
	return nil
}
