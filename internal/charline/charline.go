// Package charline implements characteristic lines and maps: lookup
// curves that modify component behavior as a function of the operating
// point, e.g. isentropic efficiency over the load ratio or the kA
// correction of a heat exchanger over relative mass flow.
package charline

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
)

// Line is a piecewise-linear characteristic y(x). X must be strictly
// increasing. Evaluation outside the sampled range clamps to the boundary
// values, which is logged once per line.
type Line struct {
	X []float64 `yaml:"x"`
	Y []float64 `yaml:"y"`

	warned bool
}

// NewLine validates the sample vectors and returns the line.
func NewLine(x, y []float64) (*Line, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("charline: x and y must have equal length, got %d and %d", len(x), len(y))
	}
	if len(x) < 2 {
		return nil, fmt.Errorf("charline: need at least two samples, got %d", len(x))
	}
	if !sort.Float64sAreSorted(x) {
		return nil, fmt.Errorf("charline: x samples must be increasing")
	}
	return &Line{X: x, Y: y}, nil
}

// Evaluate interpolates the characteristic at x.
func (l *Line) Evaluate(x float64) float64 {
	n := len(l.X)
	if x <= l.X[0] {
		l.warnOnce(x)
		return l.Y[0]
	}
	if x >= l.X[n-1] {
		if x > l.X[n-1] {
			l.warnOnce(x)
		}
		return l.Y[n-1]
	}
	i := sort.SearchFloat64s(l.X, x)
	t := (x - l.X[i-1]) / (l.X[i] - l.X[i-1])
	return l.Y[i-1] + t*(l.Y[i]-l.Y[i-1])
}

func (l *Line) warnOnce(x float64) {
	if l.warned {
		return
	}
	l.warned = true
	log.Debug("characteristic line evaluated outside sampled range, clamping", "x", x, "xmin", l.X[0], "xmax", l.X[len(l.X)-1])
}

// Map is a two-dimensional characteristic: for each x sample a full line
// over y is stored. Evaluation interpolates between the two nearest rows.
type Map struct {
	X []float64   `yaml:"x"`
	Y [][]float64 `yaml:"y"`
	Z [][]float64 `yaml:"z"`
}

// NewMap validates the sample grid and returns the map.
func NewMap(x []float64, y, z [][]float64) (*Map, error) {
	if len(x) != len(y) || len(x) != len(z) {
		return nil, fmt.Errorf("charline: map needs one y and z row per x sample")
	}
	if len(x) < 2 {
		return nil, fmt.Errorf("charline: map needs at least two x samples")
	}
	for i := range y {
		if len(y[i]) != len(z[i]) {
			return nil, fmt.Errorf("charline: map row %d has mismatched y and z length", i)
		}
	}
	if !sort.Float64sAreSorted(x) {
		return nil, fmt.Errorf("charline: map x samples must be increasing")
	}
	return &Map{X: x, Y: y, Z: z}, nil
}

// Evaluate interpolates z(x, y).
func (m *Map) Evaluate(x, y float64) float64 {
	n := len(m.X)
	row := func(i int, y float64) float64 {
		l := Line{X: m.Y[i], Y: m.Z[i], warned: true}
		return l.Evaluate(y)
	}
	if x <= m.X[0] {
		return row(0, y)
	}
	if x >= m.X[n-1] {
		return row(n-1, y)
	}
	i := sort.SearchFloat64s(m.X, x)
	t := (x - m.X[i-1]) / (m.X[i] - m.X[i-1])
	return row(i-1, y) + t*(row(i, y)-row(i-1, y))
}
