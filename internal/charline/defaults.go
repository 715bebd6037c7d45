package charline

import (
	"fmt"
	"sort"
)

// Default characteristics shipped with the solver. Curves are generic
// shapes over the relative operating point (1.0 = design).
var defaults = map[string]*Line{
	"turbine eta_s": {
		X: []float64{0.0, 0.2, 0.4, 0.6, 0.8, 1.0, 1.2, 1.4},
		Y: []float64{0.50, 0.74, 0.88, 0.96, 0.99, 1.00, 0.99, 0.96},
	},
	"compressor eta_s": {
		X: []float64{0.0, 0.4, 0.6, 0.8, 1.0, 1.2, 1.4},
		Y: []float64{0.50, 0.82, 0.92, 0.98, 1.00, 0.98, 0.92},
	},
	"pump eta_s": {
		X: []float64{0.0, 0.25, 0.5, 0.75, 1.0, 1.25, 1.5},
		Y: []float64{0.48, 0.79, 0.93, 0.99, 1.00, 0.98, 0.90},
	},
	"heat exchanger kA": {
		X: []float64{0.0, 0.25, 0.5, 0.75, 1.0, 1.5, 2.0},
		Y: []float64{0.03, 0.45, 0.70, 0.87, 1.00, 1.19, 1.34},
	},
	"condenser kA": {
		X: []float64{0.0, 0.25, 0.5, 0.75, 1.0, 1.5, 2.0},
		Y: []float64{0.03, 0.49, 0.73, 0.89, 1.00, 1.17, 1.30},
	},
	"generator eta": {
		X: []float64{0.0, 0.2, 0.4, 0.6, 0.8, 1.0, 1.2},
		Y: []float64{0.92, 0.94, 0.96, 0.97, 0.98, 0.975, 0.97},
	},
}

// Default returns a copy of a registered default characteristic.
func Default(name string) (*Line, error) {
	l, ok := defaults[name]
	if !ok {
		return nil, fmt.Errorf("charline: no default characteristic %q", name)
	}
	x := make([]float64, len(l.X))
	y := make([]float64, len(l.Y))
	copy(x, l.X)
	copy(y, l.Y)
	return &Line{X: x, Y: y}, nil
}

// DefaultNames lists the registered default characteristics.
func DefaultNames() []string {
	names := make([]string, 0, len(defaults))
	for n := range defaults {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
