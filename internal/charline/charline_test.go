package charline

import (
	"math"
	"testing"
)

func TestLineInterpolation(t *testing.T) {
	l, err := NewLine([]float64{0, 1, 2}, []float64{0, 10, 40})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		x    float64
		want float64
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{1.5, 25},
		{2, 40},
		{-1, 0},  // clamped
		{3, 40},  // clamped
	}

	for _, tt := range tests {
		if got := l.Evaluate(tt.x); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Evaluate(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestLineValidation(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
	}{
		{"length mismatch", []float64{0, 1}, []float64{0}},
		{"too short", []float64{0}, []float64{0}},
		{"unsorted", []float64{1, 0}, []float64{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLine(tt.x, tt.y); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDefaultsEvaluateToOneAtDesign(t *testing.T) {
	for _, name := range []string{"turbine eta_s", "compressor eta_s", "pump eta_s", "heat exchanger kA", "condenser kA"} {
		l, err := Default(name)
		if err != nil {
			t.Fatal(err)
		}
		if got := l.Evaluate(1.0); math.Abs(got-1.0) > 1e-12 {
			t.Errorf("%s at design point = %v, want 1", name, got)
		}
	}
}

func TestDefaultIsACopy(t *testing.T) {
	a, _ := Default("turbine eta_s")
	a.Y[0] = -99
	b, _ := Default("turbine eta_s")
	if b.Y[0] == -99 {
		t.Error("Default returned shared slice")
	}
}

func TestMapEvaluate(t *testing.T) {
	m, err := NewMap(
		[]float64{0, 1},
		[][]float64{{0, 1}, {0, 1}},
		[][]float64{{0, 10}, {10, 20}},
	)
	if err != nil {
		t.Fatal(err)
	}

	if got := m.Evaluate(0, 0.5); math.Abs(got-5) > 1e-12 {
		t.Errorf("Evaluate(0, 0.5) = %v, want 5", got)
	}
	if got := m.Evaluate(0.5, 0.5); math.Abs(got-10) > 1e-12 {
		t.Errorf("Evaluate(0.5, 0.5) = %v, want 10", got)
	}
	if got := m.Evaluate(2, 1); math.Abs(got-20) > 1e-12 {
		t.Errorf("Evaluate(2, 1) = %v, want 20", got)
	}
}
