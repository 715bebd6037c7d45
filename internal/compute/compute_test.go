package compute

import (
	"errors"
	"math"
	"testing"
)

func TestCPUSolveLinear(t *testing.T) {
	c := NewCPUBackend()

	a := [][]float64{
		{2, 1, 0},
		{1, 3, 1},
		{0, 1, 2},
	}
	b := []float64{3, 8, 5}

	x, err := c.SolveLinear(a, b)
	if err != nil {
		t.Fatal(err)
	}

	// verify a*x == b
	got := c.MatVecMul(a, x)
	for i := range b {
		if math.Abs(got[i]-b[i]) > 1e-10 {
			t.Errorf("row %d: a*x = %v, want %v", i, got[i], b[i])
		}
	}
}

func TestCPUSolveSingular(t *testing.T) {
	c := NewCPUBackend()

	a := [][]float64{
		{1, 2},
		{2, 4},
	}
	b := []float64{1, 2}

	if _, err := c.SolveLinear(a, b); !errors.Is(err, ErrSingular) {
		t.Errorf("expected ErrSingular, got %v", err)
	}
}

func TestMatVecMul(t *testing.T) {
	c := NewCPUBackend()

	mat := [][]float64{
		{1, 2},
		{3, 4},
	}
	vec := []float64{1, 1}

	result := c.MatVecMul(mat, vec)
	if result[0] != 3 || result[1] != 7 {
		t.Errorf("MatVecMul = %v, want [3 7]", result)
	}
}

func TestMatVecMulLarge(t *testing.T) {
	c := NewCPUBackend()

	n := 64
	mat := make([][]float64, n)
	vec := make([]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
		mat[i][i] = 2
		vec[i] = float64(i)
	}

	result := c.MatVecMul(mat, vec)
	for i := range result {
		if result[i] != 2*float64(i) {
			t.Fatalf("row %d: got %v, want %v", i, result[i], 2*float64(i))
		}
	}
}

func TestCUDAStubFallsBack(t *testing.T) {
	cuda := NewCUDABackend()
	if cuda.Available() {
		t.Skip("real device present")
	}

	a := [][]float64{{4}}
	b := []float64{8}
	x, err := cuda.SolveLinear(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x[0]-2) > 1e-12 {
		t.Errorf("x = %v, want 2", x[0])
	}
}

func TestSetBackendOverride(t *testing.T) {
	orig := GetBackend()
	defer SetBackend(orig)

	cpu := NewCPUBackend()
	SetBackend(cpu)
	if GetBackend() != Backend(cpu) {
		t.Error("SetBackend did not install the backend")
	}
}

func TestAutoSelectBackend(t *testing.T) {
	b := AutoSelectBackend()
	if b == nil {
		t.Fatal("no backend selected")
	}
	if !b.Available() {
		t.Error("selected backend reports unavailable")
	}
}

func BenchmarkSolveLinear(b *testing.B) {
	c := NewCPUBackend()
	n := 100
	a := make([][]float64, n)
	rhs := make([]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		a[i][i] = 4
		if i > 0 {
			a[i][i-1] = -1
		}
		if i < n-1 {
			a[i][i+1] = -1
		}
		rhs[i] = 1
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.SolveLinear(a, rhs); err != nil {
			b.Fatal(err)
		}
	}
}
