package compute

import "errors"

// ErrSingular indicates a linear system without a unique solution.
var ErrSingular = errors.New("compute: matrix is singular to working precision")

type Backend interface {
	Name() string
	Available() bool
	// SolveLinear solves a*x = b for x. a is row-major and square.
	SolveLinear(a [][]float64, b []float64) ([]float64, error)
	MatVecMul(mat [][]float64, vec []float64) []float64
	Cleanup()
}

var activeBackend Backend

func init() {
	// Auto-select best available backend (CUDA if available, else CPU)
	activeBackend = AutoSelectBackend()
}

func SetBackend(b Backend) {
	if activeBackend != nil {
		activeBackend.Cleanup()
	}
	activeBackend = b
}

func GetBackend() Backend {
	return activeBackend
}

func AutoSelectBackend() Backend {
	cuda := NewCUDABackend()
	if cuda.Available() {
		return cuda
	}
	return NewCPUBackend()
}
