//go:build !cuda

package compute

type CUDABackend struct{}

func NewCUDABackend() *CUDABackend {
	return &CUDABackend{}
}

func (c *CUDABackend) Name() string    { return "cuda (not available)" }
func (c *CUDABackend) Available() bool { return false }
func (c *CUDABackend) Cleanup()        {}

func (c *CUDABackend) SolveLinear(a [][]float64, b []float64) ([]float64, error) {
	cpu := NewCPUBackend()
	return cpu.SolveLinear(a, b)
}

func (c *CUDABackend) MatVecMul(mat [][]float64, vec []float64) []float64 {
	cpu := NewCPUBackend()
	return cpu.MatVecMul(mat, vec)
}
