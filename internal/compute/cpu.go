package compute

import (
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
)

type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
	}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}

func (c *CPUBackend) SolveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	dense := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		dense.SetRow(i, a[i])
	}

	var lu mat.LU
	lu.Factorize(dense)

	x := mat.NewVecDense(n, nil)
	if err := lu.SolveVecTo(x, false, mat.NewVecDense(n, b)); err != nil {
		// an exactly singular system reports an infinite condition number;
		// a finite Condition warning still carries a usable solution
		cond, ok := err.(mat.Condition)
		if !ok || math.IsInf(float64(cond), 1) {
			return nil, ErrSingular
		}
	}

	result := make([]float64, n)
	copy(result, x.RawVector().Data)
	return result, nil
}

func (c *CPUBackend) MatVecMul(matrix [][]float64, vec []float64) []float64 {
	rows := len(matrix)
	result := make([]float64, rows)

	if rows < 16 {
		for i := 0; i < rows; i++ {
			sum := 0.0
			for j := 0; j < len(vec); j++ {
				if j < len(matrix[i]) {
					sum += matrix[i][j] * vec[j]
				}
			}
			result[i] = sum
		}
		return result
	}

	var wg sync.WaitGroup
	chunkSize := (rows + c.workers - 1) / c.workers

	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			start := worker * chunkSize
			end := start + chunkSize
			if end > rows {
				end = rows
			}

			for i := start; i < end; i++ {
				sum := 0.0
				for j := 0; j < len(vec); j++ {
					if j < len(matrix[i]) {
						sum += matrix[i][j] * vec[j]
					}
				}
				result[i] = sum
			}
		}(w)
	}

	wg.Wait()
	return result
}
