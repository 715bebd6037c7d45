//go:build cuda

package compute

/*
#cgo CFLAGS: -I/opt/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L${SRCDIR} -lcudart -lkernels -lstdc++
#include <stdlib.h>

extern int cuda_device_count();
extern const char* cuda_device_name_get();
extern int lu_solve_gpu(double* a, double* b, double* x, int n);
*/
import "C"
import "unsafe"

type CUDABackend struct {
	available  bool
	deviceName string
}

func NewCUDABackend() *CUDABackend {
	count := int(C.cuda_device_count())
	name := ""
	if count > 0 {
		name = C.GoString(C.cuda_device_name_get())
	}
	return &CUDABackend{
		available:  count > 0,
		deviceName: name,
	}
}

func (c *CUDABackend) Name() string {
	if c.available {
		return "cuda (" + c.deviceName + ")"
	}
	return "cuda (not available)"
}

func (c *CUDABackend) Available() bool { return c.available }
func (c *CUDABackend) Cleanup()        {}

func (c *CUDABackend) SolveLinear(a [][]float64, b []float64) ([]float64, error) {
	if !c.available {
		cpu := NewCPUBackend()
		return cpu.SolveLinear(a, b)
	}

	n := len(b)
	flat := make([]float64, n*n)
	for i := range a {
		copy(flat[i*n:(i+1)*n], a[i])
	}
	rhs := make([]float64, n)
	copy(rhs, b)
	x := make([]float64, n)

	rc := C.lu_solve_gpu(
		(*C.double)(unsafe.Pointer(&flat[0])),
		(*C.double)(unsafe.Pointer(&rhs[0])),
		(*C.double)(unsafe.Pointer(&x[0])),
		C.int(n),
	)
	if rc != 0 {
		return nil, ErrSingular
	}
	return x, nil
}

func (c *CUDABackend) MatVecMul(mat [][]float64, vec []float64) []float64 {
	cpu := NewCPUBackend()
	return cpu.MatVecMul(mat, vec)
}
