// Package compute abstracts the linear-algebra backend of the Newton
// solver. The CPU backend factors the Jacobian with a dense LU from gonum;
// the CUDA backend offloads the solve when built with the cuda tag and a
// device is present, and falls back to the CPU otherwise.
package compute
