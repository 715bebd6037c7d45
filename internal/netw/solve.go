package netw

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/floats"

	"github.com/skanders/thermoflow/internal/compute"
	"github.com/skanders/thermoflow/internal/fluid"
)

// eps is the master tolerance: residual norms below sqrt(eps) count as
// converged, increments below eps^2 as numerically static.
const (
	eps   = 1e-4
	epsSq = eps * eps
)

// SolveOptions control the Newton iteration.
type SolveOptions struct {
	MaxIter int
	MinIter int
	// AlwaysAllEquations recomputes every residual in every iteration.
	// Disabling trades some robustness for speed on mixture networks.
	AlwaysAllEquations bool
	// UseCUDA moves the linear solve to the GPU backend when available.
	UseCUDA      bool
	InitOnly     bool
	InitPrevious bool
	InitPath     string
	DesignPath   string
	// IterInfo prints the convergence progress table.
	IterInfo bool
	// OnIteration, if set, receives the residual norm after every
	// iteration, e.g. for a live view.
	OnIteration func(iter int, residual float64)
}

// DefaultSolveOptions mirrors the solver's documented defaults.
func DefaultSolveOptions() SolveOptions {
	return SolveOptions{
		MaxIter:            50,
		MinIter:            4,
		AlwaysAllEquations: true,
		InitPrevious:       true,
		IterInfo:           true,
	}
}

// Report collects the convergence history of a solve.
type Report struct {
	Mode       string
	Iterations int
	Residuals  []float64
	Converged  bool
	Progress   bool
	SingularAt int // iteration of a singular jacobian, -1 otherwise
	Elapsed    time.Duration
	Backend    string
}

// Solve runs the Newton iteration; mode is "design" or "offdesign".
func (nw *Network) Solve(mode string, opts SolveOptions) error {
	if mode != "design" && mode != "offdesign" {
		return fmt.Errorf("%w: got %q", ErrUnknownMode, mode)
	}
	nw.mode = mode

	backend := compute.GetBackend()
	if opts.UseCUDA {
		if cuda := compute.NewCUDABackend(); cuda.Available() {
			backend = cuda
		} else {
			log.Warn("cuda requested but no device available, using cpu for matrix inversion")
		}
	} else if backend == nil || !backend.Available() {
		backend = compute.NewCPUBackend()
	}

	if !nw.checked {
		if err := nw.CheckTopology(); err != nil {
			return err
		}
	}
	if err := nw.initialise(opts); err != nil {
		return err
	}
	if opts.InitOnly {
		return nil
	}

	log.Info("starting solver",
		"mode", mode, "variables", nw.numVars, "backend", backend.Name())

	rep := &Report{Mode: mode, Progress: true, SingularAt: -1, Backend: backend.Name()}
	nw.Report = rep

	sys := newSystem(nw, nw.numVars)
	sys.alwaysAll = opts.AlwaysAllEquations
	for i := range sys.Increment {
		sys.Increment[i] = 1
	}

	start := time.Now()
	if opts.IterInfo {
		nw.printIterHead()
	}

	var singular bool
	for nw.iter = 0; nw.iter < opts.MaxIter; nw.iter++ {
		sys.iter = nw.iter
		sys.row = 0

		nw.assemble(sys)

		inc, err := backend.SolveLinear(sys.Jacobian, negate(sys.Residual))
		if err != nil {
			singular = true
			rep.SingularAt = nw.iter
		} else {
			copy(sys.Increment, inc)
			nw.applyIncrement(sys)
		}

		res := floats.Norm(sys.Residual, 2)
		rep.Residuals = append(rep.Residuals, res)
		rep.Iterations = nw.iter + 1

		if opts.IterInfo {
			nw.printIterBody(sys, res, singular)
		}
		if opts.OnIteration != nil {
			opts.OnIteration(nw.iter, res)
		}

		if singular {
			break
		}
		if nw.iter+1 >= opts.MinIter && res < math.Sqrt(eps) {
			rep.Converged = true
			break
		}

		// stall detection: residual shrinking less than 5% over the last
		// three iterations
		if nw.iter > 40 {
			n := len(rep.Residuals)
			r := rep.Residuals
			if r[n-1] >= r[n-3]*0.95 && r[n-2] >= r[n-3]*0.95 && r[n-1] >= r[n-2]*0.95 {
				rep.Progress = false
				break
			}
		}
	}
	rep.Elapsed = time.Since(start)

	if opts.IterInfo {
		nw.printIterTail(rep)
	}

	if singular {
		log.Error("singularity in jacobian matrix, calculation aborted; " + singularHint)
		return &SolveError{Iter: rep.SingularAt, Residual: lastResidual(rep), Wrapped: ErrSingularJacobian}
	}
	if !rep.Progress {
		log.Warn("solver does not seem to make progress, aborting",
			"residual", fmt.Sprintf("%.2e", lastResidual(rep)))
		return &SolveError{Iter: rep.Iterations, Residual: lastResidual(rep), Wrapped: ErrNoProgress}
	}
	if !rep.Converged {
		log.Warn("reached maximum iteration count",
			"max_iter", opts.MaxIter, "residual", fmt.Sprintf("%.2e", lastResidual(rep)))
		return &SolveError{Iter: rep.Iterations, Residual: lastResidual(rep), Wrapped: ErrNotConverged}
	}

	nw.postprocess()
	fluid.ClearMemory()
	log.Info("calculation complete", "iterations", rep.Iterations, "elapsed", rep.Elapsed)
	return nil
}

func lastResidual(rep *Report) float64 {
	if len(rep.Residuals) == 0 {
		return math.NaN()
	}
	return rep.Residuals[len(rep.Residuals)-1]
}

func negate(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}

// assemble writes all component, connection and bus equations.
func (nw *Network) assemble(sys *System) {
	for _, cp := range nw.comps {
		cp.Equations(sys)
	}
	nw.connectionEquations(sys)
	nw.busEquations(sys)
}

func (nw *Network) connectionEquations(sys *System) {
	mixture := len(nw.Fluids) > 1
	for _, c := range nw.conns {
		c := c

		// referenced primary variables
		for _, prop := range []string{"m", "p", "h"} {
			p := c.prop(prop)
			if p.Ref == nil {
				continue
			}
			varIdx := map[string]int{"m": VarM, "p": VarP, "h": VarH}[prop]
			ref := p.Ref
			row := sys.AddEq(p.SI - (ref.Conn.prop(prop).SI*ref.Factor + ref.Delta))
			sys.SetDeriv(row, c, varIdx, 1)
			sys.SetDeriv(row, ref.Conn, varIdx, -ref.Factor)
		}

		// temperature
		if c.T.Set {
			flow := c.Flow()
			row := sys.AddEq(c.T.SI - fluid.TMixPH(flow, c.T.SI))
			sys.SetDeriv(row, c, VarP, -fluid.DTMixDpH(flow, c.T.SI))
			sys.SetDeriv(row, c, VarH, -fluid.DTMixPDh(flow, c.T.SI))
			if mixture && !sys.Filtered(c, VarH) {
				for i, d := range fluid.DTMixPHDFluid(flow, c.T.SI, nw.Fluids) {
					sys.SetFluidDeriv(row, c, nw.Fluids[i], -d)
				}
			}
		}

		// referenced temperature
		if c.T.Ref != nil {
			ref := c.T.Ref
			flow := c.Flow()
			flowRef := ref.Conn.Flow()
			row := sys.AddEq(fluid.TMixPH(flow, c.T.SI) -
				(fluid.TMixPH(flowRef, ref.Conn.T.SI)*ref.Factor + ref.Delta))
			sys.SetDeriv(row, c, VarP, fluid.DTMixDpH(flow, c.T.SI))
			sys.SetDeriv(row, c, VarH, fluid.DTMixPDh(flow, c.T.SI))
			sys.SetDeriv(row, ref.Conn, VarP, -fluid.DTMixDpH(flowRef, ref.Conn.T.SI)*ref.Factor)
			sys.SetDeriv(row, ref.Conn, VarH, -fluid.DTMixPDh(flowRef, ref.Conn.T.SI)*ref.Factor)
			if mixture {
				for i, d := range fluid.DTMixPHDFluid(flow, c.T.SI, nw.Fluids) {
					sys.SetFluidDeriv(row, c, nw.Fluids[i], d)
				}
				for i, d := range fluid.DTMixPHDFluid(flowRef, ref.Conn.T.SI, nw.Fluids) {
					sys.SetFluidDeriv(row, ref.Conn, nw.Fluids[i], -d)
				}
			}
		}

		// vapor quality
		if c.X.Set {
			row := sys.AddEqLazy(func() float64 {
				h, err := fluid.HMixPQ(c.Flow(), c.X.SI)
				if err != nil {
					return 0
				}
				return c.H.SI - h
			})
			if !sys.Filtered(c, VarP) {
				sys.SetDeriv(row, c, VarP, -fluid.DHMixDpQ(c.Flow(), c.X.SI))
			}
			sys.SetDeriv(row, c, VarH, 1)
		}

		// volumetric flow
		if c.V.Set {
			flow := c.Flow()
			row := sys.AddEqLazy(func() float64 {
				return c.V.SI - fluid.VMixPH(c.Flow(), c.T.SI)*c.M.SI
			})
			sys.SetDeriv(row, c, VarM, -fluid.VMixPH(flow, c.T.SI))
			sys.SetDeriv(row, c, VarP, -fluid.DVMixDpH(flow, c.T.SI)*c.M.SI)
			sys.SetDeriv(row, c, VarH, -fluid.DVMixPDh(flow, c.T.SI)*c.M.SI)
		}

		// boiling point temperature difference
		if c.TdBP.Set {
			row := sys.AddEqLazy(func() float64 {
				flow := c.Flow()
				Ts, err := fluid.TBoilP(flow)
				if err != nil {
					return 0
				}
				return fluid.TMixPH(flow, c.T.SI) - c.TdBP.SI - Ts
			})
			flow := c.Flow()
			if !sys.Filtered(c, VarP) {
				sys.SetDeriv(row, c, VarP, fluid.DTMixDpH(flow, c.T.SI)-fluid.DTBoilDp(flow))
			}
			if !sys.Filtered(c, VarH) {
				sys.SetDeriv(row, c, VarH, fluid.DTMixPDh(flow, c.T.SI))
			}
		}

		// fluid composition balance
		if mixture && c.Fluid.Balance {
			res := 1.0
			row := sys.SkipEq()
			for _, f := range nw.Fluids {
				res -= c.Fluid.Val[f]
				sys.SetFluidDeriv(row, c, f, -1)
			}
			sys.Residual[row] = res
		}
	}

	// specified primary variables are static: residual zero, unit
	// derivative, written once
	for _, c := range nw.conns {
		for _, spec := range []struct {
			p      *Param
			varIdx int
		}{{&c.M, VarM}, {&c.P, VarP}, {&c.H, VarH}} {
			if !spec.p.Set {
				continue
			}
			if nw.iter == 0 {
				row := sys.AddEq(0)
				sys.SetDeriv(row, c, spec.varIdx, 1)
			} else {
				sys.SkipEq()
			}
		}
		if mixture {
			for _, f := range nw.Fluids {
				if !c.Fluid.Set[f] {
					continue
				}
				if nw.iter == 0 {
					row := sys.AddEq(0)
					sys.SetFluidDeriv(row, c, f, 1)
				} else {
					sys.SkipEq()
				}
			}
		}
	}
}

func (nw *Network) busEquations(sys *System) {
	for _, b := range nw.busses {
		if !b.P.Set {
			continue
		}
		total := 0.0
		row := sys.SkipEq()
		for _, e := range b.Entries {
			e := e
			total += e.Value()
			for _, c := range e.Comp.BusConns() {
				for _, varIdx := range []int{VarM, VarP, VarH} {
					sys.NumericDeriv(row, func() float64 { return -e.Value() }, c, varIdx)
				}
			}
		}
		sys.Residual[row] = b.P.SI - total
	}
}

// applyIncrement adds the Newton step to all variables and keeps them
// inside feasible ranges.
func (nw *Network) applyIncrement(sys *System) {
	ncv := nw.numConnVars
	for _, c := range nw.conns {
		base := c.loc * ncv
		if !c.M.Set {
			c.M.SI += sys.Increment[base+VarM]
		}
		if !c.P.Set {
			// limit the pressure step to half the current value, keeping
			// the pressure positive
			relax := math.Max(1, -sys.Increment[base+VarP]/(0.5*c.P.SI))
			c.P.SI += sys.Increment[base+VarP] / relax
		}
		if !c.H.Set {
			c.H.SI += sys.Increment[base+VarH]
		}

		if len(nw.Fluids) > 1 {
			for i, f := range nw.Fluids {
				if !c.Fluid.Set[f] {
					c.Fluid.Val[f] += sys.Increment[base+3+i]
				}
				if c.Fluid.Val[f] < eps {
					c.Fluid.Val[f] = 0
				} else if c.Fluid.Val[f] > 1-eps {
					c.Fluid.Val[f] = 1
				}
			}
		}

		nw.checkPropertyRanges(c)
	}

	for _, v := range nw.compVars {
		v.Val += sys.Increment[v.col]
		if v.Clamp() {
			log.Debug("component variable clamped to bounds", "var", v.Name, "value", v.Val)
		}
	}

	// early iterations get an extra consistency sweep
	if nw.iter < 3 {
		for _, cp := range nw.comps {
			cp.ConvergenceCheck(nw)
		}
		for _, c := range nw.conns {
			nw.checkPropertyRanges(c)
		}
	}
}

// checkPropertyRanges clamps mass flow, pressure and enthalpy to the
// fluid's validity range, or to the generic network ranges during the
// first iterations.
func (nw *Network) checkPropertyRanges(c *Connection) {
	single := fluid.SingleFluid(c.Fluid.Val)
	if single != "" {
		if f, err := fluid.Lookup(single); err == nil {
			nw.clampPure(c, f)
		}
	} else if nw.iter < 4 && !c.goodStart {
		if !c.P.Set {
			c.P.SI = clampLog(c, "p", c.P.SI, nw.PRange)
		}
		if !c.H.Set {
			c.H.SI = clampLog(c, "h", c.H.SI, nw.HRange)
		}
		if c.T.Set && !c.H.Set {
			nw.clampMixtureTemperature(c)
		}
	}

	if !c.M.Set {
		c.M.SI = clampLog(c, "m", c.M.SI, nw.MRange)
	}
}

func (nw *Network) clampPure(c *Connection, f *fluid.Fluid) {
	if !c.P.Set {
		c.P.SI = clampLog(c, "p", c.P.SI, [2]float64{f.Valid.PMin, f.Valid.PMax})
	}
	if !c.H.Set {
		flow := c.Flow()
		hmin := fluid.HMixPT(flow, f.Valid.TMin*1.001)
		hmax := fluid.HMixPT(flow, f.Valid.TMax*0.999)
		if c.H.SI < hmin {
			if hmin < 0 {
				c.H.SI = hmin * 0.9999
			} else {
				c.H.SI = hmin * 1.0001
			}
			log.Debug("enthalpy out of fluid property range, adjusting", "connection", c.Label, "value", c.H.SI)
		} else if c.H.SI > hmax {
			c.H.SI = hmax * 0.9999
			log.Debug("enthalpy out of fluid property range, adjusting", "connection", c.Label, "value", c.H.SI)
		}

		// keep the hinted phase during early iterations
		if (c.TdBP.Set || c.StateSet) && !c.H.Set && nw.iter < 3 {
			nw.applyStateHint(c)
		}
	}
}

// clampMixtureTemperature keeps the enthalpy inside the temperature
// window shared by all mixture members.
func (nw *Network) clampMixtureTemperature(c *Connection) {
	flow := c.Flow()
	Tmin, Tmax := 0.0, math.Inf(1)
	for name, x := range c.Fluid.Val {
		if x < fluid.Eps {
			continue
		}
		f, err := fluid.Lookup(name)
		if err != nil {
			continue
		}
		Tmin = math.Max(Tmin, f.Valid.TMin)
		Tmax = math.Min(Tmax, f.Valid.TMax)
	}
	hmin := fluid.HMixPT(flow, Tmin+100)
	hmax := fluid.HMixPT(flow, Tmax-100)
	if c.H.SI < hmin {
		c.H.SI = hmin
		log.Debug("enthalpy below mixture range, adjusting", "connection", c.Label)
	}
	if c.H.SI > hmax {
		c.H.SI = hmax
		log.Debug("enthalpy above mixture range, adjusting", "connection", c.Label)
	}
}

func clampLog(c *Connection, prop string, v float64, rng [2]float64) float64 {
	if v <= rng[0] {
		log.Debug("property out of range, adjusting", "connection", c.Label, "property", prop, "value", rng[0])
		return rng[0]
	}
	if v >= rng[1] {
		log.Debug("property out of range, adjusting", "connection", c.Label, "property", prop, "value", rng[1])
		return rng[1]
	}
	return v
}

func (nw *Network) printIterHead() {
	head := "iter    | residual | massflow | pressure | enthalpy"
	rule := "--------+----------+----------+----------+---------"
	if len(nw.Fluids) > 1 {
		head += " | fluid"
		rule += "-+---------"
	}
	if nw.numCompVars > 0 {
		head += " | custom"
		rule += "-+---------"
	}
	fmt.Println(head)
	fmt.Println(rule)
}

func (nw *Network) printIterBody(sys *System, res float64, singular bool) {
	ncv := nw.numConnVars
	nConnInc := ncv * len(nw.conns)
	if singular || math.IsNaN(res) {
		fmt.Printf("%d\t|      nan |      nan |      nan |      nan\n", nw.iter+1)
		return
	}
	norm := func(stride, offset int) float64 {
		sum := 0.0
		for i := offset; i < nConnInc; i += stride {
			sum += sys.Increment[i] * sys.Increment[i]
		}
		return math.Sqrt(sum)
	}
	line := fmt.Sprintf("%d\t| %.2e | %.2e | %.2e | %.2e",
		nw.iter+1, res, norm(ncv, VarM), norm(ncv, VarP), norm(ncv, VarH))
	if len(nw.Fluids) > 1 {
		sum := 0.0
		for loc := 0; loc < len(nw.conns); loc++ {
			for f := 0; f < len(nw.Fluids); f++ {
				v := sys.Increment[loc*ncv+3+f]
				sum += v * v
			}
		}
		line += fmt.Sprintf(" | %.2e", math.Sqrt(sum))
	}
	if nw.numCompVars > 0 {
		sum := 0.0
		for i := nConnInc; i < len(sys.Increment); i++ {
			sum += sys.Increment[i] * sys.Increment[i]
		}
		line += fmt.Sprintf(" | %.2e", math.Sqrt(sum))
	}
	fmt.Println(line)
}

func (nw *Network) printIterTail(rep *Report) {
	ips := "inf"
	if rep.Elapsed > 0 {
		ips = fmt.Sprintf("%.2f", float64(rep.Iterations)/rep.Elapsed.Seconds())
	}
	fmt.Printf("total iterations: %d, calculation time: %.1fs, iterations per second: %s\n",
		rep.Iterations, rep.Elapsed.Seconds(), ips)
}
