package netw

import "errors"

// Domain errors for network setup and solving.
var (
	// ErrDuplicateLabel indicates a component or connection label used twice.
	ErrDuplicateLabel = errors.New("netw: duplicate label")

	// ErrTopology indicates an inlet or outlet bound to more than one
	// connection, or left unbound.
	ErrTopology = errors.New("netw: inconsistent network topology")

	// ErrUnknownFluid indicates a composition referencing a fluid outside
	// the network's fluid list.
	ErrUnknownFluid = errors.New("netw: fluid not in network fluid list")

	// ErrUnderdetermined indicates fewer equations than variables.
	ErrUnderdetermined = errors.New("netw: network is underdetermined")

	// ErrOverdetermined indicates more equations than variables.
	ErrOverdetermined = errors.New("netw: network is overdetermined")

	// ErrSingularJacobian indicates linear dependency in the equation system.
	ErrSingularJacobian = errors.New("netw: singularity in jacobian matrix")

	// ErrNoProgress indicates a stalled iteration.
	ErrNoProgress = errors.New("netw: solver does not make progress")

	// ErrNotConverged indicates the iteration limit was reached.
	ErrNotConverged = errors.New("netw: reached maximum iteration count")

	// ErrUnknownMode indicates a solve mode other than design or offdesign.
	ErrUnknownMode = errors.New(`netw: mode must be "design" or "offdesign"`)
)

// SolveError wraps a solver failure with iteration context.
type SolveError struct {
	Iter     int
	Residual float64
	Wrapped  error
}

func (e *SolveError) Error() string {
	return e.Wrapped.Error()
}

func (e *SolveError) Unwrap() error {
	return e.Wrapped
}

// singularHint mirrors the advice given when the jacobian turns singular:
// the usual causes are linear dependencies in the parametrisation.
const singularHint = "make sure the network does not have linear dependencies " +
	"in the parametrisation; common causes are a given temperature with given " +
	"pressure in the two phase region, given logarithmic temperature " +
	"differences or kA values, or poor starting values"
