/*Package quad provides the adaptive quadrature used by the moment
integrators. Integration never fails loudly: an integral which cannot reach
its tolerance inside the interval budget is reported through
Result.Converged and it is up to the caller to decide what that means.
*/
package quad

import (
	"fmt"
	"math"

	gquad "gonum.org/v1/gonum/integrate/quad"
)

const (
	// DefaultOrder is the number of nodes in the low-order rule. The
	// high-order rule uses 2*DefaultOrder + 1 nodes.
	DefaultOrder = 10
	// DefaultLimit is the maximum number of subintervals an integral may be
	// split into before it is declared unconverged.
	DefaultLimit = 1000
)

// Tolerance is the stopping criterion for an integral: integration stops
// once the estimated absolute error is below max(Abs, Rel*|I|).
type Tolerance struct {
	Abs, Rel float64
}

// Result describes the outcome of a single integral.
type Result struct {
	Value, AbsErr float64
	// Intervals is the number of subintervals used.
	Intervals int
	Converged bool
}

// Integrator is anything which can integrate a one-dimensional function over
// a finite interval.
type Integrator interface {
	Integrate(f func(float64) float64, a, b float64, tol Tolerance) Result
}

var _ Integrator = &Adaptive{}

// rule is a fixed Gauss-Legendre rule on [-1, 1].
type rule struct {
	xs, ws []float64
}

func newRule(n int) rule {
	r := rule{make([]float64, n), make([]float64, n)}
	gquad.Legendre{}.FixedLocations(r.xs, r.ws, -1, 1)
	return r
}

func (r *rule) apply(f func(float64) float64, a, b float64) float64 {
	c, h := (a+b)/2, (b-a)/2
	sum := 0.0
	for i := range r.xs {
		sum += r.ws[i] * f(c+h*r.xs[i])
	}
	return sum * h
}

// Adaptive is a globally adaptive bisection integrator. Each subinterval is
// integrated with a pair of Gauss-Legendre rules and the difference between
// the two is used as the error estimate. The subinterval with the largest
// error is bisected until the total error is within tolerance or Limit
// subintervals have been used.
//
// An Adaptive is safe for concurrent use.
type Adaptive struct {
	Limit     int
	low, high rule
}

// NewAdaptive creates an Adaptive integrator using an n-point low-order rule
// and a (2n + 1)-point high-order rule.
func NewAdaptive(n, limit int) *Adaptive {
	if n < 1 {
		panic(fmt.Sprintf("Rule order must be positive, but is %d.", n))
	} else if limit < 1 {
		panic(fmt.Sprintf("Interval limit must be positive, but is %d.", limit))
	}
	return &Adaptive{Limit: limit, low: newRule(n), high: newRule(2*n + 1)}
}

// Default returns an Adaptive integrator with DefaultOrder and
// DefaultLimit.
func Default() *Adaptive { return NewAdaptive(DefaultOrder, DefaultLimit) }

type segment struct {
	a, b, val, err float64
}

func (ad *Adaptive) segment(f func(float64) float64, a, b float64) segment {
	hi := ad.high.apply(f, a, b)
	lo := ad.low.apply(f, a, b)
	return segment{a, b, hi, math.Abs(hi - lo)}
}

// Integrate integrates f over [a, b].
func (ad *Adaptive) Integrate(
	f func(float64) float64, a, b float64, tol Tolerance,
) Result {
	if a == b { return Result{Converged: true} }

	segs := []segment{ad.segment(f, a, b)}
	val, err := segs[0].val, segs[0].err

	for {
		if err <= math.Max(tol.Abs, tol.Rel*math.Abs(val)) {
			return Result{val, err, len(segs), true}
		} else if len(segs) >= ad.Limit || math.IsNaN(err) {
			return Result{val, err, len(segs), false}
		}

		worst := 0
		for i := range segs {
			if segs[i].err > segs[worst].err { worst = i }
		}

		s := segs[worst]
		mid := (s.a + s.b) / 2
		if mid == s.a || mid == s.b {
			// The interval can't be split any further in floating point.
			return Result{val, err, len(segs), false}
		}

		left, right := ad.segment(f, s.a, mid), ad.segment(f, mid, s.b)
		val += left.val + right.val - s.val
		err += left.err + right.err - s.err

		segs[worst] = left
		segs = append(segs, right)

		// Incremental updates of err can drift below zero when the errors
		// span many orders of magnitude.
		if err < 0 { err = sumErr(segs) }
	}
}

func sumErr(segs []segment) float64 {
	sum := 0.0
	for i := range segs { sum += segs[i].err }
	return sum
}
