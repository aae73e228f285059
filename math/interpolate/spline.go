/*Package interpolate contains the cubic spline interpolators used to turn
moments tabulated on a coarse grid into moments at arbitrary points.
*/
package interpolate

import (
	"fmt"
)

// Spline represents a 1D natural cubic spline which can be used to
// interpolate between points.
type Spline struct {
	xs, ys, y2s []float64

	incr bool

	// Usually the input data is uniform. This is our estimate of the point
	// spacing.
	dx float64
}

// NewSpline creates a spline based off a table of x and y values. The values
// must be sorted in increasing or decreasing order in x.
//
// xs and ys must not be modified throughout the lifetime of the Spline.
func NewSpline(xs, ys []float64) *Spline {
	sp := new(Spline)
	sp.Init(xs, ys)
	return sp
}

// Init (re)initializes the spline to a new table. Workspace slices are reused
// when the table length has not changed, so a single Spline can be refit to
// many tables without allocating.
func (sp *Spline) Init(xs, ys []float64) {
	checkTable("Spline", xs, ys, 2)

	sp.xs, sp.ys = xs, ys
	if len(sp.y2s) != len(xs) {
		sp.y2s = make([]float64, len(xs))
	}

	sp.incr = checkSorted("Spline", xs)
	sp.dx = (xs[len(xs)-1] - xs[0]) / float64(len(xs)-1)

	sp.calcY2s()
}

// Eval computes the value of the spline at the given point.
//
// x must be within the range of x values given to NewSpline().
func (sp *Spline) Eval(x float64) float64 {
	lo, hi := sp.xs[0], sp.xs[len(sp.xs)-1]
	if !sp.incr { lo, hi = hi, lo }
	if x < lo || x > hi {
		panic(fmt.Sprintf(
			"Point %g given to Spline.Eval() out of bounds [%g, %g].",
			x, sp.xs[0], sp.xs[len(sp.xs)-1],
		))
	}

	i := sp.bsearch(x)
	return cubic(sp.xs[i], sp.xs[i+1], sp.ys[i], sp.ys[i+1],
		sp.y2s[i], sp.y2s[i+1], x)
}

// EvalAll evaluates the spline at every point in xs. If out is given, the
// results are written into it.
func (sp *Spline) EvalAll(xs []float64, out ...[]float64) []float64 {
	if len(out) == 0 { out = [][]float64{make([]float64, len(xs))} }
	for i := range xs { out[0][i] = sp.Eval(xs[i]) }
	return out[0]
}

// cubic evaluates the cubic segment between (x0, y0) and (x1, y1) which has
// second derivatives d0 and d1 at its end points.
func cubic(x0, x1, y0, y1, d0, d1, x float64) float64 {
	h := x1 - x0
	a := (x1 - x) / h
	b := 1 - a
	return a*y0 + b*y1 + ((a*a*a-a)*d0+(b*b*b-b)*d1)*h*h/6
}

// bsearch returns the the index of the largest element in xs which is smaller
// than x. The returned index is always a valid left edge of a segment.
func (sp *Spline) bsearch(x float64) int {
	// Guess under the assumption of uniform spacing.
	guess := int((x - sp.xs[0]) / sp.dx)
	if guess >= 0 && guess < len(sp.xs)-1 &&
		(sp.xs[guess] <= x == sp.incr) &&
		(sp.xs[guess+1] >= x == sp.incr) {

		return guess
	}

	// Binary search.
	lo, hi := 0, len(sp.xs)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if sp.incr == (x >= sp.xs[mid]) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// calcY2s computes the second derivative at every point in the table given
// in Init. The boundaries are set to zero.
func (sp *Spline) calcY2s() {
	n := len(sp.xs)
	sp.y2s[0], sp.y2s[n-1] = 0, 0
	if n == 2 { return }

	as, bs := make([]float64, n-2), make([]float64, n-2)
	cs, rs := make([]float64, n-2), make([]float64, n-2)

	xs, ys := sp.xs, sp.ys
	for i := range rs {
		// j indexes into xs and ys.
		j := i + 1

		as[i] = (xs[j] - xs[j-1]) / 6
		bs[i] = (xs[j+1] - xs[j-1]) / 3
		cs[i] = (xs[j+1] - xs[j]) / 6
		rs[i] = ((ys[j+1] - ys[j]) / (xs[j+1] - xs[j])) -
			((ys[j] - ys[j-1]) / (xs[j] - xs[j-1]))
	}

	TriDiagAt(as, bs, cs, rs, sp.y2s[1:n-1])
}

func checkTable(name string, xs, ys []float64, minLen int) {
	if len(xs) != len(ys) {
		panic(fmt.Sprintf(
			"Table given to %s has len(xs) = %d but len(ys) = %d.",
			name, len(xs), len(ys),
		))
	} else if len(xs) < minLen {
		panic(fmt.Sprintf(
			"Table given to %s has length %d, but needs at least %d points.",
			name, len(xs), minLen,
		))
	}
}

// checkSorted returns true if xs is strictly increasing and false if it is
// strictly decreasing. Anything else panics.
func checkSorted(name string, xs []float64) bool {
	incr := xs[0] < xs[1]
	for i := 0; i < len(xs)-1; i++ {
		if (xs[i+1] > xs[i]) != incr || xs[i+1] == xs[i] {
			panic(fmt.Sprintf("Table given to %s not sorted.", name))
		}
	}
	return incr
}
