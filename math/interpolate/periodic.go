package interpolate

import (
	"math"
	"sort"
)

// PeriodicSpline is a cubic spline through a table which repeats with period
// xs[n-1] - xs[0]. The first and second derivatives are continuous across
// the wrap point.
type PeriodicSpline struct {
	xs, ys, y2s []float64
	period      float64
}

// NewPeriodicSpline creates a periodic spline from a table of strictly
// increasing x values. Since ys[n-1] describes the same point as ys[0], it is
// ignored and ys[0] is used in its place. At least four points are needed.
func NewPeriodicSpline(xs, ys []float64) *PeriodicSpline {
	checkTable("PeriodicSpline", xs, ys, 4)
	if !checkSorted("PeriodicSpline", xs) {
		panic("Table given to PeriodicSpline must be increasing.")
	}

	n := len(xs)
	sp := &PeriodicSpline{
		xs:     xs,
		ys:     make([]float64, n),
		y2s:    make([]float64, n),
		period: xs[n-1] - xs[0],
	}
	copy(sp.ys, ys)
	sp.ys[n-1] = ys[0]

	sp.calcY2s()
	return sp
}

func (sp *PeriodicSpline) calcY2s() {
	m := len(sp.xs) - 1
	xs, ys := sp.xs, sp.ys

	as, bs := make([]float64, m), make([]float64, m)
	cs, rs := make([]float64, m), make([]float64, m)

	h := func(i int) float64 {
		if i < 0 { i += m }
		return xs[i+1] - xs[i]
	}
	y := func(i int) float64 {
		if i < 0 { i += m }
		return ys[i]
	}

	for i := 0; i < m; i++ {
		as[i] = h(i-1) / 6
		bs[i] = (h(i-1) + h(i)) / 3
		cs[i] = h(i) / 6
		rs[i] = (y(i+1)-y(i))/h(i) - (y(i)-y(i-1))/h(i-1)
	}

	corner := h(m-1) / 6
	CyclicTriDiagAt(as, bs, cs, corner, corner, rs, sp.y2s[:m])
	sp.y2s[m] = sp.y2s[0]
}

// Eval computes the value of the spline at x. Any x is accepted: it is
// wrapped back into the table's period first.
func (sp *PeriodicSpline) Eval(x float64) float64 {
	x0, n := sp.xs[0], len(sp.xs)
	t := math.Mod(x-x0, sp.period)
	if t < 0 { t += sp.period }
	t += x0

	// Index of the first node strictly greater than t.
	i := sort.SearchFloat64s(sp.xs, t)
	if i < n && sp.xs[i] == t { i++ }
	i--
	if i >= n-1 { i = n - 2 }
	if i < 0 { i = 0 }

	return cubic(sp.xs[i], sp.xs[i+1], sp.ys[i], sp.ys[i+1],
		sp.y2s[i], sp.y2s[i+1], t)
}

// EvalAll evaluates the spline at every point in xs. If out is given, the
// results are written into it.
func (sp *PeriodicSpline) EvalAll(xs []float64, out ...[]float64) []float64 {
	if len(out) == 0 { out = [][]float64{make([]float64, len(xs))} }
	for i := range xs { out[0][i] = sp.Eval(xs[i]) }
	return out[0]
}
