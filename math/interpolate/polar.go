package interpolate

import (
	"fmt"
	"math"
)

// Polar interpolates a table tabulated on a polar grid. Interpolation is done
// in two passes: first a periodic spline in angle is evaluated at every
// radius, then a natural spline through those values in log-radius is
// evaluated at the requested radius.
//
// A Polar caches the radial spline for the last requested angle, so it is
// not safe for concurrent use.
type Polar struct {
	rs, logRs []float64
	angSplines []*PeriodicSpline

	lastAng float64
	rVals   []float64
	rSpline *Spline
}

// NewPolar creates a polar interpolator. rs must be positive and strictly
// increasing, angs must be strictly increasing and span one period, and
// vals[i][j] is the value at rs[i], angs[j].
func NewPolar(rs, angs []float64, vals [][]float64) *Polar {
	if len(vals) != len(rs) {
		panic(fmt.Sprintf(
			"len(vals) = %d, but len(rs) = %d", len(vals), len(rs),
		))
	}

	p := &Polar{rs: rs}
	p.logRs = make([]float64, len(rs))
	for i := range rs {
		if !(rs[i] > 0) {
			panic(fmt.Sprintf("Radius %d given to NewPolar is %g.", i, rs[i]))
		}
		p.logRs[i] = math.Log(rs[i])
	}

	p.angSplines = make([]*PeriodicSpline, len(rs))
	for i := range rs {
		if len(vals[i]) != len(angs) {
			panic(fmt.Sprintf(
				"len(vals[%d]) = %d, but len(angs) = %d",
				i, len(vals[i]), len(angs),
			))
		}
		p.angSplines[i] = NewPeriodicSpline(angs, vals[i])
	}

	p.rVals = make([]float64, len(rs))
	p.setAngle(angs[0])
	p.rSpline = NewSpline(p.logRs, p.rVals)

	return p
}

func (p *Polar) setAngle(ang float64) {
	p.lastAng = ang
	for i := range p.rVals {
		p.rVals[i] = p.angSplines[i].Eval(ang)
	}
}

// Eval returns the interpolated value at radius r and angle ang. Radii
// outside of the table are clamped to its edges.
func (p *Polar) Eval(r, ang float64) float64 {
	if ang != p.lastAng {
		p.setAngle(ang)
		p.rSpline.Init(p.logRs, p.rVals)
	}

	if r < p.rs[0] {
		r = p.rs[0]
	} else if r > p.rs[len(p.rs)-1] {
		r = p.rs[len(p.rs)-1]
	}
	lr := math.Log(r)
	// Rounding in exp/log can push the end points just outside the table.
	lr = math.Max(p.logRs[0], math.Min(lr, p.logRs[len(p.logRs)-1]))

	return p.rSpline.Eval(lr)
}

// EvalAll evaluates the interpolator at every (rs[i], angs[i]) pair. If out
// is given, the results are written into it.
func (p *Polar) EvalAll(rs, angs []float64, out ...[]float64) []float64 {
	if len(out) == 0 { out = [][]float64{make([]float64, len(rs))} }
	for i := range rs { out[0][i] = p.Eval(rs[i], angs[i]) }
	return out[0]
}
