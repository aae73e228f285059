package jam

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/gojam/math/interpolate"
	"github.com/phil-mansfield/gojam/mge"
)

// minGridRadius is the smallest inner radius a polar grid can have, in pc.
const minGridRadius = 0.001

// polarGrid is a grid of nRad log-spaced elliptical radii and nAng
// eccentric anomalies in [-pi, -pi/2]. Moments are only ever evaluated in
// that quadrant and then mirrored into the other three, giving 4*nAng - 3
// angles over [-pi, pi].
type polarGrid struct {
	nRad, nAng int
	qmed       float64

	rs, angs, angVec []float64
	// Cartesian sky positions of the nodes, node (i, j) at i*nAng + j.
	xs, ys []float64

	// Elliptical radius and eccentric anomaly of every query point.
	queryR, queryE []float64
}

// mirror describes how a tabulated quantity changes sign under reflections
// of the sky plane.
type mirror struct {
	x, xy, y float64
}

var (
	// Second moments are stored unsigned.
	evenMirror = mirror{1, 1, 1}
	vxMirror   = mirror{1, -1, -1}
	vyzMirror  = mirror{-1, -1, 1}
)

func newPolarGrid(lum mge.MGE, xs, ys []float64, nRad, nAng int) *polarGrid {
	g := &polarGrid{nRad: nRad, nAng: nAng}
	g.qmed = lum.MedianFlattening(floats.Max(xs))

	g.queryR, g.queryE = make([]float64, len(xs)), make([]float64, len(xs))
	for i := range xs {
		yq := ys[i] / g.qmed
		g.queryR[i] = math.Sqrt(xs[i]*xs[i] + yq*yq)
		g.queryE[i] = math.Atan2(yq, xs[i])
	}

	step := math.Max(floats.Min(g.queryR), minGridRadius)
	rMax := math.Max(floats.Max(g.queryR), step)

	g.rs = floats.Span(
		make([]float64, nRad), math.Log(step)-0.1, math.Log(rMax)+0.1,
	)
	for i := range g.rs { g.rs[i] = math.Exp(g.rs[i]) }

	g.angs = floats.Span(make([]float64, nAng), -math.Pi, -math.Pi/2)
	g.angVec = floats.Span(make([]float64, 4*nAng-3), -math.Pi, math.Pi)

	g.xs, g.ys = make([]float64, nRad*nAng), make([]float64, nRad*nAng)
	for i := range g.rs {
		for j := range g.angs {
			sin, cos := math.Sincos(g.angs[j])
			g.xs[i*nAng+j] = g.rs[i] * cos
			g.ys[i*nAng+j] = g.rs[i] * sin * g.qmed
		}
	}

	return g
}

// table mirrors the node values vals into a full nRad x (4*nAng - 3) table.
func (g *polarGrid) table(vals []float64, mir mirror) [][]float64 {
	n := g.nAng
	tab := make([][]float64, g.nRad)
	for i := range tab {
		tab[i] = make([]float64, 4*n-3)
		for j := 0; j < n; j++ {
			v := vals[i*n+j]
			tab[i][j] = v
			tab[i][2*n-2-j] = mir.x * v
			tab[i][2*n-2+j] = mir.xy * v
			tab[i][4*n-4-j] = mir.y * v
		}
	}
	return tab
}

// interpolate evaluates the mirrored node values at every query point.
func (g *polarGrid) interpolate(vals []float64, mir mirror) []float64 {
	pol := interpolate.NewPolar(g.rs, g.angVec, g.table(vals, mir))
	return pol.EvalAll(g.queryR, g.queryE)
}

func useGrid(opt Options, n int) bool { return opt.NRad*opt.NAng <= n }

// FirstMoments computes the first moments of m at the sky positions
// (xs[i], ys[i]). If there are at least opt.NRad*opt.NAng points, the
// moments are computed on a polar grid and interpolated.
func FirstMoments(
	m *Model, xs, ys []float64, opt Options, failures *Counter,
) (*Velocities, error) {
	if err := checkPoints(xs, ys); err != nil { return nil, err }
	opt = opt.fill()

	if !useGrid(opt, len(xs)) {
		wm, err := WeightedFirstMoments(m, xs, ys, opt, failures)
		if err != nil { return nil, err }
		surf := m.Lum.SurfaceDensities(xs, ys)
		floats.Div(wm.Vx, surf)
		floats.Div(wm.Vy, surf)
		floats.Div(wm.Vz, surf)
		return wm, nil
	}

	g := newPolarGrid(m.Lum, xs, ys, opt.NRad, opt.NAng)
	wm, err := WeightedFirstMoments(m, g.xs, g.ys, opt, failures)
	if err != nil { return nil, err }
	surf := m.Lum.SurfaceDensities(g.xs, g.ys)
	floats.Div(wm.Vx, surf)
	floats.Div(wm.Vy, surf)
	floats.Div(wm.Vz, surf)

	return &Velocities{
		Vx: g.interpolate(wm.Vx, vxMirror),
		Vy: g.interpolate(wm.Vy, vyzMirror),
		Vz: g.interpolate(wm.Vz, vyzMirror),
	}, nil
}

// SecondMoment computes the second moment ax of m at the sky positions
// (xs[i], ys[i]). If there are at least opt.NRad*opt.NAng points, the
// moments are computed on a polar grid and interpolated.
func SecondMoment(
	m *Model, ax Axis, xs, ys []float64, opt Options, failures *Counter,
) ([]float64, error) {
	if err := checkPoints(xs, ys); err != nil { return nil, err }
	opt = opt.fill()

	var mu []float64
	if !useGrid(opt, len(xs)) {
		wm, err := WeightedSecondMoments(m, ax, xs, ys, opt, failures)
		if err != nil { return nil, err }
		floats.Div(wm, m.Lum.SurfaceDensities(xs, ys))
		mu = wm
	} else {
		g := newPolarGrid(m.Lum, xs, ys, opt.NRad, opt.NAng)
		wm, err := WeightedSecondMoments(m, ax, g.xs, g.ys, opt, failures)
		if err != nil { return nil, err }
		floats.Div(wm, m.Lum.SurfaceDensities(g.xs, g.ys))
		mu = g.interpolate(wm, evenMirror)
	}

	fixCrossSigns(ax, xs, ys, mu)
	return mu, nil
}

// fixCrossSigns gives the unsigned xy and xz moments their signs.
func fixCrossSigns(ax Axis, xs, ys, mu []float64) {
	switch ax {
	case XY:
		for i := range mu {
			if xs[i]*ys[i] >= 0 { mu[i] = -mu[i] }
		}
	case XZ:
		for i := range mu {
			if xs[i]*ys[i] < 0 { mu[i] = -mu[i] }
		}
	}
}
