package jam

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/gojam/math/quad"
	"github.com/phil-mansfield/gojam/mge"
)

// centralDispersion is the line-of-sight second moment at the centre of an
// isotropic, self-gravitating Gaussian with unit area and sigma.
var centralDispersion = 2 * math.Sqrt(2*math.Pi) * G *
	(math.Asinh(1) - 1/math.Sqrt2)

// unconverged reports every integral as a failure.
type unconverged struct{ quad.Integrator }

func (u unconverged) Integrate(
	f func(float64) float64, a, b float64, tol quad.Tolerance,
) quad.Result {
	res := u.Integrator.Integrate(f, a, b, tol)
	res.Converged = false
	return res
}

// forbidden fails the test if anything is integrated.
type forbidden struct{ t *testing.T }

func (fb forbidden) Integrate(
	f func(float64) float64, a, b float64, tol quad.Tolerance,
) quad.Result {
	fb.t.Errorf("Unexpected integral over [%g, %g].", a, b)
	return quad.Result{Converged: true}
}

// recorder integrates normally but records every line-of-sight tolerance it
// is asked for.
type recorder struct {
	quad.Integrator
	mu   sync.Mutex
	tols []quad.Tolerance
}

func (r *recorder) Integrate(
	f func(float64) float64, a, b float64, tol quad.Tolerance,
) quad.Result {
	if tol != innerTol {
		r.mu.Lock()
		r.tols = append(r.tols, tol)
		r.mu.Unlock()
	}
	return r.Integrator.Integrate(f, a, b, tol)
}

func gaussianModel(t *testing.T) *Model {
	g := mustMGE(t, []float64{1}, []float64{1}, []float64{1})
	return &Model{g, g, []float64{0}, []float64{0}, math.Pi / 2}
}

func flatModel(t *testing.T, kappa float64) *Model {
	lum := mustMGE(t, []float64{1, 0.3}, []float64{0.5, 2}, []float64{0.8, 0.7})
	pot := mustMGE(t, []float64{1.5, 0.3}, []float64{0.5, 2}, []float64{0.8, 0.7})
	return &Model{lum, pot, []float64{0.2, 0}, []float64{kappa, kappa}, 1.2}
}

func TestInnerFirstComponents(t *testing.T) {
	m := flatModel(t, 1)
	p, err := newParams(m, quad.Default(), &Counter{})
	require.NoError(t, err)

	multi := p.lumRatios
	multi.knu = []float64{2, -1}

	for _, u := range []float64{0, 0.1, 0.5, 0.9, 1} {
		r2, z2 := 0.7, 0.3
		want := 2*p.innerFirst(u, r2, z2, p.component(0)) -
			p.innerFirst(u, r2, z2, p.component(1))
		assert.InDelta(t, want, p.innerFirst(u, r2, z2, multi), 1e-12)
	}
}

func TestRMSKernel(t *testing.T) {
	p, err := newParams(gaussianModel(t), quad.Default(), &Counter{})
	require.NoError(t, err)

	// At the centre of a round isotropic model every diagonal kernel is
	// identical and every cross kernel vanishes.
	centre := rmsPoint{}
	for _, u := range []float64{0.1, 0.5, 1} {
		xx := p.rms(u, centre, XX)
		assert.InDelta(t, xx, p.rms(u, centre, YY), 1e-12*xx)
		assert.InDelta(t, xx, p.rms(u, centre, ZZ), 1e-12*xx)
		assert.Equal(t, 0.0, p.rms(u, centre, XY))
		assert.Equal(t, 0.0, p.rms(u, centre, XZ))
		assert.InDelta(t, 0.0, p.rms(u, centre, YZ), 1e-15)
	}

	assert.Panics(t, func() { p.rms(0.5, centre, Axis(17)) })
}

func TestWeightedSecondMomentsBadAxis(t *testing.T) {
	_, err := WeightedSecondMoments(
		gaussianModel(t), Axis(-1), []float64{0}, []float64{0},
		Options{}, &Counter{},
	)
	assert.Error(t, err)

	_, err = WeightedSecondMoments(
		gaussianModel(t), XX, []float64{0, 1}, []float64{0},
		Options{}, &Counter{},
	)
	assert.Error(t, err)
}

func TestCentralDispersion(t *testing.T) {
	m := gaussianModel(t)
	xs, ys := []float64{0}, []float64{0}

	d, err := ComputeSecondMoments(m, AllAxes, xs, ys, Options{})
	require.NoError(t, err)

	assert.InDelta(t, centralDispersion, d.XX[0], 1e-5*centralDispersion)
	assert.Equal(t, d.XX[0], d.YY[0])
	assert.Equal(t, d.XX[0], d.ZZ[0])
	assert.Equal(t, 0.0, d.XY[0])
	assert.Equal(t, 0.0, d.XZ[0])
	assert.Equal(t, 0.0, d.YZ[0])

	// Integrate the other diagonal terms directly instead of copying.
	for _, ax := range []Axis{YY, ZZ} {
		c := &Counter{}
		mu, err := SecondMoment(m, ax, xs, ys, Options{}, c)
		require.NoError(t, err)
		assert.False(t, c.Failed())
		assert.InDelta(t, centralDispersion, mu[0], 1e-5*centralDispersion)
	}

	v, err := ComputeFirstMoments(m, xs, ys, Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, v.Vx)
	assert.Equal(t, []float64{0}, v.Vy)
	assert.Equal(t, []float64{0}, v.Vz)
}

func TestSphericalShortcut(t *testing.T) {
	g := mustMGE(t, []float64{1, 0.2}, []float64{1, 3}, []float64{1, 1})
	m := &Model{g, g, []float64{0, 0}, []float64{1, -0.5}, 0.7}
	xs := []float64{0, 0.5, -1, 2, 3}
	ys := []float64{0, 0.5, 1, -0.3, 0}

	// No rotation is possible, so nothing may be integrated.
	v, err := ComputeFirstMoments(m, xs, ys, Options{Integrator: forbidden{t}})
	require.NoError(t, err)
	zeros := make([]float64, len(xs))
	assert.Equal(t, zeros, v.Vx)
	assert.Equal(t, zeros, v.Vy)
	assert.Equal(t, zeros, v.Vz)

	d, err := ComputeSecondMoments(m, AllAxes, xs, ys, Options{})
	require.NoError(t, err)
	assert.Equal(t, d.XX, d.YY)
	assert.Equal(t, d.XX, d.ZZ)
	assert.Equal(t, zeros, d.XY)
	assert.Equal(t, zeros, d.XZ)
	assert.Equal(t, zeros, d.YZ)
	for i := range d.XX {
		if !(d.XX[i] > 0) {
			t.Errorf("%d) Expected positive xx moment. Got %g.", i, d.XX[i])
		}
	}
}

func TestAxesMask(t *testing.T) {
	m := flatModel(t, 0)
	xs, ys := []float64{0.3, -0.8, 1.1}, []float64{0.4, 0.6, -0.2}

	all, err := ComputeSecondMoments(m, AllAxes, xs, ys, Options{})
	require.NoError(t, err)
	some, err := ComputeSecondMoments(m, X|Z, xs, ys, Options{})
	require.NoError(t, err)

	zeros := make([]float64, len(xs))
	assert.Equal(t, all.XX, some.XX)
	assert.Equal(t, all.ZZ, some.ZZ)
	assert.Equal(t, all.XZ, some.XZ)
	assert.Equal(t, zeros, some.YY)
	assert.Equal(t, zeros, some.XY)
	assert.Equal(t, zeros, some.YZ)
	assert.NotEqual(t, zeros, some.XZ)

	none, err := ComputeSecondMoments(
		m, 0, xs, ys, Options{Integrator: forbidden{t}},
	)
	require.NoError(t, err)
	assert.Equal(t, zeros, none.XX)
}

func TestCrossSigns(t *testing.T) {
	m := flatModel(t, 0)
	xs, ys := []float64{0.5, -0.5, 0.5, -0.5}, []float64{0.5, 0.5, -0.5, -0.5}

	d, err := ComputeSecondMoments(m, AllAxes, xs, ys, Options{})
	require.NoError(t, err)

	require.NotEqual(t, 0.0, d.XY[0])
	require.NotEqual(t, 0.0, d.XZ[0])

	// xy flips whenever x*y >= 0, xz whenever x*y < 0.
	signs := []float64{1, -1, -1, 1}
	for i := range xs {
		assert.Equal(t, d.XX[0], d.XX[i])
		assert.Equal(t, signs[i]*d.XY[0], d.XY[i])
		assert.Equal(t, signs[i]*d.XZ[0], d.XZ[i])
	}

	// Both cross terms share an integrand up to a factor of cos(i)/sin(i).
	sin, cos := math.Sincos(m.Incl)
	assert.InDelta(t, -d.XZ[0]*cos/sin, d.XY[0], 1e-9*math.Abs(d.XY[0]))
}

func TestFirstMomentSymmetry(t *testing.T) {
	lum := mustMGE(t, []float64{1}, []float64{1}, []float64{0.7})
	m := &Model{lum, lum, []float64{0}, []float64{1}, math.Pi / 2}
	require.True(t, m.Rotating())

	xs, ys := []float64{1, -1, 0, 0.5}, []float64{0.5, 0.5, 0.5, -0.2}
	v, err := ComputeFirstMoments(m, xs, ys, Options{})
	require.NoError(t, err)

	assert.True(t, v.Vz[0] > 0)
	assert.InDelta(t, -v.Vz[0], v.Vz[1], 1e-6*v.Vz[0])
	assert.Equal(t, 0.0, math.Abs(v.Vz[2]))
	for i := range xs {
		assert.InDelta(t, 0, v.Vy[i], 1e-12)
	}

	m.Kappa = []float64{-1}
	vNeg, err := ComputeFirstMoments(m, xs, ys, Options{})
	require.NoError(t, err)
	for i := range xs {
		assert.InDelta(t, -v.Vz[i], vNeg.Vz[i], 1e-6*math.Abs(v.Vz[0]))
	}
}

func TestFailSafe(t *testing.T) {
	bad := Options{Integrator: unconverged{quad.Default()}}
	xs, ys := []float64{0.3, 1}, []float64{0.2, -1}
	zeros := make([]float64, len(xs))

	d, err := ComputeSecondMoments(flatModel(t, 0), AllAxes, xs, ys, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNonConvergence))
	ie := &IntegrationError{}
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "second", ie.Moment)
	assert.Equal(t, MaxFailures, ie.Failures)
	for _, ax := range []Axis{XX, YY, ZZ, XY, XZ, YZ} {
		assert.Equal(t, zeros, d.Axis(ax))
	}

	v, err := ComputeFirstMoments(flatModel(t, 1), xs, ys, bad)
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "first", ie.Moment)
	assert.Equal(t, zeros, v.Vx)
	assert.Equal(t, zeros, v.Vy)
	assert.Equal(t, zeros, v.Vz)
}

func TestDomainError(t *testing.T) {
	m := flatModel(t, 1)
	m.Incl = 0.3

	_, err := ComputeSecondMoments(m, AllAxes, []float64{1}, []float64{1}, Options{})
	assert.True(t, errors.Is(err, mge.ErrDomain))
	_, err = ComputeFirstMoments(m, []float64{1}, []float64{1}, Options{})
	assert.True(t, errors.Is(err, mge.ErrDomain))
}

func TestGridMatchesDirect(t *testing.T) {
	m := flatModel(t, 0)

	n := 300
	xs, ys := make([]float64, n), make([]float64, n)
	for i := range xs {
		r := 0.3 * math.Pow(10, float64(i)/float64(n-1))
		theta := 2.39996 * float64(i)
		xs[i], ys[i] = r*math.Cos(theta), r*math.Sin(theta)
	}

	grid := Options{NRad: 25, NAng: 10}
	direct := Options{NRad: 50, NAng: 10}
	require.True(t, useGrid(grid.fill(), n))
	require.False(t, useGrid(direct.fill(), n))

	gd, err := ComputeSecondMoments(m, AllAxes, xs, ys, grid)
	require.NoError(t, err)
	dd, err := ComputeSecondMoments(m, AllAxes, xs, ys, direct)
	require.NoError(t, err)

	qmed := m.Lum.MedianFlattening(0)
	var want, got []float64
	for _, ax := range []Axis{XX, YY, ZZ} {
		for i := range xs {
			rell := math.Hypot(xs[i], ys[i]/qmed)
			if rell < 0.6 || rell > 1.5 { continue }
			want = append(want, dd.Axis(ax)[i])
			got = append(got, gd.Axis(ax)[i])
		}
	}
	require.NotEmpty(t, want)

	opt := cmpopts.EquateApprox(1e-3, 0)
	if diff := cmp.Diff(want, got, opt); diff != "" {
		t.Errorf("Grid and direct moments differ (-direct +grid):\n%s", diff)
	}
}

func TestFirstPowerRefinement(t *testing.T) {
	table := []struct {
		kappa float64
		tols  []quad.Tolerance
	}{
		{0, []quad.Tolerance{losTol, looseLosTol}},
		{1, []quad.Tolerance{losTol, looseLosTol, losTol}},
	}

	for i, test := range table {
		rec := &recorder{Integrator: quad.Default()}
		opt := Options{Integrator: rec, Workers: 1}
		v, err := WeightedFirstMoments(
			flatModel(t, test.kappa), []float64{0.4}, []float64{0.3},
			opt, &Counter{},
		)
		require.NoError(t, err)

		if diff := cmp.Diff(test.tols, rec.tols); diff != "" {
			t.Errorf("%d) Wrong tolerances (-want +got):\n%s", i, diff)
		}
		if test.kappa == 0 {
			assert.Equal(t, []float64{0}, v.Vx)
		}
	}
}

// physicalModel is a rotating, inclined model with pc-scale sigmas and
// Msun/pc^2-scale areas.
func physicalModel(t *testing.T) *Model {
	sigma, q := []float64{60, 200}, []float64{0.8, 0.7}
	lum := mustMGE(t, []float64{1e4, 2e3}, sigma, q)
	pot := mustMGE(t, []float64{3e4, 6e3}, sigma, q)
	return &Model{lum, pot, []float64{0.2, 0}, []float64{1, 0.5}, 1.0}
}

// assertClose checks that |got[i] - want[i]| <= tol*scale[i] for every i.
func assertClose(t *testing.T, name string, want, got, scale []float64, tol float64) {
	t.Helper()
	for i := range want {
		if math.Abs(got[i]-want[i]) > tol*scale[i] {
			t.Errorf("%d) Expected %s = %g. Got %g.", i, name, want[i], got[i])
		}
	}
}

func TestGridMatchesDirectRotating(t *testing.T) {
	m := physicalModel(t)
	require.True(t, m.Rotating())

	n := 300
	xs, ys := make([]float64, n), make([]float64, n)
	for i := range xs {
		r := 40 * math.Pow(10, float64(i)/float64(n-1))
		theta := 2.39996 * float64(i)
		xs[i], ys[i] = r*math.Cos(theta), r*math.Sin(theta)
	}

	grid := Options{NRad: 25, NAng: 10}
	direct := Options{NRad: 50, NAng: 10}
	require.True(t, useGrid(grid.fill(), n))
	require.False(t, useGrid(direct.fill(), n))

	gv, err := ComputeFirstMoments(m, xs, ys, grid)
	require.NoError(t, err)
	dv, err := ComputeFirstMoments(m, xs, ys, direct)
	require.NoError(t, err)
	gd, err := ComputeSecondMoments(m, AllAxes, xs, ys, grid)
	require.NoError(t, err)
	dd, err := ComputeSecondMoments(m, AllAxes, xs, ys, direct)
	require.NoError(t, err)

	// Stay away from the radial edges of the grid.
	qmed := m.Lum.MedianFlattening(0)
	var idx []int
	for i := range xs {
		rell := math.Hypot(xs[i], ys[i]/qmed)
		if rell >= 80 && rell <= 300 { idx = append(idx, i) }
	}
	require.NotEmpty(t, idx)
	pick := func(xs []float64) []float64 {
		out := make([]float64, len(idx))
		for j, i := range idx { out[j] = xs[i] }
		return out
	}

	// Every quadrant must be present for the mirroring to be checked.
	quads := map[[2]bool]bool{}
	for _, i := range idx { quads[[2]bool{xs[i] > 0, ys[i] > 0}] = true }
	require.Len(t, quads, 4)

	vels := []struct {
		name      string
		grid, dir []float64
	}{
		{"vx", gv.Vx, dv.Vx}, {"vy", gv.Vy, dv.Vy}, {"vz", gv.Vz, dv.Vz},
	}
	for _, v := range vels {
		want := pick(v.dir)
		vMax := math.Max(math.Abs(floats.Max(want)), math.Abs(floats.Min(want)))
		require.True(t, vMax > 1, "%s is unexpectedly small", v.name)

		scale := make([]float64, len(want))
		for i := range scale { scale[i] = vMax }
		assertClose(t, v.name, want, pick(v.grid), scale, 1e-2)
	}

	xx := pick(dd.XX)
	for _, ax := range []Axis{XY, XZ, YZ} {
		want := pick(dd.Axis(ax))
		require.NotEqual(t, 0.0, floats.Norm(want, 2))
		assertClose(t, ax.String(), want, pick(gd.Axis(ax)), xx, 1e-2)
	}
}
