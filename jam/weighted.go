package jam

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// Velocities holds the three components of the first moment at a set of
// points.
type Velocities struct {
	Vx, Vy, Vz []float64
}

func newVelocities(n int) *Velocities {
	return &Velocities{
		make([]float64, n), make([]float64, n), make([]float64, n),
	}
}

func (v *Velocities) zero() {
	for _, xs := range [][]float64{v.Vx, v.Vy, v.Vz} {
		for i := range xs { xs[i] = 0 }
	}
}

// parallel calls f(i) for every i in [0, n), split across workers
// goroutines.
func parallel(n, workers int, f func(i int)) {
	if workers > n { workers = n }
	if workers < 1 { workers = 1 }

	g := new(errgroup.Group)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := w; i < n; i += workers { f(i) }
			return nil
		})
	}
	_ = g.Wait()
}

func checkPoints(xs, ys []float64) error {
	if len(xs) != len(ys) {
		return fmt.Errorf(
			"Given %d x values but %d y values.", len(xs), len(ys),
		)
	}
	return nil
}

// WeightedFirstMoments computes the surface-brightness-weighted first
// moments of m at the sky positions (xs[i], ys[i]). Each integral that fails
// to converge is recorded in failures.
func WeightedFirstMoments(
	m *Model, xs, ys []float64, opt Options, failures *Counter,
) (*Velocities, error) {
	if err := checkPoints(xs, ys); err != nil { return nil, err }
	opt = opt.fill()

	p, err := newParams(m, opt.Integrator, failures)
	if err != nil { return nil, err }

	lim := 4 * p.lum.MaxSigma()
	trpig := 2 * math.Sqrt(math.Pi*G)

	out := newVelocities(len(xs))
	parallel(len(xs), opt.Workers, func(i int) {
		xp, yp := xs[i], ys[i]

		iz0 := p.integrate(func(zp float64) float64 {
			return p.los(zp, xp, yp, false)
		}, -lim, lim, losTol)

		f1 := func(zp float64) float64 { return p.los(zp, xp, yp, true) }
		// The first-power integral vanishes by symmetry for many points, so
		// check cheaply before asking for the full tolerance.
		iz1 := p.integrate(f1, -lim, lim, looseLosTol)
		if math.Abs(iz1) != 0 {
			iz1 = p.integrate(f1, -lim, lim, losTol)
		}

		out.Vx[i] = trpig * (yp*p.ci*iz0 - p.si*iz1)
		out.Vy[i] = -trpig * xp * p.ci * iz0
		out.Vz[i] = trpig * xp * p.si * iz0
	})

	return out, nil
}

// WeightedSecondMoments computes the surface-brightness-weighted second
// moment ax of m at the sky positions (xs[i], ys[i]). The xy and xz
// components are returned unsigned: their signs are set by SecondMoment.
// Each integral that fails to converge is recorded in failures.
func WeightedSecondMoments(
	m *Model, ax Axis, xs, ys []float64, opt Options, failures *Counter,
) ([]float64, error) {
	if err := checkPoints(xs, ys); err != nil { return nil, err }
	if !ax.valid() {
		return nil, fmt.Errorf(
			"No integral selected: %v is not one of xx, yy, zz, xy, xz, or yz.",
			ax,
		)
	}
	opt = opt.fill()

	p, err := newParams(m, opt.Integrator, failures)
	if err != nil { return nil, err }

	out := make([]float64, len(xs))
	parallel(len(xs), opt.Workers, func(i int) {
		pt := rmsPoint{xs[i] * xs[i], ys[i] * ys[i], math.Abs(xs[i] * ys[i])}
		out[i] = p.integrate(func(u float64) float64 {
			return p.rms(u, pt, ax)
		}, 0, 1, innerTol)
	})

	return out, nil
}
