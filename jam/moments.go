package jam

// Dispersions holds the six independent components of the second-moment
// tensor at a set of points. Components which were not requested are zero.
type Dispersions struct {
	XX, YY, ZZ, XY, XZ, YZ []float64
}

func newDispersions(n int) *Dispersions {
	d := &Dispersions{}
	for _, ax := range []Axis{XX, YY, ZZ, XY, XZ, YZ} {
		*d.ptr(ax) = make([]float64, n)
	}
	return d
}

func (d *Dispersions) ptr(ax Axis) *[]float64 {
	switch ax {
	case XX: return &d.XX
	case YY: return &d.YY
	case ZZ: return &d.ZZ
	case XY: return &d.XY
	case XZ: return &d.XZ
	case YZ: return &d.YZ
	}
	panic("Invalid moment axis.")
}

// Axis returns the values of component ax.
func (d *Dispersions) Axis(ax Axis) []float64 { return *d.ptr(ax) }

func (d *Dispersions) zero() {
	for _, ax := range []Axis{XX, YY, ZZ, XY, XZ, YZ} {
		xs := d.Axis(ax)
		for i := range xs { xs[i] = 0 }
	}
}

// ComputeFirstMoments computes the first moments of m at the sky positions
// (xs[i], ys[i]). Models without net streaming get zero moments without any
// integration.
//
// If any integral fails to converge, every moment is set to zero and an
// *IntegrationError is returned along with them.
func ComputeFirstMoments(
	m *Model, xs, ys []float64, opt Options,
) (*Velocities, error) {
	if err := m.Validate(); err != nil { return nil, err }
	if err := opt.Validate(); err != nil { return nil, err }
	if err := checkPoints(xs, ys); err != nil { return nil, err }

	if !m.Rotating() { return newVelocities(len(xs)), nil }

	failures := &Counter{}
	v, err := FirstMoments(m, xs, ys, opt, failures)
	if err != nil { return nil, err }

	if failures.Failed() {
		v.zero()
		return v, &IntegrationError{failures.Count(), "first"}
	}
	return v, nil
}

// ComputeSecondMoments computes the components of the second-moment tensor
// of m needed by axes at the sky positions (xs[i], ys[i]). For spherical,
// isotropic models only xx is integrated: yy and zz are copies of it and the
// cross terms are zero.
//
// If any integral fails to converge, every moment is set to zero and an
// *IntegrationError is returned along with them.
func ComputeSecondMoments(
	m *Model, axes Axes, xs, ys []float64, opt Options,
) (*Dispersions, error) {
	if err := m.Validate(); err != nil { return nil, err }
	if err := opt.Validate(); err != nil { return nil, err }
	if err := checkPoints(xs, ys); err != nil { return nil, err }

	d := newDispersions(len(xs))
	if axes&AllAxes == 0 { return d, nil }

	failures := &Counter{}
	if m.Spherical() {
		mu, err := SecondMoment(m, XX, xs, ys, opt, failures)
		if err != nil { return nil, err }
		for _, ax := range []Axis{XX, YY, ZZ} {
			if axes.Wants(ax) { copy(d.Axis(ax), mu) }
		}
	} else {
		for _, ax := range []Axis{XX, YY, ZZ, XY, XZ, YZ} {
			if !axes.Wants(ax) { continue }
			mu, err := SecondMoment(m, ax, xs, ys, opt, failures)
			if err != nil { return nil, err }
			*d.ptr(ax) = mu
		}
	}

	if failures.Failed() {
		d.zero()
		return d, &IntegrationError{failures.Count(), "second"}
	}
	return d, nil
}
