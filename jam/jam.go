/*Package jam computes the velocity moments of axisymmetric Jeans
Anisotropic MGE models.

The package is split into four layers. The integrand kernels evaluate the
reduced Jeans-equation algebra for a single value of the integration variable.
WeightedFirstMoments and WeightedSecondMoments drive adaptive quadrature over
those kernels to produce surface-brightness-weighted moments at sky positions.
FirstMoments and SecondMoment normalize those moments, either directly or by
interpolating from a polar grid when that is cheaper. Finally,
ComputeFirstMoments and ComputeSecondMoments apply the symmetry shortcuts and
throw away any batch in which an integral failed to converge.

All lengths are in parsecs, masses in solar masses, and velocities in km/s.
*/
package jam

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

const (
	// G is the gravitational constant in (km/s)^2 pc / Msun.
	G = 0.00430237
	// MaxFailures is the value at which a Counter stops counting.
	MaxFailures = 10
)

// ErrNonConvergence is matched by every *IntegrationError.
var ErrNonConvergence = errors.New("jam: integral did not converge")

// IntegrationError is returned when at least one integral in a batch of
// moments failed to converge. The moments returned alongside it have all been
// set to zero.
type IntegrationError struct {
	// Failures is the number of unconverged integrals, saturated at
	// MaxFailures.
	Failures int
	// Moment is either "first" or "second".
	Moment string
}

func (err *IntegrationError) Error() string {
	return fmt.Sprintf(
		"%d integral(s) in the %s moment calculation did not converge "+
			"(counts saturate at %d), so every %s moment was set to zero.",
		err.Failures, err.Moment, MaxFailures, err.Moment,
	)
}

func (err *IntegrationError) Unwrap() error { return ErrNonConvergence }

// Counter counts unconverged integrals. It saturates at MaxFailures, so it is
// best thought of as an "any failure occurred" flag with a rough magnitude
// attached. The zero value is ready to use and a Counter is safe for
// concurrent use.
type Counter struct {
	n atomic.Int32
}

// Add records one failure.
func (c *Counter) Add() {
	for {
		n := c.n.Load()
		if n >= MaxFailures { return }
		if c.n.CompareAndSwap(n, n+1) { return }
	}
}

// Count returns the number of recorded failures.
func (c *Counter) Count() int { return int(c.n.Load()) }

// Failed returns true if any failure has been recorded.
func (c *Counter) Failed() bool { return c.n.Load() > 0 }

// Reset clears the counter.
func (c *Counter) Reset() { c.n.Store(0) }

// Axis selects one component of the second-moment tensor.
type Axis int

const (
	XX Axis = iota
	YY
	ZZ
	XY
	XZ
	YZ
)

var axisNames = []string{"xx", "yy", "zz", "xy", "xz", "yz"}

func (a Axis) String() string {
	if !a.valid() { return fmt.Sprintf("Axis(%d)", int(a)) }
	return axisNames[a]
}

func (a Axis) valid() bool { return a >= XX && a <= YZ }

// Axes is a set of sky axes. The second-moment component ij is computed
// only if both i and j are in the set.
type Axes uint8

const (
	X Axes = 1 << iota
	Y
	Z

	AllAxes = X | Y | Z
)

// Has returns true if every axis in b is also in a.
func (a Axes) Has(b Axes) bool { return a&b == b }

// Wants returns true if the tensor component ax is needed for the axis set.
func (a Axes) Wants(ax Axis) bool {
	switch ax {
	case XX: return a.Has(X)
	case YY: return a.Has(Y)
	case ZZ: return a.Has(Z)
	case XY: return a.Has(X | Y)
	case XZ: return a.Has(X | Z)
	case YZ: return a.Has(Y | Z)
	}
	return false
}

func (a Axes) String() string {
	s := ""
	if a.Has(X) { s += "x" }
	if a.Has(Y) { s += "y" }
	if a.Has(Z) { s += "z" }
	return s
}

// ParseAxes parses a string like "xz" into an axis set. Letters may appear
// in any order and case.
func ParseAxes(s string) (Axes, error) {
	var a Axes
	for _, c := range strings.ToLower(s) {
		switch c {
		case 'x': a |= X
		case 'y': a |= Y
		case 'z': a |= Z
		default:
			return 0, fmt.Errorf(
				"Axis string '%s' contains '%c', which is not one of x, y, or z.",
				s, c,
			)
		}
	}
	return a, nil
}
