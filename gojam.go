/*Package gojam computes the first and second velocity moments of
axisymmetric Jeans Anisotropic MGE models at a set of sky positions.

Moments is the main entry point: it takes MGEs and positions in the units they
are usually observed in (arcseconds) and does all of the unit conversion and
model assembly before handing off to package jam.
*/
package gojam

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/gojam/io"
	"github.com/phil-mansfield/gojam/jam"
	"github.com/phil-mansfield/gojam/mge"
)

// Params are the physical parameters of a model.
type Params struct {
	// Beta and Kappa have one value per luminous component and ML has one
	// value per mass component.
	Beta, Kappa, ML []float64
	// Incl is the inclination in radians and Dist is the distance in kpc.
	Incl, Dist float64
	// MBH is the black hole mass in Msun and RBH is its scale length in
	// arcseconds. The black hole is ignored unless both are positive.
	MBH, RBH float64
	// Axes selects which second moments are computed. Zero means all of
	// them.
	Axes jam.Axes
}

func (p *Params) check(lum, pot mge.MGE) error {
	if len(p.ML) != pot.Len() {
		return fmt.Errorf(
			"Given %d mass-to-light ratios for %d mass components.",
			len(p.ML), pot.Len(),
		)
	} else if !(p.Dist > 0) {
		return fmt.Errorf("Distance must be positive, but is %g.", p.Dist)
	} else if p.MBH < 0 || p.RBH < 0 {
		return fmt.Errorf(
			"Black hole mass %g and radius %g cannot be negative.",
			p.MBH, p.RBH,
		)
	}
	return nil
}

// Result holds the moments at every position.
type Result struct {
	*jam.Velocities
	*jam.Dispersions
}

// Model converts the MGEs, whose sigmas are in arcseconds, into a jam.Model
// in parsecs. The mass MGE is scaled by the mass-to-light ratios and gains
// the black hole.
func (p *Params) Model(lum, pot mge.MGE) (*jam.Model, error) {
	if err := p.check(lum, pot); err != nil { return nil, err }

	scale := io.ArcsecToParsec(p.Dist)
	pot, err := pot.ScaleSigma(scale).ScaleAreas(p.ML)
	if err != nil { return nil, err }

	m := &jam.Model{
		Lum:   lum.ScaleSigma(scale),
		Pot:   pot.AddPointMass(p.MBH, p.RBH*scale),
		Beta:  p.Beta,
		Kappa: p.Kappa,
		Incl:  p.Incl,
	}
	if err := m.Validate(); err != nil { return nil, err }
	return m, nil
}

// Moments computes the first and second moments of the model described by
// lum, pot, and p at the sky positions (xs[i], ys[i]), given in arcseconds.
//
// Both sets of moments are always computed. If either one fails to converge,
// it is zeroed and the returned error wraps jam.ErrNonConvergence, but the
// Result is still returned. Any other error returns a nil Result.
func Moments(
	lum, pot mge.MGE, p *Params, xs, ys []float64, opt jam.Options,
) (*Result, error) {
	m, err := p.Model(lum, pot)
	if err != nil { return nil, err }
	if len(xs) != len(ys) {
		return nil, fmt.Errorf(
			"Given %d x positions but %d y positions.", len(xs), len(ys),
		)
	}

	scale := io.ArcsecToParsec(p.Dist)
	xsPc, ysPc := make([]float64, len(xs)), make([]float64, len(ys))
	floats.ScaleTo(xsPc, scale, xs)
	floats.ScaleTo(ysPc, scale, ys)

	axes := p.Axes
	if axes == 0 { axes = jam.AllAxes }

	v, vErr := jam.ComputeFirstMoments(m, xsPc, ysPc, opt)
	if vErr != nil && !errors.Is(vErr, jam.ErrNonConvergence) {
		return nil, vErr
	}
	d, dErr := jam.ComputeSecondMoments(m, axes, xsPc, ysPc, opt)
	if dErr != nil && !errors.Is(dErr, jam.ErrNonConvergence) {
		return nil, dErr
	}

	return &Result{v, d}, errors.Join(vErr, dErr)
}
