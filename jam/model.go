package jam

import (
	"fmt"
	"math"
	"runtime"

	"github.com/phil-mansfield/gojam/math/quad"
	"github.com/phil-mansfield/gojam/mge"
)

const (
	DefaultNRad = 25
	DefaultNAng = 10
)

// Model is an axisymmetric JAM model. Both MGEs are projected and in
// parsecs. Pot is the total mass distribution: it has already been scaled by
// the mass-to-light ratio and carries any central black hole.
type Model struct {
	Lum, Pot mge.MGE
	// Beta and Kappa hold the anisotropy and rotation parameter of each
	// luminous component. A nil Kappa is a non-rotating model.
	Beta, Kappa []float64
	// Incl is the inclination in radians. pi/2 is edge-on.
	Incl float64
}

// Validate checks that the parts of the model are consistent with one
// another. It does not check whether the model can be deprojected.
func (m *Model) Validate() error {
	if m.Lum.Len() == 0 {
		return fmt.Errorf("The luminous MGE has no components.")
	} else if m.Pot.Len() == 0 {
		return fmt.Errorf("The mass MGE has no components.")
	} else if len(m.Beta) != m.Lum.Len() {
		return fmt.Errorf(
			"Given %d anisotropies for %d luminous components.",
			len(m.Beta), m.Lum.Len(),
		)
	} else if m.Kappa != nil && len(m.Kappa) != m.Lum.Len() {
		return fmt.Errorf(
			"Given %d rotation parameters for %d luminous components.",
			len(m.Kappa), m.Lum.Len(),
		)
	} else if math.IsNaN(m.Incl) || math.IsInf(m.Incl, 0) {
		return fmt.Errorf("Inclination %g is not finite.", m.Incl)
	}

	for i, b := range m.Beta {
		if !(b < 1) {
			return fmt.Errorf(
				"Luminous component %d has anisotropy %g, but beta must be "+
					"less than 1.", i, b,
			)
		}
	}
	for i, k := range m.Kappa {
		if math.IsNaN(k) || math.IsInf(k, 0) {
			return fmt.Errorf(
				"Luminous component %d has rotation parameter %g.", i, k,
			)
		}
	}

	return nil
}

func (m *Model) kappa(i int) float64 {
	if m.Kappa == nil { return 0 }
	return m.Kappa[i]
}

// Rotating returns true if the model has any net streaming motion. That
// requires at least one luminous component with a non-zero rotation parameter
// which is also anisotropic, flattened, or sitting in a flattened potential.
func (m *Model) Rotating() bool {
	potFlat := false
	for _, q := range m.Pot.Q {
		if q != 1 { potFlat = true }
	}

	for k := range m.Beta {
		if m.kappa(k) != 0 &&
			(m.Beta[k] != 0 || m.Lum.Q[k] != 1 || potFlat) {

			return true
		}
	}
	return false
}

// Spherical returns true if the model is both spherical and isotropic. The
// second-moment tensor of such a model is diagonal with equal entries.
func (m *Model) Spherical() bool {
	for _, b := range m.Beta {
		if b != 0 { return false }
	}
	for _, q := range m.Lum.Q {
		if q != 1 { return false }
	}
	for _, q := range m.Pot.Q {
		if q != 1 { return false }
	}
	return true
}

// Options control how moments are computed.
type Options struct {
	// NRad and NAng are the numbers of radial and angular polar grid nodes.
	// The grid is only used when NRad*NAng is at most the number of
	// points.
	NRad, NAng int
	// Workers is the number of goroutines used to evaluate integrals.
	Workers int
	// Integrator is used for every integral. It must be safe for
	// concurrent use if Workers > 1.
	Integrator quad.Integrator
}

// DefaultOptions returns the default Options.
func DefaultOptions() Options {
	return Options{
		NRad:       DefaultNRad,
		NAng:       DefaultNAng,
		Workers:    runtime.NumCPU(),
		Integrator: quad.Default(),
	}
}

// fill replaces zero-valued fields with their defaults.
func (opt Options) fill() Options {
	def := DefaultOptions()
	if opt.NRad == 0 { opt.NRad = def.NRad }
	if opt.NAng == 0 { opt.NAng = def.NAng }
	if opt.Workers <= 0 { opt.Workers = def.Workers }
	if opt.Integrator == nil { opt.Integrator = def.Integrator }
	return opt
}

// Validate checks that the grid is large enough to be interpolated over.
func (opt Options) Validate() error {
	opt = opt.fill()
	if opt.NRad < 2 {
		return fmt.Errorf("NRad is %d, but must be at least 2.", opt.NRad)
	} else if opt.NAng < 2 {
		return fmt.Errorf("NAng is %d, but must be at least 2.", opt.NAng)
	}
	return nil
}
