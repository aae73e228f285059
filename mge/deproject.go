package mge

import (
	"errors"
	"fmt"
	"math"
)

// ErrDomain is matched by every *DomainError.
var ErrDomain = errors.New("mge: model not deprojectable")

// DomainError reports a component which cannot be deprojected at the given
// inclination.
type DomainError struct {
	Component   int
	Inclination float64
	// Q is the projected flattening of the offending component, and
	// Intrinsic is its intrinsic flattening (NaN if q^2 - cos^2(i) < 0).
	Q, Intrinsic float64
}

func (err *DomainError) Error() string {
	if math.IsNaN(err.Intrinsic) {
		return fmt.Sprintf(
			"Inclination %g is too low for MGE component %d with q = %g: "+
				"the intrinsic q^2 is negative.",
			err.Inclination, err.Component, err.Q,
		)
	}
	return fmt.Sprintf(
		"MGE component %d with q = %g has intrinsic q = %g < %g at "+
			"inclination %g.",
		err.Component, err.Q, err.Intrinsic, MinIntrinsicQ, err.Inclination,
	)
}

func (err *DomainError) Is(target error) bool { return target == ErrDomain }

// Deproject converts a projected MGE to an intrinsic MGE viewed at the given
// inclination (radians, pi/2 being edge-on). Sigmas are unchanged, areas are
// converted from surface density to volume density.
func (m MGE) Deproject(incl float64) (MGE, error) {
	si, ci := math.Sincos(incl)

	out := MGE{
		Area:  make([]float64, m.Len()),
		Sigma: make([]float64, m.Len()),
		Q:     make([]float64, m.Len()),
	}

	for i := range m.Area {
		out.Sigma[i] = m.Sigma[i]

		// Round components are round from every direction.
		if m.Q[i] == 1 {
			out.Q[i] = 1
			out.Area[i] = m.Area[i] / m.Sigma[i] / math.Sqrt(2*math.Pi)
			continue
		}

		q2 := m.Q[i]*m.Q[i] - ci*ci
		if q2 < 0 {
			return MGE{}, &DomainError{i, incl, m.Q[i], math.NaN()}
		}
		q := math.Sqrt(q2) / si
		if q < MinIntrinsicQ {
			return MGE{}, &DomainError{i, incl, m.Q[i], q}
		}
		out.Q[i] = q

		out.Area[i] = m.Area[i] * m.Q[i] / m.Sigma[i] / q /
			math.Sqrt(2*math.Pi)
	}

	return out, nil
}
