/*Package mge contains the Multi-Gaussian Expansion type used to describe the
luminous and mass distributions of axisymmetric models, along with the
routines which move MGEs between projected and intrinsic coordinates.

An MGE is either projected (areas are surface densities and flattenings are
observed on the sky) or intrinsic (areas are volume densities). Nothing in the
type itself records which one a value is, so callers are responsible for never
mixing the two.
*/
package mge

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// MinIntrinsicQ is the smallest intrinsic flattening a deprojected component
// is allowed to have.
const MinIntrinsicQ = 0.05

// MGE is a sum of Gaussian components. Area, Sigma, and Q always have the
// same length. An MGE is never modified after it has been constructed: all
// of the functions in this package which change components return new
// values.
type MGE struct {
	Area, Sigma, Q []float64
}

// New creates an MGE from the given component arrays. The arrays are copied.
func New(area, sigma, q []float64) (MGE, error) {
	if len(area) != len(sigma) || len(area) != len(q) {
		return MGE{}, fmt.Errorf(
			"MGE component arrays have unequal lengths: len(area) = %d, "+
				"len(sigma) = %d, len(q) = %d.", len(area), len(sigma), len(q),
		)
	}

	for i := range area {
		if !(sigma[i] > 0) {
			return MGE{}, fmt.Errorf(
				"MGE component %d has non-positive sigma %g.", i, sigma[i],
			)
		} else if !(q[i] > 0) || q[i] > 1 {
			return MGE{}, fmt.Errorf(
				"MGE component %d has flattening %g outside of (0, 1].", i, q[i],
			)
		}
	}

	m := MGE{
		Area:  append([]float64{}, area...),
		Sigma: append([]float64{}, sigma...),
		Q:     append([]float64{}, q...),
	}
	return m, nil
}

// Len returns the number of components in the MGE.
func (m MGE) Len() int { return len(m.Area) }

// Copy returns a deep copy of m.
func (m MGE) Copy() MGE {
	return MGE{
		Area:  append([]float64{}, m.Area...),
		Sigma: append([]float64{}, m.Sigma...),
		Q:     append([]float64{}, m.Q...),
	}
}

// ScaleSigma returns a copy of m with every dispersion multiplied by k. This
// is how MGEs given in arcseconds are converted to parsecs.
func (m MGE) ScaleSigma(k float64) MGE {
	out := m.Copy()
	floats.Scale(k, out.Sigma)
	return out
}

// ScaleAreas returns a copy of m with the area of component i multiplied by
// ks[i]. Used to turn a luminous MGE into a mass MGE with per-component
// mass-to-light ratios.
func (m MGE) ScaleAreas(ks []float64) (MGE, error) {
	if len(ks) != m.Len() {
		return MGE{}, fmt.Errorf(
			"Given %d area scalings for an MGE with %d components.",
			len(ks), m.Len(),
		)
	}
	out := m.Copy()
	floats.Mul(out.Area, ks)
	return out, nil
}

// AddPointMass returns a new MGE with a point mass prepended as a round
// Gaussian of the given scale length. If either mass or scaleLength is not
// positive, m is returned unchanged.
func (m MGE) AddPointMass(mass, scaleLength float64) MGE {
	if !(mass > 0 && scaleLength > 0) { return m }

	out := MGE{
		Area:  make([]float64, 0, m.Len()+1),
		Sigma: make([]float64, 0, m.Len()+1),
		Q:     make([]float64, 0, m.Len()+1),
	}
	out.Area = append(out.Area, mass/(2*math.Pi*scaleLength*scaleLength))
	out.Sigma = append(out.Sigma, scaleLength)
	out.Q = append(out.Q, 1)

	out.Area = append(out.Area, m.Area...)
	out.Sigma = append(out.Sigma, m.Sigma...)
	out.Q = append(out.Q, m.Q...)
	return out
}

// SurfaceDensity evaluates a projected MGE at the sky position (x, y).
func (m MGE) SurfaceDensity(x, y float64) float64 {
	sum := 0.0
	for i := range m.Area {
		yq := y / m.Q[i]
		sum += m.Area[i] * math.Exp(
			-0.5/(m.Sigma[i]*m.Sigma[i])*(x*x+yq*yq),
		)
	}
	return sum
}

// SurfaceDensities evaluates SurfaceDensity at every point in xs and ys. If
// out is given, results are written into it.
func (m MGE) SurfaceDensities(xs, ys []float64, out ...[]float64) []float64 {
	if len(out) == 0 { out = [][]float64{make([]float64, len(xs))} }
	for i := range xs {
		out[0][i] = m.SurfaceDensity(xs[i], ys[i])
	}
	return out[0]
}

// VolumeDensity evaluates an intrinsic MGE at cylindrical radius r and height
// z.
func (m MGE) VolumeDensity(r, z float64) float64 {
	sum := 0.0
	for i := range m.Area {
		zq := z / m.Q[i]
		sum += m.Area[i] * math.Exp(
			-0.5/(m.Sigma[i]*m.Sigma[i])*(r*r+zq*zq),
		)
	}
	return sum
}

// MaxSigma returns the largest dispersion in the MGE, or zero for an empty
// MGE.
func (m MGE) MaxSigma() float64 {
	if m.Len() == 0 { return 0 }
	return floats.Max(m.Sigma)
}

// MedianFlattening returns the median flattening of the components with
// sigma < sigmaLimit. If fewer than three components qualify, the median is
// taken over every component instead.
func (m MGE) MedianFlattening(sigmaLimit float64) float64 {
	qs := make([]float64, 0, m.Len())
	for i := range m.Q {
		if m.Sigma[i] < sigmaLimit { qs = append(qs, m.Q[i]) }
	}
	if len(qs) < 3 {
		qs = append(qs[:0], m.Q...)
	}
	return median(qs)
}

// median sorts xs in place.
func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 { return math.NaN() }
	sort.Float64s(xs)
	if n%2 == 0 {
		return (xs[n/2] + xs[n/2-1]) / 2
	}
	return xs[n/2]
}
