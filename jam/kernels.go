package jam

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/gojam/math/quad"
	"github.com/phil-mansfield/gojam/mge"
)

var (
	// innerTol is used for every integral over the dimensionless variable u.
	innerTol = quad.Tolerance{Abs: 0, Rel: 1e-5}
	// losTol is used for the line-of-sight integrals of the first moments.
	losTol = quad.Tolerance{Abs: 1e-3, Rel: 1e-5}
	// looseLosTol is used to check whether a first-power line-of-sight
	// integral is zero before paying for losTol.
	looseLosTol = quad.Tolerance{Abs: 1, Rel: 1}
)

// lumRatios holds the luminous-component quantities used by the inner
// first-moment integrand. knu weights each component's contribution.
type lumRatios struct {
	knu, bani, q2l, s2q2l []float64
}

var unitWeight = []float64{1}

// component returns the ratios of component k alone, with unit weight.
func (l lumRatios) component(k int) lumRatios {
	return lumRatios{
		knu:   unitWeight,
		bani:  l.bani[k : k+1],
		q2l:   l.q2l[k : k+1],
		s2q2l: l.s2q2l[k : k+1],
	}
}

// params is the bundle of derived quantities shared by every integrand
// evaluation in one call. It is read-only once built, except for failures.
type params struct {
	lum, pot mge.MGE // intrinsic
	kappa    []float64

	lumRatios
	s2l, s2p, e2p []float64

	si, ci, si2, ci2, cisi float64

	integ    quad.Integrator
	failures *Counter
}

func newParams(
	m *Model, integ quad.Integrator, failures *Counter,
) (*params, error) {
	lum, err := m.Lum.Deproject(m.Incl)
	if err != nil {
		return nil, fmt.Errorf("Could not deproject luminous MGE: %w", err)
	}
	pot, err := m.Pot.Deproject(m.Incl)
	if err != nil {
		return nil, fmt.Errorf("Could not deproject mass MGE: %w", err)
	}

	nl, np := lum.Len(), pot.Len()
	p := &params{
		lum: lum, pot: pot,
		kappa: make([]float64, nl),
		s2l:   make([]float64, nl),
		s2p:   make([]float64, np),
		e2p:   make([]float64, np),
		integ: integ, failures: failures,
	}
	p.bani = make([]float64, nl)
	p.q2l = make([]float64, nl)
	p.s2q2l = make([]float64, nl)

	for i := 0; i < nl; i++ {
		p.kappa[i] = m.kappa(i)
		p.bani[i] = 1 / (1 - m.Beta[i])
		p.s2l[i] = lum.Sigma[i] * lum.Sigma[i]
		p.q2l[i] = lum.Q[i] * lum.Q[i]
		p.s2q2l[i] = p.s2l[i] * p.q2l[i]
	}
	for j := 0; j < np; j++ {
		p.s2p[j] = pot.Sigma[j] * pot.Sigma[j]
		p.e2p[j] = 1 - pot.Q[j]*pot.Q[j]
	}

	p.si, p.ci = math.Sincos(m.Incl)
	p.si2, p.ci2, p.cisi = p.si*p.si, p.ci*p.ci, p.ci*p.si

	return p, nil
}

// integrate runs the integrator and records a failure if it did not
// converge.
func (p *params) integrate(
	f func(float64) float64, a, b float64, tol quad.Tolerance,
) float64 {
	res := p.integ.Integrate(f, a, b, tol)
	if !res.Converged { p.failures.Add() }
	return res.Value
}

// innerFirst is the integrand over u of the first moments at intrinsic
// position (R^2, z^2) = (r2, z2), summed over every mass component and every
// luminous component in lum (Cappellari 2008, eqns. 22, 23, and 38).
func (p *params) innerFirst(u, r2, z2 float64, lum lumRatios) float64 {
	u2 := u * u

	sum := 0.0
	for j := range p.s2p {
		p2 := 1 - p.e2p[j]*u2
		hj := math.Exp(-0.5/p.s2p[j]*u2*(r2+z2/p2)) / math.Sqrt(p2)
		e := p.pot.Q[j] * p.pot.Area[j] * hj * u2

		for k := range lum.knu {
			c := p.e2p[j] - lum.s2q2l[k]/p.s2p[j]
			d := 1 - lum.bani[k]*lum.q2l[k] -
				((1-lum.bani[k])*c+p.e2p[j]*lum.bani[k])*u2
			sum += lum.knu[k] * e * d / (1 - c*u2)
		}
	}

	return sum
}

// los is the line-of-sight integrand of the first moments at sky position
// (xp, yp) and line-of-sight coordinate zp. If zPow is true, the integrand
// is multiplied by zp.
func (p *params) los(zp, xp, yp float64, zPow bool) float64 {
	dr := zp*p.si - yp*p.ci
	r2 := dr*dr + xp*xp
	z := math.Abs(zp*p.ci + yp*p.si)
	z2 := z * z

	sum := 0.0
	for i, k := range p.kappa {
		if k == 0 { continue }

		nui := p.lum.Area[i] * math.Exp(-0.5/p.s2l[i]*(r2+z2/p.q2l[i]))
		lum := p.lumRatios.component(i)
		res := p.integrate(func(u float64) float64 {
			return p.innerFirst(u, r2, z2, lum)
		}, 0, 1, innerTol)

		sum += math.Copysign(k*k, k) * nui * math.Abs(res)
	}

	// The sign of kappa is carried through the square root.
	nuSum := p.lum.VolumeDensity(math.Sqrt(r2), z) * sum
	if nuSum == 0 { return 0 }
	out := math.Copysign(math.Sqrt(math.Abs(nuSum)), nuSum)

	if zPow { out *= zp }
	return out
}

// rmsPoint holds the sky position quantities used by the rms integrand.
type rmsPoint struct {
	x2, y2, absXY float64
}

// rms is the integrand over u of the weighted second moment ax at pt.
func (p *params) rms(u float64, pt rmsPoint, ax Axis) float64 {
	u2 := u * u
	x2, y2 := pt.x2, pt.y2
	ci2, si2, cisi := p.ci2, p.si2, p.cisi

	sum := 0.0
	for j := range p.s2p {
		e2u2p := u2 * p.e2p[j]

		for k := range p.s2l {
			kani, q2l, s2q2l := p.bani[k], p.q2l[k], p.s2q2l[k]

			a := 0.5 * (u2/p.s2p[j] + 1/p.s2l[k])
			b := 0.5 * (e2u2p*u2/(p.s2p[j]*(1-e2u2p)) + (1-q2l)/s2q2l)
			c := p.e2p[j] - s2q2l/p.s2p[j]
			d := 1 - kani*q2l - ((1-kani)*c+p.e2p[j]*kani)*u2
			e := a + b*ci2

			var f float64
			switch ax {
			case XX:
				f = kani*s2q2l + 0.5*d*si2/e + d*(a+b)*(a+b)*ci2*y2/(e*e)
			case YY:
				f = s2q2l*(si2+kani*ci2) + x2*ci2*d
			case ZZ:
				f = s2q2l*(ci2+kani*si2) + x2*si2*d
			case XY:
				f = d * pt.absXY * ci2 * (a + b) / e
			case XZ:
				f = d * pt.absXY * cisi * (a + b) / e
			case YZ:
				f = cisi * (s2q2l*(1-kani) - d*x2)
			default:
				panic(fmt.Sprintf("No integrand for moment axis %v.", ax))
			}

			sum += p.lum.Area[k] * p.pot.Q[j] * p.pot.Area[j] * u2 /
				(1 - c*u2) / math.Sqrt((1-e2u2p)*e) *
				f * math.Exp(-a*(x2+y2*(a+b)/e))
		}
	}

	return 4 * math.Pow(math.Pi, 1.5) * G * sum
}
