package interpolate

import (
	"fmt"
)

// TriDiagAt solves the system of equations
//
// | b0 c0 ..    |   | out0 |   | r0 |
// | a1 b1 c1 .. |   | out1 |   | r1 |
// | ..          | * | ..   | = | .. |
// | ..    an bn |   | outn |   | rn |
//
// For out0 .. outn in place in the given slice. a0 and cn are ignored.
func TriDiagAt(as, bs, cs, rs, out []float64) {
	if len(as) != len(bs) || len(as) != len(cs) ||
		len(as) != len(out) || len(as) != len(rs) {

		panic("Length of arguments to TriDiagAt are unequal.")
	}

	tmp := make([]float64, len(as))

	beta := bs[0]
	if beta == 0 {
		panic("TriDiagAt cannot solve given system.")
	}
	out[0] = rs[0] / beta

	for i := 1; i < len(out); i++ {
		tmp[i] = cs[i-1] / beta
		beta = bs[i] - as[i]*tmp[i]
		if beta == 0 {
			panic("TriDiagAt cannot solve given system.")
		}
		out[i] = (rs[i] - as[i]*out[i-1]) / beta
	}

	for i := len(out) - 2; i >= 0; i-- {
		out[i] -= tmp[i+1] * out[i+1]
	}
}

// CyclicTriDiagAt solves the same system as TriDiagAt, except with the
// additional corner elements alpha (bottom left) and beta (top right):
//
// | b0 c0 ..     beta |
// | a1 b1 c1 ..       |
// | ..                |
// | alpha ..    an bn |
//
// The system must have at least three rows.
func CyclicTriDiagAt(as, bs, cs []float64, alpha, beta float64, rs, out []float64) {
	n := len(bs)
	if n < 3 {
		panic(fmt.Sprintf(
			"CyclicTriDiagAt needs at least 3 rows, but was given %d.", n,
		))
	}

	// Sherman-Morrison: solve a tridiagonal system for a modified diagonal,
	// then correct it with a rank one update.
	gamma := -bs[0]
	bb := make([]float64, n)
	copy(bb, bs)
	bb[0] = bs[0] - gamma
	bb[n-1] = bs[n-1] - alpha*beta/gamma

	TriDiagAt(as, bb, cs, rs, out)

	u, z := make([]float64, n), make([]float64, n)
	u[0], u[n-1] = gamma, alpha
	TriDiagAt(as, bb, cs, u, z)

	fact := (out[0] + beta*out[n-1]/gamma) /
		(1 + z[0] + beta*z[n-1]/gamma)
	for i := range out {
		out[i] -= fact * z[i]
	}
}
