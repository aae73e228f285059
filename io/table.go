/*Package io reads the MGE, position, and config files used to set up a model
and writes the resulting moments.
*/
package io

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/gojam/jam"
	"github.com/phil-mansfield/gojam/mge"
)

const (
	// RadianToDegree is the number of degrees per radian.
	RadianToDegree = 57.29578
	// RadianToArcsec is the number of arcseconds per radian.
	RadianToArcsec = 3600 * RadianToDegree
)

// ArcsecToParsec returns the number of parsecs in an arcsecond at a
// distance of dist kpc.
func ArcsecToParsec(dist float64) float64 {
	return dist * 1e3 / RadianToArcsec
}

// ReadMGE reads an MGE with exactly n components from a file with the
// columns "index area sigma q".
func ReadMGE(file string, n int) (mge.MGE, error) {
	cols, err := table.ReadTable(file, []int{1, 2, 3}, nil)
	if err != nil { return mge.MGE{}, err }

	if len(cols[0]) != n {
		return mge.MGE{}, fmt.Errorf(
			"Expected %d MGE components in '%s', but found %d.",
			n, file, len(cols[0]),
		)
	}

	m, err := mge.New(cols[0], cols[1], cols[2])
	if err != nil {
		return mge.MGE{}, fmt.Errorf("MGE file '%s': %w", file, err)
	}
	return m, nil
}

// ReadPositions reads the "x y" sky positions in file.
func ReadPositions(file string) (xs, ys []float64, err error) {
	cols, err := table.ReadTable(file, []int{0, 1}, nil)
	if err != nil { return nil, nil, err }
	return cols[0], cols[1], nil
}

// WriteMoments writes one row per point with the columns
// "vx vy vz rxx ryy rzz rxy rxz ryz".
func WriteMoments(w io.Writer, v *jam.Velocities, d *jam.Dispersions) error {
	n := len(v.Vx)
	if len(d.XX) != n {
		return fmt.Errorf(
			"Given first moments for %d points but second moments for %d.",
			n, len(d.XX),
		)
	}

	bw := bufio.NewWriter(w)
	for i := 0; i < n; i++ {
		_, err := fmt.Fprintf(
			bw, "%f  %f  %f  %f  %f  %f  %f  %f  %f\n",
			v.Vx[i], v.Vy[i], v.Vz[i],
			d.XX[i], d.YY[i], d.ZZ[i], d.XY[i], d.XZ[i], d.YZ[i],
		)
		if err != nil { return err }
	}
	return bw.Flush()
}

// WriteMomentsFile writes the moments to the named file, as in WriteMoments.
func WriteMomentsFile(
	file string, v *jam.Velocities, d *jam.Dispersions,
) error {
	f, err := os.Create(file)
	if err != nil { return err }

	if err := WriteMoments(f, v, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
