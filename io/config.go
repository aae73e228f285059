package io

import (
	"fmt"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/gojam/jam"
)

const (
	ExampleModelFile = `[Model]

#######################
# Required Parameters #
#######################

# MGE files contain one row per Gaussian component with the columns
#     index area sigma q
# where sigma is in arcseconds. Lines starting with '#' are skipped. The
# number of components in each file must be given explicitly.
LuminousMGE = path/to/luminous_mge.txt
LuminousComponents = 7
MassMGE = path/to/mass_mge.txt
MassComponents = 7

# Positions contains one row per star with the columns
#     x y
# in arcseconds on the sky. One row of moments is written to Output for every
# row in Positions with the columns
#     vx vy vz rxx ryy rzz rxy rxz ryz
Positions = path/to/positions.txt
Output = path/to/moments.txt

# Inclination in radians (pi/2 is edge-on) and distance in kpc.
Inclination = 0.87
Distance = 5.0

# Anisotropy and rotation of each luminous component, and the mass-to-light
# ratio of each mass component. Give one line per component, or a single line
# to use the same value for every component.
Beta = 0.0
Kappa = 1.0
MassToLight = 2.5

#######################
# Optional Parameters #
#######################

# A central black hole, represented by a round Gaussian with a scale length
# in arcseconds. Both must be positive for the black hole to be used.
# BlackHoleMass = 1e6
# BlackHoleRadius = 0.01

# Size of the polar interpolation grid. The grid is only used when there are
# at least RadialBins*AngularBins positions.
# RadialBins = 25
# AngularBins = 10

# The sky axes which second moments are computed for. The cross term ij is
# only computed if both i and j are given. Unrequested moments are written
# as zero.
# Axes = xyz`
)

type ModelConfig struct {
	// Required
	LuminousMGE, MassMGE string
	LuminousComponents, MassComponents int
	Positions, Output string
	Inclination, Distance float64
	Beta, Kappa, MassToLight []float64

	// Optional
	BlackHoleMass, BlackHoleRadius float64
	RadialBins, AngularBins int
	Axes string
}

type ModelWrapper struct {
	Model ModelConfig
}

func DefaultModelWrapper() *ModelWrapper {
	con := ModelConfig{}
	con.RadialBins = jam.DefaultNRad
	con.AngularBins = jam.DefaultNAng
	con.Axes = "xyz"
	return &ModelWrapper{con}
}

func (con *ModelConfig) ValidLuminousMGE() bool {
	return con.LuminousMGE != "" && con.LuminousComponents > 0
}
func (con *ModelConfig) ValidMassMGE() bool {
	return con.MassMGE != "" && con.MassComponents > 0
}
func (con *ModelConfig) ValidPositions() bool {
	return con.Positions != ""
}
func (con *ModelConfig) ValidOutput() bool {
	return con.Output != ""
}
func (con *ModelConfig) ValidDistance() bool {
	return con.Distance > 0
}
func (con *ModelConfig) ValidBeta() bool {
	return validLength(con.Beta, con.LuminousComponents)
}
func (con *ModelConfig) ValidKappa() bool {
	return validLength(con.Kappa, con.LuminousComponents)
}
func (con *ModelConfig) ValidMassToLight() bool {
	return validLength(con.MassToLight, con.MassComponents)
}
func (con *ModelConfig) ValidBlackHole() bool {
	return con.BlackHoleMass >= 0 && con.BlackHoleRadius >= 0
}
func (con *ModelConfig) ValidGrid() bool {
	return con.RadialBins >= 2 && con.AngularBins >= 2
}
func (con *ModelConfig) ValidAxes() bool {
	_, err := jam.ParseAxes(con.Axes)
	return err == nil
}

func validLength(xs []float64, n int) bool {
	return len(xs) == 1 || (len(xs) == n && n > 0)
}

// Broadcast expands a parameter given once into one value per component.
func Broadcast(xs []float64, n int) []float64 {
	if len(xs) != 1 { return xs }
	out := make([]float64, n)
	for i := range out { out[i] = xs[0] }
	return out
}

// CheckInit validates the config and broadcasts single-valued component
// parameters.
func (con *ModelConfig) CheckInit() error {
	switch {
	case !con.ValidLuminousMGE():
		return fmt.Errorf("Invalid/non-existent 'LuminousMGE' or " +
			"'LuminousComponents' value.")
	case !con.ValidMassMGE():
		return fmt.Errorf("Invalid/non-existent 'MassMGE' or " +
			"'MassComponents' value.")
	case !con.ValidPositions():
		return fmt.Errorf("Invalid/non-existent 'Positions' value.")
	case !con.ValidOutput():
		return fmt.Errorf("Invalid/non-existent 'Output' value.")
	case !con.ValidDistance():
		return fmt.Errorf("'Distance' must be positive, but is %g.", con.Distance)
	case !con.ValidBeta():
		return fmt.Errorf(
			"Given %d 'Beta' values for %d luminous components.",
			len(con.Beta), con.LuminousComponents,
		)
	case !con.ValidKappa():
		return fmt.Errorf(
			"Given %d 'Kappa' values for %d luminous components.",
			len(con.Kappa), con.LuminousComponents,
		)
	case !con.ValidMassToLight():
		return fmt.Errorf(
			"Given %d 'MassToLight' values for %d mass components.",
			len(con.MassToLight), con.MassComponents,
		)
	case !con.ValidBlackHole():
		return fmt.Errorf("'BlackHoleMass' and 'BlackHoleRadius' cannot " +
			"be negative.")
	case !con.ValidGrid():
		return fmt.Errorf(
			"'RadialBins' and 'AngularBins' must both be at least 2, but "+
				"are %d and %d.", con.RadialBins, con.AngularBins,
		)
	case !con.ValidAxes():
		return fmt.Errorf("Invalid 'Axes' value '%s'.", con.Axes)
	}

	con.Beta = Broadcast(con.Beta, con.LuminousComponents)
	con.Kappa = Broadcast(con.Kappa, con.LuminousComponents)
	con.MassToLight = Broadcast(con.MassToLight, con.MassComponents)
	return nil
}

// ReadModelConfig reads and checks the [Model] section of a config file.
func ReadModelConfig(fname string) (*ModelConfig, error) {
	wrap := DefaultModelWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	if err := wrap.Model.CheckInit(); err != nil {
		return nil, fmt.Errorf("Config file '%s': %w", fname, err)
	}
	return &wrap.Model, nil
}
