package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"

	"github.com/phil-mansfield/gojam"
	"github.com/phil-mansfield/gojam/io"
	"github.com/phil-mansfield/gojam/jam"
)

const usage = `Usage:
    gojam -Config model.ini
    gojam -ExampleConfig
    gojam flmge nlg fmmge nmg fxy fmom incl dist mbh rbh beta... kappa... ml...

Positional arguments:
    flmge : path to luminous MGE
    nlg   : number of luminous MGE components
    fmmge : path to mass MGE
    nmg   : number of mass MGE components
    fxy   : path to star positions file
    fmom  : path to output moments file
    incl  : inclination angle [radians]
    dist  : distance [kpc]
    mbh   : black-hole mass [Msun]
    rbh   : black-hole scale length [arcsec]
    beta  : velocity anisotropy (nlg values)
    kappa : rotation parameter (nlg values)
    ml    : mass-to-light ratio (nmg values)

In total there should be (10 + 2*nlg + nmg) positional arguments.
`

type FileGroup struct {
	prof *os.File
}

func (fg *FileGroup) Close() {
	if fg.prof != nil {
		pprof.StopCPUProfile()
		err := fg.prof.Close()
		if err != nil { log.Fatal(err.Error()) }
	}
}

func main() {
	var (
		config, profileFile string
		exampleConfig       bool
		threads             int
	)

	flag.StringVar(
		&config, "Config", "", "Configuration file with a [Model] section.",
	)
	flag.BoolVar(
		&exampleConfig, "ExampleConfig", false,
		"Prints an example configuration file to stdout.",
	)
	flag.IntVar(
		&threads, "Threads", runtime.NumCPU(),
		"Number of goroutines used to compute integrals.",
	)
	flag.StringVar(
		&profileFile, "ProfileFile", "", "Writes a CPU profile to this file.",
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage, "\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if exampleConfig {
		fmt.Println(io.ExampleModelFile)
		return
	}

	var (
		con *io.ModelConfig
		err error
	)
	switch {
	case config != "" && flag.NArg() > 0:
		log.Fatal("Cannot give both -Config and positional arguments.")
	case config != "":
		con, err = io.ReadModelConfig(config)
	case flag.NArg() > 0:
		con, err = parseArgs(flag.Args())
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil { log.Fatal(err.Error()) }

	fg := &FileGroup{}
	defer fg.Close()
	if profileFile != "" {
		fg.prof, err = os.Create(profileFile)
		if err != nil { log.Fatal(err.Error()) }
		if err = pprof.StartCPUProfile(fg.prof); err != nil {
			log.Fatal(err.Error())
		}
	}

	runtime.GOMAXPROCS(threads)
	modelMain(con, threads)
}

// parseArgs reads the positional argument form into a config. Single-valued
// parameters are not broadcast here: every component needs its own value.
func parseArgs(args []string) (*io.ModelConfig, error) {
	if len(args) < 4 {
		return nil, fmt.Errorf(
			"You have not provided enough arguments to read in the MGE files.",
		)
	}

	con := &io.DefaultModelWrapper().Model
	con.LuminousMGE, con.MassMGE = args[0], args[2]

	var err error
	if con.LuminousComponents, err = strconv.Atoi(args[1]); err != nil {
		return nil, fmt.Errorf("Invalid nlg value '%s'.", args[1])
	}
	if con.MassComponents, err = strconv.Atoi(args[3]); err != nil {
		return nil, fmt.Errorf("Invalid nmg value '%s'.", args[3])
	}
	nlg, nmg := con.LuminousComponents, con.MassComponents
	if nlg <= 0 || nmg <= 0 {
		return nil, fmt.Errorf(
			"nlg and nmg must be positive, but are %d and %d.", nlg, nmg,
		)
	}

	nArg := 10 + 2*nlg + nmg
	if len(args) < nArg {
		return nil, fmt.Errorf(
			"Not enough arguments. Expected %d, got %d.", nArg, len(args),
		)
	} else if len(args) > nArg {
		return nil, fmt.Errorf(
			"Too many arguments. Expected %d, got %d.", nArg, len(args),
		)
	}

	con.Positions, con.Output = args[4], args[5]

	vals, err := parseFloats(args[6:])
	if err != nil { return nil, err }
	con.Inclination, con.Distance = vals[0], vals[1]
	con.BlackHoleMass, con.BlackHoleRadius = vals[2], vals[3]
	con.Beta = vals[4 : 4+nlg]
	con.Kappa = vals[4+nlg : 4+2*nlg]
	con.MassToLight = vals[4+2*nlg:]

	if err := con.CheckInit(); err != nil { return nil, err }
	return con, nil
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, arg := range args {
		x, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("Could not parse argument '%s'.", arg)
		}
		out[i] = x
	}
	return out, nil
}

func modelMain(con *io.ModelConfig, threads int) {
	log.Printf("Reading luminous MGE from %s (%d components)",
		con.LuminousMGE, con.LuminousComponents)
	lum, err := io.ReadMGE(con.LuminousMGE, con.LuminousComponents)
	if err != nil { log.Fatal(err.Error()) }

	log.Printf("Reading mass MGE from %s (%d components)",
		con.MassMGE, con.MassComponents)
	pot, err := io.ReadMGE(con.MassMGE, con.MassComponents)
	if err != nil { log.Fatal(err.Error()) }

	log.Printf("Reading positions from %s", con.Positions)
	xs, ys, err := io.ReadPositions(con.Positions)
	if err != nil { log.Fatal(err.Error()) }

	axes, err := jam.ParseAxes(con.Axes)
	if err != nil { log.Fatal(err.Error()) }

	p := &gojam.Params{
		Beta: con.Beta, Kappa: con.Kappa, ML: con.MassToLight,
		Incl: con.Inclination, Dist: con.Distance,
		MBH: con.BlackHoleMass, RBH: con.BlackHoleRadius,
		Axes: axes,
	}
	opt := jam.Options{
		NRad: con.RadialBins, NAng: con.AngularBins, Workers: threads,
	}

	log.Printf("Calculating moments at %d positions (axes: %s, beta: %s, "+
		"kappa: %s, M/L: %s)", len(xs), axes,
		formatFloats(con.Beta), formatFloats(con.Kappa),
		formatFloats(con.MassToLight))
	res, err := gojam.Moments(lum, pot, p, xs, ys, opt)
	if errors.Is(err, jam.ErrNonConvergence) {
		log.Printf("WARNING: %s", err.Error())
	} else if err != nil {
		log.Fatal(err.Error())
	}

	log.Printf("Writing moments to %s", con.Output)
	err = io.WriteMomentsFile(con.Output, res.Velocities, res.Dispersions)
	if err != nil { log.Fatal(err.Error()) }
}

func formatFloats(xs []float64) string {
	strs := make([]string, len(xs))
	for i := range xs { strs[i] = strconv.FormatFloat(xs[i], 'g', -1, 64) }
	return strings.Join(strs, " ")
}
