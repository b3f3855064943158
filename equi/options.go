// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equi

import "github.com/cpmech/gosl/fun"

// Numeric constants (§6) that must match exactly across implementations
// and against the evaluator's own internal floors.
const (
	// MinSiteFraction is the strictly-positive floor applied to every
	// internal site fraction and to the phase-activity threshold.
	MinSiteFraction = 1e-12

	// MaxOuterIterations bounds the driver loop (§4.5).
	MaxOuterIterations = 100

	// FeasibilityMassResidualTol gates the feasibility stage (§4.4).
	FeasibilityMassResidualTol = 1e-5

	// FeasibilityInternalConsTol gates the feasibility stage (§4.4).
	FeasibilityInternalConsTol = 1e-10

	// ConvergeInternalDofTol is the convergence bound on the largest
	// internal-dof change (§4.4).
	ConvergeInternalDofTol = 1e-11

	// ConvergePhaseAmtTol is the convergence bound on the largest
	// phase-amount change (§4.4).
	ConvergePhaseAmtTol = 1e-10

	// ConvergeStatevarTol is the deliberately loose (10%) relative
	// tolerance on chemical-potential/state-variable change (§4.4).
	ConvergeStatevarTol = 1e-1

	// DrivingForceAdmitTol: a phase is admitted to the active set when
	// its driving force exceeds this (negative) threshold.
	DrivingForceAdmitTol = -1e-5

	// LeastSquaresRcond is the cutoff ratio (singular value / largest
	// singular value) used by the global system's pseudo-inverse solve.
	LeastSquaresRcond = 1e-21
)

// Options carries solver tuning knobs; OptionsFromPrms builds one from a
// named-parameter list, the way msolid material models parse fun.Prms in
// Init. All numeric fields default to the §6 constants when zero; resolve
// fills in defaults and is called once by FindSolution.
type Options struct {
	MaxOuterIterations         int
	FeasibilityMassResidualTol float64
	FeasibilityInternalConsTol float64
	ConvergeInternalDofTol     float64
	ConvergePhaseAmtTol        float64
	ConvergeStatevarTol        float64
	DrivingForceAdmitTol       float64
	LeastSquaresRcond          float64

	// Verbose turns on the per-iteration residual trace (mirrors
	// Global.Sim.Data.ShowR in the teacher's Newton loop).
	Verbose bool
}

// DefaultOptions returns the §6 constants as an Options value.
func DefaultOptions() Options {
	return Options{
		MaxOuterIterations:         MaxOuterIterations,
		FeasibilityMassResidualTol: FeasibilityMassResidualTol,
		FeasibilityInternalConsTol: FeasibilityInternalConsTol,
		ConvergeInternalDofTol:     ConvergeInternalDofTol,
		ConvergePhaseAmtTol:        ConvergePhaseAmtTol,
		ConvergeStatevarTol:        ConvergeStatevarTol,
		DrivingForceAdmitTol:       DrivingForceAdmitTol,
		LeastSquaresRcond:          LeastSquaresRcond,
	}
}

// OptionsFromPrms builds Options from a name-value parameter list,
// falling back to DefaultOptions for anything not named. Unknown
// parameter names are rejected, matching the strict-switch parameter
// parsing convention used throughout msolid model Init methods.
func OptionsFromPrms(prms fun.Prms) (o Options, err error) {
	o = DefaultOptions()
	for _, p := range prms {
		switch p.N {
		case "maxit":
			o.MaxOuterIterations = int(p.V)
		case "masstol":
			o.FeasibilityMassResidualTol = p.V
		case "constol":
			o.FeasibilityInternalConsTol = p.V
		case "doftol":
			o.ConvergeInternalDofTol = p.V
		case "amttol":
			o.ConvergePhaseAmtTol = p.V
		case "svtol":
			o.ConvergeStatevarTol = p.V
		case "dftol":
			o.DrivingForceAdmitTol = p.V
		case "rcond":
			o.LeastSquaresRcond = p.V
		case "verbose":
			o.Verbose = p.V != 0
		default:
			return o, errUnknownOption(p.N)
		}
	}
	return o, nil
}

func (o Options) resolve() Options {
	if o.MaxOuterIterations == 0 {
		o.MaxOuterIterations = MaxOuterIterations
	}
	if o.FeasibilityMassResidualTol == 0 {
		o.FeasibilityMassResidualTol = FeasibilityMassResidualTol
	}
	if o.FeasibilityInternalConsTol == 0 {
		o.FeasibilityInternalConsTol = FeasibilityInternalConsTol
	}
	if o.ConvergeInternalDofTol == 0 {
		o.ConvergeInternalDofTol = ConvergeInternalDofTol
	}
	if o.ConvergePhaseAmtTol == 0 {
		o.ConvergePhaseAmtTol = ConvergePhaseAmtTol
	}
	if o.ConvergeStatevarTol == 0 {
		o.ConvergeStatevarTol = ConvergeStatevarTol
	}
	if o.DrivingForceAdmitTol == 0 {
		o.DrivingForceAdmitTol = DrivingForceAdmitTol
	}
	if o.LeastSquaresRcond == 0 {
		o.LeastSquaresRcond = LeastSquaresRcond
	}
	return o
}
