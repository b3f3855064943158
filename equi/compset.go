// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package equi implements the block-Newton equilibrium core described in
// Sundman (2015): a per-phase KKT solve for internal site fractions
// followed by a global linear system for chemical potentials, phase
// amounts and state-variable corrections.
package equi

// PhaseEvaluator is the external collaborator that knows how to evaluate
// the thermodynamic model of a single phase: energy, gradient, Hessian,
// per-component mass and its gradient, and internal equality constraints
// (e.g. sublattice site-fraction sums). All output buffers are owned by
// the caller of each method and are overwritten in place.
//
// x is the dof vector of length NumStateVars+PhaseDOF(): state variables
// (temperature, pressure, ...) concatenated with the phase's internal
// site fractions.
type PhaseEvaluator interface {
	// PhaseDOF returns D, the number of internal degrees of freedom.
	PhaseDOF() int

	// NumInternalCons returns K, the number of internal equality
	// constraints (e.g. one per sublattice).
	NumInternalCons() int

	// Obj returns the molar Gibbs energy of the phase at x.
	Obj(x []float64) float64

	// Grad fills out[0:len(x)] with the gradient of Obj at x.
	Grad(out []float64, x []float64)

	// Hess fills out with the (symmetric) Hessian of Obj at x.
	Hess(out [][]float64, x []float64)

	// MassObj returns moles of component c per formula unit at x.
	MassObj(x []float64, c int) float64

	// MassGrad fills out with d(MassObj)/dx for component c.
	MassGrad(out []float64, x []float64, c int)

	// InternalConsFunc fills out[0:K] with the internal constraint
	// residuals c(y) at x.
	InternalConsFunc(out []float64, x []float64)

	// InternalConsJac fills out[K][len(x)] with d(c)/dx at x.
	InternalConsJac(out [][]float64, x []float64)
}

// CompositionSet bundles a PhaseEvaluator with its mutable per-phase
// state: the dof vector (state variables concatenated with internal
// site fractions) and the phase amount NP.
type CompositionSet struct {
	Phase PhaseEvaluator // the evaluator for this phase
	NP    float64        // phase amount (moles)
	Dof   []float64      // [numStatevars + PhaseDOF()]

	name string // optional, for diagnostics only
}

// NewCompositionSet allocates a composition set with the given initial
// dof vector and phase amount. dof is copied, not retained.
func NewCompositionSet(name string, phase PhaseEvaluator, dof []float64, np float64) *CompositionSet {
	cs := &CompositionSet{
		Phase: phase,
		NP:    np,
		Dof:   make([]float64, len(dof)),
		name:  name,
	}
	copy(cs.Dof, dof)
	return cs
}

// Name returns the diagnostic label for this composition set, or a
// generated placeholder if none was given.
func (cs *CompositionSet) Name() string {
	if cs.name != "" {
		return cs.name
	}
	return "unnamed-compset"
}

// InternalDof returns the sub-slice of Dof holding internal site
// fractions (i.e. Dof[numStatevars:]).
func (cs *CompositionSet) InternalDof(numStatevars int) []float64 {
	return cs.Dof[numStatevars:]
}
