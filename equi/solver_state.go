// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equi

// SolverState is the mutable, per-call state shared across iterations:
// the phase amounts, per-phase dof vectors (held inside CompSets),
// current chemical potentials, and the active set of stable phases.
// Ordering of CompSets is fixed for the duration of a call (§3).
type SolverState struct {
	CompSets []*CompositionSet

	// PhaseAmt mirrors CompSets[i].NP but is tracked separately so the
	// driver can update it from the global solve without coupling the
	// composition set's own NP field; FindSolution syncs NP back to
	// PhaseAmt's final values on return.
	PhaseAmt []float64

	ChemicalPotentials []float64

	// FreeStableCompsetIndices: currently-active phases participating
	// in the global system: phases with amount above MinSiteFraction,
	// plus any phase the convergence gate admitted on its driving force
	// (which may still have zero amount).
	FreeStableCompsetIndices []int

	DeltaStateVars []float64
}

// NewSolverState builds the initial state from composition sets and
// conditions: phase amounts and chemical potentials are seeded from the
// inputs, and every phase whose NP is above MinSiteFraction starts in the
// active set (the driver's feasibility/phase-change gate will prune or
// grow it).
func NewSolverState(compsets []*CompositionSet, cond *Conditions) *SolverState {
	s := &SolverState{
		CompSets:           compsets,
		PhaseAmt:           make([]float64, len(compsets)),
		ChemicalPotentials: make([]float64, cond.NumComponents),
		DeltaStateVars:     make([]float64, cond.NumStateVars),
	}
	copy(s.ChemicalPotentials, cond.InitialChemicalPotentials)
	for i, cs := range compsets {
		s.PhaseAmt[i] = cs.NP
		if s.PhaseAmt[i] > MinSiteFraction {
			s.FreeStableCompsetIndices = append(s.FreeStableCompsetIndices, i)
		}
	}
	return s
}

// syncBack writes PhaseAmt back into each composition set's NP field, the
// way the source returns composition sets with their final NP mutated.
func (s *SolverState) syncBack() {
	for i, cs := range s.CompSets {
		cs.NP = s.PhaseAmt[i]
	}
}
