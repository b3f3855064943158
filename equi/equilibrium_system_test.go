// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equi

import (
	"errors"
	"testing"
)

func Test_squareCheckRejectsMismatch(tst *testing.T) {
	cond := &Conditions{
		NumComponents:                2,
		NumStateVars:                 2,
		FreeChemicalPotentialIndices: []int{0, 1},
		FixedStatevarIndices:         []int{0, 1},
		PrescribedElementIndices:     []int{0, 1},
		PrescribedElementalAmounts:   []float64{0.7, 0.3},
	}
	state := &SolverState{
		CompSets:                 []*CompositionSet{},
		FreeStableCompsetIndices: []int{0}, // 2 free chempots vs 2 prescribed elements + 1: non-square for any phase count
	}
	b := &EquilibriumSystemBuilder{}
	_, err := b.Build(cond, state, map[int]*phaseSystemResult{}, []float64{0, 0}, 0)
	if err == nil {
		tst.Fatalf("expected a Gibbs-phase-rule error for a non-square system")
	}
	if !errors.Is(err, ErrConditionsViolateGibbsRule) {
		tst.Fatalf("expected ErrConditionsViolateGibbsRule, got %v", err)
	}
}

func Test_equilibriumSystemShape(tst *testing.T) {
	model := &idealBinaryModel{GA: -1000, GB: -1000}
	cs := NewCompositionSet("alpha", model, newDof(1000, 1, 0.7, 0.3), 1.0)

	pb := NewPhaseSystemBuilder()
	pr, err := pb.ComputePhaseSystem(cs, 2, []float64{0, 0}, []float64{-900, -950})
	if err != nil {
		tst.Fatalf("ComputePhaseSystem failed: %v", err)
	}

	cond := &Conditions{
		NumComponents:                2,
		NumStateVars:                 2,
		FreeChemicalPotentialIndices: []int{0, 1},
		FixedStatevarIndices:         []int{0, 1},
		PrescribedElementIndices:     []int{1},
		PrescribedElementalAmounts:   []float64{0.3},
		PrescribedSystemAmount:       1.0,
	}
	state := &SolverState{
		CompSets:                 []*CompositionSet{cs},
		PhaseAmt:                 []float64{1.0},
		ChemicalPotentials:       []float64{-900, -950},
		FreeStableCompsetIndices: []int{0},
	}

	b := &EquilibriumSystemBuilder{}
	sys, err := b.Build(cond, state, map[int]*phaseSystemResult{0: pr}, []float64{0.7, 0.3}, 1.0)
	if err != nil {
		tst.Fatalf("Build failed: %v", err)
	}
	// rows: 1 phase row + 1 fixed-element row + 1 system-amount row = 3
	// cols: 2 free mu + 1 free phase + 0 free sv = 3
	if len(sys.lhs) != 3 {
		tst.Fatalf("expected 3 rows, got %d", len(sys.lhs))
	}
	if len(sys.lhs[0]) != 3 {
		tst.Fatalf("expected 3 cols, got %d", len(sys.lhs[0]))
	}
	if sys.massResidual != 0 {
		tst.Errorf("expected zero mass residual at the prescribed point, got %g", sys.massResidual)
	}

	soln, err := b.Solve(sys, LeastSquaresRcond)
	if err != nil {
		tst.Fatalf("Solve failed: %v", err)
	}
	if len(soln) != 3 {
		tst.Fatalf("expected a length-3 solution vector, got %d", len(soln))
	}
}
