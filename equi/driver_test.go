// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equi

import (
	"errors"
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

// Test_singlephase01 reproduces the spec's single-phase ideal-solution
// seed scenario: binary A-B, T=1000K, P=1atm, X_B=0.3, system amount=1.
func Test_singlephase01(tst *testing.T) {
	const G0 = -10000.0
	model := &idealBinaryModel{GA: G0, GB: G0}
	cs := NewCompositionSet("alpha", model, newDof(1000, 1, 0.5, 0.5), 1.0)

	cond := &Conditions{
		NumComponents:                2,
		NumStateVars:                 2,
		FreeChemicalPotentialIndices: []int{0, 1},
		FixedStatevarIndices:         []int{0, 1},
		PrescribedElementIndices:     []int{1},
		PrescribedElementalAmounts:   []float64{0.3},
		PrescribedSystemAmount:       1.0,
		InitialChemicalPotentials:    []float64{0, 0},
	}

	drv := NewSolverDriver()
	res, err := drv.FindSolution(cond, []*CompositionSet{cs}, DefaultOptions())
	if err != nil {
		tst.Fatalf("FindSolution failed: %v", err)
	}
	if !res.Converged {
		tst.Fatalf("expected convergence, got %d iterations without", res.Iterations)
	}
	if res.Iterations > 5 {
		tst.Errorf("expected convergence within 5 iterations, took %d", res.Iterations)
	}

	T := 1000.0
	expectMuA := G0 + gasConstant*T*math.Log(0.7)
	expectMuB := G0 + gasConstant*T*math.Log(0.3)
	chk.Scalar(tst, "mu_A", 1e-3, res.ChemicalPotentials[0], expectMuA)
	chk.Scalar(tst, "mu_B", 1e-3, res.ChemicalPotentials[1], expectMuB)
	chk.Scalar(tst, "NP", 1e-6, cs.NP, 1.0)
	chk.Scalar(tst, "yB", 1e-4, cs.Dof[3], 0.3)
}

// Test_idempotence01 checks property 8: re-solving a converged state
// converges again within 2 iterations.
func Test_idempotence01(tst *testing.T) {
	const G0 = -10000.0
	model := &idealBinaryModel{GA: G0, GB: G0}
	cs := NewCompositionSet("alpha", model, newDof(1000, 1, 0.5, 0.5), 1.0)

	cond := &Conditions{
		NumComponents:                2,
		NumStateVars:                 2,
		FreeChemicalPotentialIndices: []int{0, 1},
		FixedStatevarIndices:         []int{0, 1},
		PrescribedElementIndices:     []int{1},
		PrescribedElementalAmounts:   []float64{0.3},
		PrescribedSystemAmount:       1.0,
		InitialChemicalPotentials:    []float64{0, 0},
	}

	drv := NewSolverDriver()
	res1, err := drv.FindSolution(cond, []*CompositionSet{cs}, DefaultOptions())
	if err != nil || !res1.Converged {
		tst.Fatalf("first solve did not converge: %v (err=%v)", res1, err)
	}

	cond.InitialChemicalPotentials = res1.ChemicalPotentials
	res2, err := drv.FindSolution(cond, []*CompositionSet{cs}, DefaultOptions())
	if err != nil {
		tst.Fatalf("second solve failed: %v", err)
	}
	if !res2.Converged {
		tst.Fatalf("expected idempotent convergence")
	}
	if res2.Iterations > 2 {
		tst.Errorf("expected <=2 iterations on idempotent re-solve, got %d", res2.Iterations)
	}
}

// Test_gibbsRuleViolation01 reproduces the degenerate scenario: both
// chemical potentials AND both elemental amounts imposed in a binary.
func Test_gibbsRuleViolation01(tst *testing.T) {
	cond := &Conditions{
		NumComponents:                 2,
		NumStateVars:                  2,
		FixedChemicalPotentialIndices: []int{0, 1},
		FixedStatevarIndices:          []int{0, 1},
		PrescribedElementIndices:      []int{0, 1},
		PrescribedElementalAmounts:    []float64{0.7, 0.3},
		PrescribedSystemAmount:        1.0,
		InitialChemicalPotentials:     []float64{0, 0},
	}
	if err := cond.Validate(); err == nil {
		tst.Fatalf("expected ConditionsViolateGibbsRule error")
	} else if !errors.Is(err, ErrConditionsViolateGibbsRule) {
		tst.Fatalf("expected ErrConditionsViolateGibbsRule, got %v", err)
	}
}

// Test_nonconverge01 reproduces the non-convergence scenario: a Hessian
// with the wrong sign never lets the phase system reach stationarity.
func Test_nonconverge01(tst *testing.T) {
	model := &invertedHessianModel{idealBinaryModel{GA: -10000, GB: -10000}}
	cs := NewCompositionSet("alpha", model, newDof(1000, 1, 0.5, 0.5), 1.0)

	cond := &Conditions{
		NumComponents:                2,
		NumStateVars:                 2,
		FreeChemicalPotentialIndices: []int{0, 1},
		FixedStatevarIndices:         []int{0, 1},
		PrescribedElementIndices:     []int{1},
		PrescribedElementalAmounts:   []float64{0.3},
		PrescribedSystemAmount:       1.0,
		InitialChemicalPotentials:    []float64{0, 0},
	}

	drv := NewSolverDriver()
	res, err := drv.FindSolution(cond, []*CompositionSet{cs}, DefaultOptions())
	if err != nil {
		// a singular or non-finite matrix is an acceptable outcome of a
		// badly-signed Hessian; the important property is "no crash".
		return
	}
	if res.Converged {
		tst.Fatalf("expected non-convergence with an inverted-sign Hessian")
	}
	if res.Iterations != MaxOuterIterations {
		tst.Errorf("expected the full %d iterations, got %d", MaxOuterIterations, res.Iterations)
	}
}

// invertedHessianModel flips the sign of the reduced Hessian block,
// reproducing the "Hessian with wrong sign" non-convergence scenario.
type invertedHessianModel struct {
	idealBinaryModel
}

func (m *invertedHessianModel) Hess(out [][]float64, x []float64) {
	m.idealBinaryModel.Hess(out, x)
	out[2][2] = -out[2][2]
	out[3][3] = -out[3][3]
}
