// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equi

import "github.com/cpmech/gosl/io"

// SolverDriver is the top-level orchestrator: it loops up to
// opts.MaxOuterIterations, sequencing the per-phase KKT solve, the
// global equilibrium system, solution extraction and the convergence
// gate (§4.5).
type SolverDriver struct {
	phaseBuilder *PhaseSystemBuilder
	eqBuilder    *EquilibriumSystemBuilder
	extractor    *SolutionExtractor
}

// NewSolverDriver builds a driver with its own per-phase scratch pool.
func NewSolverDriver() *SolverDriver {
	return &SolverDriver{
		phaseBuilder: NewPhaseSystemBuilder(),
		eqBuilder:    &EquilibriumSystemBuilder{},
		extractor:    &SolutionExtractor{},
	}
}

// Result is the triple find_solution returns (§6): converged is a data
// signal (NonConverged is not an error), PackedSolution concatenates
// state variables (from compset 0), each phase's internal dof, and the
// final phase amounts, and ChemicalPotentials holds the converged
// potentials for every component.
type Result struct {
	Converged          bool
	PackedSolution     []float64
	ChemicalPotentials []float64
	Iterations         int
}

// FindSolution runs the block-Newton iteration for one set of
// conditions against the given composition sets, mutating them in place
// (compsets and their dof/NP hold the final state on return, whether or
// not convergence was reached).
func (d *SolverDriver) FindSolution(cond *Conditions, compsets []*CompositionSet, opts Options) (Result, error) {
	opts = opts.resolve()

	if err := cond.Validate(); err != nil {
		return Result{}, err
	}

	state := NewSolverState(compsets, cond)
	conv := &ConvergenceController{Options: opts}

	if opts.Verbose {
		io.Pf("\n%4s%23s%23s%23s%23s\n", "it", "massResid", "consResid", "dDof", "dAmt")
	}

	var it int
	for it = 0; it < opts.MaxOuterIterations; it++ {
		var trk iterationTrackers

		// step 2: internal dof update for every composition set.
		currentElementalAmounts := make([]float64, cond.NumComponents)
		var currentSystemAmount float64
		phaseResults := make(map[int]*phaseSystemResult, len(state.FreeStableCompsetIndices))
		stableSet := make(map[int]bool, len(state.FreeStableCompsetIndices))
		for _, idx := range state.FreeStableCompsetIndices {
			stableSet[idx] = true
		}

		for idx, cs := range state.CompSets {
			pr, err := d.phaseBuilder.ComputePhaseSystem(cs, cond.NumStateVars, state.DeltaStateVars, state.ChemicalPotentials)
			if err != nil {
				return Result{}, err
			}
			if pr.maxAbsCons > trk.largestInternalConsResidual {
				trk.largestInternalConsResidual = pr.maxAbsCons
			}

			phaseDof := cs.Phase.PhaseDOF()
			internal := cs.InternalDof(cond.NumStateVars)
			for i := 0; i < phaseDof; i++ {
				y := internal[i] + pr.deltaY[i]
				if y < MinSiteFraction {
					y = MinSiteFraction
				} else if y > 1 {
					y = 1
				}
				change := y - internal[i]
				if change < 0 {
					change = -change
				}
				if change > trk.largestInternalDofChange {
					trk.largestInternalDofChange = change
				}
				internal[i] = y
			}

			if stableSet[idx] {
				// re-evaluate at the updated dof so the global system is
				// linearized about the same point its masses and energy are
				// taken at.
				pr, err = d.phaseBuilder.ComputePhaseSystem(cs, cond.NumStateVars, state.DeltaStateVars, state.ChemicalPotentials)
				if err != nil {
					return Result{}, err
				}
				phaseResults[idx] = pr
				for c := 0; c < cond.NumComponents; c++ {
					currentElementalAmounts[c] += state.PhaseAmt[idx] * cs.Phase.MassObj(cs.Dof, c)
				}
				currentSystemAmount += state.PhaseAmt[idx]
			}
		}

		// step 3: Gibbs-phase-rule re-check against the current active set.
		if err := cond.squareCheck(len(state.FreeStableCompsetIndices)); err != nil {
			return Result{}, err
		}

		// step 4: assemble + solve the global system.
		sys, err := d.eqBuilder.Build(cond, state, phaseResults, currentElementalAmounts, currentSystemAmount)
		if err != nil {
			return Result{}, err
		}
		soln, err := d.eqBuilder.Solve(sys, opts.LeastSquaresRcond)
		if err != nil {
			return Result{}, err
		}

		// step 5: apply the global solution.
		extracted := d.extractor.Apply(cond, state, sys, soln)
		trk.largestPhaseAmtChange = extracted.largestPhaseAmtChange
		trk.largestStatevarChange = extracted.largestStatevarChange

		if opts.Verbose {
			io.Pf("%4d%23.15e%23.15e%23.15e%23.15e\n", it, sys.massResidual, trk.largestInternalConsResidual, trk.largestInternalDofChange, trk.largestPhaseAmtChange)
		}

		// step 6: convergence gate.
		gate := conv.Gate(cond, state, sys.massResidual, trk)
		if gate.feasible {
			state.FreeStableCompsetIndices = gate.newActive
		}
		if gate.converged {
			state.syncBack()
			return Result{
				Converged:          true,
				PackedSolution:     packSolution(state, cond),
				ChemicalPotentials: append([]float64(nil), state.ChemicalPotentials...),
				Iterations:         it + 1,
			}, nil
		}
	}

	state.syncBack()
	return Result{
		Converged:          false,
		PackedSolution:     packSolution(state, cond),
		ChemicalPotentials: append([]float64(nil), state.ChemicalPotentials...),
		Iterations:         it,
	}, nil
}

// packSolution concatenates state variables (from compset 0), each
// phase's internal dof in compset order, and the final phase amounts
// (§6 `find_solution` output contract).
func packSolution(state *SolverState, cond *Conditions) []float64 {
	out := make([]float64, 0, cond.NumStateVars+len(state.PhaseAmt))
	if len(state.CompSets) > 0 {
		out = append(out, state.CompSets[0].Dof[:cond.NumStateVars]...)
	}
	for _, cs := range state.CompSets {
		out = append(out, cs.InternalDof(cond.NumStateVars)...)
	}
	out = append(out, state.PhaseAmt...)
	return out
}
