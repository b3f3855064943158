// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equi

import "sort"

// ConvergenceController evaluates feasibility, admits/removes phases
// from the active set based on driving forces, and decides whether the
// iteration has converged (§4.4).
type ConvergenceController struct {
	Options Options
}

// iterationTrackers accumulates the per-iteration change magnitudes the
// driver resets to zero at the start of every outer iteration (§4.5
// step 1).
type iterationTrackers struct {
	largestInternalDofChange   float64
	largestInternalConsResidual float64
	largestPhaseAmtChange      float64
	largestStatevarChange      float64
}

// gateResult is what the driver needs back from one convergence-gate
// evaluation.
type gateResult struct {
	feasible      bool
	converged     bool
	activeChanged bool
	newActive     []int
}

// Gate runs the two-stage check of §4.4: a feasibility gate (mass and
// internal-constraint residuals), and, only if feasible, the phase-change
// step followed by the convergence predicate.
func (c *ConvergenceController) Gate(cond *Conditions, state *SolverState, massResidual float64, trk iterationTrackers) gateResult {
	opts := c.Options
	var res gateResult

	res.feasible = massResidual < opts.FeasibilityMassResidualTol &&
		trk.largestInternalConsResidual < opts.FeasibilityInternalConsTol
	if !res.feasible {
		return res
	}

	// recompute the active set: phases with N > MinSiteFraction stay in
	// (implicit removal), phases whose driving force exceeds
	// DrivingForceAdmitTol are added (explicit addition) — §9
	// "Active-set change semantics".
	candidate := make(map[int]bool, len(state.CompSets))
	for i, np := range state.PhaseAmt {
		if np > MinSiteFraction {
			candidate[i] = true
		}
	}
	for i, cs := range state.CompSets {
		if candidate[i] {
			continue
		}
		df := drivingForce(cs, state.ChemicalPotentials)
		if df > opts.DrivingForceAdmitTol {
			candidate[i] = true
		}
	}

	newActive := make([]int, 0, len(candidate))
	for i := range candidate {
		newActive = append(newActive, i)
	}
	sort.Ints(newActive)
	res.newActive = newActive
	res.activeChanged = !sameSet(state.FreeStableCompsetIndices, newActive)

	res.converged = !res.activeChanged &&
		trk.largestInternalDofChange < opts.ConvergeInternalDofTol &&
		trk.largestPhaseAmtChange < opts.ConvergePhaseAmtTol &&
		trk.largestStatevarChange < opts.ConvergeStatevarTol

	return res
}

// drivingForce computes DF = energy - μᵀ·mass for one composition set at
// its current dof: negative for stable/metastable phases at
// equilibrium, positive signals the phase should be admitted.
func drivingForce(cs *CompositionSet, mu []float64) float64 {
	energy := cs.Phase.Obj(cs.Dof)
	df := energy
	for c, mc := range mu {
		df -= mc * cs.Phase.MassObj(cs.Dof, c)
	}
	return df
}

func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]int(nil), a...)
	bs := append([]int(nil), b...)
	sort.Ints(as)
	sort.Ints(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
