// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equi

import "math"

// SolutionExtractor decomposes the global solution vector of §4.2/§4.3
// into chemical-potential, phase-amount and state-variable updates,
// applying the clipping and change-magnitude tracking §4.4 needs.
type SolutionExtractor struct{}

// extractResult carries the per-iteration change trackers consumed by
// ConvergenceController.
type extractResult struct {
	largestPhaseAmtChange float64
	// largestStatevarChange conflates chemical-potential and
	// state-variable relative change; the name is historical (§4.3) but
	// load-bearing for the convergence predicate — do not split it.
	largestStatevarChange float64
}

// Apply unpacks soln (length sys.nFreeMu+sys.nPhases+sys.nFreeSv) in
// column order and mutates state in place.
func (x *SolutionExtractor) Apply(cond *Conditions, state *SolverState, sys *equilibriumSystem, soln []float64) extractResult {
	var res extractResult

	// 1) chemical potentials: absolute, not incremental.
	for k, chempotIdx := range cond.FreeChemicalPotentialIndices {
		old := state.ChemicalPotentials[chempotIdx]
		next := soln[k]
		state.ChemicalPotentials[chempotIdx] = next
		if old != 0 {
			rel := math.Abs((next - old) / old)
			if rel > res.largestStatevarChange {
				res.largestStatevarChange = rel
			}
		}
	}

	// 2) phase-amount increments, clipped to [0,1].
	for k, idx := range state.FreeStableCompsetIndices {
		delta := soln[sys.nFreeMu+k]
		next := state.PhaseAmt[idx] + delta
		if next < 0 {
			next = 0
		} else if next > 1 {
			next = 1
		}
		change := math.Abs(next - state.PhaseAmt[idx])
		if change > res.largestPhaseAmtChange {
			res.largestPhaseAmtChange = change
		}
		state.PhaseAmt[idx] = next
	}

	// 3) state-variable increments.
	for i := range state.DeltaStateVars {
		state.DeltaStateVars[i] = 0
	}
	for k, svIdx := range cond.FreeStatevarIndices {
		state.DeltaStateVars[svIdx] = soln[sys.nFreeMu+sys.nPhases+k]
	}
	if len(state.CompSets) > 0 {
		ref := state.CompSets[0].Dof
		for svIdx, delta := range state.DeltaStateVars {
			var rel float64
			if ref[svIdx] != 0 {
				rel = math.Abs(delta / ref[svIdx])
			}
			if math.IsNaN(rel) {
				rel = 0
			}
			if rel > res.largestStatevarChange {
				res.largestStatevarChange = rel
			}
		}
	}
	for _, cs := range state.CompSets {
		for svIdx, delta := range state.DeltaStateVars {
			cs.Dof[svIdx] += delta
		}
	}

	return res
}
