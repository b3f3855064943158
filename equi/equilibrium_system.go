// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equi

import (
	"math"

	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/mat"
)

// EquilibriumSystemBuilder assembles the global linear system (§4.2) in
// the unknowns [δμ_free | δN_free_phases | δs_free] (in that exact
// order) from every stable phase's condensed KKT block.
type EquilibriumSystemBuilder struct {
	// Verbose enables a rank-deficiency trace on the least-squares solve
	// (§9 "Least-squares with rcond=1e-21" supplement).
	Verbose bool
}

// equilibriumSystem is the assembled global system plus the bookkeeping
// ConvergenceController needs.
type equilibriumSystem struct {
	lhs          [][]float64
	rhs          []float64
	massResidual float64

	nFreeMu     int
	nPhases     int
	nFreeSv     int
}

// perPhaseCondensation holds Sundman Eq. 44's condensation vectors for
// one stable phase, derived from its E-matrix.
type perPhaseCondensation struct {
	cG  []float64   // [D]   -Σ_j e[i,j]·grad[S+j]
	cSv [][]float64 // [D][S] -Σ_j e[i,j]·hess[S+j,k]
	cMu [][]float64 // [numComponents][D] Σ_j massJac[c,S+j]·e[i,j]
}

func computeCondensation(pr *phaseSystemResult, numStatevars, phaseDof, numComponents int) *perPhaseCondensation {
	c := &perPhaseCondensation{
		cG:  make([]float64, phaseDof),
		cSv: la.MatAlloc(phaseDof, numStatevars),
		cMu: la.MatAlloc(numComponents, phaseDof),
	}
	e := pr.eMatrix
	for i := 0; i < phaseDof; i++ {
		sum := 0.0
		for j := 0; j < phaseDof; j++ {
			sum += e[i][j] * pr.grad[numStatevars+j]
		}
		c.cG[i] = -sum
	}
	for i := 0; i < phaseDof; i++ {
		for k := 0; k < numStatevars; k++ {
			sum := 0.0
			for j := 0; j < phaseDof; j++ {
				sum += e[i][j] * pr.hess[numStatevars+j][k]
			}
			c.cSv[i][k] = -sum
		}
	}
	for cc := 0; cc < numComponents; cc++ {
		for i := 0; i < phaseDof; i++ {
			sum := 0.0
			for j := 0; j < phaseDof; j++ {
				sum += pr.massJac[cc][numStatevars+j] * e[i][j]
			}
			c.cMu[cc][i] = sum
		}
	}
	return c
}

// Build assembles the global system. phaseResults must contain an entry
// for every index in state.FreeStableCompsetIndices; a missing entry is
// reported as ErrSingularPhaseMatrix.
// currentElementalAmounts/currentSystemAmount are the mass-balance
// accumulators the driver maintains across the stable phases.
func (b *EquilibriumSystemBuilder) Build(
	cond *Conditions,
	state *SolverState,
	phaseResults map[int]*phaseSystemResult,
	currentElementalAmounts []float64,
	currentSystemAmount float64,
) (*equilibriumSystem, error) {

	nMu := len(cond.FreeChemicalPotentialIndices)
	nSv := len(cond.FreeStatevarIndices)
	stable := state.FreeStableCompsetIndices
	nPhases := len(stable)
	nElem := len(cond.PrescribedElementIndices)

	if err := cond.squareCheck(nPhases); err != nil {
		return nil, err
	}

	nRows := nPhases + nElem + 1
	nCols := nMu + nPhases + nSv
	lhs := la.MatAlloc(nRows, nCols)
	rhs := make([]float64, nRows)

	muCol := make(map[int]int, nMu)
	for k, idx := range cond.FreeChemicalPotentialIndices {
		muCol[idx] = k
	}
	phaseCol := make(map[int]int, nPhases)
	for k, idx := range stable {
		phaseCol[idx] = nMu + k
	}
	svCol := make(map[int]int, nSv)
	for k, idx := range cond.FreeStatevarIndices {
		svCol[idx] = nMu + nPhases + k
	}

	type perPhase struct {
		idx     int
		energy  float64
		masses  []float64 // [numComponents]
		pr      *phaseSystemResult
		cond    *perPhaseCondensation
		massTot []float64 // Σ_c massJac[c] ([S+D])
		massSum float64   // Σ_c masses[c]
	}
	phases := make([]perPhase, 0, nPhases)

	for stableIdx, idx := range stable {
		cs := state.CompSets[idx]
		pr, ok := phaseResults[idx]
		if !ok {
			return nil, errSingularPhaseMatrix(cs.Name(), 0)
		}
		phaseDof := cs.Phase.PhaseDOF()
		energy := cs.Phase.Obj(cs.Dof)
		masses := make([]float64, cond.NumComponents)
		for c := 0; c < cond.NumComponents; c++ {
			masses[c] = cs.Phase.MassObj(cs.Dof, c)
		}
		cdn := computeCondensation(pr, cond.NumStateVars, phaseDof, cond.NumComponents)

		massTot := make([]float64, cond.NumStateVars+phaseDof)
		massSum := 0.0
		for c := 0; c < cond.NumComponents; c++ {
			massSum += masses[c]
			for j := range massTot {
				massTot[j] += pr.massJac[c][j]
			}
		}
		phases = append(phases, perPhase{idx: idx, energy: energy, masses: masses, pr: pr, cond: cdn, massTot: massTot, massSum: massSum})

		// --- Phase row (stable_idx) ---
		row := stableIdx
		for _, chempotIdx := range cond.FreeChemicalPotentialIndices {
			lhs[row][muCol[chempotIdx]] = masses[chempotIdx]
		}
		for _, svIdx := range cond.FreeStatevarIndices {
			lhs[row][svCol[svIdx]] = -pr.grad[svIdx]
		}
		rhsVal := energy
		for _, chempotIdx := range cond.FixedChemicalPotentialIndices {
			rhsVal -= masses[chempotIdx] * state.ChemicalPotentials[chempotIdx]
		}
		rhs[row] = rhsVal
	}

	// --- Fixed-element rows ---
	for fc, comp := range cond.PrescribedElementIndices {
		row := nPhases + fc
		for _, p := range phases {
			// Σ_j massJac[comp, S+j] against condensation vectors, j over phase dof
			phaseDof := state.CompSets[p.idx].Phase.PhaseDOF()
			massJacComp := p.pr.massJac[comp][cond.NumStateVars : cond.NumStateVars+phaseDof]

			for _, chempotIdx := range cond.FreeChemicalPotentialIndices {
				sum := 0.0
				for j := 0; j < phaseDof; j++ {
					sum += massJacComp[j] * p.cond.cMu[chempotIdx][j]
				}
				lhs[row][muCol[chempotIdx]] += state.PhaseAmt[p.idx] * sum
			}
			lhs[row][phaseCol[p.idx]] += p.masses[comp]
			for _, svIdx := range cond.FreeStatevarIndices {
				sum := 0.0
				for j := 0; j < phaseDof; j++ {
					sum += massJacComp[j] * p.cond.cSv[j][svIdx]
				}
				lhs[row][svCol[svIdx]] += state.PhaseAmt[p.idx] * sum
			}

			sumCG := 0.0
			for j := 0; j < phaseDof; j++ {
				sumCG += massJacComp[j] * p.cond.cG[j]
			}
			rhs[row] -= state.PhaseAmt[p.idx] * sumCG

			for _, chempotIdx := range cond.FixedChemicalPotentialIndices {
				sum := 0.0
				for j := 0; j < phaseDof; j++ {
					sum += massJacComp[j] * p.cond.cMu[chempotIdx][j]
				}
				rhs[row] -= state.PhaseAmt[p.idx] * state.ChemicalPotentials[chempotIdx] * sum
			}
		}
		imbalance := currentElementalAmounts[comp] - cond.PrescribedElementalAmounts[fc]
		rhs[row] -= imbalance
	}

	// --- System-amount row (last), same structure, summed over all components ---
	row := nPhases + nElem
	for _, p := range phases {
		phaseDof := state.CompSets[p.idx].Phase.PhaseDOF()
		massJacTot := p.massTot[cond.NumStateVars : cond.NumStateVars+phaseDof]

		for _, chempotIdx := range cond.FreeChemicalPotentialIndices {
			sum := 0.0
			for j := 0; j < phaseDof; j++ {
				sum += massJacTot[j] * p.cond.cMu[chempotIdx][j]
			}
			lhs[row][muCol[chempotIdx]] += state.PhaseAmt[p.idx] * sum
		}
		lhs[row][phaseCol[p.idx]] += p.massSum
		for _, svIdx := range cond.FreeStatevarIndices {
			sum := 0.0
			for j := 0; j < phaseDof; j++ {
				sum += massJacTot[j] * p.cond.cSv[j][svIdx]
			}
			lhs[row][svCol[svIdx]] += state.PhaseAmt[p.idx] * sum
		}

		sumCG := 0.0
		for j := 0; j < phaseDof; j++ {
			sumCG += massJacTot[j] * p.cond.cG[j]
		}
		rhs[row] -= state.PhaseAmt[p.idx] * sumCG

		for _, chempotIdx := range cond.FixedChemicalPotentialIndices {
			sum := 0.0
			for j := 0; j < phaseDof; j++ {
				sum += massJacTot[j] * p.cond.cMu[chempotIdx][j]
			}
			rhs[row] -= state.PhaseAmt[p.idx] * state.ChemicalPotentials[chempotIdx] * sum
		}
	}
	rhs[row] -= currentSystemAmount - cond.PrescribedSystemAmount

	// --- mass residual gauge (returned to ConvergenceController) ---
	massResidual := 0.0
	for fc, comp := range cond.PrescribedElementIndices {
		target := cond.PrescribedElementalAmounts[fc]
		if target != 0 {
			massResidual += math.Abs(currentElementalAmounts[comp]-target) / math.Abs(target)
		} else {
			massResidual += math.Abs(currentElementalAmounts[comp] - target)
		}
	}
	massResidual += math.Abs(currentSystemAmount - cond.PrescribedSystemAmount)

	return &equilibriumSystem{
		lhs:          lhs,
		rhs:          rhs,
		massResidual: massResidual,
		nFreeMu:      nMu,
		nPhases:      nPhases,
		nFreeSv:      nSv,
	}, nil
}

// Solve performs the least-squares solve of §4.2: the system is
// nominally square (Gibbs phase rule) but may be near-singular when
// phases are degenerate, so a pseudo-inverse with an aggressive rcond is
// used instead of a plain solve. Uses gonum's SVD (gosl's dense routines
// don't expose a rank-revealing pseudo-inverse); see DESIGN.md.
func (b *EquilibriumSystemBuilder) Solve(sys *equilibriumSystem, rcond float64) ([]float64, error) {
	nRows := len(sys.lhs)
	if nRows == 0 {
		return []float64{}, nil
	}
	nCols := len(sys.lhs[0])
	A := mat.NewDense(nRows, nCols, nil)
	for i := 0; i < nRows; i++ {
		for j := 0; j < nCols; j++ {
			A.Set(i, j, sys.lhs[i][j])
		}
	}
	rhs := mat.NewVecDense(nRows, sys.rhs)

	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return nil, errSingularPhaseMatrix("global-system", nCols)
	}
	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	maxSV := 0.0
	for _, s := range values {
		if s > maxSV {
			maxSV = s
		}
	}
	rank := 0
	soln := make([]float64, nCols)
	utb := make([]float64, len(values))
	for i, s := range values {
		if s <= rcond*maxSV || s == 0 {
			continue
		}
		rank++
		col := mat.Col(nil, i, &u)
		dot := 0.0
		for k, uv := range col {
			dot += uv * rhs.AtVec(k)
		}
		utb[i] = dot / s
	}
	for j := 0; j < nCols; j++ {
		sum := 0.0
		for i := range values {
			sum += v.At(j, i) * utb[i]
		}
		soln[j] = sum
	}

	if b.Verbose && rank < min(nRows, nCols) {
		io.Pfyel("equi: global system rank-deficient: rank=%d of %d\n", rank, min(nRows, nCols))
	}
	return soln, nil
}
