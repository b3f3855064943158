// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equi

import (
	"math"

	"github.com/cpmech/gosl/la"
)

// PhaseSystemBuilder assembles and solves, for one composition set, the
// per-phase KKT system of §4.1:
//
//	[ H_yy  Jᵀ ] [ δy ]   [ -g_y - H_ys·δs + Σ_c μ_c·(∂m_c/∂y) ]
//	[ J     0  ] [ λ  ] = [ -c(y)                               ]
//
// and condenses the solution into δy plus the "E-matrix", the top-left
// phase_dof×phase_dof block of inv(phase_matrix), used by
// EquilibriumSystemBuilder (§4.2) to project this phase's sensitivities
// into the global system.
type PhaseSystemBuilder struct {
	pool *scratchPool
}

// NewPhaseSystemBuilder creates a builder with its own scratch pool.
func NewPhaseSystemBuilder() *PhaseSystemBuilder {
	return &PhaseSystemBuilder{pool: newScratchPool()}
}

// phaseSystemResult carries everything EquilibriumSystemBuilder needs
// out of one phase's KKT solve.
type phaseSystemResult struct {
	deltaY     []float64   // [D] internal dof correction
	eMatrix    [][]float64 // [D][D] condensed reduced-Hessian inverse
	grad       []float64   // [S+D] gradient at current dof (for c_G, row energy terms)
	hess       [][]float64 // [S+D][S+D] Hessian at current dof (for c_sv)
	massJac    [][]float64 // [numComponents][S+D] mass gradient per component (for c_mu, rows)
	maxAbsCons float64     // feasibility gauge for this phase
}

// computePhaseMatrix fills the symmetric KKT matrix (top half of §4.1)
// into s.kktMatrix, given the Hessian and internal-constraint Jacobian
// already evaluated at the phase's current dof.
func computePhaseMatrix(s *phaseScratch, numStatevars, phaseDof, numCons int) {
	// H_yy: internal/internal block of the Hessian.
	for i := 0; i < phaseDof; i++ {
		for j := 0; j < phaseDof; j++ {
			s.kktMatrix[i][j] = s.hess[numStatevars+i][numStatevars+j]
		}
	}
	// J and Jᵀ: internal-constraint Jacobian w.r.t. internal dof only.
	for k := 0; k < numCons; k++ {
		for j := 0; j < phaseDof; j++ {
			jac := s.consJac[k][numStatevars+j]
			s.kktMatrix[phaseDof+k][j] = jac
			s.kktMatrix[j][phaseDof+k] = jac
		}
	}
	// bottom-right block is zero, already guaranteed by a freshly
	// zeroed scratch buffer.
}

// ComputePhaseSystem evaluates the composition set's model at its
// current dof, fills the per-phase KKT matrix and right-hand side, and
// returns the maximum absolute internal constraint residual (the
// feasibility gauge used by ConvergenceController).
func (b *PhaseSystemBuilder) ComputePhaseSystem(cs *CompositionSet, numStatevars int, deltaStatevars, chemicalPotentials []float64) (*phaseSystemResult, error) {
	phase := cs.Phase
	phaseDof := phase.PhaseDOF()
	numCons := phase.NumInternalCons()
	numComponents := len(chemicalPotentials)
	x := cs.Dof

	s := b.pool.get(numStatevars, phaseDof, numCons, numComponents)

	energy := phase.Obj(x)
	phase.Hess(s.hess, x)
	phase.Grad(s.grad, x)
	phase.InternalConsFunc(s.cons, x)
	phase.InternalConsJac(s.consJac, x)

	if err := checkFinite(cs.Name(), "energy", []float64{energy}); err != nil {
		return nil, err
	}
	if err := checkFinite(cs.Name(), "hessian", flattenMat(s.hess)); err != nil {
		return nil, err
	}
	if err := checkFinite(cs.Name(), "gradient", s.grad); err != nil {
		return nil, err
	}

	computePhaseMatrix(s, numStatevars, phaseDof, numCons)

	// rhs top block: -g_y - H_ys·δs + Σ_c μ_c·(∂m_c/∂y)
	massJac := la.MatAlloc(numComponents, numStatevars+phaseDof)
	for c := 0; c < numComponents; c++ {
		phase.MassGrad(massJac[c], x, c)
	}
	for i := 0; i < phaseDof; i++ {
		rhs := -s.grad[numStatevars+i]
		for k := 0; k < numStatevars; k++ {
			rhs -= s.hess[numStatevars+i][k] * deltaStatevars[k]
		}
		for c := 0; c < numComponents; c++ {
			rhs += chemicalPotentials[c] * massJac[c][numStatevars+i]
		}
		s.rhs[i] = rhs
	}
	// rhs bottom block: -c(y)
	maxAbsCons := 0.0
	for k := 0; k < numCons; k++ {
		s.rhs[phaseDof+k] = -s.cons[k]
		if a := math.Abs(s.cons[k]); a > maxAbsCons {
			maxAbsCons = a
		}
	}

	deltaY, eMatrix, err := solvePhaseSystem(s, phaseDof, numCons, cs.Name())
	if err != nil {
		return nil, err
	}

	return &phaseSystemResult{
		deltaY:     deltaY,
		eMatrix:    eMatrix,
		grad:       append([]float64(nil), s.grad...),
		hess:       cloneMat(s.hess),
		massJac:    massJac,
		maxAbsCons: maxAbsCons,
	}, nil
}

// solvePhaseSystem inverts the (phase_dof+num_internal_cons) KKT matrix
// and slices δy and the E-matrix out of the inverse; the whole block is
// inverted, with no Schur-complement reduction.
func solvePhaseSystem(s *phaseScratch, phaseDof, numCons int, csName string) (deltaY []float64, eMatrix [][]float64, err error) {
	n := phaseDof + numCons
	if n == 0 {
		return []float64{}, la.MatAlloc(0, 0), nil
	}
	if err := la.MatInvG(s.kktInv, s.kktMatrix, 1e-13); err != nil {
		return nil, nil, errSingularPhaseMatrix(csName, n)
	}
	soln := make([]float64, n)
	la.MatVecMul(soln, 1, s.kktInv, s.rhs)
	deltaY = soln[:phaseDof]
	for i := 0; i < phaseDof; i++ {
		copy(s.eMatrix[i], s.kktInv[i][:phaseDof])
	}
	return deltaY, cloneMat(s.eMatrix), nil
}

func flattenMat(a [][]float64) []float64 {
	out := make([]float64, 0, len(a)*len(a))
	for _, row := range a {
		out = append(out, row...)
	}
	return out
}

func cloneMat(a [][]float64) [][]float64 {
	out := make([][]float64, len(a))
	for i, row := range a {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

func checkFinite(csName, what string, v []float64) error {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return errNumericDomainFault(csName, what)
		}
	}
	return nil
}
