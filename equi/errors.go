// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equi

import (
	"errors"
	"fmt"
)

// Error taxonomy (§7). NonConverged is deliberately NOT here: it is a
// data signal returned via the converged bool, not an error.
var (
	// ErrConditionsViolateGibbsRule is returned when the free/fixed
	// partition of chemical potentials and state variables does not
	// balance against the prescribed elements, at call time or at any
	// later iteration (phases may be added/removed mid-solve).
	ErrConditionsViolateGibbsRule = errors.New("conditions violate Gibbs phase rule")

	// ErrSingularPhaseMatrix is returned when a per-phase KKT matrix
	// (§4.1) cannot be inverted: a degenerate constraint set for that
	// phase. EquilibriumSystemBuilder also returns it when a stable phase
	// has no phase result, and when the SVD of the global system fails.
	ErrSingularPhaseMatrix = errors.New("phase matrix is singular")

	// ErrNumericDomainFault is returned when a PhaseEvaluator produces
	// NaN or Inf in energy, gradient or Hessian.
	ErrNumericDomainFault = errors.New("evaluator returned a non-finite value")
)

func errGibbsPhaseRule(nFreeMu, nFreeSV, nPrescribed int) error {
	return fmt.Errorf("%w: |free_chempots|(%d) + |free_statevars|(%d) != |prescribed_elements|(%d) + 1",
		ErrConditionsViolateGibbsRule, nFreeMu, nFreeSV, nPrescribed)
}

func errSingularPhaseMatrix(csName string, size int) error {
	return fmt.Errorf("%w: compset %q, size %d", ErrSingularPhaseMatrix, csName, size)
}

func errNumericDomainFault(csName, what string) error {
	return fmt.Errorf("%w: compset %q, %s", ErrNumericDomainFault, csName, what)
}

func errUnknownOption(name string) error {
	return fmt.Errorf("equi: option named %q is incorrect", name)
}
