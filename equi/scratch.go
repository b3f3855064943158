// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equi

import "github.com/cpmech/gosl/la"

// scratchShape keys pooled per-phase buffers by every dimension that
// determines their sizes: hess/grad/consJac are sized S+D, not just D,
// so numStatevars and numComponents must be part of the key alongside
// phaseDof/numCons or a pool reused across systems of different S would
// hand back a buffer sized for the wrong S.
type scratchShape struct {
	numStatevars  int
	phaseDof      int
	numCons       int
	numComponents int
}

// phaseScratch holds every per-phase, per-iteration buffer named in §5
// (Shared-resource policy): all must be treated as freshly zeroed before
// each use, but the backing storage may be pooled across phases of the
// same shape and across iterations.
type phaseScratch struct {
	hess    [][]float64 // [S+D][S+D]
	grad    []float64   // [S+D]
	cons    []float64   // [K]
	consJac [][]float64 // [K][S+D]

	kktMatrix [][]float64 // [(D+K)][(D+K)]
	kktInv    [][]float64 // [(D+K)][(D+K)]
	rhs       []float64   // [D+K]
	eMatrix   [][]float64 // [D][D]
}

// scratchPool hands out zeroed phaseScratch buffers keyed by shape,
// matching §9's "Dynamic-sized scratch buffers" note: pool by shape and
// zero on reuse instead of reallocating every iteration.
type scratchPool struct {
	byShape map[scratchShape]*phaseScratch
}

func newScratchPool() *scratchPool {
	return &scratchPool{byShape: make(map[scratchShape]*phaseScratch)}
}

// get returns the pooled buffer set for (numStatevars, phaseDof, numCons,
// numComponents), zeroing everything before returning it.
func (p *scratchPool) get(numStatevars, phaseDof, numCons, numComponents int) *phaseScratch {
	n := numStatevars + phaseDof
	shape := scratchShape{numStatevars: numStatevars, phaseDof: phaseDof, numCons: numCons, numComponents: numComponents}
	s, ok := p.byShape[shape]
	if !ok {
		s = &phaseScratch{
			hess:      la.MatAlloc(n, n),
			grad:      make([]float64, n),
			cons:      make([]float64, numCons),
			consJac:   la.MatAlloc(numCons, n),
			kktMatrix: la.MatAlloc(phaseDof+numCons, phaseDof+numCons),
			kktInv:    la.MatAlloc(phaseDof+numCons, phaseDof+numCons),
			rhs:       make([]float64, phaseDof+numCons),
			eMatrix:   la.MatAlloc(phaseDof, phaseDof),
		}
		p.byShape[shape] = s
		return s
	}
	zeroMat(s.hess)
	la.VecFill(s.grad, 0)
	la.VecFill(s.cons, 0)
	zeroMat(s.consJac)
	zeroMat(s.kktMatrix)
	zeroMat(s.kktInv)
	la.VecFill(s.rhs, 0)
	zeroMat(s.eMatrix)
	return s
}

func zeroMat(a [][]float64) {
	for i := range a {
		la.VecFill(a[i], 0)
	}
}
