// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package equi

import "math"

// idealBinaryModel is a deterministic PhaseEvaluator stub for a single
// sublattice, two-component ideal solution:
//
//	G(T,P,yA,yB) = yA·GA + yB·GB + R·T·(yA·ln(yA) + yB·ln(yB))
//
// with one internal constraint yA+yB-1=0. x = [T, P, yA, yB].
type idealBinaryModel struct {
	GA, GB float64
}

const gasConstant = 8.314

func (m *idealBinaryModel) PhaseDOF() int        { return 2 }
func (m *idealBinaryModel) NumInternalCons() int { return 1 }

func (m *idealBinaryModel) Obj(x []float64) float64 {
	T, yA, yB := x[0], x[2], x[3]
	return yA*m.GA + yB*m.GB + gasConstant*T*(yA*math.Log(yA)+yB*math.Log(yB))
}

func (m *idealBinaryModel) Grad(out, x []float64) {
	T, yA, yB := x[0], x[2], x[3]
	out[0] = gasConstant * (yA*math.Log(yA) + yB*math.Log(yB))
	out[1] = 0
	out[2] = m.GA + gasConstant*T*(math.Log(yA)+1)
	out[3] = m.GB + gasConstant*T*(math.Log(yB)+1)
}

func (m *idealBinaryModel) Hess(out [][]float64, x []float64) {
	T, yA, yB := x[0], x[2], x[3]
	out[0][2] = gasConstant * (math.Log(yA) + 1)
	out[2][0] = out[0][2]
	out[0][3] = gasConstant * (math.Log(yB) + 1)
	out[3][0] = out[0][3]
	out[2][2] = gasConstant * T / yA
	out[3][3] = gasConstant * T / yB
}

func (m *idealBinaryModel) MassObj(x []float64, c int) float64 {
	return x[2+c]
}

func (m *idealBinaryModel) MassGrad(out, x []float64, c int) {
	out[2+c] = 1
}

func (m *idealBinaryModel) InternalConsFunc(out, x []float64) {
	out[0] = x[2] + x[3] - 1
}

func (m *idealBinaryModel) InternalConsJac(out [][]float64, x []float64) {
	out[0][2] = 1
	out[0][3] = 1
}

// regularBinaryModel adds a symmetric regular-solution interaction term
// Ω·yA·yB to idealBinaryModel, enough to produce a miscibility gap (two
// stable phases) for a large enough Ω at low enough T.
type regularBinaryModel struct {
	idealBinaryModel
	Omega float64
}

func (m *regularBinaryModel) Obj(x []float64) float64 {
	yA, yB := x[2], x[3]
	return m.idealBinaryModel.Obj(x) + m.Omega*yA*yB
}

func (m *regularBinaryModel) Grad(out, x []float64) {
	m.idealBinaryModel.Grad(out, x)
	yA, yB := x[2], x[3]
	out[2] += m.Omega * yB
	out[3] += m.Omega * yA
}

func (m *regularBinaryModel) Hess(out [][]float64, x []float64) {
	m.idealBinaryModel.Hess(out, x)
	out[2][3] += m.Omega
	out[3][2] += m.Omega
}

func newDof(t, p, yA, yB float64) []float64 {
	return []float64{t, p, yA, yB}
}
