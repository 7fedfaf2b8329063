/*
Copyright (C) 2013-2014 Regents of the University of Minnesota.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package acceleration

import (
	"gonum.org/v1/gonum/mat"

	"github.com/spatialmodel/cplcore/couplingdata"
	"github.com/spatialmodel/cplcore/cplerror"
)

// Broyden implements rank-1 secant updates to an explicit Jacobian
// approximation J, good-Broyden style:
//
//	J_{k+1} = J_k + ((Δx − J_k Δr) Δrᵀ) / (Δrᵀ Δr)
//
// Unlike IMVJ, no V/W history is kept and J is always dropped at window
// completion: the specification gives Broyden no reuse-across-windows
// parameter, so there is nothing to carry.
type Broyden struct {
	Base

	InitialRelaxation      float64
	ForceInitialRelaxation bool

	J *mat.Dense

	everInitialized bool
	firstWindowEver bool
}

// NewBroyden returns a Broyden accelerator configured per specification §4.6.
func NewBroyden(initialRelaxation float64, forceInitial bool) *Broyden {
	return &Broyden{InitialRelaxation: initialRelaxation, ForceInitialRelaxation: forceInitial}
}

func (b *Broyden) Initialize(dataMap map[int]*couplingdata.Data) error {
	b.initFields(dataMap)
	if !b.everInitialized {
		b.firstWindowEver = true
		b.everInitialized = true
	}
	return nil
}

func (b *Broyden) PerformAcceleration(dataMap map[int]*couplingdata.Data) error {
	xTilde, x := b.stackCurrentAndPrevious(dataMap)
	r := residual(xTilde, x)

	if b.firstWindowEver && b.ForceInitialRelaxation && b.J == nil {
		b.rPrev, b.xPrev = r, x
		b.firstIterationOfWindow = false
		b.writeBack(dataMap, relax(b.InitialRelaxation, xTilde, x))
		return nil
	}

	if b.rPrev != nil {
		deltaR := subVec(r, b.rPrev)
		deltaX := subVec(x, b.xPrev)
		if b.Preconditioner != nil {
			b.Preconditioner.ApplyVec(deltaR)
		}
		if err := b.update(deltaR, deltaX); err != nil {
			logSingularFallback(cplerror.Context{}, err)
			b.rPrev, b.xPrev = r, x
			b.firstIterationOfWindow = false
			b.writeBack(dataMap, relax(b.InitialRelaxation, xTilde, x))
			return nil
		}
	}
	b.rPrev, b.xPrev = r, x
	b.firstIterationOfWindow = false

	if b.J == nil {
		logSingularFallback(cplerror.Context{}, cplerror.New(cplerror.SingularSystem, cplerror.Context{}, "no Jacobian approximation available yet"))
		b.writeBack(dataMap, relax(b.InitialRelaxation, xTilde, x))
		return nil
	}

	n := b.StackedSize()
	rv := mat.NewVecDense(n, append([]float64(nil), r...))
	var corr mat.VecDense
	corr.MulVec(b.J, rv)
	xNew := make([]float64, n)
	for i := range xNew {
		xNew[i] = x[i] - corr.AtVec(i)
	}
	b.writeBack(dataMap, xNew)
	return nil
}

func (b *Broyden) update(deltaR, deltaX []float64) error {
	n := len(deltaR)
	var denom float64
	for _, v := range deltaR {
		denom += v * v
	}
	if denom == 0 {
		return cplerror.New(cplerror.SingularSystem, cplerror.Context{}, "Broyden update: Δr has zero norm")
	}

	if b.J == nil {
		b.J = mat.NewDense(n, n, nil)
	}

	drv := mat.NewVecDense(n, append([]float64(nil), deltaR...))
	var jdr mat.VecDense
	jdr.MulVec(b.J, drv)

	num := make([]float64, n)
	for i := range num {
		num[i] = (deltaX[i] - jdr.AtVec(i)) / denom
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			b.J.Set(i, j, b.J.At(i, j)+num[i]*deltaR[j])
		}
	}
	return nil
}

func (b *Broyden) IterationsConverged(dataMap map[int]*couplingdata.Data) {
	b.J = nil
	b.firstWindowEver = false
	b.endWindow()
}
