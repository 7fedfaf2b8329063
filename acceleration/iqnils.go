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
	"math"

	"github.com/spatialmodel/cplcore/config"
	"github.com/spatialmodel/cplcore/couplingdata"
	"github.com/spatialmodel/cplcore/cplerror"
	"github.com/spatialmodel/cplcore/qr"
)

// IQNILS implements the interface quasi-Newton inverse least-squares
// variant: solve V alpha ≈ -r by QR with column filtering, then
// x_new = x + W alpha.
type IQNILS struct {
	Base

	Filter           config.FilterKind
	SingularityLimit float64

	InitialRelaxation      float64
	ForceInitialRelaxation bool
	TimestepsReused        int // windows of V/W columns kept across window boundaries

	qrFact *qr.Factorization
	w      [][]float64 // W columns, parallel to qrFact's retained columns

	windowColumnCounts []int // columns added per completed window, oldest first, for the reuse policy

	everInitialized bool
	firstWindowEver bool
}

// NewIQNILS returns an IQN-ILS accelerator configured per specification
// §4.6/§6.
func NewIQNILS(initialRelaxation float64, forceInitial bool, filter config.FilterKind, singularityLimit float64, timestepsReused int) *IQNILS {
	return &IQNILS{
		InitialRelaxation:      initialRelaxation,
		ForceInitialRelaxation: forceInitial,
		Filter:                 filter,
		SingularityLimit:       singularityLimit,
		TimestepsReused:        timestepsReused,
	}
}

func (q *IQNILS) Initialize(dataMap map[int]*couplingdata.Data) error {
	q.initFields(dataMap)
	if !q.everInitialized {
		q.qrFact = qr.New(q.StackedSize())
		q.w = nil
		q.windowColumnCounts = []int{0}
		q.firstWindowEver = true
		q.everInitialized = true
	}
	return nil
}

func (q *IQNILS) PerformAcceleration(dataMap map[int]*couplingdata.Data) error {
	xTilde, x := q.stackCurrentAndPrevious(dataMap)
	r := residual(xTilde, x)

	if q.firstWindowEver && q.ForceInitialRelaxation && q.qrFact.Cols() == 0 {
		q.rPrev, q.xPrev = r, x
		q.firstIterationOfWindow = false
		q.writeBack(dataMap, relax(q.InitialRelaxation, xTilde, x))
		return nil
	}

	if q.rPrev != nil {
		deltaR := subVec(r, q.rPrev)
		deltaX := subVec(x, q.xPrev)
		if q.Preconditioner != nil {
			q.Preconditioner.ApplyVec(deltaR)
		}
		deltaRNorm := vecNorm(deltaR)
		residualNorm := q.qrFact.InsertColumn(deltaR)

		accept := true
		if q.Filter == config.QR2 {
			accept = qr.QR2Accept(residualNorm, deltaRNorm, q.SingularityLimit)
		}
		if accept {
			q.w = append(q.w, deltaX)
			q.windowColumnCounts[len(q.windowColumnCounts)-1]++
		} else {
			q.qrFact.DeleteColumn(q.qrFact.Cols() - 1)
			q.deletedColumns++
		}
	}
	q.rPrev, q.xPrev = r, x
	q.firstIterationOfWindow = false

	switch q.Filter {
	case config.QR1:
		drop := q.qrFact.FilterQR1(q.SingularityLimit)
		q.dropColumns(drop)
	case config.QR1Abs:
		drop := q.qrFact.FilterQR1Abs(q.SingularityLimit)
		q.dropColumns(drop)
	}

	alpha, err := q.solve(r)
	if err != nil {
		logSingularFallback(cplerror.Context{}, err)
		q.writeBack(dataMap, relax(q.InitialRelaxation, xTilde, x))
		return nil
	}

	xNew := make([]float64, len(x))
	copy(xNew, x)
	for j, alphaJ := range alpha {
		col := q.w[j]
		for i := range xNew {
			xNew[i] += col[i] * alphaJ
		}
	}
	q.writeBack(dataMap, xNew)
	return nil
}

// solve finds alpha minimizing ||V alpha + r|| via the maintained QR
// factorization of V: V = QR, so alpha = -R^-1 Q^T r. Returns
// SingularSystem if R has no usable columns (all filtered, or none ever
// inserted).
func (q *IQNILS) solve(r []float64) ([]float64, error) {
	m := q.qrFact.Cols()
	if m == 0 {
		return nil, cplerror.New(cplerror.SingularSystem, cplerror.Context{}, "no V/W columns available for least-squares solve")
	}
	qtR := make([]float64, m)
	for j := 0; j < m; j++ {
		col := q.qrFact.Q.ColView(j)
		var dot float64
		for i := 0; i < col.Len(); i++ {
			dot += col.AtVec(i) * r[i]
		}
		qtR[j] = -dot
	}
	alpha := make([]float64, m)
	for i := m - 1; i >= 0; i-- {
		sum := qtR[i]
		for j := i + 1; j < m; j++ {
			sum -= q.qrFact.R.At(i, j) * alpha[j]
		}
		diag := q.qrFact.R.At(i, i)
		if diag == 0 {
			return nil, cplerror.New(cplerror.SingularSystem, cplerror.Context{}, "zero pivot at column %d after filtering", i)
		}
		alpha[i] = sum / diag
	}
	return alpha, nil
}

func (q *IQNILS) dropColumns(drop []int) {
	if len(drop) == 0 {
		return
	}
	q.qrFact.DeleteColumns(drop)
	dropSet := make(map[int]bool, len(drop))
	for _, i := range drop {
		dropSet[i] = true
	}
	kept := make([][]float64, 0, len(q.w)-len(drop))
	for i, c := range q.w {
		if !dropSet[i] {
			kept = append(kept, c)
		}
	}
	q.w = kept
	q.deletedColumns += len(drop)
}

// IterationsConverged applies the column-reuse policy: only the last
// TimestepsReused windows of columns are retained; older ones are
// dropped. Every window's first-iteration-of-window flag resets.
func (q *IQNILS) IterationsConverged(dataMap map[int]*couplingdata.Data) {
	q.windowColumnCounts = append(q.windowColumnCounts, 0)
	if q.TimestepsReused >= 0 {
		for len(q.windowColumnCounts) > q.TimestepsReused+1 {
			drop := q.windowColumnCounts[0]
			q.windowColumnCounts = q.windowColumnCounts[1:]
			if drop > 0 {
				idxs := make([]int, drop)
				for i := range idxs {
					idxs[i] = i
				}
				q.qrFact.DeleteColumns(idxs)
				q.w = q.w[drop:]
			}
		}
	}
	q.firstWindowEver = false
	q.endWindow()
}

func subVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func vecNorm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
