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

	"github.com/spatialmodel/cplcore/config"
	"github.com/spatialmodel/cplcore/couplingdata"
	"github.com/spatialmodel/cplcore/cplerror"
	"github.com/spatialmodel/cplcore/qr"
)

// IMVJ implements the interface quasi-Newton multi-vector Jacobian
// variant: an explicit Jacobian approximation J is kept and updated by
// the secant correction J_{k+1} = J_k + (W - J_k V)(VᵀV)⁻¹Vᵀ, so that J
// maps a residual onto the quasi-Newton correction. AlwaysBuildJacobian
// has no effect here since J is always explicit: the matrix-free
// variant the specification allows as an alternative is not built
// because the stacked sizes this package targets make an n x n dense
// matrix cheap, and carrying both code paths would duplicate the update
// logic for no behavioral gain at this scale.
type IMVJ struct {
	Base

	Filter           config.FilterKind
	SingularityLimit float64

	InitialRelaxation      float64
	ForceInitialRelaxation bool

	Restart                  config.RestartMode
	ChunkSize                int
	ReusedTimestepsAtRestart int
	TruncationThreshold      float64
	AlwaysBuildJacobian      bool

	J *mat.Dense // n x n, nil means not yet built (acts as zero)

	v, w   [][]float64 // stacked columns, parallel
	qrFact *qr.Factorization
	svd    *qr.TruncatedSVD

	windowColumnCounts []int

	everInitialized bool
	firstWindowEver bool
}

// NewIMVJ returns an IQN-IMVJ accelerator configured per specification §4.6.
func NewIMVJ(initialRelaxation float64, forceInitial bool, filter config.FilterKind, singularityLimit float64, restart config.RestartMode, chunkSize, reusedTimestepsAtRestart int, truncationThreshold float64) *IMVJ {
	return &IMVJ{
		InitialRelaxation:        initialRelaxation,
		ForceInitialRelaxation:   forceInitial,
		Filter:                   filter,
		SingularityLimit:         singularityLimit,
		Restart:                  restart,
		ChunkSize:                chunkSize,
		ReusedTimestepsAtRestart: reusedTimestepsAtRestart,
		TruncationThreshold:      truncationThreshold,
	}
}

func (q *IMVJ) Initialize(dataMap map[int]*couplingdata.Data) error {
	q.initFields(dataMap)
	if !q.everInitialized {
		q.qrFact = qr.New(q.StackedSize())
		q.svd = qr.NewTruncatedSVD(q.TruncationThreshold)
		q.windowColumnCounts = []int{0}
		q.firstWindowEver = true
		q.everInitialized = true
	}
	return nil
}

func (q *IMVJ) PerformAcceleration(dataMap map[int]*couplingdata.Data) error {
	xTilde, x := q.stackCurrentAndPrevious(dataMap)
	r := residual(xTilde, x)

	if q.firstWindowEver && q.ForceInitialRelaxation && q.J == nil && len(q.v) == 0 {
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
			q.v = append(q.v, deltaR)
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
		q.dropColumns(q.qrFact.FilterQR1(q.SingularityLimit))
	case config.QR1Abs:
		q.dropColumns(q.qrFact.FilterQR1Abs(q.SingularityLimit))
	}

	if len(q.v) == 0 {
		logSingularFallback(cplerror.Context{}, cplerror.New(cplerror.SingularSystem, cplerror.Context{}, "no V/W columns available for Jacobian update"))
		q.writeBack(dataMap, relax(q.InitialRelaxation, xTilde, x))
		return nil
	}

	if err := q.updateJacobian(); err != nil {
		logSingularFallback(cplerror.Context{}, err)
		q.writeBack(dataMap, relax(q.InitialRelaxation, xTilde, x))
		return nil
	}

	n := q.StackedSize()
	rv := mat.NewVecDense(n, append([]float64(nil), r...))
	var corr mat.VecDense
	corr.MulVec(q.J, rv)
	xNew := make([]float64, n)
	for i := range xNew {
		xNew[i] = x[i] - corr.AtVec(i)
	}
	q.writeBack(dataMap, xNew)
	return nil
}

// updateJacobian applies the secant correction J_{k+1} = J_k + (W - J_k
// V)(VᵀV)⁻¹Vᵀ using the currently retained V/W columns.
func (q *IMVJ) updateJacobian() error {
	m := len(q.v)
	n := q.StackedSize()

	v := mat.NewDense(n, m, nil)
	w := mat.NewDense(n, m, nil)
	for j := 0; j < m; j++ {
		for i := 0; i < n; i++ {
			v.Set(i, j, q.v[j][i])
			w.Set(i, j, q.w[j][i])
		}
	}

	if q.J == nil {
		q.J = mat.NewDense(n, n, nil)
	}
	return q.applyUpdate(v, w)
}

// applyUpdate performs the VᵀV solve and Jacobian correction separately
// from updateJacobian so the matrix plumbing reads top to bottom.
func (q *IMVJ) applyUpdate(v, w *mat.Dense) error {
	var vtv mat.Dense
	vtv.Mul(v.T(), v)

	var jv mat.Dense
	jv.Mul(q.J, v)
	var diff mat.Dense
	diff.Sub(w, &jv)

	var vt mat.Dense
	vt.CloneFrom(v.T())

	var solved mat.Dense
	if err := solved.Solve(&vtv, &vt); err != nil {
		return cplerror.New(cplerror.SingularSystem, cplerror.Context{}, "IMVJ Jacobian update: VtV is singular: %v", err)
	}

	var correction mat.Dense
	correction.Mul(&diff, &solved)
	q.J.Add(q.J, &correction)
	return nil
}

func (q *IMVJ) dropColumns(drop []int) {
	if len(drop) == 0 {
		return
	}
	q.qrFact.DeleteColumns(drop)
	dropSet := make(map[int]bool, len(drop))
	for _, i := range drop {
		dropSet[i] = true
	}
	keptV := make([][]float64, 0, len(q.v)-len(drop))
	keptW := make([][]float64, 0, len(q.w)-len(drop))
	for i := range q.v {
		if !dropSet[i] {
			keptV = append(keptV, q.v[i])
			keptW = append(keptW, q.w[i])
		}
	}
	q.v, q.w = keptV, keptW
	q.deletedColumns += len(drop)
}

// IterationsConverged applies the configured restart policy at window
// completion, then resets the base's per-window bookkeeping.
func (q *IMVJ) IterationsConverged(dataMap map[int]*couplingdata.Data) {
	q.windowColumnCounts = append(q.windowColumnCounts, 0)

	switch q.Restart {
	case config.NoRestart:
		// carry J, V and W across every window boundary
	case config.RS0:
		q.J = nil
		q.v, q.w = nil, nil
		q.qrFact = qr.New(q.StackedSize())
		q.windowColumnCounts = []int{0}
	case config.RSLS:
		q.J = nil
		q.dropOlderThan(q.ReusedTimestepsAtRestart)
	case config.RSSVD:
		if q.J != nil {
			if err := q.svd.Update(q.J); err == nil {
				q.J = q.svd.Dense()
			}
		}
	case config.RSSlide:
		q.J = nil
		q.dropOlderThan(q.ChunkSize)
	}

	q.firstWindowEver = false
	q.endWindow()
}

// dropOlderThan keeps only the most recent keepWindows windows of V/W
// columns, rebuilding the parallel QR factorization from what remains.
// This is how RS-LS and RS-SLIDE "rebuild from the last K windows"
// here: since updateJacobian folds columns into J incrementally from a
// J==nil start, replaying the retained columns on the next iteration
// reconstructs J from exactly those columns.
func (q *IMVJ) dropOlderThan(keepWindows int) {
	if keepWindows < 0 {
		return
	}
	for len(q.windowColumnCounts) > keepWindows+1 {
		drop := q.windowColumnCounts[0]
		q.windowColumnCounts = q.windowColumnCounts[1:]
		if drop > 0 {
			q.v = q.v[drop:]
			q.w = q.w[drop:]
		}
	}
	q.qrFact = qr.New(q.StackedSize())
	for _, col := range q.v {
		q.qrFact.InsertColumn(col)
	}
}
