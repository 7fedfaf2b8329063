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

// Package precondition implements the diagonal row-scaling preconditioner
// of specification §4.4, component C6, built over gonum.org/v1/gonum/mat
// the way the rest of this module's numerical code (matrix.go-style
// mat.Dense use, carried from emissions/slca/bea) is built.
package precondition

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Kind selects how per-subvector weights are recomputed.
type Kind int

const (
	Constant Kind = iota
	ValueNorm
	ResidualNorm
	ResidualSum
)

// Preconditioner maintains one scaling weight per stacked-vector entry,
// grouped into subvectors matching the per-field layout used to stack
// several coupling data fields into one acceleration problem.
type Preconditioner struct {
	kind Kind

	subvectorSizes []int
	weights        []float64 // w
	inverse        []float64 // w^-1

	maxNonConstTimesteps int
	completedWindows     int
	frozen               bool
}

// New allocates a preconditioner of the given kind over the stacked
// layout described by subvectorSizes (one entry per field, in stacking
// order). maxNonConstTimesteps bounds how many completed windows the
// weights keep updating before freezing; Constant is always frozen.
func New(kind Kind, subvectorSizes []int, maxNonConstTimesteps int) *Preconditioner {
	n := 0
	for _, s := range subvectorSizes {
		n += s
	}
	w := make([]float64, n)
	wInv := make([]float64, n)
	for i := range w {
		w[i] = 1
		wInv[i] = 1
	}
	p := &Preconditioner{
		kind:                 kind,
		subvectorSizes:       append([]int(nil), subvectorSizes...),
		weights:              w,
		inverse:              wInv,
		maxNonConstTimesteps: maxNonConstTimesteps,
		frozen:               kind == Constant,
	}
	return p
}

// Frozen reports whether the preconditioner has stopped updating its
// weights.
func (p *Preconditioner) Frozen() bool { return p.frozen }

// Weights returns the current per-entry scale factors w.
func (p *Preconditioner) Weights() []float64 { return p.weights }

// Update recomputes weights from the stacked old-values and residual
// vectors (one slice per field, in subvector order), unless frozen. When
// timeWindowCompleted is true and the freeze policy now applies, weights
// are frozen after this update.
func (p *Preconditioner) Update(timeWindowCompleted bool, oldValues, residuals [][]float64) {
	if p.frozen {
		return
	}
	switch p.kind {
	case Constant:
		// weights stay at 1; frozen from construction.
	case ValueNorm:
		p.updatePerSubvector(oldValues, false)
	case ResidualNorm:
		p.updatePerSubvector(residuals, false)
	case ResidualSum:
		p.updatePerSubvector(residuals, true)
	}
	if timeWindowCompleted {
		p.completedWindows++
		if p.maxNonConstTimesteps > 0 && p.completedWindows >= p.maxNonConstTimesteps {
			p.frozen = true
		}
	}
}

func (p *Preconditioner) updatePerSubvector(vectors [][]float64, sumInsteadOfNorm bool) {
	offset := 0
	for fi, size := range p.subvectorSizes {
		v := vectors[fi]
		var scale float64
		if sumInsteadOfNorm {
			var sum float64
			for _, x := range v {
				sum += math.Abs(x)
			}
			if sum == 0 {
				scale = 1
			} else {
				scale = float64(size) / sum
			}
		} else {
			var sumSq float64
			for _, x := range v {
				sumSq += x * x
			}
			norm := math.Sqrt(sumSq)
			if norm == 0 {
				scale = 1
			} else {
				scale = 1 / norm
			}
		}
		for i := 0; i < size; i++ {
			p.weights[offset+i] = scale
			p.inverse[offset+i] = 1 / scale
		}
		offset += size
	}
}

// Apply scales the rows of M by w in place, returning M for chaining.
func (p *Preconditioner) Apply(m *mat.Dense) *mat.Dense {
	return p.scaleRows(m, p.weights)
}

// Revert undoes Apply by scaling the rows of M by w^-1 in place.
func (p *Preconditioner) Revert(m *mat.Dense) *mat.Dense {
	return p.scaleRows(m, p.inverse)
}

func (p *Preconditioner) scaleRows(m *mat.Dense, scale []float64) *mat.Dense {
	rows, cols := m.Dims()
	for r := 0; r < rows && r < len(scale); r++ {
		for c := 0; c < cols; c++ {
			m.Set(r, c, m.At(r, c)*scale[r])
		}
	}
	return m
}

// ApplyVec scales a stacked vector by w in place.
func (p *Preconditioner) ApplyVec(v []float64) {
	for i := range v {
		if i < len(p.weights) {
			v[i] *= p.weights[i]
		}
	}
}

// RevertVec scales a stacked vector by w^-1 in place.
func (p *Preconditioner) RevertVec(v []float64) {
	for i := range v {
		if i < len(p.inverse) {
			v[i] *= p.inverse[i]
		}
	}
}
