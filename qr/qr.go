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

// Package qr implements the QR factorization kernel of specification
// §4.5, component C7: incremental column insertion/deletion and a block
// factorization of a fresh matrix, plus the column-filtering policies
// acceleration uses to keep V/W well conditioned. Built on
// gonum.org/v1/gonum/mat, the linear-algebra package this codebase's
// emissions/slca/bea subtree already depends on.
package qr

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Factorization holds Q (n x m, orthonormal columns) and R (m x m, upper
// triangular) for a matrix A built up one column at a time. It also keeps
// the original columns of A so that DeleteColumn can re-triangularize by
// a full block factorization rather than chasing a Givens bulge — an
// acceptable trade since deletions only happen on filter/reuse events,
// not every iteration, while InsertColumn (the per-iteration hot path)
// is a true incremental O(nm) update.
type Factorization struct {
	n    int
	cols [][]float64 // retained original columns of A, length n each

	Q *mat.Dense // n x m
	R *mat.Dense // m x m, upper triangular

	// Memo, when set, routes rebuild (triggered by DeleteColumn/
	// DeleteColumns) through a memoized BlockMGS instead of running it
	// unconditionally.
	Memo *MemoizedRebuilder
}

// New returns an empty factorization of vectors with length n.
func New(n int) *Factorization {
	return &Factorization{n: n, Q: mat.NewDense(n, 0, nil), R: mat.NewDense(0, 0, nil)}
}

// Cols reports the current column count m.
func (f *Factorization) Cols() int { return len(f.cols) }

// InsertColumn appends a to A and updates Q, R incrementally: project a
// onto the existing orthonormal basis, reorthogonalize once for numerical
// stability (the classical remedy for modified-Gram-Schmidt drift), then
// append the residual direction as a new Q column and the projection
// coefficients (plus residual norm) as a new R column. residualNorm is
// ‖a_orth‖ before normalization, i.e. the distance of a from the span of
// the existing columns — callers implementing the QR2 filter policy drop
// the candidate instead of inserting it when residualNorm is too small
// relative to ‖a‖.
func (f *Factorization) InsertColumn(a []float64) (residualNorm float64) {
	m := len(f.cols)
	av := mat.NewVecDense(f.n, append([]float64(nil), a...))

	r := make([]float64, m+1) // new R column, r[0..m-1] projection coeffs, r[m] = residual norm
	orth := mat.VecDenseCopyOf(av)

	// First pass of (modified) Gram-Schmidt projection.
	for j := 0; j < m; j++ {
		qj := f.Q.ColView(j)
		coeff := mat.Dot(orth, qj)
		r[j] = coeff
		orth.AddScaledVec(orth, -coeff, qj)
	}
	// Reorthogonalize once against the already-updated residual to
	// counter the loss of orthogonality MGS exhibits on ill-conditioned
	// bases ("twice is enough").
	for j := 0; j < m; j++ {
		qj := f.Q.ColView(j)
		coeff := mat.Dot(orth, qj)
		r[j] += coeff
		orth.AddScaledVec(orth, -coeff, qj)
	}

	norm := mat.Norm(orth, 2)
	r[m] = norm

	newQ := mat.NewDense(f.n, m+1, nil)
	newQ.Copy(f.Q)
	if norm > 0 {
		for i := 0; i < f.n; i++ {
			newQ.Set(i, m, orth.AtVec(i)/norm)
		}
	}
	f.Q = newQ

	newR := mat.NewDense(m+1, m+1, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			newR.Set(i, j, f.R.At(i, j))
		}
	}
	for i := 0; i <= m; i++ {
		newR.Set(i, m, r[i])
	}
	f.R = newR

	f.cols = append(f.cols, append([]float64(nil), a...))
	return norm
}

// DeleteColumn removes column idx from A and rebuilds Q, R from the
// remaining retained columns via BlockMGS.
func (f *Factorization) DeleteColumn(idx int) {
	f.cols = append(f.cols[:idx:idx], f.cols[idx+1:]...)
	f.rebuild()
}

// DeleteColumns removes all columns whose indices appear in idxs (need
// not be sorted) and rebuilds Q, R once.
func (f *Factorization) DeleteColumns(idxs []int) {
	drop := make(map[int]bool, len(idxs))
	for _, i := range idxs {
		drop[i] = true
	}
	kept := make([][]float64, 0, len(f.cols))
	for i, c := range f.cols {
		if !drop[i] {
			kept = append(kept, c)
		}
	}
	f.cols = kept
	f.rebuild()
}

func (f *Factorization) rebuild() {
	if f.Memo != nil {
		if q, r, err := f.Memo.Rebuild(context.Background(), f.cols); err == nil {
			f.Q, f.R = q, r
			return
		}
	}
	a := mat.NewDense(f.n, len(f.cols), nil)
	for j, c := range f.cols {
		for i := 0; i < f.n; i++ {
			a.Set(i, j, c[i])
		}
	}
	f.Q, f.R = BlockMGS(a)
}

// BlockMGS factors a fresh n x m matrix A into orthonormal Q and upper
// triangular R via block modified Gram-Schmidt. Columns whose residual
// norm falls below zero tolerance (exactly linearly dependent) contribute
// a zero Q column; callers applying the QR2 filter policy should check
// column norms before relying on Q's orthonormality.
func BlockMGS(a *mat.Dense) (q, r *mat.Dense) {
	n, m := a.Dims()
	q = mat.NewDense(n, m, nil)
	r = mat.NewDense(m, m, nil)

	for j := 0; j < m; j++ {
		v := mat.VecDenseCopyOf(a.ColView(j))
		for i := 0; i < j; i++ {
			qi := q.ColView(i)
			coeff := mat.Dot(v, qi)
			r.Set(i, j, coeff)
			v.AddScaledVec(v, -coeff, qi)
		}
		norm := mat.Norm(v, 2)
		r.Set(j, j, norm)
		if norm > 0 {
			for i := 0; i < n; i++ {
				q.Set(i, j, v.AtVec(i)/norm)
			}
		}
	}
	return q, r
}

// FrobeniusNorm returns the Frobenius norm of R, used by the QR1 filter.
func (f *Factorization) FrobeniusNorm() float64 {
	return frobenius(f.R)
}

func frobenius(m *mat.Dense) float64 {
	rows, cols := m.Dims()
	var sum float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			sum += v * v
		}
	}
	return math.Sqrt(sum)
}
