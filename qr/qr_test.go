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

package qr

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestInsertColumnReproducesBlockMGS(t *testing.T) {
	cols := [][]float64{
		{1, 0, 0},
		{1, 1, 0},
		{1, 1, 1},
	}
	f := New(3)
	for _, c := range cols {
		f.InsertColumn(c)
	}

	a := mat.NewDense(3, 3, nil)
	for j, c := range cols {
		for i, v := range c {
			a.Set(i, j, v)
		}
	}
	q, r := BlockMGS(a)

	var recon, reconBlock mat.Dense
	recon.Mul(f.Q, f.R)
	reconBlock.Mul(q, r)

	rows, colsN := recon.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < colsN; j++ {
			if math.Abs(recon.At(i, j)-a.At(i, j)) > 1e-9 {
				t.Fatalf("incremental QR does not reproduce A at (%d,%d): %g vs %g", i, j, recon.At(i, j), a.At(i, j))
			}
			if math.Abs(reconBlock.At(i, j)-a.At(i, j)) > 1e-9 {
				t.Fatalf("block MGS does not reproduce A at (%d,%d)", i, j)
			}
		}
	}
}

func TestDeleteColumnShrinksFactorization(t *testing.T) {
	f := New(3)
	f.InsertColumn([]float64{1, 0, 0})
	f.InsertColumn([]float64{0, 1, 0})
	f.InsertColumn([]float64{0, 0, 1})
	f.DeleteColumn(1)
	if f.Cols() != 2 {
		t.Fatalf("expected 2 columns after delete, got %d", f.Cols())
	}
	rows, cols := f.Q.Dims()
	if rows != 3 || cols != 2 {
		t.Fatalf("unexpected Q dims %dx%d", rows, cols)
	}
}

func TestDeleteColumnWithMemoizedRebuildMatchesDirect(t *testing.T) {
	direct := New(3)
	direct.InsertColumn([]float64{1, 0, 0})
	direct.InsertColumn([]float64{1, 1, 0})
	direct.InsertColumn([]float64{1, 1, 1})
	direct.DeleteColumn(0)

	memo := New(3)
	memo.Memo = NewMemoizedRebuilder(8)
	memo.InsertColumn([]float64{1, 0, 0})
	memo.InsertColumn([]float64{1, 1, 0})
	memo.InsertColumn([]float64{1, 1, 1})
	memo.DeleteColumn(0)
	// Second rebuild from the same retained columns should hit the cache.
	memo.DeleteColumns(nil)

	rows, cols := direct.Q.Dims()
	mRows, mCols := memo.Q.Dims()
	if rows != mRows || cols != mCols {
		t.Fatalf("dims differ: direct %dx%d, memoized %dx%d", rows, cols, mRows, mCols)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.Abs(direct.Q.At(i, j)-memo.Q.At(i, j)) > 1e-9 {
				t.Fatalf("Q differs at (%d,%d): %g vs %g", i, j, direct.Q.At(i, j), memo.Q.At(i, j))
			}
		}
	}
}

func TestFilterQR1AbsDropsSmallDiagonal(t *testing.T) {
	f := New(3)
	f.InsertColumn([]float64{1, 0, 0})
	f.InsertColumn([]float64{1, 1e-10, 0}) // nearly collinear with column 0
	drop := f.FilterQR1Abs(1e-6)
	if len(drop) != 1 || drop[0] != 1 {
		t.Fatalf("expected column 1 flagged, got %v", drop)
	}
}

func TestTruncatedSVDRankMatchesThreshold(t *testing.T) {
	// 8 singular values decaying geometrically by 0.1.
	n := 8
	sigmas := make([]float64, n)
	sigmas[0] = 1
	for i := 1; i < n; i++ {
		sigmas[i] = sigmas[i-1] * 0.1
	}
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, sigmas[i])
	}

	svd := NewTruncatedSVD(1e-3)
	if err := svd.Update(m); err != nil {
		t.Fatal(err)
	}

	want := 0
	for _, s := range sigmas {
		if s >= 1e-3*sigmas[0] {
			want++
		}
	}
	if svd.Rank() != want {
		t.Fatalf("rank = %d, want %d", svd.Rank(), want)
	}
}
