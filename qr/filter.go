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

import "math"

// FilterQR1 reports the indices of columns whose diagonal R entry is
// small relative to the Frobenius norm of R: |R(i,i)| < eps * ||R||_F.
func (f *Factorization) FilterQR1(eps float64) []int {
	norm := f.FrobeniusNorm()
	return f.diagBelow(eps * norm)
}

// FilterQR1Abs reports the indices of columns whose diagonal R entry is
// smaller than an absolute threshold: |R(i,i)| < eps.
func (f *Factorization) FilterQR1Abs(eps float64) []int {
	return f.diagBelow(eps)
}

func (f *Factorization) diagBelow(threshold float64) []int {
	m := f.Cols()
	var drop []int
	for i := 0; i < m; i++ {
		if math.Abs(f.R.At(i, i)) < threshold {
			drop = append(drop, i)
		}
	}
	return drop
}

// QR2Accept implements the QR2 filter policy: during modified
// Gram-Schmidt insertion, a candidate column a is rejected if its
// component orthogonal to the existing basis is small relative to its
// own norm: ||v_orth|| < eps * ||v||. Call this with the residualNorm
// InsertColumn returned and the original column's norm; if it reports
// false, undo the insertion with DeleteColumn(Cols()-1).
func QR2Accept(residualNorm, originalNorm, eps float64) bool {
	if originalNorm == 0 {
		return residualNorm > 0
	}
	return residualNorm >= eps*originalNorm
}
