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

package precondition

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestApplyRevertRoundTrip(t *testing.T) {
	p := New(ValueNorm, []int{2, 3}, 0)
	p.Update(false, [][]float64{{1, 2}, {3, 4, 5}}, [][]float64{{1, 2}, {3, 4, 5}})

	orig := mat.NewDense(5, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	m := mat.DenseCopyOf(orig)

	p.Apply(m)
	p.Revert(m)

	rows, cols := m.Dims()
	var maxErr float64
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			d := math.Abs(m.At(r, c) - orig.At(r, c))
			if d > maxErr {
				maxErr = d
			}
		}
	}
	if maxErr > 1e-9 {
		t.Fatalf("apply/revert round trip error %g exceeds tolerance", maxErr)
	}
}

func TestConstantIsAlwaysFrozen(t *testing.T) {
	p := New(Constant, []int{1}, 5)
	if !p.Frozen() {
		t.Fatal("constant preconditioner must start frozen")
	}
	p.Update(true, [][]float64{{100}}, [][]float64{{100}})
	if p.Weights()[0] != 1 {
		t.Fatal("constant preconditioner weights must never change")
	}
}

func TestFreezesAfterMaxNonConstTimesteps(t *testing.T) {
	p := New(ValueNorm, []int{1}, 2)
	p.Update(true, [][]float64{{2}}, [][]float64{{2}})
	if p.Frozen() {
		t.Fatal("should not freeze after 1 of 2 windows")
	}
	p.Update(true, [][]float64{{4}}, [][]float64{{4}})
	if !p.Frozen() {
		t.Fatal("should freeze after 2 completed windows")
	}
}
