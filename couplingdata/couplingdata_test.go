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

package couplingdata

import "testing"

func TestExtrapolationOrder2(t *testing.T) {
	d := New(0, 0, 1, 1, 2)
	d.OldValues[2][0] = 1 // x(t-2)
	d.OldValues[1][0] = 2 // x(t-1)
	d.OldValues[0][0] = 4 // x(t)

	predicted := d.Extrapolate(2)
	if got, want := predicted[0], 6.5; got != want {
		t.Fatalf("predicted = %v, want %v", got, want)
	}

	d.ShiftExtrapolationColumns(predicted)
	if d.OldValues[0][0] != 6.5 || d.OldValues[1][0] != 4 || d.OldValues[2][0] != 2 {
		t.Fatalf("unexpected oldValues after shift: %v", d.OldValues)
	}
}

func TestExtrapolationOrder1(t *testing.T) {
	d := New(0, 0, 1, 1, 1)
	d.OldValues[1][0] = 2
	d.OldValues[0][0] = 4
	predicted := d.Extrapolate(1)
	if got, want := predicted[0], 6.0; got != want {
		t.Fatalf("predicted = %v, want %v", got, want)
	}
}

func TestShiftUpdatesEveryField(t *testing.T) {
	// Guards against the source's premature break that only updated the
	// first field's oldValues column (specification §9).
	fields := []*Data{New(0, 0, 1, 1, 1), New(1, 0, 1, 1, 1)}
	for _, f := range fields {
		f.ShiftExtrapolationColumns([]float64{42})
	}
	for _, f := range fields {
		if f.OldValues[0][0] != 42 {
			t.Fatalf("field %d was not shifted", f.DataID)
		}
	}
}
