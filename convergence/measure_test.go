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

package convergence

import "testing"

func TestAbsoluteConvergesAtIteration8(t *testing.T) {
	m, err := NewAbsolute(0.01, nil)
	if err != nil {
		t.Fatal(err)
	}
	x := 0.0
	iterations := 0
	const omega = 0.5
	converged := false
	for iterations < 100 {
		iterations++
		xNew := omega*2 + (1-omega)*x
		converged = m.Measure([]float64{x}, []float64{xNew})
		x = xNew
		if converged {
			break
		}
	}
	if iterations != 8 {
		t.Fatalf("expected convergence at iteration 8, got %d", iterations)
	}
	if !converged {
		t.Fatal("expected converged")
	}
}

func TestMinIterationsIgnoresValues(t *testing.T) {
	m, err := NewMinIterations(3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if m.Measure([]float64{0}, []float64{0}) {
			t.Fatalf("should not converge before 3 calls, call %d", i+1)
		}
	}
	if !m.Measure([]float64{0}, []float64{0}) {
		t.Fatal("expected convergence on 3rd call")
	}
}

func TestNewAbsoluteRejectsNonPositiveLimit(t *testing.T) {
	if _, err := NewAbsolute(0, nil); err == nil {
		t.Fatal("expected ConfigError")
	}
}

func TestNewRelativeRejectsOutOfRangeFraction(t *testing.T) {
	if _, err := NewRelative(1.5, nil); err == nil {
		t.Fatal("expected ConfigError for fraction > 1")
	}
	if _, err := NewRelative(0, nil); err == nil {
		t.Fatal("expected ConfigError for fraction <= 0")
	}
}

func TestResidualRelativeComparesAgainstFirst(t *testing.T) {
	m, err := NewResidualRelative(0.1, nil)
	if err != nil {
		t.Fatal(err)
	}
	// First residual establishes the baseline of 10.
	m.Measure([]float64{0}, []float64{10})
	if m.Measure([]float64{0}, []float64{2}) {
		t.Fatal("2/10 = 0.2 should not satisfy a 0.1 fraction")
	}
	if !m.Measure([]float64{0}, []float64{0.5}) {
		t.Fatal("0.5/10 = 0.05 should satisfy a 0.1 fraction")
	}
}
