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

package waveform

import (
	"testing"

	"github.com/spatialmodel/cplcore/cplerror"
)

func approxEqual(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func TestStorageRejectsWriteInPast(t *testing.T) {
	s := New()
	if err := s.Set(1.0, []float64{1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(0.5, []float64{2}); err == nil || !cplerror.Is(err, cplerror.InvalidTime) {
		t.Fatalf("expected InvalidTime, got %v", err)
	}
}

func TestStorageOverwritesAtSameTime(t *testing.T) {
	s := New()
	_ = s.Set(1.0, []float64{1})
	_ = s.Set(1.0, []float64{2})
	if s.Len() != 1 {
		t.Fatalf("expected 1 sample, got %d", s.Len())
	}
	last, _ := s.Last()
	if last.Value[0] != 2 {
		t.Fatalf("expected overwrite to 2, got %v", last.Value)
	}
}

func TestWaveformSampleEmptyFails(t *testing.T) {
	w := NewWaveform(New_(), Linear)
	if _, err := w.Sample(0); err == nil || !cplerror.Is(err, cplerror.NoData) {
		t.Fatalf("expected NoData, got %v", err)
	}
}

// New_ is a second name for the package-level Storage constructor New.
func New_() *Storage { return New() }

func TestWaveformOrder0HoldsLeft(t *testing.T) {
	s := New()
	_ = s.Set(0, []float64{2})
	_ = s.Set(1, []float64{4})
	w := NewWaveform(s, Constant)
	v, err := w.Sample(0.75)
	if err != nil {
		t.Fatal(err)
	}
	if v[0] != 2 {
		t.Fatalf("expected 2, got %v", v)
	}
}

func TestWaveformOrder1Interpolates(t *testing.T) {
	s := New()
	// f(t) = 2 + t, window [0, 2], sub-steps of 0.5.
	for _, t64 := range []float64{0, 0.5, 1.0, 1.5, 2.0} {
		_ = s.Set(t64, []float64{2 + t64})
	}
	w := NewWaveform(s, Linear)
	v, err := w.Sample(1.25)
	if err != nil {
		t.Fatal(err)
	}
	want := (3.0 + 3.5) / 2 // (f(1.0)+f(1.5))/2 = 2+1.25
	if !approxEqual(v[0], want, 1e-9) {
		t.Fatalf("expected %v, got %v", want, v[0])
	}
}

func TestWaveformClampsOutsideRange(t *testing.T) {
	s := New()
	_ = s.Set(1, []float64{10})
	_ = s.Set(2, []float64{20})
	w := NewWaveform(s, Linear)
	v, _ := w.Sample(0)
	if v[0] != 10 {
		t.Fatalf("expected clamp to first value 10, got %v", v[0])
	}
	v, _ = w.Sample(5)
	if v[0] != 20 {
		t.Fatalf("expected clamp to last value 20, got %v", v[0])
	}
}

func TestMoveToNextWindowKeepsAnchorOnly(t *testing.T) {
	s := New()
	_ = s.Set(0, []float64{1})
	_ = s.Set(1, []float64{2})
	_ = s.Set(2, []float64{3})
	w := NewWaveform(s, Linear)
	w.MoveToNextWindow(4)
	if s.Len() != 1 {
		t.Fatalf("expected 1 sample after moveToNextWindow, got %d", s.Len())
	}
	last, _ := s.Last()
	if last.Time != 2 || last.Value[0] != 3 {
		t.Fatalf("expected anchor (2,3), got (%v,%v)", last.Time, last.Value)
	}
}
