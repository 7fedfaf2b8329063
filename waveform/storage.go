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

// Package waveform implements the per-field sample storage and the
// piecewise interpolation over it (specification §4.1, components C1/C2).
package waveform

import (
	"sort"

	"github.com/spatialmodel/cplcore/cplerror"
)

// Sample is one (time, value) pair. Value is a copy-on-write-free alias;
// callers must not mutate a Value slice returned from Storage after it has
// been inserted.
type Sample struct {
	Time  float64
	Value []float64
}

// Storage is an ordered time -> value-vector store for a single data
// field, covering at most one open time window plus whatever the waveform
// interpolation over the previous window still needs. Keys are unique and
// strictly increasing in insertion order once enforced by Set.
type Storage struct {
	samples []Sample // kept sorted ascending by Time
}

// New returns an empty sample storage.
func New() *Storage { return &Storage{} }

// Set inserts or overwrites the sample at t. t must be either equal to the
// latest stored time (overwrite) or strictly greater (append); inserting
// at a time before the latest stored time is a write into the past and
// fails with cplerror.InvalidTime.
func (s *Storage) Set(t float64, v []float64) error {
	n := len(s.samples)
	if n > 0 {
		last := s.samples[n-1].Time
		switch {
		case t == last:
			cp := make([]float64, len(v))
			copy(cp, v)
			s.samples[n-1].Value = cp
			return nil
		case t < last:
			return cplerror.New(cplerror.InvalidTime, cplerror.Context{}, "write at t=%g precedes latest sample at t=%g", t, last)
		}
	}
	cp := make([]float64, len(v))
	copy(cp, v)
	s.samples = append(s.samples, Sample{Time: t, Value: cp})
	return nil
}

// ClearAllBefore discards every sample with Time strictly less than t.
func (s *Storage) ClearAllBefore(t float64) {
	idx := sort.Search(len(s.samples), func(i int) bool { return s.samples[i].Time >= t })
	s.samples = append([]Sample(nil), s.samples[idx:]...)
}

// ClearExceptLast discards every sample but the most recent one. If the
// storage is empty this is a no-op.
func (s *Storage) ClearExceptLast() {
	if len(s.samples) <= 1 {
		return
	}
	s.samples = append([]Sample(nil), s.samples[len(s.samples)-1])
}

// First returns the earliest stored sample. ok is false if the storage is
// empty.
func (s *Storage) First() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[0], true
}

// Last returns the most recent stored sample. ok is false if the storage
// is empty.
func (s *Storage) Last() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// Len reports the number of stored samples.
func (s *Storage) Len() int { return len(s.samples) }

// Each calls f once per stored sample in ascending time order. f must not
// retain the Value slice beyond the call.
func (s *Storage) Each(f func(Sample)) {
	for _, smp := range s.samples {
		f(smp)
	}
}

// bracket returns the index of the latest sample with Time <= t, and
// whether t fell strictly before the first sample.
func (s *Storage) bracket(t float64) (idx int, beforeFirst bool) {
	if len(s.samples) == 0 {
		return -1, true
	}
	if t < s.samples[0].Time {
		return 0, true
	}
	// sort.Search finds the first index with Time > t; the bracketing
	// sample is one before that.
	idx = sort.Search(len(s.samples), func(i int) bool { return s.samples[i].Time > t }) - 1
	if idx < 0 {
		idx = 0
	}
	return idx, false
}
