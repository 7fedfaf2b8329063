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

import "github.com/spatialmodel/cplcore/cplerror"

// Order selects the interpolation order used by Sample.
type Order int

const (
	// Constant holds the bracketing-left sample's value (order 0).
	Constant Order = iota
	// Linear interpolates between the two bracketing samples (order 1).
	Linear
)

// Waveform evaluates a Storage at arbitrary times, supporting solver
// sub-stepping that does not line up with the stored sample times.
type Waveform struct {
	storage *Storage
	order   Order
}

// NewWaveform wraps storage with an interpolation order. The same *Storage
// may be shared by several Waveforms (e.g. a diagnostic waveform reading the
// same field at a different order) since Waveform never mutates it directly.
func NewWaveform(storage *Storage, order Order) *Waveform {
	return &Waveform{storage: storage, order: order}
}

// Storage returns the underlying sample storage.
func (w *Waveform) Storage() *Storage { return w.storage }

// Sample evaluates the waveform at t. Outside [tFirst, tLast] the result
// clamps to the nearest endpoint. Sampling an empty storage fails with
// cplerror.NoData.
func (w *Waveform) Sample(t float64) ([]float64, error) {
	first, ok := w.storage.First()
	if !ok {
		return nil, cplerror.New(cplerror.NoData, cplerror.Context{}, "waveform sampled at t=%g before any value was written", t)
	}
	last, _ := w.storage.Last()

	if t <= first.Time {
		return cloneVec(first.Value), nil
	}
	if t >= last.Time {
		return cloneVec(last.Value), nil
	}

	idx, beforeFirst := w.storage.bracket(t)
	if beforeFirst {
		return cloneVec(first.Value), nil
	}
	lo := w.storage.samples[idx]
	if idx == len(w.storage.samples)-1 || lo.Time == t {
		return cloneVec(lo.Value), nil
	}
	hi := w.storage.samples[idx+1]

	switch w.order {
	case Constant:
		return cloneVec(lo.Value), nil
	default: // Linear
		frac := (t - lo.Time) / (hi.Time - lo.Time)
		out := make([]float64, len(lo.Value))
		for i := range out {
			out[i] = lo.Value[i] + frac*(hi.Value[i]-lo.Value[i])
		}
		return out, nil
	}
}

// MoveToNextWindow discards every sample strictly before the new window's
// start time (the previous window's end), keeping only the final sample
// of the previous window as the anchor for the new one. The solver is
// expected to then append samples up to newWindowEnd.
func (w *Waveform) MoveToNextWindow(newWindowEnd float64) {
	w.storage.ClearExceptLast()
}

func cloneVec(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
