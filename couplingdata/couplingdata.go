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

// Package couplingdata implements CouplingData (specification §3,
// component C3): the binding between a field's current value, its prior
// iteration snapshot, its extrapolation history, and its waveform sample
// storage.
package couplingdata

import (
	"github.com/spatialmodel/cplcore/waveform"
)

// Data binds one exchanged field's live state. Values is aliased with the
// external DataField's backing storage (specification §5 shared-resource
// policy): the mesh/solver writes it between advance() calls, the scheme
// writes it during exchange and acceleration, and there is never
// concurrent access from both in the same process.
type Data struct {
	DataID int
	MeshID int
	Dim    int // per-vertex dimensionality, 1, 2, or 3

	// Values is the current value vector, length Dim*|vertices|.
	Values []float64

	// PreviousIteration is a snapshot taken at the start of the current
	// iteration; StartIteration refreshes it from Values.
	PreviousIteration []float64

	// OldValues holds extrapolation history: column 0 is the
	// just-accepted (or predicted) value, columns 1..k are 1, 2, ..., k
	// windows back, where k is the extrapolation order. Row-major: each
	// entry is a full value vector.
	OldValues [][]float64

	// Storage backs the waveform used for sub-stepping and time
	// interpolation of this field (component C2 on top of C1).
	Storage *waveform.Storage

	// RequiresInitialization is set by the producer participant when the
	// field must be available before the first advance() (write-initial-data).
	RequiresInitialization bool
}

// New allocates a Data record for a field of dimensionality dim spread
// over nVertices vertices, with extrapolation history of the given order
// (0, 1, or 2 prior columns beyond the current one).
func New(dataID, meshID, dim, nVertices, extrapolationOrder int) *Data {
	n := dim * nVertices
	d := &Data{
		DataID:            dataID,
		MeshID:            meshID,
		Dim:               dim,
		Values:            make([]float64, n),
		PreviousIteration: make([]float64, n),
		Storage:           waveform.New(),
	}
	d.OldValues = make([][]float64, extrapolationOrder+1)
	for i := range d.OldValues {
		d.OldValues[i] = make([]float64, n)
	}
	return d
}

// Size returns the length of the value vector.
func (d *Data) Size() int { return len(d.Values) }

// StartIteration snapshots Values into PreviousIteration at the start of
// an iteration.
func (d *Data) StartIteration() {
	copy(d.PreviousIteration, d.Values)
}

// ShiftExtrapolationColumns shifts OldValues one column to the right and
// writes accepted into column 0, called exactly once per accepted window
// (specification §4.7). Every field must be updated this way — the source
// patterns that updated only the first field via a premature loop break
// are treated as a bug per specification §9 and are not reproduced here.
func (d *Data) ShiftExtrapolationColumns(accepted []float64) {
	for i := len(d.OldValues) - 1; i > 0; i-- {
		copy(d.OldValues[i], d.OldValues[i-1])
	}
	copy(d.OldValues[0], accepted)
}

// Extrapolate predicts the next window's starting value from the
// extrapolation history, per specification §4.7:
//
//	order 1: x_new = 2*x(t) - x(t-1)
//	order 2: x_new = 2.5*x(t) - 2*x(t-1) + 0.5*x(t-2)
//
// order 0 (no extrapolation) returns a copy of the current column 0.
func (d *Data) Extrapolate(order int) []float64 {
	n := d.Size()
	out := make([]float64, n)
	switch order {
	case 0:
		copy(out, d.OldValues[0])
	case 1:
		for i := 0; i < n; i++ {
			out[i] = 2*d.OldValues[0][i] - d.OldValues[1][i]
		}
	case 2:
		for i := 0; i < n; i++ {
			out[i] = 2.5*d.OldValues[0][i] - 2*d.OldValues[1][i] + 0.5*d.OldValues[2][i]
		}
	default:
		copy(out, d.OldValues[0])
	}
	return out
}
