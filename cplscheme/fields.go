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

package cplscheme

import (
	"sort"

	"github.com/spatialmodel/cplcore/couplingdata"
)

// field binds one registered exchanged field to whether its producer
// flagged it write-initial-data.
type field struct {
	data                   *couplingdata.Data
	requiresInitialization bool
}

// convergenceBinding attaches one convergence measure (component C5) to
// one exchanged field's dataID, with the "suffices" flag specification
// §4.7 uses to combine several measures: a suffices measure converging on
// its own is enough regardless of the others; a non-suffices measure must
// converge alongside every other non-suffices measure.
type convergenceBinding struct {
	dataID   int
	measure  convergenceMeasure
	suffices bool
}

// convergenceMeasure is the subset of *convergence.Measure that base.go
// needs, so tests can substitute a stub.
type convergenceMeasure interface {
	Measure(old, new_ []float64) bool
	ResidualNorm() float64
	Reset()
}

// addSend registers a field this participant sends to its peer(s).
func (b *Base) addSend(d *couplingdata.Data, requiresInitialization bool) {
	b.send[d.DataID] = &field{data: d, requiresInitialization: requiresInitialization}
	b.sendOrder = append(b.sendOrder, d.DataID)
	sort.Ints(b.sendOrder)
}

// addReceive registers a field this participant receives from its peer(s).
func (b *Base) addReceive(d *couplingdata.Data, requiresInitialization bool) {
	b.receive[d.DataID] = &field{data: d, requiresInitialization: requiresInitialization}
	b.receiveOrder = append(b.receiveOrder, d.DataID)
	sort.Ints(b.receiveOrder)
}

// addConvergenceMeasure attaches a convergence measure to a registered
// field.
func (b *Base) addConvergenceMeasure(dataID int, suffices bool, m convergenceMeasure) {
	b.convergenceMeasures = append(b.convergenceMeasures, convergenceBinding{dataID: dataID, measure: m, suffices: suffices})
}

// fieldByID looks a registered field up by dataID, whichever direction it
// was registered in.
func (b *Base) fieldByID(dataID int) *field {
	if f, ok := b.send[dataID]; ok {
		return f
	}
	return b.receive[dataID]
}

// allFields returns every registered field's couplingdata.Data, keyed by
// dataID, for handing to an Accelerator or the extrapolation step.
func (b *Base) allFields() map[int]*couplingdata.Data {
	out := make(map[int]*couplingdata.Data, len(b.send)+len(b.receive))
	for id, f := range b.send {
		out[id] = f.data
	}
	for id, f := range b.receive {
		out[id] = f.data
	}
	return out
}
