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

// Package acceleration implements the numerical methods of specification
// §4.6, component C8, stacked over the preconditioner (C6) and QR kernel
// (C7): constant relaxation, Aitken, IQN-ILS, IQN-IMVJ (with restart
// modes), and Broyden.
//
// Source patterns generalized here: the polymorphic post-processing
// class hierarchy in the original implementation (one C++ class per
// variant, specification §9) becomes one Go interface, Accelerator, with
// a tagged set of concrete implementations selected at configuration
// time — the same "variant struct behind a common contract" shape this
// codebase already uses for its science functions list in
// lib.inmap/run.go (a []func(*Cell,*InMAPdata) built from configuration,
// not a class hierarchy).
package acceleration

import (
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/cplcore/couplingdata"
	"github.com/spatialmodel/cplcore/cplerror"
	"github.com/spatialmodel/cplcore/precondition"
)

// Accelerator is the common operation set every variant exposes.
type Accelerator interface {
	// Initialize allocates internal state sized to the stacked length of
	// the acceleration set named by dataIDs order.
	Initialize(dataMap map[int]*couplingdata.Data) error
	// PerformAcceleration is invoked on non-converged iterations; it
	// mutates Values of each field in the acceleration set.
	PerformAcceleration(dataMap map[int]*couplingdata.Data) error
	// IterationsConverged runs end-of-window bookkeeping: column reuse,
	// per-window state reset.
	IterationsConverged(dataMap map[int]*couplingdata.Data)
	// DeletedColumns reports how many V/W columns the filter removed
	// during the last window, for the iteration log.
	DeletedColumns() int
}

// Base is embedded by every Accelerator implementation; it owns the
// acceleration set's stacking layout and the mechanics common to every
// variant (specification §4.6 steps 1-3): building the stacked residual
// and input vectors, maintaining V/W history columns, and applying the
// preconditioner.
type Base struct {
	fields []int // dataIDs, in stable stacking order
	sizes  []int

	Preconditioner *precondition.Preconditioner

	firstIterationOfWindow bool

	rPrev, xPrev []float64 // stacked residual/input from the previous iteration of this window

	deletedColumns int
}

// initFields records the acceleration set's stacking order and per-field
// sizes from dataMap, in ascending dataID order for determinism.
func (b *Base) initFields(dataMap map[int]*couplingdata.Data) {
	b.fields = b.fields[:0]
	for id := range dataMap {
		b.fields = append(b.fields, id)
	}
	sortInts(b.fields)
	b.sizes = make([]int, len(b.fields))
	for i, id := range b.fields {
		b.sizes[i] = dataMap[id].Size()
	}
	b.firstIterationOfWindow = true
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// StackedSize returns the total stacked length n_stacked.
func (b *Base) StackedSize() int {
	n := 0
	for _, s := range b.sizes {
		n += s
	}
	return n
}

// stackCurrentAndPrevious gathers the freshly received x̃ (Values) and the
// input x that produced it (PreviousIteration) into stacked vectors, in
// acceleration-set order.
func (b *Base) stackCurrentAndPrevious(dataMap map[int]*couplingdata.Data) (xTilde, x []float64) {
	n := b.StackedSize()
	xTilde = make([]float64, 0, n)
	x = make([]float64, 0, n)
	for _, id := range b.fields {
		d := dataMap[id]
		xTilde = append(xTilde, d.Values...)
		x = append(x, d.PreviousIteration...)
	}
	return xTilde, x
}

// writeBack scatters a stacked vector back into each field's Values.
func (b *Base) writeBack(dataMap map[int]*couplingdata.Data, stacked []float64) {
	offset := 0
	for i, id := range b.fields {
		d := dataMap[id]
		copy(d.Values, stacked[offset:offset+b.sizes[i]])
		offset += b.sizes[i]
	}
}

// residual computes r = xTilde - x elementwise.
func residual(xTilde, x []float64) []float64 {
	r := make([]float64, len(xTilde))
	for i := range r {
		r[i] = xTilde[i] - x[i]
	}
	return r
}

// relax returns omega*xTilde + (1-omega)*x, the constant-relaxation update.
func relax(omega float64, xTilde, x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = omega*xTilde[i] + (1-omega)*x[i]
	}
	return out
}

// endWindow resets the per-window bookkeeping the base tracks; variant
// IterationsConverged implementations call this after their own reuse
// policy runs.
func (b *Base) endWindow() {
	b.firstIterationOfWindow = true
	b.rPrev, b.xPrev = nil, nil
	b.deletedColumns = 0
}

// DeletedColumns implements Accelerator.DeletedColumns for every variant
// embedding Base.
func (b *Base) DeletedColumns() int { return b.deletedColumns }

// SetPreconditioner installs the diagonal scaling every variant embedding
// Base applies to its stacked residual/input vectors before solving.
func (b *Base) SetPreconditioner(p *precondition.Preconditioner) { b.Preconditioner = p }

// logSingularFallback reports a rank-deficient acceleration solve at
// Warn level and returns the wrapped diagnostic, per the ambient
// logging convention for SingularSystem recoveries.
func logSingularFallback(ctx cplerror.Context, cause error) *cplerror.Error {
	err := cplerror.Wrap(cplerror.SingularSystem, ctx, cause, "acceleration solve was rank deficient after filtering; falling back to constant relaxation for this iteration")
	logrus.WithError(cause).Warn(err.Error())
	return err
}
