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

// Package convergence implements the convergence-measure variants of
// specification §4.3, component C5. The source's total-mass convergence
// check in lib.inmap/run.go (checkConvergence, comparing a bias fraction
// against a fixed tolerance) is generalized here into the Relative
// variant; Absolute, ResidualRelative, and MinIterations are new variants
// built the same way.
package convergence

import (
	"math"

	"github.com/spatialmodel/cplcore/cplerror"
)

// Kind identifies a convergence measure variant.
type Kind int

const (
	KindAbsolute Kind = iota
	KindRelative
	KindResidualRelative
	KindMinIterations
)

// L2Norm computes the Euclidean norm of a vector that may be distributed
// across a participant's process group. reduce, when non-nil, is called
// with the local sum of squares and must return the group-wide sum (an
// MPI allreduce in a distributed participant, or the identity function in
// a single-rank one).
func L2Norm(v []float64, reduce func(localSumSquares float64) float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if reduce != nil {
		sum = reduce(sum)
	}
	return math.Sqrt(sum)
}

func diffNorm(old, new_ []float64, reduce func(float64) float64) float64 {
	var sum float64
	for i := range new_ {
		d := new_[i] - old[i]
		sum += d * d
	}
	if reduce != nil {
		sum = reduce(sum)
	}
	return math.Sqrt(sum)
}

// Measure is a convergence predicate over (previous, current) value
// vectors. A Measure is stateful: it remembers the residual norm of the
// last call and, for ResidualRelative, the first residual norm of the
// series.
type Measure struct {
	kind  Kind
	limit float64 // Absolute limit, Relative/ResidualRelative fraction, or MinIterations count

	reduce func(float64) float64

	residualNorm   float64
	firstResidual  float64
	haveFirst      bool
	calls          int
}

// NewAbsolute returns a measure that converges once ‖new-old‖₂ ≤ limit.
func NewAbsolute(limit float64, reduce func(float64) float64) (*Measure, error) {
	if limit <= 0 {
		return nil, cplerror.New(cplerror.ConfigError, cplerror.Context{}, "absolute convergence limit must be > 0, got %g", limit)
	}
	return &Measure{kind: KindAbsolute, limit: limit, reduce: reduce}, nil
}

// NewRelative returns a measure that converges once
// ‖new-old‖₂ ≤ fraction·‖new‖₂.
func NewRelative(fraction float64, reduce func(float64) float64) (*Measure, error) {
	if fraction <= 0 || fraction > 1 {
		return nil, cplerror.New(cplerror.ConfigError, cplerror.Context{}, "relative convergence fraction must be in (0,1], got %g", fraction)
	}
	return &Measure{kind: KindRelative, limit: fraction, reduce: reduce}, nil
}

// NewResidualRelative returns a measure that converges once the current
// residual norm has shrunk to fraction of the series' first residual norm.
func NewResidualRelative(fraction float64, reduce func(float64) float64) (*Measure, error) {
	if fraction <= 0 || fraction > 1 {
		return nil, cplerror.New(cplerror.ConfigError, cplerror.Context{}, "residual-relative convergence fraction must be in (0,1], got %g", fraction)
	}
	return &Measure{kind: KindResidualRelative, limit: fraction, reduce: reduce}, nil
}

// NewMinIterations returns a measure that converges once it has been
// called at least n times, independent of the values passed.
func NewMinIterations(n int) (*Measure, error) {
	if n < 1 {
		return nil, cplerror.New(cplerror.ConfigError, cplerror.Context{}, "min-iterations count must be >= 1, got %d", n)
	}
	return &Measure{kind: KindMinIterations, limit: float64(n)}, nil
}

// Kind reports the measure's variant.
func (m *Measure) Kind() Kind { return m.kind }

// ResidualNorm returns the residual norm computed by the most recent
// Measure call.
func (m *Measure) ResidualNorm() float64 { return m.residualNorm }

// Reset clears the per-series state (first residual, call count) so the
// measure can be reused for a new window without reallocating it.
func (m *Measure) Reset() {
	m.haveFirst = false
	m.firstResidual = 0
	m.calls = 0
}

// Measure updates the residual norm from (old, new) and reports whether
// the measure now considers the iteration converged.
func (m *Measure) Measure(old, new_ []float64) bool {
	m.calls++
	switch m.kind {
	case KindMinIterations:
		return m.calls >= int(m.limit)
	case KindAbsolute:
		m.residualNorm = diffNorm(old, new_, m.reduce)
		return m.residualNorm <= m.limit
	case KindRelative:
		m.residualNorm = diffNorm(old, new_, m.reduce)
		newNorm := L2Norm(new_, m.reduce)
		return m.residualNorm <= m.limit*newNorm
	case KindResidualRelative:
		m.residualNorm = diffNorm(old, new_, m.reduce)
		if !m.haveFirst {
			m.firstResidual = m.residualNorm
			m.haveFirst = true
			// A zero first residual only happens if old==new_, which is
			// itself converged; later calls against a zero baseline
			// converge only on a zero residual.
			return m.residualNorm == 0
		}
		if m.firstResidual == 0 {
			return m.residualNorm == 0
		}
		return m.residualNorm <= m.limit*m.firstResidual
	default:
		return false
	}
}
