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
	"math"
	"testing"

	"github.com/spatialmodel/cplcore/acceleration"
	"github.com/spatialmodel/cplcore/config"
	"github.com/spatialmodel/cplcore/convergence"
	"github.com/spatialmodel/cplcore/couplingdata"
)

// Two-participant explicit scalar coupling, no acceleration (scenario 1):
// A sends p(t) = 2+t, B sends v(t) = 10+t, exchanged once per window; after
// 10 one-unit windows against maxTime=10 the coupling is done and each side
// has seen its peer's value as of the window it just completed.
func TestBaseExplicitTwoParticipant(t *testing.T) {
	const pID, vID = 0, 1

	cfg := config.Scheme{
		Kind:           config.SerialExplicit,
		MaxTime:        10,
		MaxTimeWindows: config.UndefinedInt,
		TimeWindowSize: 1,
		SizeMethod:     config.Fixed,
		MaxIterations:  config.UndefinedInt,
	}

	baseA, err := NewBase("A", cfg, nil)
	if err != nil {
		t.Fatalf("NewBase(A): %v", err)
	}
	baseB, err := NewBase("B", cfg, nil)
	if err != nil {
		t.Fatalf("NewBase(B): %v", err)
	}

	pA := couplingdata.New(pID, 0, 1, 1, 0)
	vA := couplingdata.New(vID, 0, 1, 1, 0)
	pB := couplingdata.New(pID, 0, 1, 1, 0)
	vB := couplingdata.New(vID, 0, 1, 1, 0)

	baseA.AddDataToSend(pA, false)
	baseA.AddDataToReceive(vA, false)
	baseB.AddDataToSend(vB, false)
	baseB.AddDataToReceive(pB, false)

	if err := baseA.Initialize(0, 0); err != nil {
		t.Fatalf("Initialize(A): %v", err)
	}
	if err := baseB.Initialize(0, 0); err != nil {
		t.Fatalf("Initialize(B): %v", err)
	}

	windowStart := 0.0
	windowsCompleted := 0
	for baseA.IsCouplingOngoing() {
		pA.Values[0] = 2 + windowStart
		vB.Values[0] = 10 + windowStart

		exchange := func() (bool, error) {
			copy(pB.Values, pA.Values)
			copy(vA.Values, vB.Values)
			return true, nil
		}
		if err := baseA.Advance(1, exchange); err != nil {
			t.Fatalf("window %d: A.Advance: %v", windowsCompleted, err)
		}
		noop := func() (bool, error) { return true, nil }
		if err := baseB.Advance(1, noop); err != nil {
			t.Fatalf("window %d: B.Advance: %v", windowsCompleted, err)
		}

		if !baseA.IsTimeWindowComplete() || !baseB.IsTimeWindowComplete() {
			t.Fatalf("window %d: expected both sides to complete the window in one step", windowsCompleted)
		}
		if baseA.IsActionRequired(WriteIterationCheckpoint) || baseB.IsActionRequired(ReadIterationCheckpoint) {
			t.Fatalf("window %d: explicit scheme must never require checkpoint actions", windowsCompleted)
		}
		if got, want := vA.Values[0], 10+windowStart; got != want {
			t.Fatalf("window %d: A.read_v = %v, want %v", windowsCompleted, got, want)
		}
		if got, want := pB.Values[0], 2+windowStart; got != want {
			t.Fatalf("window %d: B.read_p = %v, want %v", windowsCompleted, got, want)
		}

		windowStart += 1
		windowsCompleted++
	}

	if windowsCompleted != 10 {
		t.Fatalf("windowsCompleted = %d, want 10", windowsCompleted)
	}
	if baseA.TimeWindows() != 10 {
		t.Fatalf("TimeWindows() = %d, want 10", baseA.TimeWindows())
	}
}

// Serial-implicit constant relaxation ω=0.5 against a constant x̃=2
// (scenario 2): the accepted sequence 1, 1.5, 1.75, ... converges under
// Absolute(0.01) at exactly iteration 8, and the accepted window then
// requires write-iteration-checkpoint.
func TestBaseImplicitConstantRelaxationConverges(t *testing.T) {
	const dataID = 0

	cfg := config.Scheme{
		Kind:           config.SerialImplicit,
		MaxTime:        config.Undefined,
		MaxTimeWindows: config.UndefinedInt,
		TimeWindowSize: 1,
		SizeMethod:     config.Fixed,
		MaxIterations:  config.UndefinedInt,
		ConvergenceMeasures: []config.ConvergenceMeasureConfig{
			{DataID: dataID, Kind: config.Absolute, Limit: 0.01, Suffices: false},
		},
	}

	measure, err := convergence.NewAbsolute(0.01, nil)
	if err != nil {
		t.Fatalf("NewAbsolute: %v", err)
	}
	accel := acceleration.NewConstantRelaxation(0.5)

	b, err := NewBase("B", cfg, nil)
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}
	d := couplingdata.New(dataID, 0, 1, 1, 0)
	b.AddDataToReceive(d, false)
	b.AddConvergenceMeasure(dataID, false, measure)
	b.SetAcceleration(accel)

	if err := b.Initialize(0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	runIteration := func() (bool, error) {
		d.Values[0] = 2 // freshly "received" x̃, constant every iteration
		return b.EvaluateAndAccelerate()
	}

	for i := 0; i < 50 && !b.IsTimeWindowComplete(); i++ {
		if b.IsActionRequired(ReadIterationCheckpoint) {
			b.MarkActionFulfilled(ReadIterationCheckpoint)
		}
		if err := b.Advance(1, runIteration); err != nil {
			t.Fatalf("iteration %d: Advance: %v", i, err)
		}
	}

	if !b.IsTimeWindowComplete() {
		t.Fatalf("window never completed within 50 iterations")
	}
	if got, want := b.TotalIterations(), 8; got != want {
		t.Fatalf("TotalIterations() = %d, want %d", got, want)
	}
	if got, want := d.Values[0], 1.9921875; math.Abs(got-want) > 1e-9 {
		t.Fatalf("converged value = %v, want %v", got, want)
	}
	if !b.IsActionRequired(WriteIterationCheckpoint) {
		t.Fatalf("implicit scheme must require write-iteration-checkpoint after an accepted window")
	}
}

// An explicit scheme reports converged on every iteration and never
// accumulates checkpoint actions, stopping after MaxTimeWindows windows.
func TestBaseExplicitNeverRequiresCheckpoints(t *testing.T) {
	cfg := config.Scheme{
		Kind:           config.ParallelExplicit,
		MaxTime:        config.Undefined,
		MaxTimeWindows: 3,
		TimeWindowSize: 1,
		SizeMethod:     config.Fixed,
		MaxIterations:  config.UndefinedInt,
	}
	b, err := NewBase("A", cfg, nil)
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}
	if err := b.Initialize(0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	always := func() (bool, error) { return true, nil }
	for b.IsCouplingOngoing() {
		if err := b.Advance(1, always); err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if b.IsActionRequired(WriteIterationCheckpoint) || b.IsActionRequired(ReadIterationCheckpoint) {
			t.Fatalf("explicit scheme required a checkpoint action at timeWindow %d", b.TimeWindows())
		}
	}
	if b.TimeWindows() != 3 {
		t.Fatalf("TimeWindows() = %d, want 3", b.TimeWindows())
	}
}
