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

// Package cplscheme implements the coupling-scheme state machine of
// specification §4.7-4.9, components C9-C11: the common advance()
// sequence every variant shares (Base), and the serial, parallel, multi,
// and compositional variants built on it (C10, C11).
//
// Source pattern generalized here: the []func(*Cell,*InMAPdata) science
// function list lib.inmap/run.go assembles from configuration before its
// iteration loop, and the loop's own fmt.Printf/checkConvergence pairing,
// become Base's accelerator/convergence-measure slices and its
// logrus-backed Logger — the same "assemble behavior from configuration,
// then drive one iteration loop" shape, generalized from a fixed science
// pipeline to a pluggable coupling scheme.
package cplscheme

import (
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/cplcore/acceleration"
	"github.com/spatialmodel/cplcore/config"
	"github.com/spatialmodel/cplcore/cplerror"
	"github.com/spatialmodel/cplcore/couplingdata"
)

// epsilon absorbs floating-point drift in the computedPart/windowSize
// comparison that decides whether a window boundary has been reached.
const epsilon = 1e-10

// Base implements the state machine and advance() sequence common to
// every coupling-scheme variant (specification §4.7). It does not itself
// know how data crosses the wire: concrete variants (SerialScheme,
// ParallelScheme, MultiScheme) supply that as the exchange closure passed
// to Advance, and call EvaluateAndAccelerate from inside it once the
// exchange has landed fresh values in the registered fields.
type Base struct {
	Participant string

	cfg config.Scheme

	time            float64
	timeWindow      int
	computedPart    float64
	iterations      int
	totalIterations int

	actions actionSet

	isInitialized        bool
	isTimeWindowComplete bool
	hasDataBeenExchanged bool

	windowSize float64

	send, receive           map[int]*field
	sendOrder, receiveOrder []int

	convergenceMeasures []convergenceBinding

	accelerator acceleration.Accelerator

	// implicit mirrors cfg.Kind's serial-implicit/parallel-implicit/multi
	// membership: explicit schemes never require checkpoint actions or
	// run convergence/acceleration bookkeeping, even on a participant
	// (such as a serial first participant) that itself carries no
	// convergence measures.
	implicit bool

	logger *Logger
}

// NewBase validates cfg and returns an unregistered, uninitialized Base
// for participant. Callers still need to register fields, convergence
// measures, and an accelerator (AddDataToSend/AddDataToReceive/
// AddConvergenceMeasure/SetAcceleration) before calling Initialize.
func NewBase(participant string, cfg config.Scheme, logger *Logger) (*Base, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Base{
		Participant: participant,
		cfg:         cfg,
		actions:     make(actionSet),
		send:        make(map[int]*field),
		receive:     make(map[int]*field),
		windowSize:  cfg.TimeWindowSize,
		implicit:    isImplicitKind(cfg.Kind),
		logger:      logger,
	}, nil
}

func isImplicitKind(k config.Kind) bool {
	switch k {
	case config.SerialImplicit, config.ParallelImplicit, config.Multi:
		return true
	}
	return false
}

func (b *Base) ctx() cplerror.Context {
	return cplerror.Context{Participant: b.Participant, TimeWindow: b.timeWindow, Iteration: b.iterations}
}

// AddDataToSend registers a field this participant produces.
func (b *Base) AddDataToSend(d *couplingdata.Data, requiresInitialization bool) {
	b.addSend(d, requiresInitialization)
}

// AddDataToReceive registers a field this participant consumes.
func (b *Base) AddDataToReceive(d *couplingdata.Data, requiresInitialization bool) {
	b.addReceive(d, requiresInitialization)
}

// AddConvergenceMeasure attaches a convergence measure to a registered
// field's dataID.
func (b *Base) AddConvergenceMeasure(dataID int, suffices bool, m convergenceMeasure) {
	b.addConvergenceMeasure(dataID, suffices, m)
}

// SetAcceleration installs the accelerator this scheme runs on
// non-converged iterations.
func (b *Base) SetAcceleration(a acceleration.Accelerator) {
	b.accelerator = a
}

// Initialize fixes the scheme's starting time/window and allocates
// accelerator state; it must be called exactly once, before the first
// Advance.
func (b *Base) Initialize(startTime float64, startWindow int) error {
	if b.isInitialized {
		return cplerror.New(cplerror.ConfigError, b.ctx(), "Initialize called more than once")
	}
	b.time = startTime
	b.timeWindow = startWindow
	if b.accelerator != nil {
		if err := b.accelerator.Initialize(b.allFields()); err != nil {
			return err
		}
	}
	for _, f := range b.send {
		if f.requiresInitialization {
			b.actions.require(WriteInitialData)
		}
	}
	b.isInitialized = true
	return nil
}

// InitializeData runs the (optional) write-initial-data exchange: exchange,
// when non-nil, performs the variant-specific transmission of every field
// this participant flagged RequiresInitialization. Fulfills
// WriteInitialData regardless of whether this participant had any such
// field, so callers can call it unconditionally.
func (b *Base) InitializeData(exchange func() error) error {
	if !b.isInitialized {
		return cplerror.New(cplerror.ConfigError, b.ctx(), "InitializeData called before Initialize")
	}
	if exchange != nil {
		if err := exchange(); err != nil {
			return err
		}
	}
	b.actions.fulfill(WriteInitialData)
	b.hasDataBeenExchanged = true
	return nil
}

// IsActionRequired reports whether a is still outstanding.
func (b *Base) IsActionRequired(a Action) bool { return b.actions.isRequired(a) }

// MarkActionFulfilled clears a from the outstanding set. The caller (the
// host solver) is responsible for actually performing the checkpoint
// read/write the action names; the scheme only tracks whether it happened.
func (b *Base) MarkActionFulfilled(a Action) { b.actions.fulfill(a) }

// SetWindowSizeIfUnset adopts dt as the window size on a fresh window when
// the configuration defers sizing to the first participant's advance call
// (specification §6, timeWindowSize == "first-participant"). Concrete
// variants call this from the participant configured as the sizing one.
func (b *Base) SetWindowSizeIfUnset(dt float64) {
	if b.cfg.SizeMethod == config.FirstParticipant && b.computedPart <= epsilon {
		b.windowSize = dt
	}
}

// Time reports the current simulation time.
func (b *Base) Time() float64 { return b.time }

// TimeWindows reports the current window index.
func (b *Base) TimeWindows() int { return b.timeWindow }

// TimeWindowSize reports the configured (or first-participant-derived)
// window length.
func (b *Base) TimeWindowSize() float64 { return b.windowSize }

// ThisTimeWindowRemainder reports how much of the current window is left
// to sub-step through.
func (b *Base) ThisTimeWindowRemainder() float64 {
	r := b.windowSize - b.computedPart
	if r < 0 {
		return 0
	}
	return r
}

// NextTimestepMaxLength is an alias of ThisTimeWindowRemainder: a solver
// must never sub-step past the current window boundary.
func (b *Base) NextTimestepMaxLength() float64 { return b.ThisTimeWindowRemainder() }

// IsTimeWindowComplete reports whether the most recent Advance call closed
// a window (accepted or force-converged).
func (b *Base) IsTimeWindowComplete() bool { return b.isTimeWindowComplete }

// HasDataBeenExchanged reports whether the most recent Advance call
// performed a wire exchange.
func (b *Base) HasDataBeenExchanged() bool { return b.hasDataBeenExchanged }

// Iterations reports the iteration count within the current window. It
// resets to 0 when a window is accepted.
func (b *Base) Iterations() int { return b.iterations }

// TotalIterations reports the cumulative iteration count across every
// window so far.
func (b *Base) TotalIterations() int { return b.totalIterations }

// IsCouplingOngoing reports whether coupling continues: it returns false
// once the configured maxTime or maxTimeWindows bound has been reached.
func (b *Base) IsCouplingOngoing() bool {
	if b.cfg.MaxTime != config.Undefined && b.time >= b.cfg.MaxTime-epsilon {
		return false
	}
	if b.cfg.MaxTimeWindows != config.UndefinedInt && b.timeWindow >= b.cfg.MaxTimeWindows {
		return false
	}
	return true
}

// Advance runs one sub-step of length dt (specification §4.7). When the
// accumulated sub-steps reach the window boundary, it invokes runIteration
// to perform the variant-specific exchange and convergence evaluation
// (concrete variants call EvaluateAndAccelerate from inside runIteration,
// after doing their own send/receive), then accepts or rejects the window
// based on the reported convergence.
func (b *Base) Advance(dt float64, runIteration func() (converged bool, err error)) error {
	if !b.isInitialized {
		return cplerror.New(cplerror.ConfigError, b.ctx(), "Advance called before Initialize")
	}
	if b.actions.anyPending() {
		return cplerror.New(cplerror.MissingAction, b.ctx(), "Advance called with unresolved action(s) %v", b.actions.list())
	}

	b.hasDataBeenExchanged = false
	b.isTimeWindowComplete = false

	if b.computedPart <= epsilon && dt == 0 {
		return nil
	}

	freshWindow := b.computedPart <= epsilon
	if freshWindow {
		b.timeWindow++
	}
	b.computedPart += dt
	b.time += dt

	if b.computedPart < b.windowSize-epsilon {
		return nil
	}

	b.iterations++
	b.totalIterations++

	converged, err := runIteration()
	if err != nil {
		return err
	}
	b.hasDataBeenExchanged = true

	forced := false
	if !converged && b.cfg.MaxIterations != config.UndefinedInt && b.iterations >= b.cfg.MaxIterations {
		logrus.WithFields(logrus.Fields{
			"participant": b.Participant,
			"timeWindow":  b.timeWindow,
			"iterations":  b.iterations,
		}).Warn(cplerror.New(cplerror.ConvergenceFailure, b.ctx(), "reached max iterations without convergence; forcing window acceptance").Error())
		converged = true
		forced = true
	}

	if converged {
		b.acceptWindow(!forced)
	} else {
		b.rejectWindow()
	}
	b.computedPart = 0
	return nil
}

// acceptWindow runs the extrapolation shift, logs the window, and, for
// implicit schemes, requests writeIterationCheckpoint. The window index
// and time were already advanced by Advance when the attempt began.
// trueConvergence is false when the window was force-accepted after
// maxIterations.
func (b *Base) acceptWindow(trueConvergence bool) {
	for _, id := range b.sendOrder {
		b.shiftField(b.send[id])
	}
	for _, id := range b.receiveOrder {
		b.shiftField(b.receive[id])
	}

	deleted := 0
	if b.accelerator != nil {
		deleted = b.accelerator.DeletedColumns()
		b.accelerator.IterationsConverged(b.allFields())
	}
	for i := range b.convergenceMeasures {
		b.convergenceMeasures[i].measure.Reset()
	}
	if b.logger != nil {
		b.logger.LogWindow(b.timeWindow, b.totalIterations, b.iterations, trueConvergence, deleted)
	}

	if b.implicit {
		b.actions.require(WriteIterationCheckpoint)
	}
	b.isTimeWindowComplete = true
	b.iterations = 0
}

func (b *Base) shiftField(f *field) {
	f.data.ShiftExtrapolationColumns(f.data.Values)
	if b.cfg.ExtrapolationOrder > 0 {
		copy(f.data.Values, f.data.Extrapolate(b.cfg.ExtrapolationOrder))
	}
}

// rejectWindow undoes this attempt's optimistic time advance and requests
// readIterationCheckpoint so the solver replays the window.
func (b *Base) rejectWindow() {
	b.time -= b.computedPart
	b.timeWindow--
	if b.implicit {
		b.actions.require(ReadIterationCheckpoint)
	}
}

// EvaluateAndAccelerate runs the accelerator (if any) over the freshly
// exchanged fields, then evaluates every registered convergence measure
// against the pre-acceleration baseline each field's PreviousIteration
// holds. Per specification §4.7/§8, a scheme with no convergence measures
// is explicit and always reports converged. Concrete variants call this
// once per iteration, immediately after performing their exchange.
func (b *Base) EvaluateAndAccelerate() (converged bool, err error) {
	if len(b.convergenceMeasures) == 0 {
		return true, nil
	}
	if b.accelerator != nil {
		if err := b.accelerator.PerformAcceleration(b.allFields()); err != nil {
			return false, err
		}
	}

	allOthersConverged := true
	anySufficesConverged := false
	for i := range b.convergenceMeasures {
		cb := &b.convergenceMeasures[i]
		f := b.fieldByID(cb.dataID)
		c := cb.measure.Measure(f.data.PreviousIteration, f.data.Values)
		if b.logger != nil {
			b.logger.LogIteration(b.timeWindow, b.iterations, cb.dataID, cb.measure.ResidualNorm())
		}
		if cb.suffices {
			if c {
				anySufficesConverged = true
			}
		} else if !c {
			allOthersConverged = false
		}
	}
	converged = anySufficesConverged || allOthersConverged

	for _, f := range b.send {
		f.data.StartIteration()
	}
	for _, f := range b.receive {
		f.data.StartIteration()
	}
	return converged, nil
}
