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

// Package cplerror holds the structured diagnostics used across the
// coupling core, per the error kinds enumerated in the specification's
// error handling design.
package cplerror

import "fmt"

// Kind identifies one of the fixed error categories the core can raise.
type Kind int

const (
	// ConfigError covers bad parameters, a missing convergence measure on
	// an implicit scheme, or a non-positive limit/fraction.
	ConfigError Kind = iota
	// InvalidTime covers a sample written into the past or into an
	// already-closed window.
	InvalidTime
	// NoData covers a waveform sampled before any value has been written.
	NoData
	// SingularSystem covers a least-squares solve left rank deficient
	// after column filtering. Recoverable: the acceleration falls back to
	// constant relaxation for the iteration.
	SingularSystem
	// ConvergenceFailure covers a scheme reaching its iteration cap
	// without the convergence measures agreeing. Not fatal: the scheme
	// forces acceptance of the window and flags it in the iteration log.
	ConvergenceFailure
	// TransportFailure covers an M2N send/receive/connect failure or
	// timeout. Always fatal.
	TransportFailure
	// MissingAction covers advance() being called while a required
	// action token is still outstanding.
	MissingAction
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case InvalidTime:
		return "InvalidTime"
	case NoData:
		return "NoData"
	case SingularSystem:
		return "SingularSystem"
	case ConvergenceFailure:
		return "ConvergenceFailure"
	case TransportFailure:
		return "TransportFailure"
	case MissingAction:
		return "MissingAction"
	default:
		return "Unknown"
	}
}

// Context carries the scheme state that was current when the error was
// raised, so the diagnostic is actionable without a debugger attached.
type Context struct {
	Participant string
	TimeWindow  int
	Iteration   int
}

// Error is the structured diagnostic every fatal error in this module
// propagates as. Non-fatal conditions (SingularSystem, ConvergenceFailure)
// are also represented this way so callers can use errors.As uniformly,
// even though the scheme recovers from them internally.
type Error struct {
	Kind    Kind
	Message string
	Context Context
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (participant=%s timeWindow=%d iteration=%d): %s: %v",
			e.Kind, e.Context.Participant, e.Context.TimeWindow, e.Context.Iteration, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (participant=%s timeWindow=%d iteration=%d): %s",
		e.Kind, e.Context.Participant, e.Context.TimeWindow, e.Context.Iteration, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, ctx Context, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Context: ctx}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, ctx Context, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Context: ctx, Cause: cause}
}

// Is reports whether err is a *Error of the given kind, unwrapping as
// needed. It mirrors the errors.Is contract without requiring the caller
// to import "errors" for this common case.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
