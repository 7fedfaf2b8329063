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

// Action is one of the fixed set of tokens a scheme can require of its
// caller before advance() will proceed.
type Action int

const (
	// WriteInitialData must be fulfilled before the first advance() when
	// this participant owns a field another participant requires
	// initialized.
	WriteInitialData Action = iota
	// ReadIterationCheckpoint is required after a rejected iteration,
	// before the caller resumes sub-stepping toward the next attempt.
	ReadIterationCheckpoint
	// WriteIterationCheckpoint is required after an accepted window,
	// before the caller may advance past it.
	WriteIterationCheckpoint
)

func (a Action) String() string {
	switch a {
	case WriteInitialData:
		return "write-initial-data"
	case ReadIterationCheckpoint:
		return "read-iteration-checkpoint"
	case WriteIterationCheckpoint:
		return "write-iteration-checkpoint"
	default:
		return "unknown-action"
	}
}

// actionSet tracks the required-but-not-yet-fulfilled actions pending on
// a scheme.
type actionSet map[Action]bool

func (s actionSet) require(a Action)       { s[a] = true }
func (s actionSet) fulfill(a Action)       { delete(s, a) }
func (s actionSet) isRequired(a Action) bool { return s[a] }
func (s actionSet) anyPending() bool       { return len(s) > 0 }

func (s actionSet) list() []Action {
	out := make([]Action, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	return out
}
