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

// Scheme is the operation set every coupling-scheme variant exposes to a
// composite or a host driver loop: serial, parallel, and multi schemes
// all satisfy it via their embedded *Base plus their own Advance.
type Scheme interface {
	Initialize(startTime float64, startWindow int) error
	Advance(dt float64) error
	IsCouplingOngoing() bool
	IsTimeWindowComplete() bool
	TimeWindowSize() float64
	ThisTimeWindowRemainder() float64
	Time() float64
}

// CompositionalScheme implements specification §4.9, component C11:
// composes two or more sub-schemes, visiting them in a fixed order each
// Advance, done when every sub-scheme is done, with time advancing by
// the minimum remaining window size across the still-ongoing ones so no
// sub-scheme's window boundary is ever overshot.
type CompositionalScheme struct {
	subs []Scheme
}

// NewCompositionalScheme composes subs in the given fixed visiting order.
func NewCompositionalScheme(subs ...Scheme) *CompositionalScheme {
	return &CompositionalScheme{subs: append([]Scheme(nil), subs...)}
}

// Initialize initializes every sub-scheme at the same starting time and
// window.
func (c *CompositionalScheme) Initialize(startTime float64, startWindow int) error {
	for _, s := range c.subs {
		if err := s.Initialize(startTime, startWindow); err != nil {
			return err
		}
	}
	return nil
}

// IsCouplingOngoing reports true while any sub-scheme still has coupling
// to do.
func (c *CompositionalScheme) IsCouplingOngoing() bool {
	for _, s := range c.subs {
		if s.IsCouplingOngoing() {
			return true
		}
	}
	return false
}

// Advance steps every still-ongoing sub-scheme, in fixed order, by the
// smallest of dt and each one's remaining window size.
func (c *CompositionalScheme) Advance(dt float64) error {
	step := dt
	for _, s := range c.subs {
		if !s.IsCouplingOngoing() {
			continue
		}
		if r := s.ThisTimeWindowRemainder(); r > 0 && r < step {
			step = r
		}
	}
	for _, s := range c.subs {
		if !s.IsCouplingOngoing() {
			continue
		}
		if err := s.Advance(step); err != nil {
			return err
		}
	}
	return nil
}
