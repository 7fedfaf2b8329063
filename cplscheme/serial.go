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
	"github.com/spatialmodel/cplcore/config"
	"github.com/spatialmodel/cplcore/m2n"
)

// Role distinguishes the two sides of a serial (or parallel) bi-coupling.
type Role int

const (
	First Role = iota
	Second
)

// convergenceMeshID/convergenceDataID address the reserved (meshID,
// dataID) pair the scheme uses for its own convergence-signal bool,
// distinct from any mesh/data id a caller registers (those are always
// >= 0 in practice; negative ids are never produced by a real mesh).
const (
	convergenceMeshID = -1
	convergenceDataID = -1
)

// SerialScheme implements the serial-explicit and serial-implicit
// variants of specification §4.8: a round trip within a window — first
// sends, second receives, second sends, first receives — with
// acceleration, if any, running on the second participant over its
// received data, and the convergence signal computed by the second
// participant and sent to the first last.
type SerialScheme struct {
	*Base
	role     Role
	ch       *m2n.Channel
	implicit bool
}

// NewSerialScheme builds a SerialScheme for one side of the coupling.
// Fields must be registered on the returned scheme (AddDataToSend/
// AddDataToReceive) before calling Wire, which attaches measures/
// acceleration from cfg once the registered field sizes are known.
func NewSerialScheme(participant string, role Role, cfg config.Scheme, ch *m2n.Channel, logger *Logger) (*SerialScheme, error) {
	b, err := NewBase(participant, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &SerialScheme{Base: b, role: role, ch: ch, implicit: cfg.Kind == config.SerialImplicit}, nil
}

// Wire attaches the configured convergence measures and accelerator.
// Per specification §4.8, acceleration runs only on the second
// participant over its received data; the first participant just
// forwards the convergence signal it receives over the wire, so it
// carries no measures or accelerator of its own even though both sides
// are configured from the same cfg.
func (s *SerialScheme) Wire(cfg config.Scheme) error {
	if s.role == First {
		return nil
	}
	return wireFromConfig(s.Base, cfg)
}

// InitializeData performs the write-initial-data exchange: the
// participant that owns a RequiresInitialization field sends it, its
// peer receives it, independent of role.
func (s *SerialScheme) InitializeData() error {
	return s.Base.InitializeData(func() error {
		for _, id := range s.sendOrder {
			f := s.send[id]
			if !f.requiresInitialization {
				continue
			}
			if err := s.ch.SendDouble(f.data.MeshID, f.data.DataID, f.data.Values); err != nil {
				return err
			}
		}
		for _, id := range s.receiveOrder {
			f := s.receive[id]
			if !f.requiresInitialization {
				continue
			}
			vals, err := s.ch.ReceiveDouble(f.data.MeshID, f.data.DataID)
			if err != nil {
				return err
			}
			copy(f.data.Values, vals)
		}
		return nil
	})
}

// Advance runs one sub-step (specification §4.7); see Base.Advance.
func (s *SerialScheme) Advance(dt float64) error {
	if s.cfg().SizeMethod == config.FirstParticipant && s.role == First {
		s.SetWindowSizeIfUnset(dt)
	}
	return s.Base.Advance(dt, s.runIteration)
}

// cfg exposes the validated configuration Base holds, for the
// first-participant window-sizing check above.
func (s *SerialScheme) cfg() config.Scheme { return s.Base.cfg }

func (s *SerialScheme) runIteration() (bool, error) {
	explicit := !s.implicit

	if s.role == First {
		for _, id := range s.sendOrder {
			f := s.send[id]
			if err := s.ch.SendDouble(f.data.MeshID, f.data.DataID, f.data.Values); err != nil {
				return false, err
			}
		}
		for _, id := range s.receiveOrder {
			f := s.receive[id]
			vals, err := s.ch.ReceiveDouble(f.data.MeshID, f.data.DataID)
			if err != nil {
				return false, err
			}
			copy(f.data.Values, vals)
		}
		if explicit {
			return true, nil
		}
		return s.ch.ReceiveBool(convergenceMeshID, convergenceDataID)
	}

	// Second.
	for _, id := range s.receiveOrder {
		f := s.receive[id]
		vals, err := s.ch.ReceiveDouble(f.data.MeshID, f.data.DataID)
		if err != nil {
			return false, err
		}
		copy(f.data.Values, vals)
	}

	converged := true
	if !explicit {
		var err error
		converged, err = s.EvaluateAndAccelerate()
		if err != nil {
			return false, err
		}
	}

	for _, id := range s.sendOrder {
		f := s.send[id]
		if err := s.ch.SendDouble(f.data.MeshID, f.data.DataID, f.data.Values); err != nil {
			return false, err
		}
	}
	if !explicit {
		if err := s.ch.SendBool(convergenceMeshID, convergenceDataID, converged); err != nil {
			return false, err
		}
	}
	return converged, nil
}
