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

// ParallelScheme implements the parallel-explicit and parallel-implicit
// variants of specification §4.8: both participants send simultaneously
// and both receive simultaneously (no round trip), with acceleration, if
// any, running on the second participant over the full merged send ∪
// receive dataset. Channel.Send/Receive already demultiplex independent
// (meshID, dataID) channels concurrently (m2n's recvLoop goroutine), so
// issuing this participant's sends before its receives does not risk the
// deadlock a synchronous send/receive pair would on a single stream.
type ParallelScheme struct {
	*Base
	role     Role
	ch       *m2n.Channel
	implicit bool
}

// NewParallelScheme builds a ParallelScheme for one side of the coupling.
func NewParallelScheme(participant string, role Role, cfg config.Scheme, ch *m2n.Channel, logger *Logger) (*ParallelScheme, error) {
	b, err := NewBase(participant, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &ParallelScheme{Base: b, role: role, ch: ch, implicit: cfg.Kind == config.ParallelImplicit}, nil
}

// Wire attaches the configured convergence measures and accelerator;
// acceleration runs on the second participant only, as in SerialScheme.
func (s *ParallelScheme) Wire(cfg config.Scheme) error {
	if s.role == First {
		return nil
	}
	return wireFromConfig(s.Base, cfg)
}

// InitializeData performs the write-initial-data exchange.
func (s *ParallelScheme) InitializeData() error {
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

// Advance runs one sub-step; see Base.Advance.
func (s *ParallelScheme) Advance(dt float64) error {
	if s.cfg().SizeMethod == config.FirstParticipant && s.role == First {
		s.SetWindowSizeIfUnset(dt)
	}
	return s.Base.Advance(dt, s.runIteration)
}

func (s *ParallelScheme) cfg() config.Scheme { return s.Base.cfg }

func (s *ParallelScheme) runIteration() (bool, error) {
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

	if !s.implicit {
		return true, nil
	}

	if s.role == First {
		return s.ch.ReceiveBool(convergenceMeshID, convergenceDataID)
	}

	converged, err := s.EvaluateAndAccelerate()
	if err != nil {
		return false, err
	}
	if err := s.ch.SendBool(convergenceMeshID, convergenceDataID, converged); err != nil {
		return false, err
	}
	return converged, nil
}
