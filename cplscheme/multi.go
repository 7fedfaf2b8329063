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

// MultiScheme implements the multi-coupling variant of specification
// §4.8: a controller participant exchanges with each of N followers in a
// fixed order within a window, then gathers convergence signals and
// broadcasts the aggregate. Every follower exchanges the same registered
// field set with the controller (a star topology over one shared
// dataset); a deployment needing per-follower fields runs one MultiScheme
// per distinct field set.
type MultiScheme struct {
	*Base
	controller bool
	followers  []*m2n.Channel // controller only, fixed order
	upstream   *m2n.Channel   // follower only
	implicit   bool
}

// NewMultiController builds the controller side, exchanging with
// followers in the given fixed order.
func NewMultiController(participant string, cfg config.Scheme, followers []*m2n.Channel, logger *Logger) (*MultiScheme, error) {
	b, err := NewBase(participant, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &MultiScheme{Base: b, controller: true, followers: followers, implicit: cfg.Kind == config.Multi}, nil
}

// NewMultiFollower builds one follower side.
func NewMultiFollower(participant string, cfg config.Scheme, upstream *m2n.Channel, logger *Logger) (*MultiScheme, error) {
	b, err := NewBase(participant, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &MultiScheme{Base: b, controller: false, upstream: upstream, implicit: cfg.Kind == config.Multi}, nil
}

// Wire attaches the configured convergence measures and accelerator.
// Acceleration runs on the controller, over the dataset merged across
// every follower round, mirroring serial/parallel's "second participant
// accelerates" rule generalized to "the one side that sees everybody".
func (s *MultiScheme) Wire(cfg config.Scheme) error {
	if !s.controller {
		return nil
	}
	return wireFromConfig(s.Base, cfg)
}

// InitializeData performs the write-initial-data exchange, in the same
// fixed controller/follower order as runIteration.
func (s *MultiScheme) InitializeData() error {
	return s.Base.InitializeData(func() error {
		if s.controller {
			for _, ch := range s.followers {
				for _, id := range s.sendOrder {
					f := s.send[id]
					if !f.requiresInitialization {
						continue
					}
					if err := ch.SendDouble(f.data.MeshID, f.data.DataID, f.data.Values); err != nil {
						return err
					}
				}
				for _, id := range s.receiveOrder {
					f := s.receive[id]
					if !f.requiresInitialization {
						continue
					}
					vals, err := ch.ReceiveDouble(f.data.MeshID, f.data.DataID)
					if err != nil {
						return err
					}
					copy(f.data.Values, vals)
				}
			}
			return nil
		}
		for _, id := range s.receiveOrder {
			f := s.receive[id]
			if !f.requiresInitialization {
				continue
			}
			vals, err := s.upstream.ReceiveDouble(f.data.MeshID, f.data.DataID)
			if err != nil {
				return err
			}
			copy(f.data.Values, vals)
		}
		for _, id := range s.sendOrder {
			f := s.send[id]
			if !f.requiresInitialization {
				continue
			}
			if err := s.upstream.SendDouble(f.data.MeshID, f.data.DataID, f.data.Values); err != nil {
				return err
			}
		}
		return nil
	})
}

// Advance runs one sub-step; see Base.Advance.
func (s *MultiScheme) Advance(dt float64) error {
	return s.Base.Advance(dt, s.runIteration)
}

func (s *MultiScheme) runIteration() (bool, error) {
	if s.controller {
		return s.runController()
	}
	return s.runFollower()
}

func (s *MultiScheme) runController() (bool, error) {
	for _, ch := range s.followers {
		for _, id := range s.sendOrder {
			f := s.send[id]
			if err := ch.SendDouble(f.data.MeshID, f.data.DataID, f.data.Values); err != nil {
				return false, err
			}
		}
		for _, id := range s.receiveOrder {
			f := s.receive[id]
			vals, err := ch.ReceiveDouble(f.data.MeshID, f.data.DataID)
			if err != nil {
				return false, err
			}
			copy(f.data.Values, vals)
		}
	}

	converged := true
	if s.implicit {
		var err error
		converged, err = s.EvaluateAndAccelerate()
		if err != nil {
			return false, err
		}
	}

	for _, ch := range s.followers {
		if s.implicit {
			if err := ch.SendBool(convergenceMeshID, convergenceDataID, converged); err != nil {
				return false, err
			}
		}
	}
	return converged, nil
}

func (s *MultiScheme) runFollower() (bool, error) {
	for _, id := range s.receiveOrder {
		f := s.receive[id]
		vals, err := s.upstream.ReceiveDouble(f.data.MeshID, f.data.DataID)
		if err != nil {
			return false, err
		}
		copy(f.data.Values, vals)
	}
	for _, id := range s.sendOrder {
		f := s.send[id]
		if err := s.upstream.SendDouble(f.data.MeshID, f.data.DataID, f.data.Values); err != nil {
			return false, err
		}
	}
	if !s.implicit {
		return true, nil
	}
	return s.upstream.ReceiveBool(convergenceMeshID, convergenceDataID)
}
