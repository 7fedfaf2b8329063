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
	"sort"

	"github.com/spatialmodel/cplcore/acceleration"
	"github.com/spatialmodel/cplcore/config"
	"github.com/spatialmodel/cplcore/convergence"
	"github.com/spatialmodel/cplcore/cplerror"
	"github.com/spatialmodel/cplcore/precondition"
)

// wireFromConfig builds the convergence measures and, when cfg names one,
// the accelerator, and attaches them to b. It must
// run after every field has been registered on b, since the accelerator's
// preconditioner is sized from the registered fields' stacked layout.
func wireFromConfig(b *Base, cfg config.Scheme) error {
	for _, mc := range cfg.ConvergenceMeasures {
		m, err := buildMeasure(mc)
		if err != nil {
			return err
		}
		b.AddConvergenceMeasure(mc.DataID, mc.Suffices, m)
	}

	if cfg.Acceleration.Kind == config.NoAcceleration {
		return nil
	}

	accel, err := buildAccelerator(cfg.Acceleration)
	if err != nil {
		return err
	}
	if ps, ok := accel.(preconditionerSetter); ok {
		ps.SetPreconditioner(precondition.New(preconditionerKind(cfg.Acceleration.Preconditioner), b.accelerationSizes(), cfg.Acceleration.FreezeAfter))
	}
	b.SetAcceleration(accel)
	return nil
}

type preconditionerSetter interface {
	SetPreconditioner(*precondition.Preconditioner)
}

// accelerationSizes returns the registered fields' per-field vector
// lengths, in ascending dataID order, matching acceleration's own
// initFields stacking order.
func (b *Base) accelerationSizes() []int {
	ids := make([]int, 0, len(b.send)+len(b.receive))
	for id := range b.send {
		ids = append(ids, id)
	}
	for id := range b.receive {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	sizes := make([]int, len(ids))
	for i, id := range ids {
		sizes[i] = b.fieldByID(id).data.Size()
	}
	return sizes
}

func buildMeasure(cfg config.ConvergenceMeasureConfig) (convergenceMeasure, error) {
	var (
		m   *convergence.Measure
		err error
	)
	switch cfg.Kind {
	case config.Absolute:
		m, err = convergence.NewAbsolute(cfg.Limit, nil)
	case config.Relative:
		m, err = convergence.NewRelative(cfg.Limit, nil)
	case config.ResidualRelative:
		m, err = convergence.NewResidualRelative(cfg.Limit, nil)
	case config.MinIterations:
		m, err = convergence.NewMinIterations(int(cfg.Limit))
	default:
		return nil, cplerror.New(cplerror.ConfigError, cplerror.Context{}, "unknown convergence measure kind %d", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func buildAccelerator(cfg config.AccelerationConfig) (acceleration.Accelerator, error) {
	switch cfg.Kind {
	case config.ConstantRelaxation:
		return acceleration.NewConstantRelaxation(cfg.InitialRelaxation), nil
	case config.Aitken:
		return acceleration.NewAitken(cfg.InitialRelaxation), nil
	case config.IQNILS:
		return acceleration.NewIQNILS(cfg.InitialRelaxation, cfg.ForceInitialRelaxation, cfg.Filter, cfg.SingularityLimit, cfg.TimestepsReused), nil
	case config.IQNIMVJ:
		return acceleration.NewIMVJ(cfg.InitialRelaxation, cfg.ForceInitialRelaxation, cfg.Filter, cfg.SingularityLimit, cfg.Restart, cfg.ChunkSize, cfg.ReusedTimestepsAtRestart, cfg.TruncationThreshold), nil
	case config.Broyden:
		return acceleration.NewBroyden(cfg.InitialRelaxation, cfg.ForceInitialRelaxation), nil
	default:
		return nil, cplerror.New(cplerror.ConfigError, cplerror.Context{}, "unknown acceleration kind %d", cfg.Kind)
	}
}

func preconditionerKind(k config.PreconditionerKind) precondition.Kind {
	switch k {
	case config.PreconditionerValue:
		return precondition.ValueNorm
	case config.PreconditionerResidual:
		return precondition.ResidualNorm
	case config.PreconditionerResidualSum:
		return precondition.ResidualSum
	default:
		return precondition.Constant
	}
}
