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

package acceleration

import "github.com/spatialmodel/cplcore/couplingdata"

// Aitken implements the dynamic (Aitken Δ²) relaxation variant:
//
//	omega_k = -omega_{k-1} * <Δr_{k-1}, r_k - r_{k-1}> / ||r_k - r_{k-1}||^2
//
// The first iteration of every window uses the configured initial
// relaxation factor; omega resets to that value on window completion.
type Aitken struct {
	Base

	omega0 float64

	omega        float64
	prevResidual []float64
}

// NewAitken returns an Aitken accelerator with the given initial
// relaxation factor.
func NewAitken(omega0 float64) *Aitken {
	return &Aitken{omega0: omega0}
}

func (a *Aitken) Initialize(dataMap map[int]*couplingdata.Data) error {
	a.initFields(dataMap)
	a.omega = a.omega0
	a.prevResidual = nil
	return nil
}

func (a *Aitken) PerformAcceleration(dataMap map[int]*couplingdata.Data) error {
	xTilde, x := a.stackCurrentAndPrevious(dataMap)
	r := residual(xTilde, x)

	if a.prevResidual != nil {
		deltaR := make([]float64, len(r))
		var dot, normSq float64
		for i := range r {
			deltaR[i] = r[i] - a.prevResidual[i]
			dot += a.prevResidual[i] * deltaR[i]
			normSq += deltaR[i] * deltaR[i]
		}
		if normSq > 0 {
			a.omega = -a.omega * dot / normSq
		}
		// normSq == 0 means the residual hasn't moved; keep omega as is
		// rather than dividing by zero.
	}

	a.prevResidual = r
	a.writeBack(dataMap, relax(a.omega, xTilde, x))
	return nil
}

func (a *Aitken) IterationsConverged(dataMap map[int]*couplingdata.Data) {
	a.omega = a.omega0
	a.prevResidual = nil
	a.endWindow()
}
