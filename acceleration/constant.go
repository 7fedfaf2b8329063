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

// ConstantRelaxation implements x_new = omega*x̃ + (1-omega)*x. It needs
// no V/W history.
type ConstantRelaxation struct {
	Base
	Omega float64
}

// NewConstantRelaxation returns a constant-relaxation accelerator with
// the given fixed relaxation factor.
func NewConstantRelaxation(omega float64) *ConstantRelaxation {
	return &ConstantRelaxation{Omega: omega}
}

func (c *ConstantRelaxation) Initialize(dataMap map[int]*couplingdata.Data) error {
	c.initFields(dataMap)
	return nil
}

func (c *ConstantRelaxation) PerformAcceleration(dataMap map[int]*couplingdata.Data) error {
	xTilde, x := c.stackCurrentAndPrevious(dataMap)
	c.writeBack(dataMap, relax(c.Omega, xTilde, x))
	return nil
}

func (c *ConstantRelaxation) IterationsConverged(dataMap map[int]*couplingdata.Data) {
	c.endWindow()
}
