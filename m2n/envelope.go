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

// Package m2n implements the mesh-to-mesh transport of specification
// §4.8, component C4: an ordered, typed channel of bool, scalar and
// block values between the two process groups of a coupling, keyed by
// (meshID, dataID). Grounded on the RPC pattern this codebase already
// uses to talk to a remote worker (inmaputil/cloud.go's grpc.Dial /
// credentials / generated client), generalized from a one-shot
// request/response job API to a long-lived bidirectional stream.
package m2n

import "github.com/ctessum/sparse"

// Kind tags which field of an Envelope is populated.
type Kind int

const (
	KindBool Kind = iota
	KindDouble
	KindBlock
)

// Envelope is one wire message. Only one of Bool, Doubles, Block is
// meaningful, selected by Kind.
//
// Block travels as a *sparse.DenseArray with its unexported ndims/
// arrsize fields necessarily dropped by gob (it only encodes exported
// fields): DenseArray.Fix() exists in the sparse package specifically
// to recompute those fields "after transmitting via rpc", so the
// receiving side calls Fix() before handing the array to a caller.
type Envelope struct {
	MeshID, DataID int
	Kind           Kind

	Bool    bool
	Doubles []float64
	Block   *sparse.DenseArray
}
