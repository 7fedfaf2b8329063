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

package m2n

import "github.com/ctessum/sparse"

// PartitionTable records, for one mesh, how many vertices each local
// rank owns that a given remote rank needs (or vice versa): an m x n
// table for m local ranks and n remote ranks. Most rank pairs in a
// realistic domain decomposition do not overlap, so a sparse.SparseArray
// keeps the table's footprint proportional to the actual overlap count
// instead of m*n.
type PartitionTable struct {
	counts *sparse.SparseArray
}

// NewPartitionTable allocates an empty table sized for localRanks x
// remoteRanks.
func NewPartitionTable(localRanks, remoteRanks int) *PartitionTable {
	return &PartitionTable{counts: sparse.ZerosSparse(localRanks, remoteRanks)}
}

// SetOverlap records that localRank owns vertexCount vertices needed by
// remoteRank.
func (p *PartitionTable) SetOverlap(localRank, remoteRank, vertexCount int) {
	p.counts.Set(float64(vertexCount), localRank, remoteRank)
}

// Overlap reports the vertex count localRank shares with remoteRank (0
// if they do not overlap).
func (p *PartitionTable) Overlap(localRank, remoteRank int) int {
	return int(p.counts.Get(localRank, remoteRank))
}

// RemotesFor returns the remote ranks localRank must exchange data
// with, in ascending order.
func (p *PartitionTable) RemotesFor(localRank, remoteRanks int) []int {
	var out []int
	for r := 0; r < remoteRanks; r++ {
		if p.Overlap(localRank, r) > 0 {
			out = append(out, r)
		}
	}
	return out
}

// TotalVertices sums the vertex counts localRank shares across every
// remote rank.
func (p *PartitionTable) TotalVertices(localRank, remoteRanks int) int {
	total := 0
	for r := 0; r < remoteRanks; r++ {
		total += p.Overlap(localRank, r)
	}
	return total
}
