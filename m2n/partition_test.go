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

import "testing"

func TestPartitionTableTracksOverlapsSparsely(t *testing.T) {
	p := NewPartitionTable(3, 4)
	p.SetOverlap(0, 1, 10)
	p.SetOverlap(0, 3, 5)
	p.SetOverlap(2, 2, 7)

	if got := p.Overlap(0, 1); got != 10 {
		t.Fatalf("Overlap(0,1) = %d, want 10", got)
	}
	if got := p.Overlap(1, 0); got != 0 {
		t.Fatalf("Overlap(1,0) = %d, want 0", got)
	}

	remotes := p.RemotesFor(0, 4)
	if len(remotes) != 2 || remotes[0] != 1 || remotes[1] != 3 {
		t.Fatalf("RemotesFor(0) = %v, want [1 3]", remotes)
	}

	if got := p.TotalVertices(0, 4); got != 15 {
		t.Fatalf("TotalVertices(0) = %d, want 15", got)
	}
}
