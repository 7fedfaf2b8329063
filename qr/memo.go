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

package qr

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ctessum/requestcache"
	"gonum.org/v1/gonum/mat"
)

// MemoizedRebuilder wraps BlockMGS with an in-memory cache keyed by the
// exact retained columns, the way this codebase's emissions/slca/bea
// subtree memoizes on-demand generated data. A replay driver that
// re-runs the same window's acceleration steps to regenerate a log
// (rather than advance state) hits the cache instead of repeating the
// O(nm^2) factorization.
type MemoizedRebuilder struct {
	cache *requestcache.Cache
}

type qrResult struct {
	q, r *mat.Dense
}

// NewMemoizedRebuilder starts a cache retaining up to maxEntries
// factorizations. A single worker processes misses: BlockMGS on the
// small matrices this package deals with is already fast, so there is
// nothing to gain from parallel misses, only contention to lose.
func NewMemoizedRebuilder(maxEntries int) *MemoizedRebuilder {
	processor := func(ctx context.Context, payload interface{}) (interface{}, error) {
		cols := payload.([][]float64)
		q, r := BlockMGS(toDense(cols))
		return qrResult{q, r}, nil
	}
	return &MemoizedRebuilder{cache: requestcache.NewCache(processor, 1, requestcache.Memory(maxEntries))}
}

// Rebuild factors cols (n x m, one slice per column) via BlockMGS,
// returning a cached result when these exact columns were factored
// before.
func (m *MemoizedRebuilder) Rebuild(ctx context.Context, cols [][]float64) (q, r *mat.Dense, err error) {
	req := m.cache.NewRequest(ctx, append([][]float64(nil), cols...), columnKey(cols))
	res, err := req.Result()
	if err != nil {
		return nil, nil, err
	}
	qr := res.(qrResult)
	return qr.q, qr.r, nil
}

func columnKey(cols [][]float64) string {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, int64(len(cols)))
	for _, c := range cols {
		for _, v := range c {
			binary.Write(&buf, binary.LittleEndian, v)
		}
	}
	return fmt.Sprintf("%x", buf.Bytes())
}

func toDense(cols [][]float64) *mat.Dense {
	if len(cols) == 0 {
		return mat.NewDense(0, 0, nil)
	}
	n := len(cols[0])
	a := mat.NewDense(n, len(cols), nil)
	for j, c := range cols {
		for i := 0; i < n; i++ {
			a.Set(i, j, c[i])
		}
	}
	return a
}
