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
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/sirupsen/logrus"
)

// Logger writes the two text logs a scheme produces per specification §6:
// an iteration log (one row per completed time window) and a convergence
// log (one row per iteration of an implicit window). lib.inmap/run.go's
// per-iteration fmt.Printf of wall time and mass-balance percentage is the
// pattern generalized here, routed through logrus instead of fmt so the
// structured fields are also available to any collector attached to the
// process, and through an io.Writer for the column-oriented log files
// themselves.
type Logger struct {
	participant string

	iterationLog   io.Writer
	convergenceLog io.Writer

	iterationHeaderWritten   bool
	convergenceHeaderWritten bool

	// windowResiduals accumulates, per dataID, the residual norms seen this
	// window in iteration order, used to fit an average convergence rate
	// when the window closes.
	windowResiduals map[int][]float64
	dataOrder       []int
}

// NewLogger returns a Logger for participant that writes its iteration log
// to iterationLog and its convergence log to convergenceLog. Either may be
// nil to suppress that log.
func NewLogger(participant string, iterationLog, convergenceLog io.Writer) *Logger {
	return &Logger{
		participant:     participant,
		iterationLog:    iterationLog,
		convergenceLog:  convergenceLog,
		windowResiduals: make(map[int][]float64),
	}
}

// LogIteration appends one row to the convergence log for the given
// dataID's residual norm at this iteration, and records the sample for
// the window's AvgConvRate.
func (l *Logger) LogIteration(timeWindow, iteration, dataID int, residualNorm float64) {
	if _, ok := l.windowResiduals[dataID]; !ok {
		l.dataOrder = append(l.dataOrder, dataID)
		sort.Ints(l.dataOrder)
	}
	l.windowResiduals[dataID] = append(l.windowResiduals[dataID], residualNorm)

	logrus.WithFields(logrus.Fields{
		"participant": l.participant,
		"timeWindow":  timeWindow,
		"iteration":   iteration,
		"dataID":      dataID,
		"residual":    residualNorm,
	}).Debug("cplscheme: iteration residual")

	if l.convergenceLog == nil {
		return
	}
	if !l.convergenceHeaderWritten {
		fmt.Fprintln(l.convergenceLog, "TimeWindow Iteration DataID ResNorm")
		l.convergenceHeaderWritten = true
	}
	fmt.Fprintf(l.convergenceLog, "%d %d %d %.6e\n", timeWindow, iteration, dataID, residualNorm)
}

// LogWindow appends one row to the iteration log for an accepted or
// forced window: total/window iteration counts, whether the window
// actually converged (as opposed to being forced past MaxIterations), the
// average per-iteration convergence rate of each participating dataID's
// residual history, and how many V/W columns the accelerator filtered
// out. It then clears the per-window residual history.
func (l *Logger) LogWindow(timeWindow, totalIterations, iterations int, converged bool, deletedColumns int) {
	logrus.WithFields(logrus.Fields{
		"participant":     l.participant,
		"timeWindow":      timeWindow,
		"totalIterations": totalIterations,
		"iterations":      iterations,
		"converged":       converged,
		"deletedColumns":  deletedColumns,
	}).Info("cplscheme: time window complete")

	if l.iterationLog != nil {
		if !l.iterationHeaderWritten {
			fmt.Fprintln(l.iterationLog, "TimeWindow TotalIterations Iterations Convergence AvgConvRate... DeletedColumns")
			l.iterationHeaderWritten = true
		}
		convFlag := 0
		if converged {
			convFlag = 1
		}
		fmt.Fprintf(l.iterationLog, "%d %d %d %d", timeWindow, totalIterations, iterations, convFlag)
		for _, id := range l.dataOrder {
			fmt.Fprintf(l.iterationLog, " %d:%.4f", id, avgConvRate(l.windowResiduals[id]))
		}
		fmt.Fprintf(l.iterationLog, " %d\n", deletedColumns)
	}

	l.windowResiduals = make(map[int][]float64)
	l.dataOrder = nil
}

// avgConvRate fits a line through the log of the residual norm series via
// GoStats' least-squares regression and reports the per-iteration decay
// ratio exp(slope); a series too short to fit, or with a non-positive
// norm, reports 1 (no measured decay).
func avgConvRate(norms []float64) float64 {
	if len(norms) < 2 {
		return 1
	}
	xs := make([]float64, 0, len(norms))
	ys := make([]float64, 0, len(norms))
	for i, n := range norms {
		if n <= 0 {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, math.Log(n))
	}
	if len(xs) < 2 {
		return 1
	}
	slope, _, _, _, _, _ := stats.LinearRegression(xs, ys)
	return math.Exp(slope)
}
