// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package granstat reduces granular benchmark samples to summary
// statistics.
package granstat

import (
	"sort"

	"github.com/aclements/go-moremath/stats"
)

// A Summary is the low/median/high statistic of a set of
// observations of one metric.
type Summary struct {
	// Low and High are the minimum and maximum observation. They are
	// not confidence bounds.
	Low, High float64

	// Median is the middle observation. For an even number of
	// observations it is the mean of the two middle ones.
	Median float64

	// N is the number of observations. It is 0 for Criterion
	// estimates, whose sample count is not reported.
	N int
}

// Summarize computes the Summary of values. It returns false if
// values is empty. values is not modified.
func Summarize(values []float64) (Summary, bool) {
	if len(values) == 0 {
		return Summary{}, false
	}
	xs := append([]float64(nil), values...)
	sort.Float64s(xs)
	lo, hi := stats.Bounds(xs)
	return Summary{Low: lo, Median: median(xs), High: hi, N: len(xs)}, true
}

// median returns the median of the sorted, non-empty slice xs.
func median(xs []float64) float64 {
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}
