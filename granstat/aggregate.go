// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package granstat

import (
	"github.com/zkvm-perf/granular/granfmt"
)

// An Aggregator collects samples and estimates from any number of
// sources. Its zero value is an empty Aggregator ready to use.
//
// An Aggregator is not safe for concurrent use. Parallel readers
// should each fill their own Aggregator and Merge them afterwards.
type Aggregator struct {
	samples   map[granfmt.Key][]*granfmt.Sample
	estimates map[granfmt.Key]*granfmt.Estimate
	n         int
}

// Add records r if it is a *Sample or *Estimate. Other records are
// ignored.
func (a *Aggregator) Add(r granfmt.Record) {
	switch r := r.(type) {
	case *granfmt.Sample:
		a.Record(r)
	case *granfmt.Estimate:
		a.RecordEstimate(r)
	}
}

// Record appends s to the observations of s.Key. The Aggregator
// retains s, which must not be modified afterwards.
func (a *Aggregator) Record(s *granfmt.Sample) {
	if a.samples == nil {
		a.samples = make(map[granfmt.Key][]*granfmt.Sample)
	}
	a.samples[s.Key] = append(a.samples[s.Key], s)
	a.n++
}

// RecordEstimate records e as the point estimate of e.Key, replacing
// any earlier estimate of the same key.
func (a *Aggregator) RecordEstimate(e *granfmt.Estimate) {
	if a.estimates == nil {
		a.estimates = make(map[granfmt.Key]*granfmt.Estimate)
	}
	a.estimates[e.Key] = e
}

// Merge appends everything recorded in b to a, as if b's records had
// been added to a in order. b is left unchanged.
func (a *Aggregator) Merge(b *Aggregator) {
	for _, ss := range b.samples {
		for _, s := range ss {
			a.Record(s)
		}
	}
	for _, e := range b.estimates {
		a.RecordEstimate(e)
	}
}

// Samples returns the number of samples recorded.
func (a *Aggregator) Samples() int {
	return a.n
}

// Reduce summarizes everything recorded so far. It does not modify
// a, so it may be called repeatedly, and its result does not depend
// on the order in which samples were recorded.
func (a *Aggregator) Reduce() *ResultSet {
	rs := &ResultSet{
		TopLevel:  make(map[PhaseKey]Summary),
		Subphases: make(map[SubphaseKey]Summary),
		Sizes:     make(map[SizeKey]Summary),
		Estimates: make(map[granfmt.Key]Summary),
	}

	for key, samples := range a.samples {
		top := make(map[string][]float64)
		sub := make(map[SubphaseKey][]float64)
		sizes := make(map[string][]float64)
		for _, s := range samples {
			for phase, v := range s.TopLevel {
				top[phase] = append(top[phase], v)
			}
			for group, steps := range s.Subphases {
				for name, v := range steps {
					k := SubphaseKey{key, group, name}
					sub[k] = append(sub[k], v)
				}
			}
			for comp, v := range s.Sizes {
				sizes[comp] = append(sizes[comp], v)
			}
		}
		for phase, vs := range top {
			if sum, ok := Summarize(vs); ok {
				rs.TopLevel[PhaseKey{key, phase}] = sum
			}
		}
		for k, vs := range sub {
			if sum, ok := Summarize(vs); ok {
				rs.Subphases[k] = sum
			}
		}
		for comp, vs := range sizes {
			if sum, ok := Summarize(vs); ok {
				rs.Sizes[SizeKey{key, comp}] = sum
			}
		}
	}

	for key, e := range a.estimates {
		rs.Estimates[key] = Summary{Low: e.Lo, Median: e.Mid, High: e.Hi}
	}
	return rs
}
