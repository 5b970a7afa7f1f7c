// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package granfmt

// scratch accumulates the partial measurements of the sample in
// progress: subphase timings and proof sizes seen since the last
// boundary, collecting marker or finalize line.
//
// scratch never shares maps with the Samples it produces.
type scratch struct {
	groups map[string]map[string]float64
	sizes  map[string]float64
}

// reset discards everything accumulated so far.
func (s *scratch) reset() {
	s.groups = nil
	s.sizes = nil
}

// setGroup replaces all sub-steps of group with vals.
func (s *scratch) setGroup(group string, vals map[string]float64) {
	if s.groups == nil {
		s.groups = make(map[string]map[string]float64)
	}
	m := make(map[string]float64, len(vals))
	for k, v := range vals {
		m[k] = v
	}
	s.groups[group] = m
}

// addStep records one sub-step of group, keeping earlier ones.
func (s *scratch) addStep(group, name string, val float64) {
	if s.groups == nil {
		s.groups = make(map[string]map[string]float64)
	}
	m := s.groups[group]
	if m == nil {
		m = make(map[string]float64)
		s.groups[group] = m
	}
	m[name] = val
}

// setSizes replaces all proof-size components with vals.
func (s *scratch) setSizes(vals map[string]float64) {
	s.sizes = make(map[string]float64, len(vals))
	for k, v := range vals {
		s.sizes[k] = v
	}
}

// finish builds a Sample for key from the given top-level timings and
// everything accumulated so far, then resets s. Ownership of the
// accumulated maps moves to the Sample.
func (s *scratch) finish(key Key, topLevel map[string]float64) *Sample {
	sample := &Sample{
		Key:       key,
		TopLevel:  make(map[string]float64, len(topLevel)),
		Subphases: make(map[string]map[string]float64, len(s.groups)),
		Sizes:     s.sizes,
	}
	for k, v := range topLevel {
		sample.TopLevel[k] = v
	}
	for g, m := range s.groups {
		if len(m) > 0 {
			sample.Subphases[g] = m
		}
	}
	if sample.Sizes == nil {
		sample.Sizes = make(map[string]float64)
	}
	s.reset()
	return sample
}
