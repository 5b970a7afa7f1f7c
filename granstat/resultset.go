// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package granstat

import (
	"sort"

	"github.com/zkvm-perf/granular/granfmt"
	"github.com/zkvm-perf/granular/granunit"
)

// PhaseKey identifies a top-level phase of one workload point.
type PhaseKey struct {
	Key   granfmt.Key
	Phase string
}

// SubphaseKey identifies a sub-step within a subphase group.
type SubphaseKey struct {
	Key   granfmt.Key
	Group string
	Name  string
}

// SizeKey identifies a proof-size component.
type SizeKey struct {
	Key       granfmt.Key
	Component string
}

// A ResultSet holds the summaries produced by Aggregator.Reduce.
//
// Metrics with no observations have no entry. Callers must not
// modify the maps.
type ResultSet struct {
	TopLevel  map[PhaseKey]Summary
	Subphases map[SubphaseKey]Summary
	Sizes     map[SizeKey]Summary

	// Estimates holds the last Criterion point estimate seen for
	// each key.
	Estimates map[granfmt.Key]Summary
}

// A Row is one line of a ResultSet table.
type Row struct {
	Key granfmt.Key

	// Group is the subphase group for subphase rows, and empty
	// otherwise.
	Group string

	// Metric is the phase, sub-step, or size component name. It is
	// "time" for estimate rows.
	Metric string

	Summary

	// Units is "s" for durations and "MB" for sizes.
	Units string
}

// Class returns the class of r's values.
func (r Row) Class() granunit.Class {
	if r.Units == granunit.Size.Base() {
		return granunit.Size
	}
	return granunit.Time
}

// Empty reports whether rs has no rows at all.
func (rs *ResultSet) Empty() bool {
	return len(rs.TopLevel) == 0 && len(rs.Subphases) == 0 && len(rs.Sizes) == 0 && len(rs.Estimates) == 0
}

// PhaseRows returns the top-level table, ordered by key and then by
// pipeline phase order.
func (rs *ResultSet) PhaseRows() []Row {
	rows := make([]Row, 0, len(rs.TopLevel))
	for k, s := range rs.TopLevel {
		rows = append(rows, Row{Key: k.Key, Metric: k.Phase, Summary: s, Units: granunit.Time.Base()})
	}
	sortRows(rows, granfmt.Phases)
	return rows
}

// SubphaseRows returns the subphase table, ordered by key, group,
// then sub-step name.
func (rs *ResultSet) SubphaseRows() []Row {
	rows := make([]Row, 0, len(rs.Subphases))
	for k, s := range rs.Subphases {
		rows = append(rows, Row{Key: k.Key, Group: k.Group, Metric: k.Name, Summary: s, Units: granunit.Time.Base()})
	}
	sortRows(rows, nil)
	return rows
}

// SizeRows returns the proof-size table, ordered by key and then by
// component.
func (rs *ResultSet) SizeRows() []Row {
	rows := make([]Row, 0, len(rs.Sizes))
	for k, s := range rs.Sizes {
		rows = append(rows, Row{Key: k.Key, Metric: k.Component, Summary: s, Units: granunit.Size.Base()})
	}
	sortRows(rows, granfmt.Components)
	return rows
}

// EstimateRows returns the Criterion estimates, ordered by key.
func (rs *ResultSet) EstimateRows() []Row {
	rows := make([]Row, 0, len(rs.Estimates))
	for k, s := range rs.Estimates {
		rows = append(rows, Row{Key: k, Metric: "time", Summary: s, Units: granunit.Time.Base()})
	}
	sortRows(rows, nil)
	return rows
}

// Keys returns every key that has at least one row, in order.
func (rs *ResultSet) Keys() []granfmt.Key {
	seen := make(map[granfmt.Key]bool)
	for k := range rs.TopLevel {
		seen[k.Key] = true
	}
	for k := range rs.Subphases {
		seen[k.Key] = true
	}
	for k := range rs.Sizes {
		seen[k.Key] = true
	}
	for k := range rs.Estimates {
		seen[k] = true
	}
	keys := make([]granfmt.Key, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// sortRows sorts rows by key, group, and metric. Groups sort in
// pipeline order. Metrics listed in order sort first, in that order;
// the rest sort by name.
func sortRows(rows []Row, order []string) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := &rows[i], &rows[j]
		if a.Key != b.Key {
			return a.Key.Less(b.Key)
		}
		if a.Group != b.Group {
			return less(granfmt.Groups, a.Group, b.Group)
		}
		return less(order, a.Metric, b.Metric)
	})
}

// less orders names by their index in order, then by name. Names not
// in order sort after those that are.
func less(order []string, a, b string) bool {
	ra, rb := rank(order, a), rank(order, b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

func rank(order []string, name string) int {
	for i, o := range order {
		if o == name {
			return i
		}
	}
	return len(order)
}
