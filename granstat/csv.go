// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package granstat

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// A Table selects one of the tables of a ResultSet.
type Table int

const (
	TopLevelTable Table = iota
	SubphaseTable
	SizeTable
	EstimateTable
)

// Tables lists every Table, in output order.
var Tables = []Table{TopLevelTable, SubphaseTable, SizeTable, EstimateTable}

func (t Table) String() string {
	switch t {
	case TopLevelTable:
		return "top-level"
	case SubphaseTable:
		return "subphases"
	case SizeTable:
		return "proof sizes"
	case EstimateTable:
		return "estimates"
	}
	return fmt.Sprintf("Table(%d)", int(t))
}

// FileName returns the conventional CSV file name of table t.
func (t Table) FileName() string {
	switch t {
	case TopLevelTable:
		return "granular_top_level.csv"
	case SubphaseTable:
		return "granular_subphases.csv"
	case SizeTable:
		return "granular_proof_sizes.csv"
	case EstimateTable:
		return "granular_estimates.csv"
	}
	panic("unknown table " + t.String())
}

// Rows returns the rows of table t.
func (rs *ResultSet) Rows(t Table) []Row {
	switch t {
	case TopLevelTable:
		return rs.PhaseRows()
	case SubphaseTable:
		return rs.SubphaseRows()
	case SizeTable:
		return rs.SizeRows()
	case EstimateTable:
		return rs.EstimateRows()
	}
	panic("unknown table " + t.String())
}

func (t Table) csvHeader() []string {
	keys := []string{"variant", "benchmark", "input_value", "input_metric"}
	times := []string{"time_lo_s", "time_mid_s", "time_hi_s", "units"}
	switch t {
	case TopLevelTable:
		return append(append(keys, "phase"), times...)
	case SubphaseTable:
		return append(append(keys, "group", "name"), times...)
	case SizeTable:
		return append(append(keys, "component"), "size_lo_mb", "size_mid_mb", "size_hi_mb", "units")
	case EstimateTable:
		return append(keys, times...)
	}
	panic("unknown table " + t.String())
}

// WriteCSV writes table t of rs to w in long format: a header
// followed by one record per row, with statistics printed to six
// decimal places.
func WriteCSV(w io.Writer, rs *ResultSet, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.csvHeader()); err != nil {
		return err
	}
	for _, row := range rs.Rows(t) {
		rec := []string{row.Key.Variant, row.Key.Benchmark, strconv.Itoa(row.Key.Input), row.Key.Metric.String()}
		switch t {
		case TopLevelTable, SizeTable:
			rec = append(rec, row.Metric)
		case SubphaseTable:
			rec = append(rec, row.Group, row.Metric)
		}
		rec = append(rec, fmtFloat(row.Low), fmtFloat(row.Median), fmtFloat(row.High), row.Units)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
