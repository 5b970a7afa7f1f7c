// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package granstat

import (
	"fmt"
	"io"
	"strconv"

	"github.com/zkvm-perf/granular/granfmt"
	"github.com/zkvm-perf/granular/granunit"
	"github.com/zkvm-perf/granular/internal/texttab"
)

// NumericCols is the number of trailing columns in Cells that hold
// numbers: median, low, high and n.
const NumericCols = 4

// Cells returns the header and body of table t, with values scaled
// to readable units.
func (rs *ResultSet) Cells(t Table) (header []string, body [][]string) {
	header = []string{"variant", "benchmark", "input"}
	if t == SubphaseTable {
		header = append(header, "group")
	}
	if t != EstimateTable {
		header = append(header, "metric")
	}
	header = append(header, "median", "low", "high", "n")

	for _, row := range rs.Rows(t) {
		cells := []string{row.Key.Variant, row.Key.Benchmark, InputLabel(row.Key)}
		if t == SubphaseTable {
			cells = append(cells, row.Group)
		}
		if t != EstimateTable {
			cells = append(cells, row.Metric)
		}
		c := row.Class()
		n := ""
		if row.N > 0 {
			n = strconv.Itoa(row.N)
		}
		cells = append(cells, granunit.Format(row.Median, c), granunit.Format(row.Low, c), granunit.Format(row.High, c), n)
		body = append(body, cells)
	}
	return header, body
}

// WriteText writes every non-empty table of rs to w as an aligned
// plain-text table.
func WriteText(w io.Writer, rs *ResultSet) error {
	first := true
	for _, t := range Tables {
		header, body := rs.Cells(t)
		if len(body) == 0 {
			continue
		}
		if !first {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		first = false
		if _, err := fmt.Fprintf(w, "%s:\n", t); err != nil {
			return err
		}
		tab := new(texttab.Table)
		for _, cells := range append([][]string{header}, body...) {
			tab.Row()
			for i, cell := range cells {
				if i >= len(cells)-NumericCols {
					tab.Cell(cell, texttab.Right)
				} else {
					tab.Cell(cell)
				}
			}
		}
		if err := tab.Format(w); err != nil {
			return err
		}
	}
	return nil
}

// InputLabel formats k's input value with its metric, as in "n=4" or
// "cycles=32".
func InputLabel(k granfmt.Key) string {
	return k.Metric.String() + "=" + strconv.Itoa(k.Input)
}
