// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"

	"github.com/google/safehtml/template"

	"github.com/zkvm-perf/granular/granstat"
)

const htmlText = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Granular Benchmark Summary</title>
<style>
.granstat { border-collapse: collapse; margin-bottom: 2em; }
.granstat th { text-align: left; border-bottom: 1px solid #666; padding: 0 1em 0 0; }
.granstat td { padding: 0 1em 0 0; }
.granstat td.num { text-align: right; }
</style>
</head>
<body>
{{range .}}<h2>{{.Title}}</h2>
<table class="granstat">
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}{{if .Num}}<td class="num">{{.Text}}</td>{{else}}<td>{{.Text}}</td>{{end}}{{end}}</tr>
{{end}}</table>
{{end}}</body>
</html>
`

var htmlTemplate = template.Must(template.New("granstat").Parse(htmlText))

type htmlTable struct {
	Title  string
	Header []string
	Rows   [][]htmlCell
}

type htmlCell struct {
	Text string
	Num  bool
}

// writeHTML writes the non-empty tables of rs to w as an HTML page.
func writeHTML(w io.Writer, rs *granstat.ResultSet) error {
	var tables []htmlTable
	for _, t := range granstat.Tables {
		header, body := rs.Cells(t)
		if len(body) == 0 {
			continue
		}
		ht := htmlTable{Title: t.String(), Header: header}
		for _, cells := range body {
			row := make([]htmlCell, len(cells))
			for i, cell := range cells {
				row[i] = htmlCell{Text: cell, Num: i >= len(cells)-granstat.NumericCols}
			}
			ht.Rows = append(ht.Rows, row)
		}
		tables = append(tables, ht)
	}
	return htmlTemplate.Execute(w, tables)
}
