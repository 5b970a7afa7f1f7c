// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package granstat

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zkvm-perf/granular/granfmt"
)

func TestSummarize(t *testing.T) {
	for _, test := range []struct {
		values []float64
		want   Summary
		ok     bool
	}{
		{nil, Summary{}, false},
		{[]float64{5}, Summary{Low: 5, Median: 5, High: 5, N: 1}, true},
		{[]float64{3, 1, 2}, Summary{Low: 1, Median: 2, High: 3, N: 3}, true},
		{[]float64{4, 1, 3, 2}, Summary{Low: 1, Median: 2.5, High: 4, N: 4}, true},
		{[]float64{0.7, 0.5}, Summary{Low: 0.5, Median: 0.6, High: 0.7, N: 2}, true},
	} {
		orig := append([]float64(nil), test.values...)
		got, ok := Summarize(test.values)
		if ok != test.ok || got != test.want {
			t.Errorf("Summarize(%v) = %+v, %v; want %+v, %v", orig, got, ok, test.want, test.ok)
		}
		if diff := cmp.Diff(orig, test.values); diff != "" {
			t.Errorf("Summarize modified its input (-before +after):\n%s", diff)
		}
	}
}

var fib4 = granfmt.Key{Variant: "v", Benchmark: "fibonacci", Input: 4, Metric: granfmt.Count}

func sample(key granfmt.Key, prove float64, sub map[string]map[string]float64, sizes map[string]float64) *granfmt.Sample {
	return &granfmt.Sample{
		Key:       key,
		TopLevel:  map[string]float64{"decode": 0.1, "trace": 0.2, "preprocess": 1, "prove": prove, "verify": 0.05},
		Subphases: sub,
		Sizes:     sizes,
	}
}

func TestReduce(t *testing.T) {
	var a Aggregator
	a.Record(sample(fib4, 0.5, map[string]map[string]float64{"prove": {"openings": 0.2}}, map[string]float64{"total": 0.1}))
	a.Record(sample(fib4, 0.7, map[string]map[string]float64{"verify": {"bytecode": 0.01}}, nil))
	rs := a.Reduce()

	if got, want := rs.TopLevel[PhaseKey{fib4, "prove"}], (Summary{Low: 0.5, Median: 0.6, High: 0.7, N: 2}); got != want {
		t.Errorf("prove = %+v, want %+v", got, want)
	}
	if got, want := rs.TopLevel[PhaseKey{fib4, "decode"}], (Summary{Low: 0.1, Median: 0.1, High: 0.1, N: 2}); got != want {
		t.Errorf("decode = %+v, want %+v", got, want)
	}
	// Metrics present in only some samples summarize only those.
	wantSub := map[SubphaseKey]Summary{
		{fib4, "prove", "openings"}:  {Low: 0.2, Median: 0.2, High: 0.2, N: 1},
		{fib4, "verify", "bytecode"}: {Low: 0.01, Median: 0.01, High: 0.01, N: 1},
	}
	if diff := cmp.Diff(wantSub, rs.Subphases); diff != "" {
		t.Errorf("subphases (-want +got):\n%s", diff)
	}
	wantSizes := map[SizeKey]Summary{
		{fib4, "total"}: {Low: 0.1, Median: 0.1, High: 0.1, N: 1},
	}
	if diff := cmp.Diff(wantSizes, rs.Sizes); diff != "" {
		t.Errorf("sizes (-want +got):\n%s", diff)
	}

	// Reduce is idempotent.
	if diff := cmp.Diff(rs, a.Reduce()); diff != "" {
		t.Errorf("second Reduce differs (-first +second):\n%s", diff)
	}
}

func TestReduceEmpty(t *testing.T) {
	var a Aggregator
	rs := a.Reduce()
	if !rs.Empty() {
		t.Errorf("empty aggregator reduced to %+v", rs)
	}
	if rows := rs.PhaseRows(); len(rows) != 0 {
		t.Errorf("PhaseRows = %v, want none", rows)
	}
}

func TestReduceOrderIndependent(t *testing.T) {
	sha := granfmt.Key{Variant: "v", Benchmark: "sha2_chain", Input: 32, Metric: granfmt.Cycles}
	samples := []*granfmt.Sample{
		sample(fib4, 0.9, nil, map[string]float64{"total": 1}),
		sample(fib4, 0.1, map[string]map[string]float64{"prove": {"x": 3}}, nil),
		sample(sha, 0.4, map[string]map[string]float64{"prove": {"x": 1}}, nil),
		sample(fib4, 0.5, map[string]map[string]float64{"prove": {"x": 2}}, map[string]float64{"total": 2}),
		sample(sha, 0.2, nil, nil),
	}
	var fwd, rev Aggregator
	for i := range samples {
		fwd.Record(samples[i])
		rev.Record(samples[len(samples)-1-i])
	}
	if diff := cmp.Diff(fwd.Reduce(), rev.Reduce()); diff != "" {
		t.Errorf("reduction depends on order (-forward +reverse):\n%s", diff)
	}
}

func TestMerge(t *testing.T) {
	var a, b, all Aggregator
	s1 := sample(fib4, 0.5, nil, nil)
	s2 := sample(fib4, 0.7, nil, nil)
	e1 := &granfmt.Estimate{Key: fib4, Lo: 1, Mid: 2, Hi: 3}
	e2 := &granfmt.Estimate{Key: fib4, Lo: 4, Mid: 5, Hi: 6}
	a.Add(s1)
	a.Add(e1)
	b.Add(s2)
	b.Add(e2)
	b.Add(&granfmt.SyntaxError{})
	all.Merge(&a)
	all.Merge(&b)
	if all.Samples() != 2 {
		t.Errorf("merged Samples() = %d, want 2", all.Samples())
	}
	rs := all.Reduce()
	if got, want := rs.TopLevel[PhaseKey{fib4, "prove"}].N, 2; got != want {
		t.Errorf("merged prove N = %d, want %d", got, want)
	}
	// The last estimate wins.
	if got, want := rs.Estimates[fib4], (Summary{Low: 4, Median: 5, High: 6}); got != want {
		t.Errorf("estimate = %+v, want %+v", got, want)
	}
}

func TestRows(t *testing.T) {
	v2 := granfmt.Key{Variant: "v", Benchmark: "fibonacci", Input: 10, Metric: granfmt.Count}
	var a Aggregator
	a.Record(sample(v2, 1, map[string]map[string]float64{
		"verify":     {"b": 1},
		"prove":      {"z": 1, "a": 1},
		"preprocess": {"setup": 1},
	}, map[string]float64{"total": 1, "proof": 1, "commitments": 1}))
	a.Record(sample(fib4, 1, nil, nil))
	rs := a.Reduce()

	type rowID struct {
		Input         int
		Group, Metric string
	}
	ids := func(rows []Row) []rowID {
		var out []rowID
		for _, r := range rows {
			out = append(out, rowID{r.Key.Input, r.Group, r.Metric})
		}
		return out
	}

	wantPhases := []rowID{
		{4, "", "decode"}, {4, "", "trace"}, {4, "", "preprocess"}, {4, "", "prove"}, {4, "", "verify"},
		{10, "", "decode"}, {10, "", "trace"}, {10, "", "preprocess"}, {10, "", "prove"}, {10, "", "verify"},
	}
	if diff := cmp.Diff(wantPhases, ids(rs.PhaseRows())); diff != "" {
		t.Errorf("PhaseRows (-want +got):\n%s", diff)
	}
	wantSub := []rowID{
		{10, "preprocess", "setup"}, {10, "prove", "a"}, {10, "prove", "z"}, {10, "verify", "b"},
	}
	if diff := cmp.Diff(wantSub, ids(rs.SubphaseRows())); diff != "" {
		t.Errorf("SubphaseRows (-want +got):\n%s", diff)
	}
	wantSizes := []rowID{
		{10, "", "commitments"}, {10, "", "proof"}, {10, "", "total"},
	}
	if diff := cmp.Diff(wantSizes, ids(rs.SizeRows())); diff != "" {
		t.Errorf("SizeRows (-want +got):\n%s", diff)
	}
	for _, r := range rs.SizeRows() {
		if r.Units != "MB" {
			t.Errorf("size row units = %q, want MB", r.Units)
		}
	}
	if diff := cmp.Diff([]granfmt.Key{fib4, v2}, rs.Keys()); diff != "" {
		t.Errorf("Keys (-want +got):\n%s", diff)
	}
}

func testResultSet() *ResultSet {
	var a Aggregator
	a.Record(sample(fib4, 0.5, map[string]map[string]float64{"prove": {"openings": 0.25}}, map[string]float64{"commitments": 0.015, "proof": 0.108, "total": 0.123}))
	a.Record(sample(fib4, 0.7, map[string]map[string]float64{"prove": {"openings": 0.75}}, nil))
	a.RecordEstimate(&granfmt.Estimate{Key: fib4, Lo: 2.5, Mid: 2.5234, Hi: 2.5467})
	return a.Reduce()
}

func TestWriteCSV(t *testing.T) {
	rs := testResultSet()
	for _, test := range []struct {
		table Table
		want  string
	}{
		{TopLevelTable, `variant,benchmark,input_value,input_metric,phase,time_lo_s,time_mid_s,time_hi_s,units
v,fibonacci,4,n,decode,0.100000,0.100000,0.100000,s
v,fibonacci,4,n,trace,0.200000,0.200000,0.200000,s
v,fibonacci,4,n,preprocess,1.000000,1.000000,1.000000,s
v,fibonacci,4,n,prove,0.500000,0.600000,0.700000,s
v,fibonacci,4,n,verify,0.050000,0.050000,0.050000,s
`},
		{SubphaseTable, `variant,benchmark,input_value,input_metric,group,name,time_lo_s,time_mid_s,time_hi_s,units
v,fibonacci,4,n,prove,openings,0.250000,0.500000,0.750000,s
`},
		{SizeTable, `variant,benchmark,input_value,input_metric,component,size_lo_mb,size_mid_mb,size_hi_mb,units
v,fibonacci,4,n,commitments,0.015000,0.015000,0.015000,MB
v,fibonacci,4,n,proof,0.108000,0.108000,0.108000,MB
v,fibonacci,4,n,total,0.123000,0.123000,0.123000,MB
`},
		{EstimateTable, `variant,benchmark,input_value,input_metric,time_lo_s,time_mid_s,time_hi_s,units
v,fibonacci,4,n,2.500000,2.523400,2.546700,s
`},
	} {
		var buf strings.Builder
		if err := WriteCSV(&buf, rs, test.table); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(test.want, buf.String()); diff != "" {
			t.Errorf("%s CSV (-want +got):\n%s", test.table, diff)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf strings.Builder
	if err := WriteJSON(&buf, testResultSet()); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(buf.String()), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	want := map[string]any{
		"top_level": map[string]any{
			"v:fibonacci:4": map[string]any{
				"decode":     map[string]any{"lo": 0.1, "mid": 0.1, "hi": 0.1},
				"trace":      map[string]any{"lo": 0.2, "mid": 0.2, "hi": 0.2},
				"preprocess": map[string]any{"lo": 1.0, "mid": 1.0, "hi": 1.0},
				"prove":      map[string]any{"lo": 0.5, "mid": 0.6, "hi": 0.7},
				"verify":     map[string]any{"lo": 0.05, "mid": 0.05, "hi": 0.05},
			},
		},
		"subphases": map[string]any{
			"v:fibonacci:4": map[string]any{
				"prove": map[string]any{
					"openings": map[string]any{"lo": 0.25, "mid": 0.5, "hi": 0.75},
				},
			},
		},
		"proof_sizes": map[string]any{
			"v:fibonacci:4": map[string]any{
				"commitments": map[string]any{"lo": 0.015, "mid": 0.015, "hi": 0.015},
				"proof":       map[string]any{"lo": 0.108, "mid": 0.108, "hi": 0.108},
				"total":       map[string]any{"lo": 0.123, "mid": 0.123, "hi": 0.123},
			},
		},
		"estimates": map[string]any{
			"v:fibonacci:4": map[string]any{"lo": 2.5, "mid": 2.5234, "hi": 2.5467},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JSON (-want +got):\n%s", diff)
	}
}

func TestWriteText(t *testing.T) {
	var buf strings.Builder
	if err := WriteText(&buf, testResultSet()); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{
		"top-level:\n",
		"variant  benchmark  input  metric",
		"v        fibonacci  n=4    prove       600.0ms  500.0ms  700.0ms  2\n",
		"\nproof sizes:\n",
		"\nestimates:\n",
		"v        fibonacci  n=4    2.523s  2.500s  2.547s\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("text output missing %q:\n%s", want, got)
		}
	}
}

func writeLog(t *testing.T, dir, name, data string) granfmt.Source {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o666); err != nil {
		t.Fatal(err)
	}
	return granfmt.Source{Path: path, Variant: "v", Benchmark: strings.TrimSuffix(name, ".txt")}
}

const fibLog = `Benchmarking 4th fibonacci number
Benchmarking 4th fibonacci number: Collecting 10 samples
[prove] openings=0.25s
[bench] decode=0.1s trace=0.2s preprocess=1s prove=0.5s verify=0.05s
[prove] openings=oops
[bench] decode=0.1s trace=0.2s preprocess=1s prove=0.7s verify=0.05s
Benchmarking 4th fibonacci number: Analyzing
4th fibonacci number    time:   [2.5 s 2.6 s 2.7 s]
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	srcs := []granfmt.Source{
		writeLog(t, dir, "fibonacci.txt", fibLog),
		writeLog(t, dir, "collatz.txt", "Gnuplot not found\n"),
		writeLog(t, dir, "fibonacci2.txt", strings.Replace(fibLog, "prove=0.5s", "prove=0.9s", 1)),
	}
	for _, parallel := range []int{0, 1, 2} {
		agg, reports, err := Load(context.Background(), srcs, parallel)
		if err != nil {
			t.Fatal(err)
		}
		if agg.Samples() != 4 {
			t.Errorf("parallel=%d: Samples() = %d, want 4", parallel, agg.Samples())
		}
		prove := agg.Reduce().TopLevel[PhaseKey{fib4, "prove"}]
		if want := (Summary{Low: 0.5, Median: 0.7, High: 0.9, N: 4}); prove != want {
			t.Errorf("parallel=%d: prove = %+v, want %+v", parallel, prove, want)
		}
		if len(reports) != 3 {
			t.Fatalf("got %d reports, want 3", len(reports))
		}
		if r := reports[0]; r.Source != srcs[0] || r.Samples != 2 || r.Estimates != 1 || len(r.SyntaxErrors) != 1 {
			t.Errorf("report 0 = %+v", r)
		}
		warnings := Warnings(reports)
		if want := []string{srcs[1].Path + ": no collatz samples found"}; !cmp.Equal(want, warnings) {
			t.Errorf("Warnings = %q, want %q", warnings, want)
		}
	}
}

func TestLoadLongLine(t *testing.T) {
	// An overlong line is reported, not fatal.
	dir := t.TempDir()
	data := strings.Replace(fibLog, "[prove] openings=oops\n", strings.Repeat("x", 2<<20)+"\n", 1)
	srcs := []granfmt.Source{writeLog(t, dir, "fibonacci.txt", data)}
	agg, reports, err := Load(context.Background(), srcs, 1)
	if err != nil {
		t.Fatal(err)
	}
	if agg.Samples() != 2 {
		t.Errorf("Samples() = %d, want 2", agg.Samples())
	}
	if n := len(reports[0].SyntaxErrors); n != 1 {
		t.Errorf("got %d syntax errors, want 1", n)
	}
}

func TestLoadMissing(t *testing.T) {
	srcs := []granfmt.Source{{Path: filepath.Join(t.TempDir(), "missing.txt"), Variant: "v"}}
	if _, _, err := Load(context.Background(), srcs, 1); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want not-exist", err)
	}
}

func TestLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	srcs := []granfmt.Source{writeLog(t, dir, "fibonacci.txt", fibLog)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Load(ctx, srcs, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Load with cancelled context: error = %v, want %v", err, context.Canceled)
	}
}
