// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package granfmt

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	fib4 := &Boundary{"fibonacci", 4, Count, ""}
	for _, test := range []struct {
		line string
		want Line
	}{
		// Boundaries.
		{"Benchmarking 4th fibonacci number", fib4},
		{"Benchmarking 1st collatz number", &Boundary{"collatz", 1, Count, ""}},
		{"Benchmarking 22nd collatz number", &Boundary{"collatz", 22, Count, ""}},
		{"Benchmarking 3rd fibonacci number", &Boundary{"fibonacci", 3, Count, ""}},
		{"Benchmarking 32 sha2 chain cycles", &Boundary{"sha2_chain", 32, Cycles, ""}},
		{"Benchmarking 8 sha3 chain cycles", &Boundary{"sha3_chain", 8, Cycles, ""}},
		{"  Benchmarking 4th fibonacci number  ", fib4},
		{"Benchmarking 4th fibonacci number: Warming up for 5.0000 s", fib4},
		{"Benchmarking 4th lucas number", nil},
		{"Benchmarking 99999999999999999999999th fibonacci number",
			&Boundary{Benchmark: "fibonacci", Metric: Count, Malformed: "99999999999999999999999"}},
		{"Benchmarking 99999999999999999999999 sha3 chain cycles",
			&Boundary{Benchmark: "sha3_chain", Metric: Cycles, Malformed: "99999999999999999999999"}},

		// Sampling markers.
		{"Benchmarking 4th fibonacci number: Collecting 10 samples in estimated 30.1 s (20 iterations)",
			&Collecting{10, fib4}},
		{"Benchmarking 32 sha2 chain cycles: Collecting 10 samples",
			&Collecting{10, &Boundary{"sha2_chain", 32, Cycles, ""}}},
		{"Benchmarking something else: Collecting 100 samples", &Collecting{100, nil}},
		{"Benchmarking 4th fibonacci number: Collecting 99999999999999999999 samples", &Collecting{0, fib4}},
		{"Benchmarking 4th fibonacci number: Analyzing", &Analyzing{}},
		{"anything at all: Analyzing", &Analyzing{}},
		{"Benchmarking 4th fibonacci number: Analyzing later", fib4},

		// Sections.
		{"[preprocess] shapes=0.000s il_pp=0.009s setup=2.585s", &Section{"preprocess",
			Tokens{Values: map[string]float64{"shapes": 0, "il_pp": 0.009, "setup": 2.585}}}},
		{"[prove] openings=0.183s junk =1s x=oops", &Section{"prove",
			Tokens{Values: map[string]float64{"openings": 0.183}, Malformed: []string{"x=oops"}}}},
		{"[prove] openings=250ms", &Section{"prove", Tokens{Values: map[string]float64{"openings": 0.25}}}},
		{"[prove]", nil},
		{"[prove]openings=0.183s", nil},
		{"[other] a=1s", nil},
		{"[prove openings=1s", nil},

		// Sizes.
		{"[proof-size] commitments=0.015MB proof=0.108MB total=0.123MB", &Size{
			Tokens{Values: map[string]float64{"commitments": 0.015, "proof": 0.108, "total": 0.123}}}},
		{"[proof-size] commitments=0.015MB proof=bad total=0.123MB extra=1MB", &Size{
			Tokens{Values: map[string]float64{"commitments": 0.015, "total": 0.123}, Malformed: []string{"proof=bad"}}}},
		{"[proof-size] commitments=0.015MB total=0.123MB", nil},

		// Verification steps.
		{"[verify] bytecode=0.001s", &VerifyStep{Tokens{Values: map[string]float64{"bytecode": 0.001}}}},
		{"[verify] instruction_lookups=x", &VerifyStep{Tokens{Values: map[string]float64{}, Malformed: []string{"instruction_lookups=x"}}}},
		{"[verify] a=1s b=2s", nil},
		{"[verify] step-2=1s", nil},
		{"[verify] nokey", nil},

		// Finalize and timing.
		{"[bench] decode=0.233s trace=0.065s preprocess=2.594s prove=0.617s verify=0.054s", &Finalize{
			Tokens{Values: map[string]float64{"decode": 0.233, "trace": 0.065, "preprocess": 2.594, "prove": 0.617, "verify": 0.054}}}},
		{"[bench] decode=0.233s trace=? preprocess=2.594s prove=0.617s verify=0.054s other=1s", &Finalize{
			Tokens{Values: map[string]float64{"decode": 0.233, "preprocess": 2.594, "prove": 0.617, "verify": 0.054}, Malformed: []string{"trace=?"}}}},
		{"[bench] decode=0.233s trace=0.065s preprocess=2.594s prove=0.617s", nil},
		{"[timing] decode=0.233s trace=0.065s preprocess=2.594s prove=0.617s", &Timing{}},

		// Criterion summaries.
		{"4th fibonacci number    time:   [2.5012 s 2.5234 s 2.5467 s]",
			&EstimateLine{Boundary{"fibonacci", 4, Count, ""}, 2.5012, 2.5234, 2.5467}},
		{"32 sha2 chain cycles time: [1.5s 2s 2.5s]",
			&EstimateLine{Boundary{"sha2_chain", 32, Cycles, ""}, 1.5, 2, 2.5}},
		{"4th fibonacci number time: [1 s 2 s]", nil},
		{"4th fibonacci number", &Label{Boundary{"fibonacci", 4, Count, ""}}},
		{"   time:   [500.00 ms 750.00 ms 1.0000 s]", &TimeOnly{0.5, 0.75, 1}},
		{"time: [a s b s c s]", nil},

		// Noise.
		{"", nil},
		{"   ", nil},
		{"Gnuplot not found, using plotters backend", nil},
		{"thrpt: [1 2 3]", nil},
	} {
		got := Classify([]byte(test.line))
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("Classify(%q):\n got %#v\nwant %#v", test.line, got, test.want)
		}
	}
}
