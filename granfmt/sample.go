// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package granfmt reads granular benchmark logs.
//
// A granular log is the human-oriented output of a benchmark harness
// that runs each workload at several input sizes and prints, for
// every measured sample, a handful of phase timing lines followed by
// an authoritative summary line:
//
//	Benchmarking 4th fibonacci number
//	Benchmarking 4th fibonacci number: Warming up for 5.0000 s
//	Benchmarking 4th fibonacci number: Collecting 10 samples in estimated 30.1 s (20 iterations)
//	[preprocess] shapes=0.000s il_pp=0.009s setup=2.585s
//	[prove] preamble=0.000s il_wit=0.003s openings=0.183s
//	[timing] decode=0.233s trace=0.065s preprocess=2.594s prove=0.617s
//	[proof-size] commitments=0.015MB proof=0.108MB total=0.123MB
//	[verify] bytecode=0.001s
//	[verify] instruction_lookups=0.014s
//	[bench] decode=0.233s trace=0.065s preprocess=2.594s prove=0.617s verify=0.054s
//	...
//	Benchmarking 4th fibonacci number: Analyzing
//	4th fibonacci number    time:   [2.5012 s 2.5234 s 2.5467 s]
//
// Reader runs a single forward pass over such a log and produces one
// Sample per "[bench]" line seen inside a "Collecting" window. The
// reader never fails on malformed input; it degrades to producing
// fewer samples, reporting bad numeric tokens as non-fatal
// SyntaxError records.
//
// Samples are attributed to a variant (an experiment configuration)
// supplied by the caller. The log text itself carries no variant.
package granfmt

import (
	"fmt"
	"strconv"
)

// An InputMetric is the unit in which a benchmark's input parameter
// is expressed.
type InputMetric int

const (
	// Count inputs are ordinal quantities, as in "4th fibonacci number".
	Count InputMetric = iota
	// Cycles inputs are chain lengths, as in "32 sha2 chain cycles".
	Cycles
)

func (m InputMetric) String() string {
	switch m {
	case Count:
		return "n"
	case Cycles:
		return "cycles"
	}
	return "InputMetric(" + strconv.Itoa(int(m)) + ")"
}

// ParseInputMetric is the inverse of InputMetric.String.
func ParseInputMetric(s string) (InputMetric, error) {
	switch s {
	case "n":
		return Count, nil
	case "cycles":
		return Cycles, nil
	}
	return 0, fmt.Errorf("unknown input metric %q", s)
}

// A Key identifies one scaling point of one workload under one
// experiment configuration.
type Key struct {
	Variant   string
	Benchmark string
	Input     int
	Metric    InputMetric
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%d", k.Variant, k.Benchmark, k.Input)
}

// Less orders keys by variant, benchmark, input, then metric.
func (k Key) Less(o Key) bool {
	if k.Variant != o.Variant {
		return k.Variant < o.Variant
	}
	if k.Benchmark != o.Benchmark {
		return k.Benchmark < o.Benchmark
	}
	if k.Input != o.Input {
		return k.Input < o.Input
	}
	return k.Metric < o.Metric
}

// Phases lists the top-level phases reported by a "[bench]" line, in
// pipeline order.
var Phases = []string{"decode", "trace", "preprocess", "prove", "verify"}

// Groups lists the subphase groups, in pipeline order.
var Groups = []string{"preprocess", "prove", "verify"}

// Components lists the proof-size components.
var Components = []string{"commitments", "proof", "total"}

// A Sample is one completed measurement of a Key: a single pass
// through preprocess, prove and verify.
//
// A Sample returned by Reader is owned by the caller and is never
// modified by the Reader afterwards.
type Sample struct {
	Key Key

	// TopLevel maps phase name to its duration in seconds.
	TopLevel map[string]float64

	// Subphases maps group name to sub-step name to duration in
	// seconds. Groups with no sub-steps are omitted.
	Subphases map[string]map[string]float64

	// Sizes maps proof-size component name to megabytes.
	Sizes map[string]float64

	fileName string
	line     int
}

// Pos returns the file name and line number of the "[bench]" line
// that completed this sample.
func (s *Sample) Pos() (fileName string, line int) {
	return s.fileName, s.line
}

// An Estimate is the point estimate a Criterion-style harness prints
// after analyzing a benchmark, such as
//
//	4th fibonacci number    time:   [2.5012 s 2.5234 s 2.5467 s]
//
// All values are in seconds.
type Estimate struct {
	Key         Key
	Lo, Mid, Hi float64

	fileName string
	line     int
}

func (e *Estimate) Pos() (fileName string, line int) {
	return e.fileName, e.line
}

// A SyntaxError reports a malformed token on a recognized line. It is
// never fatal: the token is dropped and the rest of the line is used.
type SyntaxError struct {
	FileName string
	Line     int
	Msg      string
}

func (e *SyntaxError) Pos() (fileName string, line int) {
	return e.FileName, e.Line
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
}

// A Record is a single record read from a granular log. It is a
// *Sample, an *Estimate, or a *SyntaxError.
type Record interface {
	// Pos returns the position of this record as a file name and a
	// 1-based line number within that file.
	Pos() (fileName string, line int)
}

var _ Record = (*Sample)(nil)
var _ Record = (*Estimate)(nil)
var _ Record = (*SyntaxError)(nil)
