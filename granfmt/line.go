// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package granfmt

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/zkvm-perf/granular/granunit"
)

// A Line is the classified form of one log line. It is one of
// *Boundary, *Collecting, *Analyzing, *Section, *Size, *VerifyStep,
// *Finalize, *Timing, *EstimateLine, *Label or *TimeOnly.
type Line interface {
	line()
}

// A Boundary announces a new workload instance.
type Boundary struct {
	Benchmark string
	Input     int
	Metric    InputMetric

	// Malformed is the input value text if it did not parse, in which
	// case Input is zero. The line still ends the previous workload.
	Malformed string
}

// A Collecting line opens a repeated-sampling window.
type Collecting struct {
	// Samples is the announced number of samples, or 0 if the count
	// did not parse.
	Samples int

	// Boundary is the workload instance embedded in the marker text,
	// or nil if it could not be recognized.
	Boundary *Boundary
}

// An Analyzing line closes a sampling window.
type Analyzing struct{}

// Tokens holds the key=value tokens of a data line.
type Tokens struct {
	// Values maps key to value in base units.
	Values map[string]float64

	// Malformed lists key=value tokens whose value did not parse.
	Malformed []string
}

// A Section line reports named sub-step timings of one group, either
// "preprocess" or "prove".
type Section struct {
	Group string
	Tokens
}

// A Size line reports proof-size components in megabytes.
type Size struct {
	Tokens
}

// A VerifyStep line reports exactly one verification sub-step.
type VerifyStep struct {
	Tokens
}

// A Finalize line carries the authoritative top-level timings of one
// completed sample.
type Finalize struct {
	Tokens
}

// A Timing line is a preliminary top-level timing line. It is
// superseded by the Finalize line and carries no data of its own.
type Timing struct{}

// An EstimateLine is a one-line Criterion summary: a workload label
// followed by "time: [lo mid hi]".
type EstimateLine struct {
	Boundary    Boundary
	Lo, Mid, Hi float64
}

// A Label line is a bare workload label. Criterion prints it when the
// label is too long to share a line with its "time:" summary.
type Label struct {
	Boundary Boundary
}

// A TimeOnly line is the "time: [lo mid hi]" half of a two-line
// Criterion summary.
type TimeOnly struct {
	Lo, Mid, Hi float64
}

func (*Boundary) line()     {}
func (*Collecting) line()   {}
func (*Analyzing) line()    {}
func (*Section) line()      {}
func (*Size) line()         {}
func (*VerifyStep) line()   {}
func (*Finalize) line()     {}
func (*Timing) line()       {}
func (*EstimateLine) line() {}
func (*Label) line()        {}
func (*TimeOnly) line()     {}

const (
	countLabel  = `(\d+)(?:th|st|nd|rd)\s+(fibonacci|collatz)\s+number`
	cyclesLabel = `(\d+)\s+(sha2|sha3)\s+chain\s+cycles`
)

var (
	countBoundaryRE  = regexp.MustCompile(`^Benchmarking\s+` + countLabel)
	cyclesBoundaryRE = regexp.MustCompile(`^Benchmarking\s+` + cyclesLabel)
	collectingRE     = regexp.MustCompile(`^Benchmarking .+: Collecting\s+(\d+) samples`)
	analyzingRE      = regexp.MustCompile(`^.+: Analyzing$`)

	countEstimateRE  = regexp.MustCompile(`^` + countLabel + `\s+time:\s+\[(.*)\]`)
	cyclesEstimateRE = regexp.MustCompile(`^` + cyclesLabel + `\s+time:\s+\[(.*)\]`)
	countLabelRE     = regexp.MustCompile(`^` + countLabel + `$`)
	cyclesLabelRE    = regexp.MustCompile(`^` + cyclesLabel + `$`)
	timeOnlyRE       = regexp.MustCompile(`^time:\s+\[(.*)\]`)
)

// Classify reports the shape of line, ignoring surrounding
// whitespace. It returns nil if line has no recognized shape.
//
// The sampling markers are tested before the boundary grammars,
// since a boundary grammar also matches the start of every marker
// line for the same workload.
func Classify(line []byte) Line {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	if line[0] == '[' {
		return classifyTagged(line)
	}
	s := string(line)
	if m := collectingRE.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			// Out of range. The marker still opens the window.
			n = 0
		}
		return &Collecting{Samples: n, Boundary: parseBoundary(s)}
	}
	if analyzingRE.MatchString(s) {
		return &Analyzing{}
	}
	if b := parseBoundary(s); b != nil {
		return b
	}
	return classifyEstimate(s)
}

// parseBoundary parses the "Benchmarking <label>" prefix of s. An
// input value that does not parse is kept in Malformed.
func parseBoundary(s string) *Boundary {
	var b *Boundary
	var input string
	if m := countBoundaryRE.FindStringSubmatch(s); m != nil {
		input = m[1]
		b = &Boundary{Benchmark: m[2], Metric: Count}
	} else if m := cyclesBoundaryRE.FindStringSubmatch(s); m != nil {
		input = m[1]
		b = &Boundary{Benchmark: m[2] + "_chain", Metric: Cycles}
	} else {
		return nil
	}
	if nb := newBoundary(input, b.Benchmark, b.Metric); nb != nil {
		return nb
	}
	b.Malformed = input
	return b
}

func newBoundary(input, name string, metric InputMetric) *Boundary {
	n, err := strconv.Atoi(input)
	if err != nil {
		// Out of range.
		return nil
	}
	return &Boundary{Benchmark: name, Input: n, Metric: metric}
}

func classifyEstimate(s string) Line {
	if m := countEstimateRE.FindStringSubmatch(s); m != nil {
		return newEstimateLine(newBoundary(m[1], m[2], Count), m[3])
	}
	if m := cyclesEstimateRE.FindStringSubmatch(s); m != nil {
		return newEstimateLine(newBoundary(m[1], m[2]+"_chain", Cycles), m[3])
	}
	if m := countLabelRE.FindStringSubmatch(s); m != nil {
		if b := newBoundary(m[1], m[2], Count); b != nil {
			return &Label{*b}
		}
		return nil
	}
	if m := cyclesLabelRE.FindStringSubmatch(s); m != nil {
		if b := newBoundary(m[1], m[2]+"_chain", Cycles); b != nil {
			return &Label{*b}
		}
		return nil
	}
	if m := timeOnlyRE.FindStringSubmatch(s); m != nil {
		if lo, mid, hi, ok := parseTriple(m[1]); ok {
			return &TimeOnly{lo, mid, hi}
		}
	}
	return nil
}

func newEstimateLine(b *Boundary, triple string) Line {
	if b == nil {
		return nil
	}
	lo, mid, hi, ok := parseTriple(triple)
	if !ok {
		return nil
	}
	return &EstimateLine{Boundary: *b, Lo: lo, Mid: mid, Hi: hi}
}

// parseTriple parses the inside of a Criterion "[lo mid hi]" interval.
// Each value may be written with its unit attached ("2.5s") or as a
// separate field ("2.5 s").
func parseTriple(s string) (lo, mid, hi float64, ok bool) {
	fields := strings.Fields(s)
	var toks []string
	switch len(fields) {
	case 3:
		toks = fields
	case 6:
		toks = []string{fields[0] + fields[1], fields[2] + fields[3], fields[4] + fields[5]}
	default:
		return 0, 0, 0, false
	}
	var vals [3]float64
	for i, tok := range toks {
		v, err := granunit.ParseDuration(tok)
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], true
}

// classifyTagged classifies a line that begins with a "[tag]".
func classifyTagged(line []byte) Line {
	end := bytes.IndexByte(line, ']')
	if end < 0 {
		return nil
	}
	tag, rest := string(line[1:end]), line[end+1:]
	if len(rest) > 0 && rest[0] != ' ' && rest[0] != '\t' {
		// "[prove]x=1s" is not a tagged line.
		return nil
	}
	fields := strings.Fields(string(rest))
	switch tag {
	case "preprocess", "prove":
		if len(fields) == 0 {
			return nil
		}
		return &Section{Group: tag, Tokens: parseTokens(fields, granunit.Time, nil)}
	case "proof-size":
		if !hasKeys(fields, Components) {
			return nil
		}
		return &Size{parseTokens(fields, granunit.Size, Components)}
	case "verify":
		if len(fields) != 1 {
			return nil
		}
		key, _, ok := strings.Cut(fields[0], "=")
		if !ok || !isStepName(key) {
			return nil
		}
		return &VerifyStep{parseTokens(fields, granunit.Time, nil)}
	case "bench":
		if !hasKeys(fields, Phases) {
			return nil
		}
		return &Finalize{parseTokens(fields, granunit.Time, Phases)}
	case "timing":
		return &Timing{}
	}
	return nil
}

// parseTokens parses key=value fields as values of class c. If keep
// is non-nil, keys not in keep are ignored. Fields without an "=" are
// skipped silently; fields whose value is malformed are recorded in
// Malformed.
func parseTokens(fields []string, c granunit.Class, keep []string) Tokens {
	toks := Tokens{Values: make(map[string]float64, len(fields))}
	for _, f := range fields {
		key, val, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			continue
		}
		if keep != nil && !contains(keep, key) {
			continue
		}
		v, err := granunit.Parse(val, c)
		if err != nil {
			toks.Malformed = append(toks.Malformed, f)
			continue
		}
		toks.Values[key] = v
	}
	return toks
}

// hasKeys reports whether every key in keys appears as the key of
// some key=value field.
func hasKeys(fields []string, keys []string) bool {
	for _, k := range keys {
		found := false
		for _, f := range fields {
			if key, _, ok := strings.Cut(f, "="); ok && key == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func isStepName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z') {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
