// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package granfmt

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// maxLineLen bounds the length of a single log line. Longer lines are
// skipped and reported as syntax errors.
const maxLineLen = 1 << 20

// A parseState is the position of a Reader within the log's implicit
// protocol.
type parseState int

const (
	// stateNoBench: no workload boundary seen yet. Data lines are
	// inert.
	stateNoBench parseState = iota
	// stateBench: inside a workload, outside any sampling window.
	// Data lines are warm-up noise.
	stateBench
	// stateCollecting: inside a sampling window. Data lines
	// accumulate into the current sample.
	stateCollecting
)

func (s parseState) String() string {
	switch s {
	case stateNoBench:
		return "nobench"
	case stateBench:
		return "bench"
	case stateCollecting:
		return "collecting"
	}
	return fmt.Sprintf("parseState(%d)", int(s))
}

// A Reader reads granular benchmark logs.
//
// Its API is modeled on bufio.Scanner. Unlike benchmark format
// readers that reuse their results, every Record a Reader returns is
// freshly allocated and may be retained by the caller.
//
// To construct a new Reader, either call NewReader, or call Reset on
// a zeroed Reader.
type Reader struct {
	br  *bufio.Reader
	buf []byte // current line
	err error  // current I/O error

	// q is the queue of records to return before processing the next
	// input line. qPos is the index of the current record in q.
	q    []Record
	qPos int

	fileName string
	variant  string
	line     int

	state   parseState
	key     Key // valid unless state == stateNoBench
	scratch scratch

	// pending is a Criterion label waiting for its "time:" line.
	pending *Boundary
}

var noResult = &SyntaxError{"", 0, "Reader.Scan has not been called"}

// NewReader constructs a reader to parse granular logs from r.
// Every sample read is attributed to variant. fileName is used in
// record positions and error messages; it is purely diagnostic.
func NewReader(r io.Reader, fileName, variant string) *Reader {
	reader := new(Reader)
	reader.Reset(r, fileName, variant)
	return reader
}

// Reset resets the reader to begin reading from a new input with a
// new variant. Any sample in progress is discarded.
func (r *Reader) Reset(ior io.Reader, fileName, variant string) {
	if r.br == nil {
		r.br = bufio.NewReader(ior)
	} else {
		r.br.Reset(ior)
	}
	if fileName == "" {
		fileName = "<unknown>"
	}
	r.err = nil
	r.qPos = 0
	r.q = r.q[:0]
	r.fileName = fileName
	r.variant = variant
	r.line = 0
	r.state = stateNoBench
	r.key = Key{}
	r.scratch.reset()
	r.pending = nil
}

// Scan advances the reader to the next record and reports whether a
// record was read. The caller should use the Result method to get
// the record. If Scan reaches EOF or an I/O error occurs, it returns
// false, in which case the caller should use the Err method to check
// for errors.
//
// A sample still in progress at EOF is discarded.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}

	if r.qPos+1 < len(r.q) {
		r.qPos++
		return true
	}
	r.qPos = 0
	r.q = r.q[:0]

	for len(r.q) == 0 {
		line, long, err := r.readLine()
		if err != nil {
			if err != io.EOF {
				r.err = fmt.Errorf("%s:%d: %w", r.fileName, r.line+1, err)
			}
			break
		}
		r.line++
		if long {
			r.q = append(r.q, &SyntaxError{r.fileName, r.line, fmt.Sprintf("line longer than %d bytes", maxLineLen)})
			continue
		}
		r.step(Classify(line))
	}

	if len(r.q) > 0 {
		return true
	}

	// EOF. Partial data is worse than missing data.
	r.scratch.reset()
	return false
}

// readLine reads the next line, without its line terminator. A line
// longer than maxLineLen is consumed to its end and reported with
// long set; its text is not returned. At the end of the input,
// readLine returns io.EOF.
func (r *Reader) readLine() (line []byte, long bool, err error) {
	r.buf = r.buf[:0]
	for {
		frag, err := r.br.ReadSlice('\n')
		if !long {
			r.buf = append(r.buf, frag...)
			if len(r.buf) > maxLineLen+len("\r\n") {
				long = true
				r.buf = r.buf[:0]
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF && (len(r.buf) > 0 || long) {
			// Final line without a newline.
			err = nil
		}
		if err != nil {
			return nil, false, err
		}
		line = bytes.TrimSuffix(r.buf, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) > maxLineLen {
			long = true
		}
		return line, long, nil
	}
}

// Result returns the record that was just read by Scan. This is
// either a *Sample, an *Estimate, or a *SyntaxError.
//
// Syntax errors are non-fatal, so the caller can continue to call
// Scan.
func (r *Reader) Result() Record {
	if r.qPos >= len(r.q) {
		// This should only happen if Scan has never been called.
		return noResult
	}
	return r.q[r.qPos]
}

// Err returns the first non-EOF I/O error that was encountered by
// the Reader.
func (r *Reader) Err() error {
	return r.err
}

// step applies the transition for one classified line.
func (r *Reader) step(l Line) {
	if _, ok := l.(*TimeOnly); !ok && l != nil {
		// A label pairs only with an immediately following "time:" line.
		r.pending = nil
	}
	switch l := l.(type) {
	case *Boundary:
		r.onBoundary(l)
	case *Collecting:
		r.onCollecting(l)
	case *Analyzing:
		r.onAnalyzing()
	case *Section:
		r.onSection(l)
	case *Size:
		r.onSize(l)
	case *VerifyStep:
		r.onVerifyStep(l)
	case *Finalize:
		r.onFinalize(l)
	case *EstimateLine:
		r.emitEstimate(l.Boundary, l.Lo, l.Mid, l.Hi)
	case *Label:
		b := l.Boundary
		r.pending = &b
	case *TimeOnly:
		if r.pending != nil {
			r.emitEstimate(*r.pending, l.Lo, l.Mid, l.Hi)
			r.pending = nil
		}
	case *Timing, nil:
		// Ignore.
	}
}

func (r *Reader) keyFor(b *Boundary) Key {
	return Key{Variant: r.variant, Benchmark: b.Benchmark, Input: b.Input, Metric: b.Metric}
}

// onBoundary starts a fresh workload context, even in the middle of a
// sampling window. A boundary with a malformed input ends the current
// context without starting a new one, so that the samples that follow
// are not credited to the previous workload.
func (r *Reader) onBoundary(b *Boundary) {
	r.scratch.reset()
	if b.Malformed != "" {
		r.key = Key{}
		r.state = stateNoBench
		r.q = append(r.q, &SyntaxError{r.fileName, r.line, fmt.Sprintf("malformed input %q for %s", b.Malformed, b.Benchmark)})
		return
	}
	r.key = r.keyFor(b)
	r.state = stateBench
}

// onCollecting opens a sampling window. If no boundary has been seen,
// it falls back to the workload named on the marker itself.
func (r *Reader) onCollecting(c *Collecting) {
	if r.state == stateNoBench && c.Boundary != nil && c.Boundary.Malformed == "" {
		r.key = r.keyFor(c.Boundary)
		r.state = stateBench
	}
	if r.state != stateNoBench {
		r.state = stateCollecting
	}
	r.scratch.reset()
}

func (r *Reader) onAnalyzing() {
	if r.state == stateCollecting {
		r.state = stateBench
	}
}

func (r *Reader) onSection(s *Section) {
	if r.state != stateCollecting {
		return
	}
	r.malformed(s.Malformed)
	r.scratch.setGroup(s.Group, s.Values)
}

func (r *Reader) onSize(s *Size) {
	if r.state != stateCollecting {
		return
	}
	r.malformed(s.Malformed)
	r.scratch.setSizes(s.Values)
}

func (r *Reader) onVerifyStep(v *VerifyStep) {
	if r.state != stateCollecting {
		return
	}
	r.malformed(v.Malformed)
	for name, val := range v.Values {
		r.scratch.addStep("verify", name, val)
	}
}

// onFinalize emits one sample. The sampling window stays open: a
// window normally contains many samples.
func (r *Reader) onFinalize(f *Finalize) {
	if r.state != stateCollecting {
		return
	}
	r.malformed(f.Malformed)
	sample := r.scratch.finish(r.key, f.Values)
	sample.fileName, sample.line = r.fileName, r.line
	r.q = append(r.q, sample)
}

func (r *Reader) emitEstimate(b Boundary, lo, mid, hi float64) {
	r.q = append(r.q, &Estimate{
		Key:      r.keyFor(&b),
		Lo:       lo,
		Mid:      mid,
		Hi:       hi,
		fileName: r.fileName,
		line:     r.line,
	})
}

// malformed queues a SyntaxError for each malformed token.
func (r *Reader) malformed(toks []string) {
	for _, tok := range toks {
		r.q = append(r.q, &SyntaxError{r.fileName, r.line, fmt.Sprintf("malformed value in %q", tok)})
	}
}
