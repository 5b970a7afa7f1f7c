// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package granunit parses and formats the unit-suffixed numbers that
// appear in granular benchmark logs, such as "0.183s" or "0.015MB".
//
// Durations are normalized to seconds and sizes to megabytes, which
// are the base units used throughout the granstat tables.
package granunit

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// A Class specifies what a unit measures.
type Class int

const (
	// Time values are normalized to seconds.
	Time Class = iota
	// Size values are normalized to megabytes.
	Size
)

func (c Class) String() string {
	switch c {
	case Time:
		return "Time"
	case Size:
		return "Size"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// Base returns the base unit of class c, as written in output tables.
func (c Class) Base() string {
	if c == Size {
		return "MB"
	}
	return "s"
}

type suffix struct {
	name   string
	factor float64 // multiply to convert to the base unit
}

// Suffixes are listed longest first so that, for example, "ms" is
// tried before "s" and "MB" before "B".
var timeSuffixes = []suffix{
	{"ms", 1e-3},
	{"us", 1e-6},
	{"µs", 1e-6},
	{"ns", 1e-9},
	{"s", 1},
}

var sizeSuffixes = []suffix{
	{"KB", 1e-3},
	{"kB", 1e-3},
	{"MB", 1},
	{"GB", 1e3},
	{"B", 1e-6},
}

// A NumError records a failure to parse a unit-suffixed number.
type NumError struct {
	Token string
	Class Class
	Err   error
}

func (e *NumError) Error() string {
	return fmt.Sprintf("parsing %s value %q: %s", strings.ToLower(e.Class.String()), e.Token, e.Err)
}

func (e *NumError) Unwrap() error { return e.Err }

var (
	errSyntax = errors.New("invalid syntax")
	errRange  = errors.New("value out of range")
)

// Parse parses tok as a number in class c followed by an optional unit
// suffix, and returns the value in c's base unit. A bare number is
// taken to already be in the base unit.
func Parse(tok string, c Class) (float64, error) {
	suffixes := timeSuffixes
	if c == Size {
		suffixes = sizeSuffixes
	}
	num, factor := tok, 1.0
	for _, s := range suffixes {
		if strings.HasSuffix(tok, s.name) {
			num, factor = tok[:len(tok)-len(s.name)], s.factor
			break
		}
	}
	num = strings.TrimSpace(num)
	if num == "" || !isNumeric(num) {
		return 0, &NumError{tok, c, errSyntax}
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, &NumError{tok, c, errRange}
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, &NumError{tok, c, errRange}
	}
	return v * factor, nil
}

// ParseDuration is shorthand for Parse(tok, Time).
func ParseDuration(tok string) (float64, error) {
	return Parse(tok, Time)
}

// isNumeric reports whether s looks like a plain decimal number,
// optionally signed, with at most one decimal point and an optional
// exponent. This rejects forms strconv accepts but logs never
// contain, such as "inf", "0x1p3", or "1_000".
func isNumeric(s string) bool {
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	digits, dot := 0, false
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; {
		case ch >= '0' && ch <= '9':
			digits++
		case ch == '.' && !dot:
			dot = true
		case (ch == 'e' || ch == 'E') && digits > 0:
			exp := s[i+1:]
			if len(exp) > 0 && (exp[0] == '+' || exp[0] == '-') {
				exp = exp[1:]
			}
			if len(exp) == 0 {
				return false
			}
			for j := 0; j < len(exp); j++ {
				if exp[j] < '0' || exp[j] > '9' {
					return false
				}
			}
			return true
		default:
			return false
		}
	}
	return digits > 0
}
