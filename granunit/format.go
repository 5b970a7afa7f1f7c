// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package granunit

import (
	"math"
	"strconv"
)

type prefix struct {
	factor float64
	unit   string
}

var timePrefixes = []prefix{
	{1, "s"},
	{1e-3, "ms"},
	{1e-6, "µs"},
	{1e-9, "ns"},
}

var sizePrefixes = []prefix{
	{1e3, "GB"},
	{1, "MB"},
	{1e-3, "KB"},
	{1e-6, "B"},
}

// Format formats val, given in c's base unit, for human consumption.
// It picks the largest unit in which val is at least 1 and prints
// four significant digits, for example "2.585s", "183.0ms" or
// "0.123MB" -> "123.0KB".
func Format(val float64, c Class) string {
	prefixes := timePrefixes
	if c == Size {
		prefixes = sizePrefixes
	}
	if val == 0 || math.IsInf(val, 0) || math.IsNaN(val) {
		return strconv.FormatFloat(val, 'f', -1, 64) + c.Base()
	}
	p := prefixes[len(prefixes)-1]
	for _, cand := range prefixes {
		if math.Abs(val) >= cand.factor {
			p = cand
			break
		}
	}
	scaled := val / p.factor
	prec := 0
	switch a := math.Abs(scaled); {
	case a < 10:
		prec = 3
	case a < 100:
		prec = 2
	case a < 1000:
		prec = 1
	}
	return strconv.FormatFloat(scaled, 'f', prec, 64) + p.unit
}
