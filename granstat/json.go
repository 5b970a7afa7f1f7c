// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package granstat

import (
	"encoding/json"
	"io"
)

// JSONFileName is the conventional file name of the JSON summary.
const JSONFileName = "granular_summary.json"

type jsonStat struct {
	Lo  float64 `json:"lo"`
	Mid float64 `json:"mid"`
	Hi  float64 `json:"hi"`
}

type jsonSummary struct {
	TopLevel   map[string]map[string]jsonStat            `json:"top_level"`
	Subphases  map[string]map[string]map[string]jsonStat `json:"subphases"`
	ProofSizes map[string]map[string]jsonStat            `json:"proof_sizes"`
	Estimates  map[string]jsonStat                       `json:"estimates,omitempty"`
}

func toJSONStat(s Summary) jsonStat {
	return jsonStat{Lo: s.Low, Mid: s.Median, Hi: s.High}
}

// WriteJSON writes a compact summary of rs to w. Each table is keyed
// by "variant:benchmark:input", then by metric name.
func WriteJSON(w io.Writer, rs *ResultSet) error {
	js := jsonSummary{
		TopLevel:   make(map[string]map[string]jsonStat),
		Subphases:  make(map[string]map[string]map[string]jsonStat),
		ProofSizes: make(map[string]map[string]jsonStat),
	}
	for k, s := range rs.TopLevel {
		key := k.Key.String()
		if js.TopLevel[key] == nil {
			js.TopLevel[key] = make(map[string]jsonStat)
		}
		js.TopLevel[key][k.Phase] = toJSONStat(s)
	}
	for k, s := range rs.Subphases {
		key := k.Key.String()
		groups := js.Subphases[key]
		if groups == nil {
			groups = make(map[string]map[string]jsonStat)
			js.Subphases[key] = groups
		}
		if groups[k.Group] == nil {
			groups[k.Group] = make(map[string]jsonStat)
		}
		groups[k.Group][k.Name] = toJSONStat(s)
	}
	for k, s := range rs.Sizes {
		key := k.Key.String()
		if js.ProofSizes[key] == nil {
			js.ProofSizes[key] = make(map[string]jsonStat)
		}
		js.ProofSizes[key][k.Component] = toJSONStat(s)
	}
	if len(rs.Estimates) > 0 {
		js.Estimates = make(map[string]jsonStat)
		for k, s := range rs.Estimates {
			js.Estimates[k.String()] = toJSONStat(s)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(js)
}
