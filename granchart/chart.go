// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package granchart draws bar charts of granular benchmark summaries.
package granchart

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/zkvm-perf/granular/granfmt"
	"github.com/zkvm-perf/granular/granstat"
)

// A Chart is a plot ready to be rendered.
type Chart struct {
	// Name is the file name of the chart, without extension.
	Name string

	Plot *plot.Plot
}

const (
	width  = 10 * vg.Inch
	height = 4 * vg.Inch
	dpi    = 150

	// maxSubphaseInputs caps the inputs shown in a subphase chart.
	maxSubphaseInputs = 8
)

var titles = map[string]string{
	"collatz":    "Collatz",
	"fibonacci":  "Fibonacci",
	"sha2_chain": "SHA2 Chain",
	"sha3_chain": "SHA3 Chain",
}

func title(variant, benchmark string) string {
	t, ok := titles[benchmark]
	if !ok {
		t = benchmark
	}
	return fmt.Sprintf("%s (%s)", t, variant)
}

var phaseColors = map[string]color.Color{
	"decode":      rgb(0x7f7f7f),
	"trace":       rgb(0x8c564b),
	"preprocess":  rgb(0x1f77b4),
	"prove":       rgb(0x2ca02c),
	"verify":      rgb(0xd62728),
	"commitments": rgb(0x17becf),
	"proof":       rgb(0xbcbd22),
}

// palette colors sub-steps, which have no fixed color.
var palette = []color.Color{
	rgb(0x1f77b4), rgb(0xff7f0e), rgb(0x2ca02c), rgb(0xd62728), rgb(0x9467bd),
	rgb(0x8c564b), rgb(0xe377c2), rgb(0x7f7f7f), rgb(0xbcbd22), rgb(0x17becf),
}

func rgb(c uint32) color.Color {
	return color.NRGBA{uint8(c >> 16), uint8(c >> 8), uint8(c), 0xff}
}

// series is the rows of one (variant, benchmark) pair, indexed by
// input value and then by metric name.
type series struct {
	variant, benchmark string
	metric             granfmt.InputMetric
	inputs             []int
	values             map[int]map[string]float64
}

// bySeries groups rows by variant and benchmark, in row order. If
// group is non-empty, only subphase rows of that group are used.
func bySeries(rows []granstat.Row, group string) []*series {
	var out []*series
	index := make(map[[2]string]*series)
	for _, r := range rows {
		if r.Group != group {
			continue
		}
		id := [2]string{r.Key.Variant, r.Key.Benchmark}
		s := index[id]
		if s == nil {
			s = &series{variant: r.Key.Variant, benchmark: r.Key.Benchmark, metric: r.Key.Metric, values: make(map[int]map[string]float64)}
			index[id] = s
			out = append(out, s)
		}
		if s.values[r.Key.Input] == nil {
			s.values[r.Key.Input] = make(map[string]float64)
			s.inputs = append(s.inputs, r.Key.Input)
		}
		s.values[r.Key.Input][r.Metric] = r.Median
	}
	for _, s := range out {
		sort.Ints(s.inputs)
	}
	return out
}

func (s *series) labels(inputs []int) []string {
	var out []string
	for _, in := range inputs {
		out = append(out, strconv.Itoa(in))
	}
	return out
}

func (s *series) column(inputs []int, name string) plotter.Values {
	vs := make(plotter.Values, len(inputs))
	for i, in := range inputs {
		vs[i] = s.values[in][name]
	}
	return vs
}

func newPlot(titleText, yLabel string, s *series) *plot.Plot {
	p := plot.New()
	p.Title.Text = titleText
	p.X.Label.Text = "Input (" + s.metric.String() + ")"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	p.Add(grid)
	return p
}

// stack adds a stacked bar chart of the named columns of s to p.
func stack(p *plot.Plot, s *series, names []string) error {
	var below *plotter.BarChart
	for _, name := range names {
		vs := s.column(s.inputs, name)
		bars, err := plotter.NewBarChart(vs, vg.Points(20))
		if err != nil {
			return err
		}
		bars.Color = phaseColors[name]
		bars.LineStyle.Width = vg.Length(0.5)
		if below != nil {
			bars.StackOn(below)
		}
		p.Add(bars)
		p.Legend.Add(name, bars)
		below = bars
	}
	p.NominalX(s.labels(s.inputs)...)
	return nil
}

// TopLevel returns one stacked chart of top-level phase medians per
// variant and benchmark.
func TopLevel(rs *granstat.ResultSet) ([]*Chart, error) {
	var charts []*Chart
	for _, s := range bySeries(rs.PhaseRows(), "") {
		p := newPlot(title(s.variant, s.benchmark)+": top-level time breakdown", "Time (s)", s)
		if err := stack(p, s, granfmt.Phases); err != nil {
			return nil, err
		}
		charts = append(charts, &Chart{Name: fileName("stacked_top", s.variant, s.benchmark), Plot: p})
	}
	return charts, nil
}

// ProofSizes returns one chart per variant and benchmark with the
// proof-size components stacked and the reported total overlaid as a
// dashed line.
func ProofSizes(rs *granstat.ResultSet) ([]*Chart, error) {
	var charts []*Chart
	for _, s := range bySeries(rs.SizeRows(), "") {
		p := newPlot(title(s.variant, s.benchmark)+": proof size", "Size (MB)", s)
		if err := stack(p, s, []string{"commitments", "proof"}); err != nil {
			return nil, err
		}
		totals := make(plotter.XYs, len(s.inputs))
		for i, in := range s.inputs {
			totals[i].X = float64(i)
			totals[i].Y = s.values[in]["total"]
		}
		line, err := plotter.NewLine(totals)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = rgb(0x444444)
		line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
		p.Legend.Add("total", line)
		charts = append(charts, &Chart{Name: fileName("proof_sizes", s.variant, s.benchmark), Plot: p})
	}
	return charts, nil
}

// Subphases returns, for each variant, benchmark and subphase group,
// a grouped bar chart of sub-step medians over the smallest inputs.
func Subphases(rs *granstat.ResultSet) ([]*Chart, error) {
	rows := rs.SubphaseRows()
	var charts []*Chart
	for _, group := range granfmt.Groups {
		for _, s := range bySeries(rows, group) {
			inputs := s.inputs
			if len(inputs) > maxSubphaseInputs {
				inputs = inputs[:maxSubphaseInputs]
			}
			var names []string
			seen := make(map[string]bool)
			for _, in := range inputs {
				for _, name := range sortedKeys(s.values[in]) {
					if !seen[name] {
						seen[name] = true
						names = append(names, name)
					}
				}
			}

			p := newPlot(title(s.variant, s.benchmark)+": "+group+" details", "Time (s)", s)
			w := vg.Points(60) / vg.Length(len(names))
			for i, name := range names {
				bars, err := plotter.NewBarChart(s.column(inputs, name), w)
				if err != nil {
					return nil, err
				}
				bars.Color = palette[i%len(palette)]
				bars.LineStyle.Width = vg.Length(0.4)
				bars.Offset = (vg.Length(i) - vg.Length(len(names)-1)/2) * w
				p.Add(bars)
				p.Legend.Add(name, bars)
			}
			p.NominalX(s.labels(inputs)...)
			charts = append(charts, &Chart{Name: fileName("bars_"+group, s.variant, s.benchmark), Plot: p})
		}
	}
	return charts, nil
}

// All returns every chart for rs.
func All(rs *granstat.ResultSet) ([]*Chart, error) {
	var charts []*Chart
	for _, f := range []func(*granstat.ResultSet) ([]*Chart, error){TopLevel, Subphases, ProofSizes} {
		cs, err := f(rs)
		if err != nil {
			return nil, err
		}
		charts = append(charts, cs...)
	}
	return charts, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fileName(kind, variant, benchmark string) string {
	clean := strings.NewReplacer("/", "-", string(filepath.Separator), "-", " ", "_")
	return kind + "_" + clean.Replace(variant) + "_" + clean.Replace(benchmark)
}

// WritePNG renders c as a PNG image to w.
func (c *Chart) WritePNG(w io.Writer) error {
	can := vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(width, height),
		vgimg.UseDPI(dpi), vgimg.UseBackgroundColor(color.White))}
	c.Plot.Draw(draw.New(can))
	_, err := can.WriteTo(w)
	return err
}

// WriteFiles renders charts as PNG files in dir, creating dir if
// needed, and returns the paths written.
func WriteFiles(dir string, charts []*Chart) ([]string, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, err
	}
	var paths []string
	for _, c := range charts {
		path := filepath.Join(dir, c.Name+".png")
		f, err := os.Create(path)
		if err != nil {
			return paths, err
		}
		err = c.WritePNG(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return paths, fmt.Errorf("%s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
