// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package granstat

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/zkvm-perf/granular/granfmt"
)

// A Report describes what Load found in one source.
type Report struct {
	Source granfmt.Source

	// Samples and Estimates count the records read.
	Samples, Estimates int

	// SyntaxErrors lists the malformed tokens that were dropped.
	SyntaxErrors []*granfmt.SyntaxError
}

// Load reads srcs, parsing up to parallel sources at a time (or all at
// once if parallel <= 0), and returns an Aggregator holding every
// sample and estimate found, along with one Report per source, in the
// order of srcs.
//
// Records are merged in source order, so the result does not depend
// on scheduling. Load stops at the first source that cannot be read.
// If ctx is cancelled, Load stops starting new sources and returns
// ctx's error.
func Load(ctx context.Context, srcs []granfmt.Source, parallel int) (*Aggregator, []Report, error) {
	parts := make([]*Aggregator, len(srcs))
	reports := make([]Report, len(srcs))

	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, src := range srcs {
		i, src := i, src
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := os.Open(src.Path)
			if err != nil {
				return err
			}
			defer f.Close()
			parts[i], reports[i], err = read(f, src)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	agg := new(Aggregator)
	for _, part := range parts {
		agg.Merge(part)
	}
	return agg, reports, nil
}

// read parses a single source into its own Aggregator.
func read(r io.Reader, src granfmt.Source) (*Aggregator, Report, error) {
	agg := new(Aggregator)
	rep := Report{Source: src}
	reader := granfmt.NewReader(r, src.Path, src.Variant)
	for reader.Scan() {
		switch rec := reader.Result().(type) {
		case *granfmt.Sample:
			rep.Samples++
		case *granfmt.Estimate:
			rep.Estimates++
		case *granfmt.SyntaxError:
			rep.SyntaxErrors = append(rep.SyntaxErrors, rec)
			continue
		}
		agg.Add(reader.Result())
	}
	if err := reader.Err(); err != nil {
		return nil, rep, err
	}
	return agg, rep, nil
}

// Warnings returns a human-readable warning for each source in
// reports that produced no samples.
func Warnings(reports []Report) []string {
	var out []string
	for _, rep := range reports {
		if rep.Samples > 0 {
			continue
		}
		if rep.Source.Benchmark != "" {
			out = append(out, fmt.Sprintf("%s: no %s samples found", rep.Source.Path, rep.Source.Benchmark))
		} else {
			out = append(out, fmt.Sprintf("%s: no samples found", rep.Source.Path))
		}
	}
	return out
}
