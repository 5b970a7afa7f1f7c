// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package granfmt

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// A Source is one log file to read, together with the variant its
// samples belong to.
type Source struct {
	Path string

	// Variant labels every sample read from Path.
	Variant string

	// Benchmark is the workload the file is expected to contain,
	// taken from the file name (for example "sha2_chain" for
	// "sha2_chain.txt"). It is only a hint for diagnostics: sample
	// keys always use the workload named in the log itself.
	Benchmark string
}

// ExpandSource expands one command-line input into Sources.
//
// If allowLabels is set, arg may be of the form variant=path, which
// assigns variant to every file under path. Otherwise the variant is
// guessed from path's directory names (see GuessVariant).
//
// If path is a directory, ExpandSource returns one Source per regular
// "*.txt" file directly in it, in lexical order. A directory with no
// such files yields no Sources and no error.
func ExpandSource(arg string, allowLabels bool) ([]Source, error) {
	path, variant := arg, ""
	if i := strings.Index(arg, "="); allowLabels && i >= 0 {
		variant, path = arg[:i], arg[i+1:]
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if variant == "" {
			variant = GuessVariant(filepath.Dir(path))
		}
		return []Source{{path, variant, stem(path)}}, nil
	}

	if variant == "" {
		variant = GuessVariant(path)
	}
	matches, err := filepath.Glob(filepath.Join(path, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sort.Strings(matches)
	var srcs []Source
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			return nil, err
		}
		if !fi.Mode().IsRegular() {
			continue
		}
		srcs = append(srcs, Source{m, variant, stem(m)})
	}
	return srcs, nil
}

// GuessVariant infers an experiment variant from a results directory
// and its two parent directories. Directory names mentioning
// "32-reg", "mem-batch" or "vanilla" (with either - or _) map to
// those variants; otherwise the directory's own name is used.
func GuessVariant(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	var chain []string
	for p, i := dir, 0; i < 3; p, i = filepath.Dir(p), i+1 {
		chain = append(chain, strings.ToLower(filepath.Base(p)))
		if filepath.Dir(p) == p {
			break
		}
	}
	mentions := func(subs ...string) bool {
		for _, name := range chain {
			for _, sub := range subs {
				if strings.Contains(name, sub) {
					return true
				}
			}
		}
		return false
	}
	switch {
	case mentions("32-reg", "32_reg"):
		return "32-reg"
	case mentions("mem-batch", "mem_batch"):
		return "mem-batch"
	case mentions("vanilla"):
		return "vanilla"
	}
	return filepath.Base(dir)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
