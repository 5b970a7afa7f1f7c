// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Granstat summarizes granular zkVM benchmark logs.
//
// Usage:
//
//	granstat [flags] inputs...
//
// Each input is a log file or a directory of "*.txt" log files, as
// written by the benchmark harness with granular timing enabled. An
// input of the form variant=path labels every sample under path with
// variant; otherwise the variant is guessed from the directory names
// ("32-reg", "mem-batch" or "vanilla").
//
// For every (variant, benchmark, input) point, granstat reduces the
// repeated samples of each phase, prover sub-step and proof-size
// component to their minimum, median and maximum, and prints them as
// tables:
//
//	$ granstat results/mem-batch/granular
//	top-level:
//	variant    benchmark   input      metric       median      low     high  n
//	mem-batch  fibonacci   n=4        decode      200.0ms  100.0ms  300.0ms  3
//	...
//
// The -format flag selects the output format: text (the default), csv,
// json or html. With -format csv, -table selects a single table.
//
// The -o flag additionally writes granular_top_level.csv,
// granular_subphases.csv, granular_proof_sizes.csv,
// granular_estimates.csv and granular_summary.json to a directory, and
// -png renders the charts to another. The written files can be
// uploaded to a Cloud Storage prefix with -upload.
//
// The -db flag saves the summaries as a new run in a SQL database,
// given as driver:dsn with driver sqlite3 or mysql. The -influx flag
// publishes them to InfluxDB, configured by the -influx-* flags or the
// INFLUX_URL, INFLUX_TOKEN, INFLUX_ORG and INFLUX_BUCKET environment
// variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/zkvm-perf/granular/granchart"
	"github.com/zkvm-perf/granular/granfmt"
	"github.com/zkvm-perf/granular/granstat"
	"github.com/zkvm-perf/granular/influx"
	"github.com/zkvm-perf/granular/storage/db"
	_ "github.com/zkvm-perf/granular/storage/db/sqlite3"
)

var errUsage = errors.New("usage")

func usage(w io.Writer, flags *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(w, "Usage: granstat [flags] inputs...\n\n")
		fmt.Fprintf(w, "Each input is a log file, a directory of *.txt logs, or variant=path.\n\n")
		flags.PrintDefaults()
	}
}

func main() {
	log.SetPrefix("granstat: ")
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := granstatMain(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if err == errUsage {
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// tableNames maps -table values to tables.
var tableNames = map[string]granstat.Table{
	"top-level": granstat.TopLevelTable,
	"subphases": granstat.SubphaseTable,
	"sizes":     granstat.SizeTable,
	"estimates": granstat.EstimateTable,
}

// now stamps published points.
var now = time.Now

func granstatMain(ctx context.Context, w, wErr io.Writer, args []string) error {
	flags := flag.NewFlagSet("granstat", flag.ContinueOnError)
	flags.SetOutput(wErr)
	flags.Usage = usage(wErr, flags)
	flagFormat := flags.String("format", "text", "print results in `format`: text, csv, json or html")
	flagTable := flags.String("table", "", "with -format csv, print only `table`: top-level, subphases, sizes or estimates")
	flagOut := flags.String("o", "", "write CSV and JSON summaries to `dir`")
	flagPNG := flags.String("png", "", "write PNG charts to `dir`")
	flagDB := flags.String("db", "", "save results as a new run in `driver:dsn`")
	flagInflux := flags.Bool("influx", false, "publish results to InfluxDB")
	flagInfluxURL := flags.String("influx-url", "", "InfluxDB server `url` (default $INFLUX_URL)")
	flagInfluxOrg := flags.String("influx-org", "", "InfluxDB `organization` (default $INFLUX_ORG)")
	flagInfluxBucket := flags.String("influx-bucket", "", "InfluxDB `bucket` (default $INFLUX_BUCKET)")
	flagUpload := flags.String("upload", "", "upload files written by -o and -png to `gs://bucket/prefix`")
	flagCredentials := flags.String("credentials", "", "service account key `file` for -upload")
	flagJ := flags.Int("j", runtime.GOMAXPROCS(0), "read up to `n` files in parallel")
	flagVerbose := flags.Bool("v", false, "report malformed values and files written")
	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return errUsage
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return errUsage
	}

	var table *granstat.Table
	if *flagTable != "" {
		t, ok := tableNames[*flagTable]
		if !ok {
			return fmt.Errorf("unknown table %q", *flagTable)
		}
		table = &t
	}
	if *flagUpload != "" && *flagOut == "" && *flagPNG == "" {
		return fmt.Errorf("-upload requires -o or -png")
	}

	var srcs []granfmt.Source
	for _, arg := range flags.Args() {
		s, err := granfmt.ExpandSource(arg, true)
		if err != nil {
			return err
		}
		if len(s) == 0 {
			fmt.Fprintf(wErr, "%s: no *.txt files\n", arg)
		}
		srcs = append(srcs, s...)
	}

	agg, reports, err := granstat.Load(ctx, srcs, *flagJ)
	if err != nil {
		return err
	}
	for _, warning := range granstat.Warnings(reports) {
		fmt.Fprintln(wErr, warning)
	}
	if *flagVerbose {
		for _, rep := range reports {
			for _, e := range rep.SyntaxErrors {
				fmt.Fprintln(wErr, e)
			}
		}
	}
	rs := agg.Reduce()

	switch *flagFormat {
	default:
		return fmt.Errorf("unknown -format %q", *flagFormat)
	case "text":
		err = granstat.WriteText(w, rs)
	case "csv":
		err = writeCSV(w, rs, table)
	case "json":
		err = granstat.WriteJSON(w, rs)
	case "html":
		err = writeHTML(w, rs)
	}
	if err != nil {
		return err
	}

	var written []string
	if *flagOut != "" {
		paths, err := writeFiles(*flagOut, rs)
		written = append(written, paths...)
		if err != nil {
			return err
		}
	}
	if *flagPNG != "" {
		charts, err := granchart.All(rs)
		if err != nil {
			return err
		}
		paths, err := granchart.WriteFiles(*flagPNG, charts)
		written = append(written, paths...)
		if err != nil {
			return err
		}
	}
	if *flagVerbose {
		for _, path := range written {
			fmt.Fprintf(wErr, "wrote %s\n", path)
		}
	}

	if *flagDB != "" {
		id, err := save(ctx, *flagDB, rs)
		if err != nil {
			return err
		}
		fmt.Fprintf(wErr, "saved run %d\n", id)
	}
	if *flagInflux {
		c := influx.Config{URL: *flagInfluxURL, Org: *flagInfluxOrg, Bucket: *flagInfluxBucket}
		if err := influx.Publish(ctx, c.Merge(influx.ConfigFromEnv()), rs, now()); err != nil {
			return err
		}
	}
	if *flagUpload != "" {
		if err := upload(ctx, *flagUpload, *flagCredentials, written); err != nil {
			return err
		}
	}
	return nil
}

// writeCSV writes table to w, or every table separated by blank
// lines if table is nil.
func writeCSV(w io.Writer, rs *granstat.ResultSet, table *granstat.Table) error {
	if table != nil {
		return granstat.WriteCSV(w, rs, *table)
	}
	for i, t := range granstat.Tables {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := granstat.WriteCSV(w, rs, t); err != nil {
			return err
		}
	}
	return nil
}

// writeFiles writes the CSV tables and the JSON summary of rs to dir
// and returns the paths written.
func writeFiles(dir string, rs *granstat.ResultSet) ([]string, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, err
	}
	var paths []string
	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		err = fn(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		paths = append(paths, path)
		return nil
	}
	for _, t := range granstat.Tables {
		t := t
		if err := write(t.FileName(), func(w io.Writer) error { return granstat.WriteCSV(w, rs, t) }); err != nil {
			return paths, err
		}
	}
	if err := write(granstat.JSONFileName, func(w io.Writer) error { return granstat.WriteJSON(w, rs) }); err != nil {
		return paths, err
	}
	return paths, nil
}

// save stores rs as a new run in the database named by target, which
// has the form driver:dsn.
func save(ctx context.Context, target string, rs *granstat.ResultSet) (int64, error) {
	driver, dsn, ok := strings.Cut(target, ":")
	if !ok || driver == "" {
		return 0, fmt.Errorf("-db %q: want driver:dsn", target)
	}
	d, err := db.OpenSQL(driver, dsn)
	if err != nil {
		return 0, err
	}
	defer d.Close()
	run, err := d.NewRun(ctx)
	if err != nil {
		return 0, err
	}
	if err := run.Insert(ctx, rs); err != nil {
		return 0, err
	}
	return run.ID, nil
}
