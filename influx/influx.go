// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package influx publishes granular benchmark summaries to InfluxDB.
//
// Each row of a granstat.ResultSet becomes one point. The measurement
// names the table, the row's identity is carried in tags, and the
// statistic in the fields lo, mid, hi and n.
package influx

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/zkvm-perf/granular/granstat"
)

// measurements maps each table to its InfluxDB measurement.
var measurements = map[granstat.Table]string{
	granstat.TopLevelTable: "granular_top_level",
	granstat.SubphaseTable: "granular_subphases",
	granstat.SizeTable:     "granular_proof_sizes",
	granstat.EstimateTable: "granular_estimates",
}

// A PointWriter writes points synchronously. api.WriteAPIBlocking
// implements it.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// batchSize bounds the points sent in one write request.
const batchSize = 500

// Points converts every row of rs into a point stamped with ts.
func Points(rs *granstat.ResultSet, ts time.Time) []*write.Point {
	var points []*write.Point
	for _, t := range granstat.Tables {
		for _, row := range rs.Rows(t) {
			tags := map[string]string{
				"variant":      row.Key.Variant,
				"benchmark":    row.Key.Benchmark,
				"input":        strconv.Itoa(row.Key.Input),
				"input_metric": row.Key.Metric.String(),
				"metric":       row.Metric,
				"units":        row.Units,
			}
			if row.Group != "" {
				tags["group"] = row.Group
			}
			fields := map[string]interface{}{
				"lo":  row.Low,
				"mid": row.Median,
				"hi":  row.High,
				"n":   row.N,
			}
			points = append(points, influxdb2.NewPoint(measurements[t], tags, fields, ts))
		}
	}
	return points
}

// Write writes every row of rs to w, stamped with ts.
func Write(ctx context.Context, w PointWriter, rs *granstat.ResultSet, ts time.Time) error {
	points := Points(rs, ts)
	for len(points) > 0 {
		n := batchSize
		if n > len(points) {
			n = len(points)
		}
		if err := w.WritePoint(ctx, points[:n]...); err != nil {
			return err
		}
		points = points[n:]
	}
	return nil
}

// Config locates an InfluxDB bucket.
type Config struct {
	URL, Token, Org, Bucket string
}

// ConfigFromEnv returns the Config given by the INFLUX_URL,
// INFLUX_TOKEN, INFLUX_ORG and INFLUX_BUCKET environment variables.
func ConfigFromEnv() Config {
	return Config{
		URL:    os.Getenv("INFLUX_URL"),
		Token:  os.Getenv("INFLUX_TOKEN"),
		Org:    os.Getenv("INFLUX_ORG"),
		Bucket: os.Getenv("INFLUX_BUCKET"),
	}
}

// Merge fills any empty fields of c from d.
func (c Config) Merge(d Config) Config {
	if c.URL == "" {
		c.URL = d.URL
	}
	if c.Token == "" {
		c.Token = d.Token
	}
	if c.Org == "" {
		c.Org = d.Org
	}
	if c.Bucket == "" {
		c.Bucket = d.Bucket
	}
	return c
}

var errIncomplete = errors.New("influx: URL, token, org and bucket are all required")

// Publish connects to the InfluxDB server described by c and writes
// every row of rs, stamped with ts.
func Publish(ctx context.Context, c Config, rs *granstat.ResultSet, ts time.Time) error {
	if c.URL == "" || c.Token == "" || c.Org == "" || c.Bucket == "" {
		return errIncomplete
	}
	client := influxdb2.NewClient(c.URL, c.Token)
	defer client.Close()
	return Write(ctx, client.WriteAPIBlocking(c.Org, c.Bucket), rs, ts)
}
