// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db stores granular benchmark summaries in a SQL database.
//
// Each invocation that saves results creates a Run. A Run's rows are
// kept in one table per granstat.Table, in the order the ResultSet
// lists them.
package db

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/zkvm-perf/granular/granfmt"
	"github.com/zkvm-perf/granular/granstat"
)

// DB is a high-level interface to a results database. It's safe for
// concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertRun *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		db.Close()
		return nil, err
	}
	if d.insertRun, err = db.Prepare("INSERT INTO Runs(Created) VALUES (?)"); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a
// connection to driverName. This is used by the sqlite3 package to
// configure its connections. It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// tableNames maps each granstat table to its SQL table.
var tableNames = map[granstat.Table]string{
	granstat.TopLevelTable: "TopLevel",
	granstat.SubphaseTable: "Subphases",
	granstat.SizeTable:     "ProofSizes",
	granstat.EstimateTable: "Estimates",
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing an
// entry whose key is the driver name, and "Tables", the names of the
// row tables.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Runs (
	RunID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Created BIGINT
);
{{range .Tables}}
CREATE TABLE IF NOT EXISTS {{.}} (
	RunID BIGINT UNSIGNED,
	Seq BIGINT UNSIGNED,
	Variant VARCHAR(255),
	Benchmark VARCHAR(255),
	InputValue BIGINT,
	InputMetric VARCHAR(16),
	GroupName VARCHAR(64),
	Metric VARCHAR(255),
	Lo DOUBLE,
	Mid DOUBLE,
	Hi DOUBLE,
	N INTEGER,
	Units VARCHAR(8),
{{if not $.sqlite3}}
	Index (Variant(100), Benchmark(100)),
{{end}}
	PRIMARY KEY (RunID, Seq),
	FOREIGN KEY (RunID) REFERENCES Runs(RunID) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if $.sqlite3}}
CREATE INDEX IF NOT EXISTS {{.}}VariantBenchmark ON {{.}}(Variant, Benchmark);
{{end}}
{{end}}
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var names []string
	for _, t := range granstat.Tables {
		names = append(names, tableNames[t])
	}
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]interface{}{driverName: true, "Tables": names}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// now is a hook for testing
var now = time.Now

// A Run is one saved set of results.
type Run struct {
	// ID is the run's primary key.
	ID int64

	// Created is when the run was allocated, truncated to seconds.
	Created time.Time

	db *DB
}

// NewRun allocates a new, empty run.
func (db *DB) NewRun(ctx context.Context) (*Run, error) {
	created := now().UTC().Truncate(time.Second)
	res, err := db.insertRun.ExecContext(ctx, created.Unix())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Run{ID: id, Created: created, db: db}, nil
}

// insertChunk bounds the rows written by one INSERT statement, to
// stay under the database's limit on bound parameters.
const insertChunk = 50

const rowColumns = "RunID, Seq, Variant, Benchmark, InputValue, InputMetric, GroupName, Metric, Lo, Mid, Hi, N, Units"

// Insert stores every table of rs in r, in a single transaction.
func (r *Run) Insert(ctx context.Context, rs *granstat.ResultSet) (err error) {
	tx, err := r.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	for _, t := range granstat.Tables {
		rows := rs.Rows(t)
		for start := 0; start < len(rows); start += insertChunk {
			end := start + insertChunk
			if end > len(rows) {
				end = len(rows)
			}
			var args []interface{}
			for i, row := range rows[start:end] {
				args = append(args, r.ID, start+i,
					row.Key.Variant, row.Key.Benchmark, row.Key.Input, row.Key.Metric.String(),
					row.Group, row.Metric, row.Low, row.Median, row.High, row.N, row.Units)
			}
			query := "INSERT INTO " + tableNames[t] + "(" + rowColumns + ") VALUES " +
				strings.Repeat("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?), ", end-start)
			query = strings.TrimSuffix(query, ", ")
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert %s: %w", tableNames[t], err)
			}
		}
	}
	return nil
}

// Rows returns the rows of table t stored in run runID, in insertion
// order.
func (db *DB) Rows(ctx context.Context, runID int64, t granstat.Table) ([]granstat.Row, error) {
	name, ok := tableNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown table %v", t)
	}
	rows, err := db.sql.QueryContext(ctx,
		"SELECT Variant, Benchmark, InputValue, InputMetric, GroupName, Metric, Lo, Mid, Hi, N, Units FROM "+name+
			" WHERE RunID = ? ORDER BY Seq", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []granstat.Row
	for rows.Next() {
		var row granstat.Row
		var metric string
		if err := rows.Scan(&row.Key.Variant, &row.Key.Benchmark, &row.Key.Input, &metric,
			&row.Group, &row.Metric, &row.Low, &row.Median, &row.High, &row.N, &row.Units); err != nil {
			return nil, err
		}
		if row.Key.Metric, err = granfmt.ParseInputMetric(metric); err != nil {
			return nil, fmt.Errorf("run %d: %w", runID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// TopLevel returns the top-level phase rows stored in run runID.
func (db *DB) TopLevel(ctx context.Context, runID int64) ([]granstat.Row, error) {
	return db.Rows(ctx, runID, granstat.TopLevelTable)
}

// CountRuns returns the number of runs stored.
func (db *DB) CountRuns() (int, error) {
	var n int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM Runs").Scan(&n)
	return n, err
}

// DeleteRun removes run runID and all of its rows.
func (db *DB) DeleteRun(ctx context.Context, runID int64) (err error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	for _, t := range granstat.Tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+tableNames[t]+" WHERE RunID = ?", runID); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM Runs WHERE RunID = ?", runID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("run %d: %w", runID, ErrNoRun)
	}
	return nil
}

// ErrNoRun is returned by DeleteRun when the run does not exist.
var ErrNoRun = errors.New("no such run")

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	if err := db.insertRun.Close(); err != nil {
		return err
	}
	return db.sql.Close()
}
