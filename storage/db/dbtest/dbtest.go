// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbtest opens empty results databases for tests.
//
// By default each database is a private in-memory SQLite database.
// With -cloud, it is a scratch database on the Cloud SQL instance
// named by -cloudsql, reached through the cloudsql-proxy dialer and
// dropped when the test finishes.
package dbtest

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"flag"
	"testing"

	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/mysql"

	"github.com/zkvm-perf/granular/storage/db"
	_ "github.com/zkvm-perf/granular/storage/db/sqlite3"
)

var (
	cloud    = flag.Bool("cloud", false, "run database tests on Cloud SQL instead of in-memory SQLite")
	cloudsql = flag.String("cloudsql", "", "Cloud SQL `instance` for -cloud (project:region:instance)")
)

// NewDB returns an empty results database that is closed when t
// finishes.
func NewDB(t *testing.T) *db.DB {
	t.Helper()
	driver, dsn := "sqlite3", ":memory:"
	if *cloud {
		driver, dsn = "mysql", scratchCloudDB(t)
	}
	d, err := db.OpenSQL(driver, dsn)
	if err != nil {
		t.Fatalf("open %s database: %v", driver, err)
	}
	// Registered after scratchCloudDB's cleanup, so it runs before
	// the database is dropped.
	t.Cleanup(func() { d.Close() })

	if n, err := d.CountRuns(); err != nil {
		t.Fatal(err)
	} else if n != 0 {
		t.Fatalf("new database has %d runs, want 0", n)
	}
	return d
}

// scratchCloudDB creates a uniquely named database on the -cloudsql
// instance and returns its DSN. The database is dropped when t
// finishes.
func scratchCloudDB(t *testing.T) string {
	t.Helper()
	if *cloudsql == "" {
		t.Fatal("-cloud requires -cloudsql")
	}
	name, err := scratchName()
	if err != nil {
		t.Fatal(err)
	}
	admin, err := sql.Open("mysql", cloudDSN(*cloudsql, ""))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := admin.Exec("CREATE DATABASE `" + name + "`"); err != nil {
		admin.Close()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if _, err := admin.Exec("DROP DATABASE `" + name + "`"); err != nil {
			t.Error(err)
		}
		admin.Close()
	})
	t.Logf("using Cloud SQL database %s", name)
	return cloudDSN(*cloudsql, name)
}

// cloudDSN returns the mysql DSN of database name on a Cloud SQL
// instance. An empty name addresses the server itself.
func cloudDSN(instance, name string) string {
	return "root:@cloudsql(" + instance + ")/" + name
}

// scratchName returns a random database name.
func scratchName() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "granular_test_" + hex.EncodeToString(buf), nil
}
