// Package sqldocs exposes the profile store DDL bundles directly from the docs tree.
package sqldocs

import _ "embed"

// SQLite contains the SQLite DDL for the four profile store tables.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the Postgres DDL for the four profile store tables.
//
//go:embed postgres.sql
var Postgres string
