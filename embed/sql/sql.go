package sql

import _ "embed"

// Schema is the SQLite schema of the submission history database.
//
//go:embed schema.sql
var Schema string
