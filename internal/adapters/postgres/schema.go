package postgres

import _ "embed"

// SchemaSQL is the full store schema, embedded so tests and tooling can
// apply it without locating the source tree.
//
//go:embed schema.sql
var SchemaSQL string
