// Package migrations holds the schema of the SQL store, one directory per driver.
package migrations

import "embed"

// FS contains the embedded migrations under "postgres/" and "sqlite/".
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
