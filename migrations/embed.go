// Package migrations embeds the bridge's SQL migration files into the binary.
package migrations

import "embed"

// FS holds every migration file in this directory.
//
//go:embed *.sql
var FS embed.FS

// Dir is the directory within FS containing the migration files.
const Dir = "."
