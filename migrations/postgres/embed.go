// Package migrations embeds the Postgres schema.
package migrations

import "embed"

// FS holds the numbered SQL migrations at its root.
//
//go:embed *.sql
var FS embed.FS
