// Package migrations embeds the decision journal schema.
package migrations

import "embed"

//go:embed *.sql
var MigrationFiles embed.FS
