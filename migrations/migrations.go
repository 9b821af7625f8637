// Package migrations embeds the SQL schema applied by cmd/migrate and integration tests.
package migrations

import "embed"

// FS holds the golang-migrate numbered up/down files.
//
//go:embed *.sql
var FS embed.FS
