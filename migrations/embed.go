// Package migrations embeds the goose SQL files for the Postgres store driver.
// The server applies them on startup; repo and testutil tests apply them
// against TEST_DATABASE_URL.
package migrations

import "embed"

// FS holds the *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
