// Package migrations embeds the SQL migration files so they can be applied
// through the goose programmatic API by the migrate command, by `serve
// --migrate`, and by tests. Each dialect has its own directory because the
// SQLite schema cannot add CHECK constraints after the fact.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Postgres returns the migrations for the Postgres store, rooted so goose
// sees the *.sql files at the top level.
func Postgres() fs.FS { return sub("postgres") }

// SQLite returns the migrations for the embedded SQLite store.
func SQLite() fs.FS { return sub("sqlite") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(files, dir)
	if err != nil {
		// Only reachable if the embed pattern above and dir disagree.
		panic("migrations: " + err.Error())
	}
	return f
}
