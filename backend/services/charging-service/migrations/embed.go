// Package migrations embeds the charging schema for goose.
package migrations

import (
	"embed"

	"campusev/backend/libs/migrate"
)

//go:embed *.sql
var files embed.FS

// Source returns the embedded migration set.
func Source() migrate.Source {
	return migrate.Source{FS: files, Dir: "."}
}
