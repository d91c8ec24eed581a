// Package db holds the SQL migrations shared by the SQLite and PostgreSQL
// adapters. The DDL is written to be valid on both engines.
package db

import (
	"embed"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Source returns a golang-migrate source driver over the embedded files.
func Source() (source.Driver, error) {
	return iofs.New(migrations, "migrations")
}
