package test

import (
	"database/sql"
	"log"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"taskboard/internal/adapter/database/sqlite"
)

// InitTestDB returns a migrated in-memory SQLite database. The pool is
// pinned to one connection because every new connection to :memory: would
// see an empty database of its own.
func InitTestDB() *sqlite.DB {
	db, err := sql.Open("sqlite3", ":memory:")

	if err != nil {
		log.Fatal(err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := sqlite.RunMigrations(db); err != nil {
		log.Fatal(err)
	}

	return sqlite.Wrap(db)
}

// CleanDB empties every application table, keeping the migration bookkeeping.
func CleanDB(t *testing.T, db *sqlite.DB) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT IN ('sqlite_sequence', 'schema_migrations')")
	if err != nil {
		t.Fatalf("Failed to query tables: %v", err)
	}

	var tables []string

	for rows.Next() {
		var table string

		if err := rows.Scan(&table); err != nil {
			rows.Close()
			t.Fatalf("Failed to scan table name: %v", err)
		}

		tables = append(tables, table)
	}

	rows.Close()

	for _, table := range tables {
		if _, err := db.Exec(`DELETE FROM "` + table + `"`); err != nil {
			t.Fatalf("Failed to execute delete for table %s: %v", table, err)
		}
	}
}

func TeardownTestDB(t *testing.T, db *sqlite.DB) {
	if db == nil {
		return
	}

	CleanDB(t, db)
	db.Close()
}
