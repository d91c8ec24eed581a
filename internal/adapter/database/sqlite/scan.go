package sqlite

import (
	"errors"

	"github.com/mattn/go-sqlite3"

	"taskboard/internal/core/domain"
)

// TaskColumns is the select list matching ScanTask. "column" is a reserved
// word on both engines and stays quoted.
var TaskColumns = []string{"id", "title", "description", "completed", `"column"`}

type RowScanner interface {
	Scan(dest ...any) error
}

func ScanTask(row RowScanner) (domain.Task, error) {
	var task domain.Task

	err := row.Scan(&task.ID, &task.Title, &task.Description, &task.Completed, &task.Column)

	return task, err
}

// IsConstraintViolation reports whether err is a primary key or unique
// constraint failure raised by SQLite.
func IsConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error

	if !errors.As(err, &sqliteErr) {
		return false
	}

	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
