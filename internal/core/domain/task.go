package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskConflict = errors.New("task already exists")
	ErrInvalidTask  = errors.New("invalid task")
)

type Task struct {
	ID          int64
	Title       string  `validate:"required,max=100"`
	Description *string `validate:"omitnil,max=200"`
	Completed   bool
	Column      *string `validate:"omitnil,max=50"`
}

func NewTask(id int64, title string, description *string, completed bool, column *string) Task {
	return Task{
		ID:          id,
		Title:       title,
		Description: description,
		Completed:   completed,
		Column:      column,
	}
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}

	return nil
}

func (t *Task) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"title":       t.Title,
		"description": t.Description,
		"completed":   t.Completed,
		`"column"`:    t.Column,
	}
}

// Field is a JSON value that remembers whether it was present in the payload.
// An omitted key leaves Set false; an explicit null sets both Set and Null.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Some[T any](value T) Field[T] {
	return Field[T]{Set: true, Value: value}
}

func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		return nil
	}

	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}

	return json.Marshal(f.Value)
}

// Ptr returns nil for null, a pointer to the value otherwise.
func (f Field[T]) Ptr() *T {
	if f.Null {
		return nil
	}

	v := f.Value
	return &v
}

type TaskPatch struct {
	Title       Field[string]
	Description Field[string]
	Completed   Field[bool]
	Column      Field[string]
}

func (p TaskPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Completed.Set && !p.Column.Set
}

func (p TaskPatch) Validate() error {
	if p.Title.Set && (p.Title.Null || strings.TrimSpace(p.Title.Value) == "") {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidTask)
	}

	if p.Completed.Set && p.Completed.Null {
		return fmt.Errorf("%w: completed cannot be null", ErrInvalidTask)
	}

	return nil
}

// Apply returns a copy of task with every field present in the patch
// overwritten. Null clears description and column.
func (p TaskPatch) Apply(task Task) Task {
	if p.Title.Set && !p.Title.Null {
		task.Title = p.Title.Value
	}

	if p.Description.Set {
		task.Description = p.Description.Ptr()
	}

	if p.Completed.Set && !p.Completed.Null {
		task.Completed = p.Completed.Value
	}

	if p.Column.Set {
		task.Column = p.Column.Ptr()
	}

	return task
}

// Changes lists the names of the fields the patch touches.
func (p TaskPatch) Changes() []string {
	var changes []string

	if p.Title.Set {
		changes = append(changes, "title")
	}

	if p.Description.Set {
		changes = append(changes, "description")
	}

	if p.Completed.Set {
		changes = append(changes, "completed")
	}

	if p.Column.Set {
		changes = append(changes, "column")
	}

	return changes
}
