package request

import "taskboard/internal/core/domain"

// TaskRequest is the create payload. Pointers let validation tell a missing
// key from a zero value.
type TaskRequest struct {
	ID          *int64  `json:"id" validate:"required"`
	Title       *string `json:"title" validate:"required,min=1,max=100"`
	Description *string `json:"description" validate:"omitnil,max=200"`
	Completed   *bool   `json:"completed"`
	Column      *string `json:"column" validate:"omitnil,max=50"`
}

func (r TaskRequest) ToDomain() domain.Task {
	completed := false

	if r.Completed != nil {
		completed = *r.Completed
	}

	return domain.NewTask(*r.ID, *r.Title, r.Description, completed, r.Column)
}

// TaskPatchRequest is the update payload. Every key is optional, and
// description and column accept null.
type TaskPatchRequest struct {
	Title       domain.Field[string] `json:"title"`
	Description domain.Field[string] `json:"description"`
	Completed   domain.Field[bool]   `json:"completed"`
	Column      domain.Field[string] `json:"column"`
}

// TaskPatchRules is the view of a patch the validator checks: only
// present, non-null values.
type TaskPatchRules struct {
	Title       *string `validate:"omitnil,min=1,max=100"`
	Description *string `validate:"omitnil,max=200"`
	Column      *string `validate:"omitnil,max=50"`
}

func (r TaskPatchRequest) Rules() TaskPatchRules {
	return TaskPatchRules{
		Title:       present(r.Title),
		Description: present(r.Description),
		Column:      present(r.Column),
	}
}

func (r TaskPatchRequest) ToPatch() domain.TaskPatch {
	return domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		Column:      r.Column,
	}
}

func present(f domain.Field[string]) *string {
	if !f.Set {
		return nil
	}

	return f.Ptr()
}
