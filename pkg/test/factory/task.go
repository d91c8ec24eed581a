package factory

import (
	fab "github.com/Goldziher/fabricator"

	"taskboard/internal/core/domain"
)

// NewTask builds a task with fabricated field values; customData overrides
// fields by struct field name.
func NewTask(customData ...map[string]any) domain.Task {
	instance := fab.New(domain.Task{})

	if len(customData) > 0 {
		return instance.Build(customData...)
	}

	return instance.Build()
}
