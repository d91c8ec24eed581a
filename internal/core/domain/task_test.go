package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"

	"taskboard/internal/core/domain"
)

func strPtr(s string) *string {
	return &s
}

func TestField_UnmarshalDistinguishesOmittedNullAndValue(t *testing.T) {
	RegisterTestingT(t)

	var patch struct {
		Title       domain.Field[string] `json:"title"`
		Description domain.Field[string] `json:"description"`
		Completed   domain.Field[bool]   `json:"completed"`
	}

	err := json.Unmarshal([]byte(`{"description": null, "completed": false}`), &patch)

	Expect(err).To(BeNil())
	Expect(patch.Title.Set).To(BeFalse())
	Expect(patch.Description.Set).To(BeTrue())
	Expect(patch.Description.Null).To(BeTrue())
	Expect(patch.Completed.Set).To(BeTrue())
	Expect(patch.Completed.Null).To(BeFalse())
	Expect(patch.Completed.Value).To(BeFalse())
}

func TestField_UnmarshalRejectsWrongType(t *testing.T) {
	var f domain.Field[bool]

	err := json.Unmarshal([]byte(`"yes"`), &f)

	assert.Error(t, err)
}

func TestField_Marshal(t *testing.T) {
	RegisterTestingT(t)

	data, _ := json.Marshal(domain.Some("todo"))
	Expect(string(data)).To(Equal(`"todo"`))

	data, _ = json.Marshal(domain.Null[string]())
	Expect(string(data)).To(Equal("null"))
}

func TestTaskPatch_ApplyOnlyTouchesSetFields(t *testing.T) {
	RegisterTestingT(t)

	task := domain.NewTask(1, "Buy milk", strPtr("2%"), false, strPtr("todo"))

	updated := domain.TaskPatch{Completed: domain.Some(true)}.Apply(task)

	Expect(updated.ID).To(Equal(int64(1)))
	Expect(updated.Title).To(Equal("Buy milk"))
	Expect(*updated.Description).To(Equal("2%"))
	Expect(*updated.Column).To(Equal("todo"))
	Expect(updated.Completed).To(BeTrue())
	Expect(task.Completed).To(BeFalse())
}

func TestTaskPatch_ApplyExplicitFalse(t *testing.T) {
	task := domain.NewTask(2, "Ship", nil, true, nil)

	updated := domain.TaskPatch{Completed: domain.Some(false)}.Apply(task)

	assert.False(t, updated.Completed)
}

func TestTaskPatch_ApplyNullClearsNullableFields(t *testing.T) {
	RegisterTestingT(t)

	task := domain.NewTask(3, "Review", strPtr("PR #4"), false, strPtr("doing"))

	updated := domain.TaskPatch{
		Description: domain.Null[string](),
		Column:      domain.Some("done"),
	}.Apply(task)

	Expect(updated.Description).To(BeNil())
	Expect(*updated.Column).To(Equal("done"))
	Expect(updated.Title).To(Equal("Review"))
}

func TestTaskPatch_Validate(t *testing.T) {
	cases := []struct {
		name  string
		patch domain.TaskPatch
		valid bool
	}{
		{"empty patch", domain.TaskPatch{}, true},
		{"new title", domain.TaskPatch{Title: domain.Some("Other")}, true},
		{"blank title", domain.TaskPatch{Title: domain.Some("  ")}, false},
		{"null title", domain.TaskPatch{Title: domain.Null[string]()}, false},
		{"null completed", domain.TaskPatch{Completed: domain.Null[bool]()}, false},
		{"null description", domain.TaskPatch{Description: domain.Null[string]()}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.patch.Validate()

			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, domain.ErrInvalidTask))
			}
		})
	}
}

func TestTaskPatch_IsEmptyAndChanges(t *testing.T) {
	RegisterTestingT(t)

	Expect(domain.TaskPatch{}.IsEmpty()).To(BeTrue())

	patch := domain.TaskPatch{Title: domain.Some("x"), Column: domain.Null[string]()}

	Expect(patch.IsEmpty()).To(BeFalse())
	Expect(patch.Changes()).To(Equal([]string{"title", "column"}))
}

func TestTask_Validate(t *testing.T) {
	assert.NoError(t, domain.NewTask(1, "ok", nil, false, nil).Validate())
	assert.ErrorIs(t, domain.NewTask(1, "", nil, false, nil).Validate(), domain.ErrInvalidTask)
}
