package task

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnyourwings/wings/core"
)

func newValidate() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate, translator
}

func TestTask_UnmarshalJSON(t *testing.T) {
	data := `[
		{"id": 12, "title": "Budget basics", "task_type": "course_link", "required": true, "estimated_hours": 1.5},
		{"id": "t-2", "title": "Shadow a manager", "task_type": "SHADOWING", "completed": true,
		 "completion_data": {"completed_at": "2024-03-01T10:00:00Z", "notes": "done"}},
		{"id": "t-3", "title": "Mystery", "task_type": "podcast"},
		{"id": "t-4", "title": "Nothing", "task_type": null}
	]`
	var tasks []Task
	require.NoError(t, json.Unmarshal([]byte(data), &tasks))
	require.Len(t, tasks, 4)

	assert.Equal(t, core.ID("12"), tasks[0].ID)
	assert.Equal(t, TypeCourseLink, tasks[0].Type)
	require.NotNil(t, tasks[0].EstimatedHours)
	assert.Equal(t, 1.5, *tasks[0].EstimatedHours)

	assert.Equal(t, TypeShadowing, tasks[1].Type)
	require.NotNil(t, tasks[1].CompletionData)
	assert.Equal(t, "done", tasks[1].CompletionData.Notes)

	assert.Equal(t, TypeOther, tasks[2].Type)
	assert.Equal(t, TypeOther, tasks[3].Type)

	found, ok := Find(tasks, "t-2")
	assert.True(t, ok)
	assert.True(t, found.Completed)
	_, ok = Find(tasks, "nope")
	assert.False(t, ok)
}

func TestCompletionDraft_Submit(t *testing.T) {
	validate, translator := newValidate()
	file := core.NewFileHandle("cert.pdf", "application/pdf", []byte("%PDF"))

	tests := []struct {
		name       string
		draft      CompletionDraft
		wantFields map[string]string
		want       Completion
	}{
		{
			name:       "no task",
			draft:      CompletionDraft{EvidenceDescription: "x"},
			wantFields: map[string]string{"task_id": "this field is required"},
		},
		{
			name:  "evidence optional",
			draft: CompletionDraft{TaskID: "t1"},
			want:  Completion{TaskID: "t1"},
		},
		{
			name:  "cleaned with file",
			draft: CompletionDraft{TaskID: "t1", EvidenceDescription: "  read it  ", Notes: " ok", File: file},
			want:  Completion{TaskID: "t1", EvidenceDescription: "read it", Notes: "ok", File: file},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.draft.Submit(validate)
			if tt.wantFields != nil {
				var vErrs validator.ValidationErrors
				require.True(t, errors.As(err, &vErrs))
				assert.Equal(t, tt.wantFields, core.FieldErrors(err, translator))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
