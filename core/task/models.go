package task

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/earnyourwings/wings/core"
)

// Type is the kind of work a Task asks for.
type Type string

const (
	TypeCourseLink     Type = "course_link"
	TypeDocumentUpload Type = "document_upload"
	TypeAssessment     Type = "assessment"
	TypeShadowing      Type = "shadowing"
	TypeMeeting        Type = "meeting"
	TypeProject        Type = "project"
	TypeOther          Type = "other"
)

var Types = []Type{
	TypeCourseLink, TypeDocumentUpload, TypeAssessment, TypeShadowing, TypeMeeting, TypeProject, TypeOther,
}

func (t Type) Valid() bool {
	for _, typ := range Types {
		if t == typ {
			return true
		}
	}
	return false
}

// UnmarshalJSON decodes task types this client does not know about as TypeOther.
func (t *Type) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*t = TypeOther
		return nil
	}
	if *t = Type(core.CleanString(*s, true /* lower */)); !t.Valid() {
		*t = TypeOther
	}
	return nil
}

type CompletionData struct {
	CompletedAt         core.Timestamp `json:"completed_at"`
	EvidenceDescription string         `json:"evidence_description,omitempty"`
	Notes               string         `json:"notes,omitempty"`
}

// Task is a unit of work whose completion contributes to a sub-competency's score.
type Task struct {
	ID             core.ID         `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Instructions   string          `json:"instructions,omitempty"`
	Type           Type            `json:"task_type"`
	EstimatedHours *float64        `json:"estimated_hours,omitempty"`
	Required       bool            `json:"required"`
	ExternalLink   string          `json:"external_link,omitempty"`
	Completed      bool            `json:"completed"`
	CompletionData *CompletionData `json:"completion_data,omitempty"`
}

// Find returns the task with the given id.
func Find(tasks []Task, id core.ID) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// CompletionDraft holds what the user typed in the "mark complete" form of a single task.
type CompletionDraft struct {
	TaskID              core.ID          `json:"task_id" validate:"required"`
	EvidenceDescription string           `json:"evidence_description" validate:"max=2000"`
	Notes               string           `json:"notes" validate:"max=2000"`
	File                *core.FileHandle `json:"file,omitempty"`
}

func NewCompletionDraft(taskID core.ID) *CompletionDraft {
	return &CompletionDraft{TaskID: taskID}
}

func (d *CompletionDraft) Validate(validate *validator.Validate) error {
	d.EvidenceDescription = core.CleanString(d.EvidenceDescription)
	d.Notes = core.CleanString(d.Notes)
	return validate.Struct(d)
}

// Completion is the payload handed to the backend when a task is marked complete.
type Completion struct {
	TaskID              core.ID
	EvidenceDescription string
	Notes               string
	File                *core.FileHandle
}

// Submit validates the draft and packages it for the backend.
func (d *CompletionDraft) Submit(validate *validator.Validate) (Completion, error) {
	if err := d.Validate(validate); err != nil {
		return Completion{}, err
	}
	return Completion{
		TaskID:              d.TaskID,
		EvidenceDescription: d.EvidenceDescription,
		Notes:               d.Notes,
		File:                d.File,
	}, nil
}
