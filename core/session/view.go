package session

import (
	"encoding/json"
	"strings"

	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/task"
)

// View is the top-level screen the user is on. Exactly one is active at a time.
type View string

const (
	ViewDashboard      View = "dashboard"
	ViewCompetencies   View = "competencies"
	ViewPortfolio      View = "portfolio"
	ViewAddPortfolio   View = "add-portfolio"
	ViewAdminDashboard View = "admin-dashboard"
	ViewAdminContent   View = "admin-content"
	ViewAdminLevels    View = "admin-levels"
	ViewAdminUsers     View = "admin-users"
)

var Views = []View{
	ViewDashboard, ViewCompetencies, ViewPortfolio, ViewAddPortfolio,
	ViewAdminDashboard, ViewAdminContent, ViewAdminLevels, ViewAdminUsers,
}

func (v View) Valid() bool {
	for _, view := range Views {
		if v == view {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the view is part of the admin surface.
func (v View) IsAdmin() bool {
	return strings.HasPrefix(string(v), "admin-")
}

type ModalKind string

const (
	ModalTaskList       ModalKind = "task_list"
	ModalTaskCompletion ModalKind = "task_completion"
)

// Modal is an open dialog. ID identifies one opening of a modal: results of
// backend calls made for a modal are only applied while that same opening is shown.
type Modal struct {
	ID         uint64                `json:"id"`
	Kind       ModalKind             `json:"kind"`
	Area       string                `json:"area"`
	Sub        string                `json:"sub"`
	TaskID     core.ID               `json:"task_id,omitempty"`
	Loading    bool                  `json:"loading"`
	Tasks      []task.Task           `json:"tasks,omitempty"`
	Draft      *task.CompletionDraft `json:"draft,omitempty"`
	Submitting bool                  `json:"submitting"`
}

func (m *Modal) clone() *Modal {
	c := *m
	if m.Tasks != nil {
		c.Tasks = append([]task.Task{}, m.Tasks...)
	}
	if m.Draft != nil {
		d := *m.Draft
		c.Draft = &d
	}
	return &c
}

// ModalStack holds the open modals: nothing, a task list, or a task list with
// the completion form of one of its tasks on top.
type ModalStack struct {
	modals []*Modal
}

func (ms ModalStack) Len() int { return len(ms.modals) }

// Top returns the modal shown on top, if any.
func (ms ModalStack) Top() *Modal {
	if len(ms.modals) == 0 {
		return nil
	}
	return ms.modals[len(ms.modals)-1]
}

func (ms ModalStack) taskList() *Modal {
	if len(ms.modals) > 0 && ms.modals[0].Kind == ModalTaskList {
		return ms.modals[0]
	}
	return nil
}

func (ms ModalStack) completion() *Modal {
	if len(ms.modals) == 2 && ms.modals[1].Kind == ModalTaskCompletion {
		return ms.modals[1]
	}
	return nil
}

func (ms ModalStack) find(id uint64) *Modal {
	for _, m := range ms.modals {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// openTaskList replaces whatever is open with m.
func (ms *ModalStack) openTaskList(m *Modal) {
	ms.modals = []*Modal{m}
}

// openCompletion stacks m over the open task list.
func (ms *ModalStack) openCompletion(m *Modal) bool {
	if ms.taskList() == nil || ms.completion() != nil {
		return false
	}
	ms.modals = append(ms.modals, m)
	return true
}

func (ms *ModalStack) closeCompletion() {
	if ms.completion() != nil {
		ms.modals = ms.modals[:1]
	}
}

func (ms *ModalStack) closeAll() {
	ms.modals = nil
}

func (ms ModalStack) clone() ModalStack {
	if ms.modals == nil {
		return ModalStack{}
	}
	modals := make([]*Modal, len(ms.modals))
	for i, m := range ms.modals {
		modals[i] = m.clone()
	}
	return ModalStack{modals: modals}
}

func (ms ModalStack) MarshalJSON() ([]byte, error) {
	if ms.modals == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(ms.modals)
}
