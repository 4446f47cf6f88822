package session

import (
	"github.com/earnyourwings/wings/core/competency"
	"github.com/earnyourwings/wings/core/portfolio"
)

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a user-visible message. Notices are delivered once, with the next state read.
type Notice struct {
	ID      string      `json:"id"`
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// State is everything the client renders.
type State struct {
	View            View                `json:"view"`
	Modals          ModalStack          `json:"modals"`
	Loaded          bool                `json:"loaded"`
	Competencies    competency.Snapshot `json:"competencies"`
	Portfolio       []portfolio.Item    `json:"portfolio"`
	Draft           portfolio.Draft     `json:"draft"`
	DraftSubmitting bool                `json:"draft_submitting"`
	Notices         []Notice            `json:"notices"`
}

func initialState() State {
	return State{
		View:      ViewDashboard,
		Portfolio: []portfolio.Item{},
	}
}

// clone copies everything the session may later mutate in place.
// The competency snapshot is only ever replaced, never mutated, so it is shared.
func (st State) clone() State {
	c := st
	c.Modals = st.Modals.clone()
	c.Portfolio = append([]portfolio.Item{}, st.Portfolio...)
	c.Draft.CompetencyAreas = append([]string(nil), st.Draft.CompetencyAreas...)
	c.Draft.Tags = append([]string(nil), st.Draft.Tags...)
	c.Notices = append([]Notice{}, st.Notices...)
	return c
}
