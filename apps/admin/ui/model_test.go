package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/competency"
	"github.com/earnyourwings/wings/core/session"
	"github.com/earnyourwings/wings/core/task"
	testutil "github.com/earnyourwings/wings/tests"
)

func setup(t *testing.T, roles ...string) (Model, *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackend()
	backend.SetCompetencies("u1", competency.NewSnapshot(
		testutil.Area("leadership", 50, testutil.Sub("communication", 1, 2)),
		testutil.Area("technical", 80, testutil.Sub("testing", 4, 5)),
	))
	backend.SetTasks("u1", "leadership", "communication",
		task.Task{ID: "t1", Title: "Read the guide", Completed: true},
		task.Task{ID: "t2", Title: "Run a meeting"},
	)

	validate, _ := testutil.NewValidator()
	sess := session.New(testutil.CreateUser(t, "u1", "Jane", roles...), backend, &testutil.Logger{}, validate)
	m := New(sess, 3)
	return finish(t, m, m.Init()), backend
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func key(kt tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: kt} }

// send feeds msgs to the model and returns the command of the last one.
func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

// finish runs the session call started by cmd and feeds its result back.
func finish(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(actionMsg)
	require.True(t, ok, "cmd did not run a session call")
	m, _ = send(t, m, msg)
	return m
}

func TestModel_Load(t *testing.T) {
	m, _ := setup(t)

	assert.True(t, m.state.Loaded)
	view := m.View()
	assert.Contains(t, view, "Jane")
	assert.Contains(t, view, "Overall progress")
	assert.Contains(t, view, "65%")
	assert.Contains(t, view, "Tasks completed: 5 of 7")
	assert.Less(t, strings.Index(view, "technical"), strings.Index(view, "leadership"), "areas ranked by progress")
}

func TestModel_Navigate(t *testing.T) {
	tests := []struct {
		name     string
		roles    []string
		key      string
		wantView session.View
		wantText string
	}{
		{name: "competencies", key: "2", wantView: session.ViewCompetencies, wantText: "1/2 tasks"},
		{name: "portfolio", key: "3", wantView: session.ViewPortfolio, wantText: "Your portfolio is empty"},
		{name: "add to portfolio", key: "4", wantView: session.ViewAddPortfolio, wantText: "Competency areas"},
		{name: "admin", roles: []string{"admin"}, key: "5", wantView: session.ViewAdminDashboard, wantText: "web admin"},
		{name: "admin denied", roles: []string{"employee"}, key: "5", wantView: session.ViewDashboard, wantText: "Access denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := setup(t, tt.roles...)
			m, cmd := send(t, m, runes(tt.key))

			assert.Nil(t, cmd)
			assert.Equal(t, tt.wantView, m.state.View)
			assert.Nil(t, m.err)
			assert.Contains(t, m.View(), tt.wantText)
		})
	}
}

func TestModel_CompleteTask(t *testing.T) {
	m, backend := setup(t)
	m, _ = send(t, m, runes("2"))

	m, cmd := send(t, m, key(tea.KeyEnter))
	m = finish(t, m, cmd)
	top := m.state.Modals.Top()
	require.NotNil(t, top)
	assert.Equal(t, session.ModalTaskList, top.Kind)
	assert.Equal(t, "communication", top.Sub)
	assert.Contains(t, m.View(), "Run a meeting")

	// the first task is already done
	m, _ = send(t, m, key(tea.KeyEnter))
	assert.Equal(t, session.ModalTaskList, m.state.Modals.Top().Kind)
	assert.Error(t, m.err)

	m, _ = send(t, m, key(tea.KeyDown), key(tea.KeyEnter))
	require.Equal(t, session.ModalTaskCompletion, m.state.Modals.Top().Kind)
	assert.Equal(t, core.ID("t2"), m.state.Modals.Top().TaskID)

	m, _ = send(t, m, runes("Ran the weekly sync"), key(tea.KeyTab), runes("went well"))
	m, cmd = send(t, m, key(tea.KeyEnter))
	m = finish(t, m, cmd)

	completed := backend.Completed()
	require.Len(t, completed, 1)
	assert.Equal(t, core.ID("t2"), completed[0].TaskID)
	assert.Equal(t, "Ran the weekly sync", completed[0].EvidenceDescription)
	assert.Equal(t, "went well", completed[0].Notes)

	top = m.state.Modals.Top()
	require.NotNil(t, top)
	assert.Equal(t, session.ModalTaskList, top.Kind)
	assert.Contains(t, m.View(), "Task marked as complete.")

	m, _ = send(t, m, key(tea.KeyEsc))
	assert.Nil(t, m.state.Modals.Top())
}

func TestModel_CancelCompletion(t *testing.T) {
	m, backend := setup(t)
	m, _ = send(t, m, runes("2"))
	m, cmd := send(t, m, key(tea.KeyEnter))
	m = finish(t, m, cmd)

	m, _ = send(t, m, key(tea.KeyDown), key(tea.KeyEnter), runes("half done"), key(tea.KeyEsc))
	assert.Equal(t, session.ModalTaskList, m.state.Modals.Top().Kind)
	assert.Empty(t, backend.Completed())
}

func TestModel_AddPortfolio(t *testing.T) {
	m, backend := setup(t)
	m, _ = send(t, m,
		runes("4"),
		runes("Conference talk"), key(tea.KeyTab),
		runes("Spoke about testing"), key(tea.KeyTab),
		runes("talks, go"), key(tea.KeyTab),
		key(tea.KeyDown), tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}},
	)
	assert.Equal(t, "Conference talk", m.state.Draft.Title)
	assert.Equal(t, []string{"talks", "go"}, m.state.Draft.Tags)
	assert.Equal(t, []string{"technical"}, m.state.Draft.CompetencyAreas)
	assert.Contains(t, m.View(), "[x] technical")

	m, cmd := send(t, m, key(tea.KeyCtrlS))
	m = finish(t, m, cmd)

	created := backend.Created()
	require.Len(t, created, 1)
	assert.Equal(t, "Conference talk", created[0].Title)
	assert.Equal(t, "Spoke about testing", created[0].Description)
	assert.Equal(t, session.ViewPortfolio, m.state.View)
	assert.Equal(t, "", m.fields[fieldTitle].Value())
	assert.Contains(t, m.View(), "Conference talk")
	assert.Contains(t, m.View(), "Item added to your portfolio.")
}

func TestModel_AddPortfolio_Invalid(t *testing.T) {
	m, backend := setup(t)
	m, _ = send(t, m, runes("4"), runes("Only a title"))

	m, cmd := send(t, m, key(tea.KeyCtrlS))
	m = finish(t, m, cmd)

	assert.Error(t, m.err)
	assert.Empty(t, backend.Created())
	assert.Equal(t, session.ViewAddPortfolio, m.state.View)
	assert.Equal(t, "Only a title", m.fields[fieldTitle].Value())
}

func TestModel_Quit(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
	}{
		{name: "q", msg: runes("q")},
		{name: "ctrl+c", msg: key(tea.KeyCtrlC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := setup(t)
			_, cmd := send(t, m, tt.msg)
			require.NotNil(t, cmd)
			assert.Equal(t, tea.QuitMsg{}, cmd())
		})
	}
}
