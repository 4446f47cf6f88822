package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/competency"
	"github.com/earnyourwings/wings/core/session"
	"github.com/earnyourwings/wings/core/task"
)

const (
	maxNotices = 3
	barWidth   = 20
)

// tabs are the views reachable with the number keys, in key order.
var tabs = []struct {
	view  session.View
	label string
}{
	{session.ViewDashboard, "Dashboard"},
	{session.ViewCompetencies, "Competencies"},
	{session.ViewPortfolio, "Portfolio"},
	{session.ViewAddPortfolio, "Add to portfolio"},
	{session.ViewAdminDashboard, "Admin"},
}

// form fields of the add-portfolio view, in tab order
const (
	fieldTitle = iota
	fieldDescription
	fieldTags
	fieldCompetencies
	fieldCount
)

// actionMsg reports the end of a session call made outside of Update.
type actionMsg struct {
	name string
	err  error
}

// row is a sub-competency line of the competencies view.
type row struct {
	area, sub string
}

// Model is the terminal client. It drives one session and renders its state.
type Model struct {
	sess   *session.Session
	styles Styles
	top    int

	state   session.State
	notices []session.Notice
	err     error
	busy    string

	cursor     int // competencies view row
	taskCursor int
	areaCursor int

	fields   [3]textinput.Model // title, description, tags
	focus    int
	evidence textinput.Model
	notes    textinput.Model
	onNotes  bool
}

// New returns a client driving sess. The dashboard ranks the top n competency areas.
func New(sess *session.Session, top int) Model {
	m := Model{
		sess:   sess,
		styles: DefaultStyles(),
		top:    top,
		busy:   "load",
	}
	placeholders := [3]string{"Title", "Description", "Tags (comma separated)"}
	for i := range m.fields {
		m.fields[i] = newInput(placeholders[i])
	}
	m.evidence = newInput("What did you do?")
	m.notes = newInput("Notes")
	m.state = sess.Snapshot()
	return m
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 5000
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// Init loads the user's data.
func (m Model) Init() tea.Cmd {
	return m.do("load", m.sess.EnsureLoaded)
}

// do runs fn off the update loop and reports back with an actionMsg.
func (m Model) do(name string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{name: name, err: fn(context.Background())}
	}
}

// sync reads the session state, collecting the notices it delivers.
func (m *Model) sync() {
	m.state = m.sess.Snapshot()
	m.notices = append(m.notices, m.state.Notices...)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
	m.cursor = clamp(m.cursor, len(m.rows()))
	m.areaCursor = clamp(m.areaCursor, m.state.Competencies.Len())
	if top := m.state.Modals.Top(); top != nil && top.Kind == session.ModalTaskList {
		m.taskCursor = clamp(m.taskCursor, len(top.Tasks))
	}
}

// fail shows err unless the session already told the user with a notice.
func (m *Model) fail(err error) {
	switch {
	case err == nil:
	case errors.Is(err, core.ErrAuthorizationDenied), errors.Is(err, core.ErrRequestFailed):
	default:
		m.err = err
	}
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case actionMsg:
		m.busy = ""
		m.sync()
		m.fail(msg.err)
		if msg.name == "portfolio" && msg.err == nil && m.state.View != session.ViewAddPortfolio {
			m.loadForm()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		m.err = nil
		top := m.state.Modals.Top()
		switch {
		case top != nil && top.Kind == session.ModalTaskCompletion:
			return m.completionKey(msg)
		case top != nil:
			return m.taskListKey(msg, top)
		case m.state.View == session.ViewAddPortfolio:
			return m.formKey(msg)
		}
		return m.viewKey(msg)
	}
	return m, nil
}

func (m Model) navigate(to session.View) Model {
	err := m.sess.Navigate(to, m.sess.User())
	m.sync()
	m.fail(err)
	if err == nil && to == session.ViewAddPortfolio {
		m.loadForm()
	}
	return m
}

func (m Model) viewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	for i, tab := range tabs {
		if key == fmt.Sprint(i+1) {
			return m.navigate(tab.view), nil
		}
	}

	switch key {
	case "q", "esc":
		return m, tea.Quit
	case "r":
		m.busy = "refresh"
		return m, m.do("refresh", m.sess.Refresh)
	}

	if m.state.View != session.ViewCompetencies {
		return m, nil
	}
	rows := m.rows()
	switch key {
	case "up", "k":
		m.cursor = clamp(m.cursor-1, len(rows))
	case "down", "j":
		m.cursor = clamp(m.cursor+1, len(rows))
	case "enter":
		if len(rows) == 0 {
			return m, nil
		}
		r := rows[m.cursor]
		m.taskCursor = 0
		m.busy = "tasks"
		return m, m.do("tasks", func(ctx context.Context) error {
			return m.sess.OpenTaskList(ctx, r.area, r.sub)
		})
	}
	return m, nil
}

func (m Model) taskListKey(msg tea.KeyMsg, list *session.Modal) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.sess.CloseTaskList()
		m.sync()
	case "up", "k":
		m.taskCursor = clamp(m.taskCursor-1, len(list.Tasks))
	case "down", "j":
		m.taskCursor = clamp(m.taskCursor+1, len(list.Tasks))
	case "enter":
		if len(list.Tasks) == 0 {
			return m, nil
		}
		err := m.sess.OpenCompletion(list.Tasks[m.taskCursor].ID)
		m.sync()
		if err != nil {
			m.fail(err)
			return m, nil
		}
		m.evidence.SetValue("")
		m.notes.SetValue("")
		m.onNotes = false
		m.focusCompletion()
	}
	return m, nil
}

func (m *Model) focusCompletion() {
	if m.onNotes {
		m.evidence.Blur()
		m.notes.Focus()
		return
	}
	m.notes.Blur()
	m.evidence.Focus()
}

func (m Model) completionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.sess.CancelCompletion()
		m.sync()
		return m, nil
	case "tab", "shift+tab":
		m.onNotes = !m.onNotes
		m.focusCompletion()
		return m, nil
	case "enter":
		m.busy = "complete"
		return m, m.do("complete", m.sess.SubmitCompletion)
	}

	var cmd tea.Cmd
	if m.onNotes {
		m.notes, cmd = m.notes.Update(msg)
	} else {
		m.evidence, cmd = m.evidence.Update(msg)
	}
	m.fail(m.sess.UpdateCompletion(m.evidence.Value(), m.notes.Value()))
	m.sync()
	return m, cmd
}

// loadForm fills the form inputs from the session draft.
func (m *Model) loadForm() {
	d := m.state.Draft
	m.fields[fieldTitle].SetValue(d.Title)
	m.fields[fieldDescription].SetValue(d.Description)
	m.fields[fieldTags].SetValue(strings.Join(d.Tags, ", "))
	m.focus = fieldTitle
	m.focusForm()
}

func (m *Model) focusForm() {
	for i := range m.fields {
		if i == m.focus {
			m.fields[i].Focus()
		} else {
			m.fields[i].Blur()
		}
	}
}

func (m Model) formKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.navigate(session.ViewPortfolio), nil
	case "tab":
		m.focus = (m.focus + 1) % fieldCount
		m.focusForm()
		return m, nil
	case "shift+tab":
		m.focus = (m.focus + fieldCount - 1) % fieldCount
		m.focusForm()
		return m, nil
	case "ctrl+s":
		m.busy = "portfolio"
		return m, m.do("portfolio", func(ctx context.Context) error {
			_, err := m.sess.SubmitDraft(ctx)
			return err
		})
	}

	if m.focus == fieldCompetencies {
		keys := m.state.Competencies.Keys()
		switch msg.String() {
		case "up", "k":
			m.areaCursor = clamp(m.areaCursor-1, len(keys))
		case "down", "j":
			m.areaCursor = clamp(m.areaCursor+1, len(keys))
		case " ", "enter":
			if len(keys) > 0 {
				m.fail(m.sess.ToggleDraftCompetency(keys[m.areaCursor]))
				m.sync()
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
	if m.focus == fieldTags {
		m.fail(m.sess.SetDraftTags(m.fields[fieldTags].Value()))
	} else {
		m.fail(m.sess.EditDraft(m.fields[fieldTitle].Value(), m.fields[fieldDescription].Value()))
	}
	m.sync()
	return m, cmd
}

// rows lists every sub-competency, grouped by area.
func (m Model) rows() []row {
	var rows []row
	m.state.Competencies.Each(func(areaKey string, area competency.Area) {
		area.SubCompetencies.Each(func(subKey string, _ competency.SubCompetency) {
			rows = append(rows, row{area: areaKey, sub: subKey})
		})
	})
	return rows
}

// Rendering

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")

	switch {
	case !m.state.Loaded && m.busy == "load":
		b.WriteString(m.styles.Muted.Render("Loading your progress..."))
	case m.state.View == session.ViewDashboard:
		b.WriteString(m.dashboardView())
	case m.state.View == session.ViewCompetencies:
		b.WriteString(m.competenciesView())
	case m.state.View == session.ViewPortfolio:
		b.WriteString(m.portfolioView())
	case m.state.View == session.ViewAddPortfolio:
		b.WriteString(m.formView())
	default:
		b.WriteString(m.styles.Title.Render("Admin"))
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render("Content, levels and users are managed from the web admin."))
	}

	if modal := m.modalView(); modal != "" {
		b.WriteString("\n")
		b.WriteString(modal)
	}
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) header() string {
	labels := make([]string, 0, len(tabs))
	for i, tab := range tabs {
		label := fmt.Sprintf("%d %s", i+1, tab.label)
		if tab.view == m.state.View || (tab.view == session.ViewAdminDashboard && m.state.View.IsAdmin()) {
			labels = append(labels, m.styles.ActiveTab.Render(label))
		} else {
			labels = append(labels, m.styles.Tab.Render(label))
		}
	}
	title := m.styles.Header.Render("Earn Your Wings · " + m.sess.User().Name)
	return lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinHorizontal(lipgloss.Top, labels...))
}

func (m Model) bar(percent float64) string {
	full := int(percent * barWidth / 100)
	full = clamp(full, barWidth+1)
	return m.styles.BarFull.Render(strings.Repeat("█", full)) +
		m.styles.BarEmpty.Render(strings.Repeat("░", barWidth-full))
}

func (m Model) dashboardView() string {
	sum := competency.Summarize(m.state.Competencies, m.top)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %d%%\n", m.styles.Title.Render("Overall progress"), m.bar(float64(sum.OverallProgress)), sum.OverallProgress)
	fmt.Fprintf(&b, "Tasks completed: %d of %d\n\n", sum.CompletedTasks, sum.TotalTasks)
	b.WriteString(m.styles.Title.Render("Top competencies"))
	b.WriteString("\n")
	if len(sum.TopCompetencies) == 0 {
		b.WriteString(m.styles.Muted.Render("No competencies yet."))
	}
	for _, e := range sum.TopCompetencies {
		fmt.Fprintf(&b, "%-24s %s %3.0f%%\n", e.Area.Name, m.bar(e.Area.OverallProgress), e.Area.OverallProgress)
	}
	return b.String()
}

func (m Model) competenciesView() string {
	var b strings.Builder
	i := 0
	m.state.Competencies.Each(func(_ string, area competency.Area) {
		fmt.Fprintf(&b, "%s %3.0f%%\n", m.styles.Title.Render(area.Name), area.OverallProgress)
		area.SubCompetencies.Each(func(_ string, sub competency.SubCompetency) {
			line := fmt.Sprintf("  %-22s %d/%d tasks", sub.Name, sub.CompletedTasks, sub.TotalTasks)
			if i == m.cursor {
				line = m.styles.Selected.Render("›" + line[1:])
			}
			b.WriteString(line + "\n")
			i++
		})
	})
	if i == 0 {
		b.WriteString(m.styles.Muted.Render("No competencies yet."))
	}
	return b.String()
}

func (m Model) portfolioView() string {
	if len(m.state.Portfolio) == 0 {
		return m.styles.Muted.Render("Your portfolio is empty. Press 4 to add an item.")
	}
	var b strings.Builder
	for _, item := range m.state.Portfolio {
		b.WriteString(m.styles.Title.Render(item.Title))
		if !item.UploadDate.IsZero() {
			b.WriteString(m.styles.Muted.Render(" · " + item.UploadDate.Format("2 Jan 2006")))
		}
		b.WriteString("\n")
		if item.Description != "" {
			b.WriteString("  " + item.Description + "\n")
		}
		if len(item.CompetencyAreas) > 0 || len(item.Tags) > 0 {
			meta := strings.Join(append(append([]string{}, item.CompetencyAreas...), prefixed("#", item.Tags)...), " ")
			b.WriteString("  " + m.styles.Muted.Render(meta) + "\n")
		}
	}
	return b.String()
}

func prefixed(prefix string, values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = prefix + v
	}
	return out
}

func (m Model) formView() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Add to portfolio"))
	b.WriteString("\n")
	for i := range m.fields {
		b.WriteString(m.fields[i].View())
		b.WriteString("\n")
	}

	label := "Competency areas"
	if m.focus == fieldCompetencies {
		label = m.styles.Focused.Render(label)
	}
	b.WriteString(label + "\n")
	linked := make(map[string]bool, len(m.state.Draft.CompetencyAreas))
	for _, key := range m.state.Draft.CompetencyAreas {
		linked[key] = true
	}
	for i, key := range m.state.Competencies.Keys() {
		area, _ := m.state.Competencies.Get(key)
		box := "[ ]"
		if linked[key] {
			box = "[x]"
		}
		line := fmt.Sprintf("  %s %s", box, area.Name)
		if m.focus == fieldCompetencies && i == m.areaCursor {
			line = m.styles.Selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if m.state.DraftSubmitting {
		b.WriteString(m.styles.Muted.Render("Saving..."))
	}
	return b.String()
}

func (m Model) modalView() string {
	list := m.state.Modals.Top()
	if list == nil {
		return ""
	}

	var b strings.Builder
	switch list.Kind {
	case session.ModalTaskList:
		fmt.Fprintf(&b, "%s\n", m.styles.Title.Render(fmt.Sprintf("Tasks · %s / %s", list.Area, list.Sub)))
		if list.Loading {
			b.WriteString(m.styles.Muted.Render("Loading tasks..."))
			break
		}
		if len(list.Tasks) == 0 {
			b.WriteString(m.styles.Muted.Render("No tasks for this competency."))
		}
		for i, t := range list.Tasks {
			b.WriteString(m.taskLine(t, i == m.taskCursor))
			b.WriteString("\n")
		}

	case session.ModalTaskCompletion:
		fmt.Fprintf(&b, "%s\n", m.styles.Title.Render("Mark task as complete"))
		b.WriteString(m.evidence.View() + "\n")
		b.WriteString(m.notes.View() + "\n")
		if list.Draft != nil && list.Draft.File != nil {
			b.WriteString(m.styles.Muted.Render("Attached: "+list.Draft.File.Name) + "\n")
		}
		if list.Submitting {
			b.WriteString(m.styles.Muted.Render("Submitting..."))
		}
	}
	return m.styles.Modal.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) taskLine(t task.Task, selected bool) string {
	box := "[ ]"
	if t.Completed {
		box = m.styles.Done.Render("[x]")
	}
	line := fmt.Sprintf("%s %s", box, t.Title)
	if t.EstimatedHours != nil {
		line += m.styles.Muted.Render(fmt.Sprintf(" (%.1fh)", *t.EstimatedHours))
	}
	if selected {
		return m.styles.Selected.Render("› ") + line
	}
	return "  " + line
}

func (m Model) footer() string {
	var b strings.Builder
	for _, n := range m.notices {
		style := m.styles.Info
		if n.Level == session.NoticeError {
			style = m.styles.Error
		}
		b.WriteString(style.Render(n.Message) + "\n")
	}
	if m.err != nil {
		b.WriteString(m.styles.Error.Render(m.err.Error()) + "\n")
	}
	if m.busy != "" {
		b.WriteString(m.styles.Muted.Render("Working...") + "\n")
	}
	b.WriteString(m.styles.Help.Render(m.help()))
	return b.String()
}

func (m Model) help() string {
	top := m.state.Modals.Top()
	switch {
	case top != nil && top.Kind == session.ModalTaskCompletion:
		return "tab switch field · enter submit · esc cancel"
	case top != nil:
		return "↑/↓ select · enter mark complete · esc close"
	case m.state.View == session.ViewAddPortfolio:
		return "tab next field · space link area · ctrl+s save · esc back"
	case m.state.View == session.ViewCompetencies:
		return "1-5 views · ↑/↓ select · enter tasks · r refresh · q quit"
	}
	return "1-5 views · r refresh · q quit"
}
