package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/competency"
	"github.com/earnyourwings/wings/core/portfolio"
	"github.com/earnyourwings/wings/core/task"
	"github.com/earnyourwings/wings/core/user"
)

const (
	msgAccessDenied     = "Access denied: this area is reserved for admins and moderators."
	msgTasksUnavailable = "We couldn't load the tasks for this competency. Please try again later."
	msgCompletionFailed = "We couldn't mark this task as complete. Please try again."
	msgTaskCompleted    = "Task marked as complete."
	msgPortfolioFailed  = "We couldn't add this item to your portfolio. Please try again."
	msgPortfolioAdded   = "Item added to your portfolio."
)

type (
	// Backend is the Earn Your Wings REST service.
	Backend interface {
		UserCompetencies(ctx context.Context, userID string) (competency.Snapshot, error)
		UserPortfolio(ctx context.Context, userID string) ([]portfolio.Item, error)
		Tasks(ctx context.Context, userID, area, sub string) ([]task.Task, error)
		CompleteTask(ctx context.Context, userID string, c task.Completion) error
		CreatePortfolioItem(ctx context.Context, userID string, ni portfolio.NewItem) (portfolio.Item, error)
		// ProvisionUser creates the backend record of a user seen for the first time.
		ProvisionUser(ctx context.Context, usr user.User) error
	}

	// Repository keeps the live sessions, one per user.
	Repository interface {
		GetOrCreateSession(usr user.User) (*Session, error)
		DeleteSession(userID string) error
	}

	// Session owns the client state of one user: the active view, the open modals,
	// the last data fetched from the backend and the drafts being edited.
	// All mutations go through its methods; backend calls are made without holding the lock
	// and their results are only applied if what they were made for is still on screen.
	Session struct {
		usr      user.User
		backend  Backend
		logger   core.Logger
		validate *validator.Validate

		mu             sync.Mutex
		state          State
		modalSeq       uint64
		refreshSeq     uint64
		appliedRefresh uint64
		draftGen       uint64
		// tasks whose completion is with the backend, even after their form was closed
		completing map[core.ID]bool
	}
)

func New(usr user.User, backend Backend, logger core.Logger, validate *validator.Validate) *Session {
	return &Session{
		usr:      usr,
		backend:  backend,
		logger:   logger,
		validate:   validate,
		state:      initialState(),
		completing: make(map[core.ID]bool),
	}
}

func (s *Session) User() user.User { return s.usr }

// Snapshot returns a copy of the state and marks the pending notices as delivered.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state.clone()
	s.state.Notices = nil
	return st
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.View
}

// Summary computes the dashboard aggregates over the current competencies.
func (s *Session) Summary(top int) competency.Summary {
	s.mu.Lock()
	snap := s.state.Competencies
	s.mu.Unlock()
	return competency.Summarize(snap, top)
}

// must be called with s.mu held
func (s *Session) notify(level NoticeLevel, msg string) {
	s.state.Notices = append(s.state.Notices, Notice{ID: uuid.NewString(), Level: level, Message: msg})
}

// =========================================================================
// Data

// EnsureLoaded fetches the user's data unless it was already loaded.
func (s *Session) EnsureLoaded(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.state.Loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

// Refresh reloads the user's competencies and portfolio.
// Failures are logged and leave the previously loaded data in place.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.refreshSeq++
	seq := s.refreshSeq
	s.mu.Unlock()

	var (
		snap             competency.Snapshot
		items            []portfolio.Item
		compErr, portErr error
		g                errgroup.Group
	)
	g.Go(func() error {
		snap, compErr = s.loadCompetencies(ctx)
		return compErr
	})
	g.Go(func() error {
		items, portErr = s.backend.UserPortfolio(ctx, s.usr.ID)
		portErr = errors.Wrap(portErr, "loading portfolio")
		return portErr
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.appliedRefresh {
		staleResults.WithLabelValues("refresh").Inc()
		s.logger.Debug(fmt.Sprintf("discarding refresh #%d: #%d already applied", seq, s.appliedRefresh))
		return nil
	}
	s.appliedRefresh = seq

	if compErr == nil {
		s.state.Competencies = snap
		s.state.Loaded = true
	} else {
		s.logger.Error("refreshing competencies", compErr, s.usr)
	}
	if portErr == nil {
		if items == nil {
			items = []portfolio.Item{}
		}
		s.state.Portfolio = items
	} else {
		s.logger.Error("refreshing portfolio", portErr, s.usr)
	}
	return err
}

// loadCompetencies provisions users the backend does not know yet.
func (s *Session) loadCompetencies(ctx context.Context) (competency.Snapshot, error) {
	snap, err := s.backend.UserCompetencies(ctx, s.usr.ID)
	if errors.Is(err, core.ErrNotFound) {
		s.logger.Info(fmt.Sprintf("provisioning user %q", s.usr.ID), s.usr)
		if err = s.backend.ProvisionUser(ctx, s.usr); err != nil {
			return competency.Snapshot{}, errors.Wrap(err, "provisioning user")
		}
		snap, err = s.backend.UserCompetencies(ctx, s.usr.ID)
	}
	return snap, errors.Wrap(err, "loading competencies")
}

// =========================================================================
// Navigation

// Navigate switches the top-level view. Admin views need the admin or moderator capability:
// without it the view is left unchanged, a notice is queued and core.ErrAuthorizationDenied is returned.
func (s *Session) Navigate(to View, caps user.Capabilities) error {
	if !to.Valid() {
		return core.NewValidationError(errUnknownView, core.FieldError{Field: "view", Error: errUnknownView.Error()})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if to.IsAdmin() && !user.HasAnyRole(caps, user.StaffRoles...) {
		navigationsDenied.Inc()
		s.notify(NoticeError, msgAccessDenied)
		return errors.Wrapf(core.ErrAuthorizationDenied, "navigating to %s", to)
	}
	s.navigate(to)
	return nil
}

// must be called with s.mu held
func (s *Session) navigate(to View) {
	if s.state.View == ViewAddPortfolio && to != ViewAddPortfolio {
		// leaving the form without submitting discards it
		s.state.Draft = portfolio.Draft{}
		s.state.DraftSubmitting = false
		s.draftGen++
	}
	s.state.Modals.closeAll()
	s.state.View = to
}

// =========================================================================
// Task list & completion modals

// OpenTaskList shows the tasks of a sub-competency, replacing any open modal.
// The list is shown empty when the tasks cannot be fetched.
func (s *Session) OpenTaskList(ctx context.Context, area, sub string) error {
	area, sub = core.CleanString(area), core.CleanString(sub)
	var fldErrs []core.FieldError
	if area == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "area", Error: "this field is required"})
	}
	if sub == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "sub", Error: "this field is required"})
	}
	if fldErrs != nil {
		return core.NewValidationError(nil, fldErrs...)
	}

	s.mu.Lock()
	s.modalSeq++
	id := s.modalSeq
	s.state.Modals.openTaskList(&Modal{ID: id, Kind: ModalTaskList, Area: area, Sub: sub, Loading: true})
	s.mu.Unlock()

	tasks, err := s.backend.Tasks(ctx, s.usr.ID, area, sub)

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.state.Modals.taskList()
	if list == nil || list.ID != id {
		staleResults.WithLabelValues("tasks").Inc()
		s.logger.Debug(fmt.Sprintf("discarding tasks of %s/%s: modal #%d is closed", area, sub, id))
		return nil
	}
	list.Loading = false
	if err != nil {
		list.Tasks = []task.Task{}
		s.notify(NoticeError, msgTasksUnavailable)
		s.logger.Error("loading tasks", errors.Wrapf(err, "loading tasks of %s/%s", area, sub), s.usr)
		return nil
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	list.Tasks = tasks
	return nil
}

// CloseTaskList closes the task list, along with the completion form stacked on it.
func (s *Session) CloseTaskList() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Modals.closeAll()
}

// OpenCompletion opens the "mark complete" form of an incomplete task of the open task list.
func (s *Session) OpenCompletion(taskID core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.state.Modals.taskList()
	switch {
	case list == nil:
		return errors.Wrap(ErrInvalidTransition, "no task list is open")
	case list.Loading:
		return errors.Wrap(ErrInvalidTransition, "tasks are still loading")
	case s.state.Modals.completion() != nil:
		return errors.Wrap(ErrInvalidTransition, "a task is already being completed")
	}

	if s.completing[taskID] {
		return errors.Wrapf(ErrSubmissionInFlight, "task %q", taskID)
	}
	t, ok := task.Find(list.Tasks, taskID)
	if !ok {
		return errors.Wrapf(core.ErrNotFound, "task %q", taskID)
	}
	if t.Completed {
		return errors.Wrapf(ErrInvalidTransition, "task %q is already completed", taskID)
	}

	s.modalSeq++
	s.state.Modals.openCompletion(&Modal{
		ID:     s.modalSeq,
		Kind:   ModalTaskCompletion,
		Area:   list.Area,
		Sub:    list.Sub,
		TaskID: taskID,
		Draft:  task.NewCompletionDraft(taskID),
	})
	return nil
}

// must be called with s.mu held
func (s *Session) editableCompletion() (*Modal, error) {
	m := s.state.Modals.completion()
	if m == nil {
		return nil, errors.Wrap(ErrInvalidTransition, "no task is being completed")
	}
	if m.Submitting {
		return nil, ErrSubmissionInFlight
	}
	return m, nil
}

func (s *Session) UpdateCompletion(evidence, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.editableCompletion()
	if err != nil {
		return err
	}
	m.Draft.EvidenceDescription = evidence
	m.Draft.Notes = notes
	return nil
}

// AttachCompletionFile sets (or with nil, removes) the evidence file.
func (s *Session) AttachCompletionFile(file *core.FileHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.editableCompletion()
	if err != nil {
		return err
	}
	m.Draft.File = file
	return nil
}

// CancelCompletion closes the completion form, discarding its draft.
func (s *Session) CancelCompletion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Modals.closeCompletion()
}

// SubmitCompletion hands the completion draft to the backend. On success the form closes and
// the user's data and the open task list are reloaded so percentages include the completed task.
func (s *Session) SubmitCompletion(ctx context.Context) error {
	s.mu.Lock()
	m := s.state.Modals.completion()
	if m == nil {
		s.mu.Unlock()
		return errors.Wrap(ErrInvalidTransition, "no task is being completed")
	}
	if m.Submitting {
		s.mu.Unlock()
		submissions.WithLabelValues("task", "ignored").Inc()
		return ErrSubmissionInFlight
	}
	completion, err := m.Draft.Submit(s.validate)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	m.Submitting = true
	id := m.ID
	s.completing[completion.TaskID] = true
	s.mu.Unlock()

	err = s.backend.CompleteTask(ctx, s.usr.ID, completion)

	s.mu.Lock()
	delete(s.completing, completion.TaskID)
	if err != nil {
		if cur := s.state.Modals.find(id); cur != nil {
			cur.Submitting = false
		}
		s.notify(NoticeError, msgCompletionFailed)
		s.mu.Unlock()
		submissions.WithLabelValues("task", "failed").Inc()
		s.logger.Error("completing task", errors.Wrapf(err, "completing task %q", completion.TaskID), s.usr)
		return errors.Wrap(err, "completing task")
	}

	if cur := s.state.Modals.completion(); cur != nil && cur.ID == id {
		s.state.Modals.closeCompletion()
	}
	s.notify(NoticeInfo, msgTaskCompleted)
	var list *Modal
	if l := s.state.Modals.taskList(); l != nil {
		list = l.clone()
	}
	s.mu.Unlock()
	submissions.WithLabelValues("task", "succeeded").Inc()

	// keep the aggregates and the open list in line with the completed task
	var g errgroup.Group
	g.Go(func() error { return s.Refresh(ctx) })
	if list != nil {
		g.Go(func() error { return s.reloadTasks(ctx, list.ID, list.Area, list.Sub) })
	}
	_ = g.Wait() // failures are logged; the completion itself went through
	return nil
}

// reloadTasks refetches the tasks of an open list, keeping the current ones on failure.
func (s *Session) reloadTasks(ctx context.Context, id uint64, area, sub string) error {
	tasks, err := s.backend.Tasks(ctx, s.usr.ID, area, sub)

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.state.Modals.taskList()
	if list == nil || list.ID != id {
		staleResults.WithLabelValues("tasks").Inc()
		return nil
	}
	if err != nil {
		err = errors.Wrapf(err, "reloading tasks of %s/%s", area, sub)
		s.logger.Error("reloading tasks", err, s.usr)
		return err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	list.Tasks = tasks
	return nil
}

// =========================================================================
// Portfolio draft

// must be called with s.mu held
func (s *Session) editableDraft() error {
	if s.state.View != ViewAddPortfolio {
		return errors.Wrapf(ErrInvalidTransition, "the portfolio form is not open on %s", s.state.View)
	}
	if s.state.DraftSubmitting {
		return ErrSubmissionInFlight
	}
	return nil
}

func (s *Session) EditDraft(title, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableDraft(); err != nil {
		return err
	}
	s.state.Draft.Title = title
	s.state.Draft.Description = description
	return nil
}

func (s *Session) ToggleDraftCompetency(key string) error {
	key = core.CleanString(key)
	if key == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "key", Error: "this field is required"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableDraft(); err != nil {
		return err
	}
	s.state.Draft = s.state.Draft.ToggleCompetency(key)
	return nil
}

func (s *Session) SetDraftTags(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableDraft(); err != nil {
		return err
	}
	s.state.Draft = s.state.Draft.SetTags(raw)
	return nil
}

// AttachDraftFile sets (or with nil, removes) the draft's file.
func (s *Session) AttachDraftFile(file *core.FileHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableDraft(); err != nil {
		return err
	}
	s.state.Draft.File = file
	return nil
}

// SubmitDraft validates the portfolio draft and creates the item on the backend.
// On success the draft is reset and, if the form is still shown, the user is taken to the portfolio.
func (s *Session) SubmitDraft(ctx context.Context) (portfolio.Item, error) {
	s.mu.Lock()
	if s.state.View != ViewAddPortfolio {
		s.mu.Unlock()
		return portfolio.Item{}, errors.Wrapf(ErrInvalidTransition, "the portfolio form is not open on %s", s.state.View)
	}
	if s.state.DraftSubmitting {
		s.mu.Unlock()
		submissions.WithLabelValues("portfolio", "ignored").Inc()
		return portfolio.Item{}, ErrSubmissionInFlight
	}
	draft := s.state.Draft
	newItem, err := draft.Submit(s.validate)
	if err != nil {
		s.mu.Unlock()
		return portfolio.Item{}, err
	}
	s.state.Draft = draft
	s.state.DraftSubmitting = true
	gen := s.draftGen
	s.mu.Unlock()

	item, err := s.backend.CreatePortfolioItem(ctx, s.usr.ID, newItem)

	s.mu.Lock()
	defer s.mu.Unlock()

	current := gen == s.draftGen
	if current {
		s.state.DraftSubmitting = false
	}
	if err != nil {
		s.notify(NoticeError, msgPortfolioFailed)
		submissions.WithLabelValues("portfolio", "failed").Inc()
		s.logger.Error("creating portfolio item", errors.Wrap(err, "creating portfolio item"), s.usr)
		return portfolio.Item{}, errors.Wrap(err, "creating portfolio item")
	}
	submissions.WithLabelValues("portfolio", "succeeded").Inc()

	s.state.Portfolio = append([]portfolio.Item{item}, s.state.Portfolio...)
	s.notify(NoticeInfo, msgPortfolioAdded)
	if current {
		s.state.Draft = portfolio.Draft{}
		if s.state.View == ViewAddPortfolio {
			s.navigate(ViewPortfolio)
		}
	}
	return item, nil
}
