package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/competency"
	"github.com/earnyourwings/wings/core/portfolio"
	"github.com/earnyourwings/wings/core/task"
	"github.com/earnyourwings/wings/core/user"
)

// NewValidator returns a validator set up the way the server sets it up.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(t *testing.T, id, name string, roles ...string) user.User {
	t.Helper()
	if id == "" {
		t.Fatal("CreateUser() failed: missing id")
	}
	return user.User{
		ID:    id,
		Name:  name,
		Email: id + "@wings.test",
		Roles: user.NormalizeRoles(roles),
	}
}

// Sub returns a sub-competency fixture with its completion percentage derived from the task counts.
func Sub(key string, completed, total int) competency.SubCompetency {
	sub := competency.SubCompetency{Key: key, Name: key, CompletedTasks: completed, TotalTasks: total}
	if total > 0 {
		sub.CompletionPercentage = float64(completed) * 100 / float64(total)
	}
	return sub
}

func Area(key string, progress float64, subs ...competency.SubCompetency) competency.Area {
	a := competency.Area{Key: key, Name: key, OverallProgress: progress}
	for _, sub := range subs {
		a.SubCompetencies.Set(sub.Key, sub)
	}
	return a
}

// LogEntry is a message recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records what it is asked to log.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Entries returns the recorded messages of the given level, or all of them when level is empty.
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEntry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Backend is an in-memory backend. Its hooks, when set, replace the default behavior of
// the matching call; they let tests block calls or make them fail.
type Backend struct {
	mu           sync.Mutex
	competencies map[string]competency.Snapshot
	portfolios   map[string][]portfolio.Item
	tasks        map[taskList][]task.Task
	completed    []task.Completion
	created      []portfolio.NewItem
	provisioned  []user.User
	calls        map[string]int
	nextID       int

	CompetenciesHook func(ctx context.Context, userID string) (competency.Snapshot, error)
	PortfolioHook    func(ctx context.Context, userID string) ([]portfolio.Item, error)
	TasksHook        func(ctx context.Context, userID, area, sub string) ([]task.Task, error)
	CompleteHook     func(ctx context.Context, userID string, c task.Completion) error
	CreateHook       func(ctx context.Context, userID string, ni portfolio.NewItem) (portfolio.Item, error)
	ProvisionHook    func(ctx context.Context, usr user.User) error
}

func NewBackend() *Backend {
	return &Backend{
		competencies: make(map[string]competency.Snapshot),
		portfolios:   make(map[string][]portfolio.Item),
		tasks:        make(map[taskList][]task.Task),
		calls:        make(map[string]int),
	}
}

type taskList struct {
	userID, area, sub string
}

// SetCompetencies registers the user with the backend.
func (b *Backend) SetCompetencies(userID string, snap competency.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.competencies[userID] = snap
}

func (b *Backend) SetPortfolio(userID string, items ...portfolio.Item) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.portfolios[userID] = items
}

func (b *Backend) SetTasks(userID, area, sub string, tasks ...task.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks[taskList{userID, area, sub}] = tasks
}

// Calls returns how many times op was called.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *Backend) Completed() []task.Completion {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]task.Completion(nil), b.completed...)
}

func (b *Backend) Created() []portfolio.NewItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]portfolio.NewItem(nil), b.created...)
}

func (b *Backend) Provisioned() []user.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]user.User(nil), b.provisioned...)
}

func (b *Backend) called(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[op]++
}

func (b *Backend) UserCompetencies(ctx context.Context, userID string) (competency.Snapshot, error) {
	b.called("competencies")
	if b.CompetenciesHook != nil {
		return b.CompetenciesHook(ctx, userID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	snap, ok := b.competencies[userID]
	if !ok {
		return competency.Snapshot{}, core.ErrNotFound
	}
	return snap, nil
}

func (b *Backend) UserPortfolio(ctx context.Context, userID string) ([]portfolio.Item, error) {
	b.called("portfolio")
	if b.PortfolioHook != nil {
		return b.PortfolioHook(ctx, userID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]portfolio.Item{}, b.portfolios[userID]...), nil
}

func (b *Backend) Tasks(ctx context.Context, userID, area, sub string) ([]task.Task, error) {
	b.called("tasks")
	if b.TasksHook != nil {
		return b.TasksHook(ctx, userID, area, sub)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	tasks, ok := b.tasks[taskList{userID, area, sub}]
	if !ok {
		return nil, core.ErrNotFound
	}
	return append([]task.Task{}, tasks...), nil
}

// CompleteTask marks the user's task complete and counts it in the sub-competency holding it.
func (b *Backend) CompleteTask(ctx context.Context, userID string, c task.Completion) error {
	b.called("complete")
	if b.CompleteHook != nil {
		if err := b.CompleteHook(ctx, userID, c); err != nil {
			return err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed = append(b.completed, c)
	for list, tasks := range b.tasks {
		if list.userID != userID {
			continue
		}
		for i := range tasks {
			if tasks[i].ID != c.TaskID || tasks[i].Completed {
				continue
			}
			tasks[i].Completed = true
			if snap, ok := b.competencies[userID]; ok {
				b.competencies[userID] = countCompleted(snap, list.area, list.sub)
			}
		}
	}
	return nil
}

// countCompleted returns a copy of snap with one more completed task in area/sub.
func countCompleted(snap competency.Snapshot, area, sub string) competency.Snapshot {
	var out competency.Snapshot
	snap.Each(func(key string, a competency.Area) {
		if key == area {
			var subs competency.Ordered[competency.SubCompetency]
			a.SubCompetencies.Each(func(key string, s competency.SubCompetency) {
				if key == sub {
					s.CompletedTasks++
					if s.TotalTasks > 0 {
						s.CompletionPercentage = float64(s.CompletedTasks) * 100 / float64(s.TotalTasks)
					}
				}
				subs.Set(key, s)
			})
			a.SubCompetencies = subs
		}
		out.Set(key, a)
	})
	return out
}

func (b *Backend) CreatePortfolioItem(ctx context.Context, userID string, ni portfolio.NewItem) (portfolio.Item, error) {
	b.called("create")
	if b.CreateHook != nil {
		return b.CreateHook(ctx, userID, ni)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	item := portfolio.Item{
		ID:              core.ID(fmt.Sprint(b.nextID)),
		Title:           ni.Title,
		Description:     ni.Description,
		CompetencyAreas: ni.CompetencyAreas,
		Tags:            ni.Tags,
	}
	if ni.File != nil {
		item.FilePath = "/uploads/" + ni.File.Name
	}
	b.created = append(b.created, ni)
	b.portfolios[userID] = append([]portfolio.Item{item}, b.portfolios[userID]...)
	return item, nil
}

// ProvisionUser registers the user with an empty competency snapshot.
func (b *Backend) ProvisionUser(ctx context.Context, usr user.User) error {
	b.called("provision")
	if b.ProvisionHook != nil {
		if err := b.ProvisionHook(ctx, usr); err != nil {
			return err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.provisioned = append(b.provisioned, usr)
	if _, ok := b.competencies[usr.ID]; !ok {
		b.competencies[usr.ID] = competency.Snapshot{}
	}
	return nil
}
