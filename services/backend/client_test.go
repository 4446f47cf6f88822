package backendsvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/portfolio"
	"github.com/earnyourwings/wings/core/task"
	"github.com/earnyourwings/wings/core/user"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&core.Config{
		Backend: core.BackendConfig{BaseURL: srv.URL + "/", APIKey: "key", Timeout: 5 * time.Second},
	})
}

func TestClient_UserCompetencies(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/users/u%201/competencies", r.URL.EscapedPath())
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{
			"technical": {"name": "Technical", "overall_progress": 80, "sub_competencies": {
				"testing": {"name": "Testing", "completed_tasks": 4, "total_tasks": 5}
			}},
			"leadership": {"name": "Leadership", "overall_progress": null, "sub_competencies": {}}
		}`)
	})

	snap, err := client.UserCompetencies(context.Background(), "u 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"technical", "leadership"}, snap.Keys())

	tech, _ := snap.Get("technical")
	assert.Equal(t, "technical", tech.Key)
	assert.Equal(t, 80.0, tech.OverallProgress)
	sub, ok := tech.Sub("testing")
	require.True(t, ok)
	assert.Equal(t, 4, sub.CompletedTasks)

	lead, _ := snap.Get("leadership")
	assert.Zero(t, lead.OverallProgress)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantStatus int
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"detail": "no such user"}`, wantErr: core.ErrNotFound},
		{name: "server error", status: http.StatusInternalServerError, body: "oops", wantErr: core.ErrRequestFailed, wantStatus: 500},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: core.ErrRequestFailed, wantStatus: 401},
		{name: "malformed body", status: http.StatusOK, body: `[1, 2]`, wantErr: core.ErrRequestFailed, wantStatus: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.UserCompetencies(context.Background(), "u1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "err = %v; want %v", err, tt.wantErr)

			var reqErr *core.RequestError
			if errors.As(err, &reqErr) {
				assert.Equal(t, tt.wantStatus, reqErr.Status)
			}
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(&core.Config{Backend: core.BackendConfig{BaseURL: srv.URL, Timeout: time.Second}})

	_, err := client.UserPortfolio(context.Background(), "u1")
	assert.True(t, errors.Is(err, core.ErrRequestFailed))

	var reqErr *core.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Zero(t, reqErr.Status)
}

func TestClient_UserPortfolio(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/u1/portfolio", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id": 7, "title": "Talk", "competency_areas": ["technical"], "tags": [], "upload_date": "2021-03-01T10:00:00"}]`)
	})

	items, err := client.UserPortfolio(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, core.ID("7"), items[0].ID)
	assert.Equal(t, []string{"technical"}, items[0].CompetencyAreas)
	assert.Equal(t, 2021, items[0].UploadDate.Year())
}

func TestClient_Tasks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/u1/competencies/leadership/communication/tasks", r.URL.Path)
		_, _ = io.WriteString(w, `[
			{"id": 1, "title": "Watch", "task_type": "course_link", "estimated_hours": 1.5},
			{"id": "t2", "title": "Shadow", "task_type": "pairing", "completed": true}
		]`)
	})

	tasks, err := client.Tasks(context.Background(), "u1", "leadership", "communication")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, core.ID("1"), tasks[0].ID)
	assert.Equal(t, task.TypeCourseLink, tasks[0].Type)
	require.NotNil(t, tasks[0].EstimatedHours)
	assert.Equal(t, 1.5, *tasks[0].EstimatedHours)
	assert.Equal(t, task.TypeOther, tasks[1].Type)
	assert.True(t, tasks[1].Completed)
}

func TestClient_CompleteTask(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users/u1/tasks/t2/complete", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Ran the sync", r.FormValue("evidence_description"))
		assert.Equal(t, "", r.FormValue("notes"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, "minutes.txt", hdr.Filename)
		assert.Equal(t, "text/plain", hdr.Header.Get("Content-Type"))
		assert.Equal(t, "hello", string(content))
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.CompleteTask(context.Background(), "u1", task.Completion{
		TaskID:              "t2",
		EvidenceDescription: "Ran the sync",
		File:                core.NewFileHandle("minutes.txt", "text/plain", []byte("hello")),
	})
	assert.NoError(t, err)
}

func TestClient_CreatePortfolioItem(t *testing.T) {
	tests := []struct {
		name     string
		newItem  portfolio.NewItem
		wantArea string
		wantTags string
		wantFile bool
	}{
		{
			name:     "full",
			newItem:  portfolio.NewItem{Title: "Talk", Description: "About testing", CompetencyAreas: []string{"technical"}, Tags: []string{"talks", "go"}, File: core.NewFileHandle("slides.pdf", "", []byte("%PDF"))},
			wantArea: `["technical"]`,
			wantTags: `["talks","go"]`,
			wantFile: true,
		},
		{
			name:     "no links",
			newItem:  portfolio.NewItem{Title: "Talk", Description: "About testing"},
			wantArea: `[]`,
			wantTags: `[]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/users/u1/portfolio", r.URL.Path)
				require.NoError(t, r.ParseMultipartForm(1<<20))
				assert.Equal(t, tt.newItem.Title, r.FormValue("title"))
				assert.Equal(t, tt.newItem.Description, r.FormValue("description"))
				assert.JSONEq(t, tt.wantArea, r.FormValue("competency_areas"))
				assert.JSONEq(t, tt.wantTags, r.FormValue("tags"))
				_, hdr, err := r.FormFile("file")
				if tt.wantFile {
					require.NoError(t, err)
					assert.Equal(t, "application/octet-stream", hdr.Header.Get("Content-Type"))
				} else {
					assert.Equal(t, http.ErrMissingFile, err)
				}

				w.WriteHeader(http.StatusCreated)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": 9, "title": r.FormValue("title")})
			})

			item, err := client.CreatePortfolioItem(context.Background(), "u1", tt.newItem)
			require.NoError(t, err)
			assert.Equal(t, core.ID("9"), item.ID)
			assert.Equal(t, "Talk", item.Title)
		})
	}
}

func TestClient_ProvisionUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"id": "u1", "name": "Jane", "email": "jane@wings.test"}`, string(body))
		w.WriteHeader(http.StatusCreated)
	})

	err := client.ProvisionUser(context.Background(), user.User{ID: "u1", Name: "Jane", Email: "jane@wings.test", Roles: []string{"admin"}})
	assert.NoError(t, err)
}
