package echoapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/competency"
	"github.com/earnyourwings/wings/core/session"
	"github.com/earnyourwings/wings/core/task"
	"github.com/earnyourwings/wings/core/user"
	inmemdb "github.com/earnyourwings/wings/storage/database/inmem"
	testutil "github.com/earnyourwings/wings/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type testApp struct {
	conf    *core.Config
	server  *Server
	backend *testutil.Backend
	logger  *testutil.Logger
}

func newTestConfig() *core.Config {
	return &core.Config{
		TestMode:        true,
		Env:             "TEST",
		AppName:         "Earn Your Wings",
		SecretKey:       "secret",
		TopCompetencies: 3,
		Server:          core.ServerConfig{MaxUploadSize: 1 << 10},
	}
}

// newTestApp serves a backend knowing users "u1", "mod" and "admin".
func newTestApp(t *testing.T, conf *core.Config) testApp {
	t.Helper()
	backend := testutil.NewBackend()
	for _, id := range []string{"u1", "mod", "admin"} {
		backend.SetCompetencies(id, competency.NewSnapshot(
			testutil.Area("leadership", 50, testutil.Sub("communication", 1, 2)),
			testutil.Area("technical", 80, testutil.Sub("testing", 4, 5)),
		))
		backend.SetTasks(id, "leadership", "communication",
			task.Task{ID: "t1", Title: "Read the guide", Completed: true},
			task.Task{ID: "t2", Title: "Run a meeting"},
		)
	}

	logger := &testutil.Logger{}
	validate, translator := testutil.NewValidator()
	factory := func(usr user.User) *session.Session {
		return session.New(usr, backend, logger, validate)
	}
	repo := inmemdb.NewSessionRepository(inmemdb.Open(), factory, logger, 0)

	return testApp{
		conf:    conf,
		server:  NewServer(conf, logger, repo, validate, translator),
		backend: backend,
		logger:  logger,
	}
}

func (app testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest sends content as the multipart "file" field.
func newUploadRequest(t *testing.T, method, path, token, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}
	_, _ = part.Write(content)
	if err = w.Close(); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	t.Helper()
	token, err := user.GenerateToken(user.NewClaims(usr, "test", time.Hour), []byte(conf.SecretKey))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// stateResponse is the part of the session state the tests look at.
type stateResponse struct {
	View   string `json:"view"`
	Loaded bool   `json:"loaded"`
	Modals []struct {
		Kind   string `json:"kind"`
		Sub    string `json:"sub"`
		TaskID string `json:"task_id"`
		Tasks  []struct {
			ID        string `json:"id"`
			Completed bool   `json:"completed"`
		} `json:"tasks"`
		Draft *struct {
			EvidenceDescription string `json:"evidence_description"`
			File                *struct {
				Name string `json:"name"`
				Size int    `json:"size"`
			} `json:"file"`
		} `json:"draft"`
	} `json:"modals"`
	Portfolio []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"portfolio"`
	Draft struct {
		Title           string   `json:"title"`
		CompetencyAreas []string `json:"competency_areas"`
		Tags            []string `json:"tags"`
		File            *struct {
			Name string `json:"name"`
		} `json:"file"`
	} `json:"draft"`
	Notices []struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	} `json:"notices"`
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateResponse {
	t.Helper()
	var st stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decodeState() failed: %v; body %s", err, rec.Body.String())
	}
	return st
}
