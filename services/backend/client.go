package backendsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/competency"
	"github.com/earnyourwings/wings/core/portfolio"
	"github.com/earnyourwings/wings/core/session"
	"github.com/earnyourwings/wings/core/task"
	"github.com/earnyourwings/wings/core/user"
)

// maximum number of body bytes quoted in errors
const bodyExcerptLen = 512

// Client talks to the Earn Your Wings REST backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ session.Backend = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(conf.Backend.BaseURL, "/"),
		apiKey:     conf.Backend.APIKey,
		httpClient: &http.Client{Timeout: conf.Backend.Timeout},
	}
}

// userPath builds "/api/users/{userID}/..." with every segment escaped.
func userPath(userID string, segments ...string) string {
	parts := make([]string, 0, len(segments)+3)
	parts = append(parts, "", "api", "users", url.PathEscape(userID))
	for _, seg := range segments {
		parts = append(parts, url.PathEscape(seg))
	}
	return strings.Join(parts, "/")
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// do sends the request and decodes a JSON response into out, if not nil.
// 404 responses give core.ErrNotFound; every other failure gives a *core.RequestError.
func (c *Client) do(op string, req *http.Request, out interface{}) (err error) {
	defer func() {
		outcome := "ok"
		switch {
		case errors.Is(err, core.ErrNotFound):
			outcome = "not_found"
		case err != nil:
			outcome = "failed"
		}
		requests.WithLabelValues(op, outcome).Inc()
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.NewRequestError(op, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.NewRequestError(op, resp.StatusCode, errors.Wrap(err, "reading response"))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(core.ErrNotFound, "%s %s", req.Method, req.URL.Path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return core.NewRequestError(op, resp.StatusCode, errors.New(excerpt(body)))
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err = json.Unmarshal(body, out); err != nil {
		return core.NewRequestError(op, resp.StatusCode, errors.Wrap(err, "decoding response"))
	}
	return nil
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > bodyExcerptLen {
		s = s[:bodyExcerptLen] + "..."
	}
	if s == "" {
		s = "empty response"
	}
	return s
}

func (c *Client) get(ctx context.Context, op, path string, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return core.NewRequestError(op, 0, err)
	}
	return c.do(op, req, out)
}

func (c *Client) UserCompetencies(ctx context.Context, userID string) (competency.Snapshot, error) {
	var snap competency.Snapshot
	if err := c.get(ctx, "user competencies", userPath(userID, "competencies"), &snap); err != nil {
		return competency.Snapshot{}, err
	}
	return snap, nil
}

func (c *Client) UserPortfolio(ctx context.Context, userID string) ([]portfolio.Item, error) {
	var items []portfolio.Item
	if err := c.get(ctx, "user portfolio", userPath(userID, "portfolio"), &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []portfolio.Item{}
	}
	return items, nil
}

func (c *Client) Tasks(ctx context.Context, userID, area, sub string) ([]task.Task, error) {
	var tasks []task.Task
	if err := c.get(ctx, "tasks", userPath(userID, "competencies", area, sub, "tasks"), &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

// form builds a multipart body. A nil file is left out.
type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) {
	if f.err == nil {
		f.err = f.w.WriteField(name, value)
	}
}

// jsonField writes v as a JSON encoded field.
func (f *form) jsonField(name string, v interface{}) {
	if f.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		f.err = err
		return
	}
	f.field(name, string(data))
}

func (f *form) file(name string, fh *core.FileHandle) {
	if f.err != nil || fh == nil {
		return
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", multipart.FileContentDisposition(name, fh.Name))
	contentType := fh.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = io.Copy(part, fh.Reader())
}

func (f *form) close() (io.Reader, string, error) {
	if f.err == nil {
		f.err = f.w.Close()
	}
	return &f.buf, f.w.FormDataContentType(), errors.Wrap(f.err, "building form")
}

func (c *Client) CompleteTask(ctx context.Context, userID string, cpl task.Completion) error {
	const op = "complete task"

	f := newForm()
	f.field("evidence_description", cpl.EvidenceDescription)
	f.field("notes", cpl.Notes)
	f.file("file", cpl.File)
	body, contentType, err := f.close()
	if err != nil {
		return core.NewRequestError(op, 0, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, userPath(userID, "tasks", cpl.TaskID.String(), "complete"), body, contentType)
	if err != nil {
		return core.NewRequestError(op, 0, err)
	}
	return c.do(op, req, nil)
}

func (c *Client) CreatePortfolioItem(ctx context.Context, userID string, ni portfolio.NewItem) (portfolio.Item, error) {
	const op = "create portfolio item"

	areas, tags := ni.CompetencyAreas, ni.Tags
	if areas == nil {
		areas = []string{}
	}
	if tags == nil {
		tags = []string{}
	}
	f := newForm()
	f.field("title", ni.Title)
	f.field("description", ni.Description)
	f.jsonField("competency_areas", areas)
	f.jsonField("tags", tags)
	f.file("file", ni.File)
	body, contentType, err := f.close()
	if err != nil {
		return portfolio.Item{}, core.NewRequestError(op, 0, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, userPath(userID, "portfolio"), body, contentType)
	if err != nil {
		return portfolio.Item{}, core.NewRequestError(op, 0, err)
	}
	var item portfolio.Item
	if err = c.do(op, req, &item); err != nil {
		return portfolio.Item{}, err
	}
	return item, nil
}

type newUserPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c *Client) ProvisionUser(ctx context.Context, usr user.User) error {
	const op = "provision user"

	data, err := json.Marshal(newUserPayload{ID: usr.ID, Name: usr.Name, Email: usr.Email})
	if err != nil {
		return core.NewRequestError(op, 0, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/users", bytes.NewReader(data), "application/json")
	if err != nil {
		return core.NewRequestError(op, 0, err)
	}
	return c.do(op, req, nil)
}
